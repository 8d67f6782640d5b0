package dto

import "github.com/shopspring/decimal"

// TicketJob is the payload handed to the printing collaborator after a sale
// commits. It is a read of already-committed data.
type TicketJob struct {
	VentaID      string              `json:"venta_id"`
	NumeroTicket int                 `json:"numero_ticket"`
	Fecha        string              `json:"fecha"`
	Items        []ItemVentaResponse `json:"items"`
	Total        decimal.Decimal     `json:"total"`
	MetodoPago   string              `json:"metodo_pago"`
	Attempts     int                 `json:"attempts"`
}
