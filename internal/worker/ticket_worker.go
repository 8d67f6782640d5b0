package worker

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"kioscopos/internal/dto"
	"kioscopos/internal/infra"

	"github.com/rs/zerolog/log"
)

const anchoTicket = 40

// TicketWorker renders a receipt and sends it to the printer through the
// circuit breaker.
type TicketWorker struct {
	printer infra.Printer
	cb      *infra.CircuitBreaker
}

func NewTicketWorker(printer infra.Printer, cb *infra.CircuitBreaker) *TicketWorker {
	return &TicketWorker{printer: printer, cb: cb}
}

// Handle is a JobHandler.
func (w *TicketWorker) Handle(ctx context.Context, job dto.TicketJob) error {
	body := FormatTicket(job)
	err := w.cb.Execute(func() error {
		return w.printer.Print(ctx, job.NumeroTicket, body)
	})
	if err != nil {
		return fmt.Errorf("imprimir ticket %d: %w", job.NumeroTicket, err)
	}
	log.Info().Int("numero_ticket", job.NumeroTicket).Str("venta_id", job.VentaID).Msg("ticket impreso")
	return nil
}

// FormatTicket renders a fixed-width plain-text receipt.
func FormatTicket(job dto.TicketJob) []byte {
	var b bytes.Buffer
	sep := strings.Repeat("-", anchoTicket)

	fmt.Fprintf(&b, "%s\n", centrar("KIOSCO"))
	fmt.Fprintf(&b, "Ticket N° %06d\n", job.NumeroTicket)
	fmt.Fprintf(&b, "%s\n%s\n", job.Fecha, sep)
	for _, it := range job.Items {
		fmt.Fprintf(&b, "%s\n", recortar(it.Producto, anchoTicket))
		linea := fmt.Sprintf("  %d x $%s", it.Cantidad, it.PrecioUnitario.StringFixed(2))
		fmt.Fprintf(&b, "%s\n", columnas(linea, "$"+it.Subtotal.StringFixed(2)))
	}
	fmt.Fprintf(&b, "%s\n", sep)
	fmt.Fprintf(&b, "%s\n", columnas("TOTAL", "$"+job.Total.StringFixed(2)))
	fmt.Fprintf(&b, "Pago: %s\n", job.MetodoPago)
	fmt.Fprintf(&b, "%s\n", centrar("Gracias por su compra"))
	return b.Bytes()
}

func recortar(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}

func columnas(izq, der string) string {
	pad := anchoTicket - len([]rune(izq)) - len([]rune(der))
	if pad < 1 {
		pad = 1
	}
	return izq + strings.Repeat(" ", pad) + der
}

func centrar(s string) string {
	pad := (anchoTicket - len([]rune(s))) / 2
	if pad < 0 {
		pad = 0
	}
	return strings.Repeat(" ", pad) + s
}
