package service

import (
	"errors"

	"kioscopos/internal/apierror"
	"kioscopos/internal/repository"

	"github.com/rs/zerolog/log"
)

// Sentinels. Compare with errors.Is; returned copies may carry a more
// specific message built from the same numbers the UI displays.
var (
	// validation_error
	ErrEmptyCart             = apierror.Validation("EmptyCart", "La venta debe tener al menos un item")
	ErrInvalidQuantity       = apierror.Validation("InvalidQuantity", "La cantidad debe ser mayor a cero")
	ErrInvalidPrice          = apierror.Validation("InvalidPrice", "El precio no puede ser negativo")
	ErrInvalidAmount         = apierror.Validation("InvalidAmount", "El monto debe ser mayor a cero")
	ErrInvalidPaymentMethod  = apierror.Validation("InvalidPaymentMethod", "Metodo de pago invalido")
	ErrInvalidID             = apierror.Validation("InvalidID", "Identificador invalido")
	ErrInvalidReturnQuantity = apierror.Validation("InvalidReturnQuantity", "Cantidad a devolver invalida")
	ErrInvalidPromoConfig    = apierror.Validation("InvalidPromoConfiguration", "Configuracion de promo invalida")
	ErrInvalidMovementType   = apierror.Validation("InvalidMovementType", "Tipo de movimiento invalido")

	// state_conflict
	ErrSessionAlreadyOpen      = apierror.Conflict("SessionAlreadyOpen", "Ya existe una caja abierta")
	ErrNoOpenSession           = apierror.Conflict("NoOpenSession", "No hay sesion de caja abierta")
	ErrSessionClosed           = apierror.Conflict("SessionClosed", "La sesion de caja ya esta cerrada")
	ErrInvoiceAlreadyAnnotated = apierror.Conflict("InvoiceAlreadyAnnotated", "La venta ya tiene factura asociada")
	ErrDuplicateDNI            = apierror.Conflict("DuplicateDNI", "Ya existe un cliente con ese DNI")
	ErrDuplicateBarcode        = apierror.Conflict("DuplicateBarcode", "Ya existe un producto con ese codigo de barras")
	ErrDuplicateCUIT           = apierror.Conflict("DuplicateCUIT", "Ya existe un proveedor con ese CUIT")
	ErrDuplicateUsername       = apierror.Conflict("DuplicateUsername", "El nombre de usuario ya existe")

	// business_rule_violation
	ErrInsufficientBalance        = apierror.BusinessRule("InsufficientBalance", "Saldo insuficiente")
	ErrInsufficientStock          = apierror.BusinessRule("InsufficientStock", "Stock insuficiente")
	ErrMissingClientForCreditSale = apierror.BusinessRule("MissingClientForCreditSale", "Las ventas en cuenta corriente requieren un cliente")
	ErrPriceOutOfTolerance        = apierror.BusinessRule("PriceOutOfTolerance", "El precio difiere del precio de lista")
	ErrProductInactive            = apierror.BusinessRule("ProductInactive", "El producto esta inactivo")
	ErrSummaryMismatch            = apierror.BusinessRule("SummaryMismatch", "Los totales informados no coinciden con el resumen")
	ErrPromoStockNotAdjustable    = apierror.BusinessRule("PromoStockNotAdjustable", "El stock de una promo se deriva de sus componentes")

	// not_found
	ErrSaleNotFound     = apierror.NotFound("SaleNotFound", "Venta no encontrada")
	ErrSessionNotFound  = apierror.NotFound("SessionNotFound", "Sesion de caja no encontrada")
	ErrProductNotFound  = apierror.NotFound("ProductNotFound", "Producto no encontrado")
	ErrClientNotFound   = apierror.NotFound("ClientNotFound", "Cliente no encontrado")
	ErrSupplierNotFound = apierror.NotFound("SupplierNotFound", "Proveedor no encontrado")
	ErrUserNotFound     = apierror.NotFound("UserNotFound", "Usuario no encontrado")
)

// Answered with 401 by the auth handler.
var (
	ErrInvalidCredentials = errors.New("credenciales invalidas")
	ErrInvalidToken       = errors.New("refresh token invalido o expirado")
)

// fail is the coordinator boundary: typed errors pass through untouched, and
// anything else is logged once with the operation name and an input digest,
// then classified as persistence_failure.
func fail(op string, err error, digest map[string]interface{}) error {
	if _, ok := apierror.As(err); ok {
		return err
	}
	log.Error().Err(err).Str("op", op).Fields(digest).Msg("persistence failure")
	return apierror.Persistence(op, err)
}

// notFound maps repository.ErrNotFound onto a typed error.
func notFound(err error, typed *apierror.Error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return typed
	}
	return err
}
