package service

import (
	"context"
	"errors"

	"kioscopos/internal/dto"
	"kioscopos/internal/infra"
	"kioscopos/internal/model"
	"kioscopos/internal/repository"
	"kioscopos/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// PoliticaVenta holds the configurable sale policies.
type PoliticaVenta struct {
	// AllowNegativeStock lets a sale drive stock below zero (kiosks oversell
	// pending restock). The sale result then lists the affected products.
	AllowNegativeStock bool
	// PriceTolerancePct > 0 rejects line prices deviating from the catalog
	// price by more than this percentage. Zero trusts the caller's snapshot.
	PriceTolerancePct decimal.Decimal
}

type VentaService interface {
	RegistrarVenta(ctx context.Context, usuarioID uuid.UUID, req dto.RegistrarVentaRequest) (*dto.VentaResponse, error)
	ObtenerVenta(ctx context.Context, id uuid.UUID) (*dto.VentaResponse, error)
	ListarVentas(ctx context.Context, filter dto.VentaFilter) (*dto.VentaListResponse, error)
	AnotarFactura(ctx context.Context, id uuid.UUID, req dto.AnotarFacturaRequest) (*dto.VentaResponse, error)
}

type ventaService struct {
	store    repository.Store
	cache    *infra.CatalogCache
	handoff  worker.Handoff
	clock    Clock
	politica PoliticaVenta
}

func NewVentaService(store repository.Store, cache *infra.CatalogCache, handoff worker.Handoff, clock Clock, politica PoliticaVenta) VentaService {
	return &ventaService{store: store, cache: cache, handoff: handoff, clock: clock, politica: politica}
}

var cien = decimal.NewFromInt(100)

type lineaVenta struct {
	productoID uuid.UUID
	cantidad   int
	precio     decimal.Decimal
}

// ── RegistrarVenta ────────────────────────────────────────────────────────────
// One transaction:
//   1. ticket number, header + items (price snapshot from the caller)
//   2. stock deltas through the stock engine, one audit row per delta
//   3. cuenta_corriente: client debt += total
// After commit: catalog cache bump and ticket hand-off, both best effort.

func (s *ventaService) RegistrarVenta(ctx context.Context, usuarioID uuid.UUID, req dto.RegistrarVentaRequest) (*dto.VentaResponse, error) {
	lineas, clienteID, err := s.validar(req)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, l := range lineas {
		total = total.Add(l.precio.Mul(decimal.NewFromInt(int64(l.cantidad))))
	}

	var venta model.Venta
	var advertencias []dto.AdvertenciaStock
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if clienteID != nil {
			if _, err := tx.Clientes().FindByID(ctx, *clienteID); err != nil {
				return notFound(err, ErrClientNotFound)
			}
		}

		numero, err := tx.Ventas().NextTicketNumber(ctx)
		if err != nil {
			return err
		}
		venta = model.Venta{
			ID:           uuid.New(),
			NumeroTicket: numero,
			UsuarioID:    usuarioID,
			ClienteID:    clienteID,
			Total:        total,
			MetodoPago:   req.MetodoPago,
		}
		sesion, err := tx.Caja().FindSesionAbierta(ctx, false)
		switch {
		case err == nil:
			venta.SesionCajaID = &sesion.ID
		case errors.Is(err, repository.ErrNotFound):
			sesion = nil
		default:
			return err
		}
		if venta.Fecha, err = s.clock.fechaCaja(ctx, tx, sesion); err != nil {
			return err
		}

		var deltas []Delta
		nombres := make(map[uuid.UUID]*model.Producto, len(lineas))
		for _, l := range lineas {
			p, err := tx.Productos().FindByID(ctx, l.productoID)
			if err != nil {
				return notFound(err, ErrProductNotFound)
			}
			if !p.Activo {
				return ErrProductInactive.Withf("El producto %s esta inactivo", p.Nombre)
			}
			if err := s.verificarPrecio(p, l.precio); err != nil {
				return err
			}
			var comps []model.PromoComponente
			if p.EsPromo {
				if comps, err = tx.Productos().Componentes(ctx, p.ID); err != nil {
					return err
				}
			}
			d, err := ResolverDeltas(p, comps, l.cantidad)
			if err != nil {
				return err
			}
			deltas = append(deltas, d...)
			nombres[p.ID] = p

			venta.Items = append(venta.Items, model.VentaItem{
				ProductoID:     p.ID,
				Cantidad:       l.cantidad,
				PrecioUnitario: l.precio,
				Subtotal:       l.precio.Mul(decimal.NewFromInt(int64(l.cantidad))),
			})
		}

		if err := tx.Ventas().Create(ctx, &venta); err != nil {
			return err
		}

		advertencias, err = registrarDeltas(ctx, tx, deltas, model.StockVenta, s.politica.AllowNegativeStock,
			usuarioID, venta.ID, "venta", venta.Fecha)
		if err != nil {
			return err
		}

		if req.MetodoPago == model.MetodoCuentaCorriente {
			if err := tx.Clientes().AddDeuda(ctx, *clienteID, total); err != nil {
				return notFound(err, ErrClientNotFound)
			}
		}

		for i := range venta.Items {
			venta.Items[i].Producto = nombres[venta.Items[i].ProductoID]
		}
		return nil
	})
	if err != nil {
		return nil, fail("registrar venta", err, map[string]interface{}{
			"items": len(lineas), "total": total.String(), "metodo_pago": req.MetodoPago, "usuario_id": usuarioID.String(),
		})
	}

	resp := toVentaResponse(&venta)
	resp.Advertencias = advertencias
	if len(advertencias) > 0 {
		log.Warn().Str("venta_id", resp.ID).Int("productos", len(advertencias)).Msg("venta dejo stock negativo")
	}

	s.cache.Invalidate(ctx)
	s.entregarTicket(ctx, resp)
	return &resp, nil
}

func (s *ventaService) validar(req dto.RegistrarVentaRequest) ([]lineaVenta, *uuid.UUID, error) {
	if len(req.Items) == 0 {
		return nil, nil, ErrEmptyCart
	}
	if !metodoValido(req.MetodoPago) {
		return nil, nil, ErrInvalidPaymentMethod.Withf("Metodo de pago invalido: %q", req.MetodoPago)
	}
	lineas := make([]lineaVenta, 0, len(req.Items))
	for _, it := range req.Items {
		if it.Cantidad <= 0 {
			return nil, nil, ErrInvalidQuantity
		}
		if it.PrecioUnitario.IsNegative() {
			return nil, nil, ErrInvalidPrice
		}
		id, err := uuid.Parse(it.ProductoID)
		if err != nil {
			return nil, nil, ErrInvalidID
		}
		lineas = append(lineas, lineaVenta{productoID: id, cantidad: it.Cantidad, precio: it.PrecioUnitario})
	}

	var clienteID *uuid.UUID
	if req.ClienteID != nil && *req.ClienteID != "" {
		id, err := uuid.Parse(*req.ClienteID)
		if err != nil {
			return nil, nil, ErrInvalidID
		}
		clienteID = &id
	}
	if req.MetodoPago == model.MetodoCuentaCorriente && clienteID == nil {
		return nil, nil, ErrMissingClientForCreditSale
	}
	return lineas, clienteID, nil
}

func (s *ventaService) verificarPrecio(p *model.Producto, precio decimal.Decimal) error {
	tol := s.politica.PriceTolerancePct
	if !tol.IsPositive() || precio.Equal(p.PrecioVenta) {
		return nil
	}
	if p.PrecioVenta.IsZero() {
		return ErrPriceOutOfTolerance.Withf("El precio de %s es $%s y el de lista $0.00", p.Nombre, precio.StringFixed(2))
	}
	desvio := precio.Sub(p.PrecioVenta).Abs().Div(p.PrecioVenta).Mul(cien)
	if desvio.GreaterThan(tol) {
		return ErrPriceOutOfTolerance.Withf("El precio de %s ($%s) difiere %s%% del precio de lista ($%s)",
			p.Nombre, precio.StringFixed(2), desvio.StringFixed(2), p.PrecioVenta.StringFixed(2))
	}
	return nil
}

func (s *ventaService) entregarTicket(ctx context.Context, v dto.VentaResponse) {
	if s.handoff == nil {
		return
	}
	job := dto.TicketJob{
		VentaID:      v.ID,
		NumeroTicket: v.NumeroTicket,
		Fecha:        v.Fecha,
		Items:        v.Items,
		Total:        v.Total,
		MetodoPago:   v.MetodoPago,
	}
	if err := s.handoff.EnqueueTicket(ctx, job); err != nil {
		log.Warn().Err(err).Str("venta_id", v.ID).Int("numero_ticket", v.NumeroTicket).Msg("ticket hand-off failed")
	}
}

// ── Lecturas ──────────────────────────────────────────────────────────────────

func (s *ventaService) ObtenerVenta(ctx context.Context, id uuid.UUID) (*dto.VentaResponse, error) {
	v, err := s.store.Ventas().FindByID(ctx, id)
	if err != nil {
		return nil, fail("obtener venta", notFound(err, ErrSaleNotFound), map[string]interface{}{"venta_id": id.String()})
	}
	resp := toVentaResponse(v)
	return &resp, nil
}

func (s *ventaService) ListarVentas(ctx context.Context, filter dto.VentaFilter) (*dto.VentaListResponse, error) {
	ventas, total, err := s.store.Ventas().List(ctx, filter)
	if err != nil {
		return nil, fail("listar ventas", err, map[string]interface{}{"fecha": filter.Fecha})
	}
	data := make([]dto.VentaResponse, len(ventas))
	for i := range ventas {
		data[i] = toVentaResponse(&ventas[i])
	}
	return &dto.VentaListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// ── AnotarFactura ─────────────────────────────────────────────────────────────
// The only write allowed on a committed sale, and only once.

func (s *ventaService) AnotarFactura(ctx context.Context, id uuid.UUID, req dto.AnotarFacturaRequest) (*dto.VentaResponse, error) {
	err := s.store.Ventas().AnotarFactura(ctx, id, req)
	switch {
	case errors.Is(err, repository.ErrConflict):
		return nil, ErrInvoiceAlreadyAnnotated
	case err != nil:
		return nil, fail("anotar factura", notFound(err, ErrSaleNotFound), map[string]interface{}{"venta_id": id.String()})
	}
	return s.ObtenerVenta(ctx, id)
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func metodoValido(m string) bool {
	for _, v := range model.MetodosPago {
		if v == m {
			return true
		}
	}
	return false
}

func toVentaResponse(v *model.Venta) dto.VentaResponse {
	resp := dto.VentaResponse{
		ID:           v.ID.String(),
		NumeroTicket: v.NumeroTicket,
		Fecha:        v.Fecha,
		UsuarioID:    v.UsuarioID.String(),
		ClienteID:    uuidPtrString(v.ClienteID),
		SesionCajaID: uuidPtrString(v.SesionCajaID),
		Total:        v.Total,
		MetodoPago:   v.MetodoPago,
		Items:        make([]dto.ItemVentaResponse, len(v.Items)),
	}
	for i, it := range v.Items {
		item := dto.ItemVentaResponse{
			ProductoID:     it.ProductoID.String(),
			Cantidad:       it.Cantidad,
			PrecioUnitario: it.PrecioUnitario,
			Subtotal:       it.Subtotal,
		}
		if it.Producto != nil {
			item.Producto = it.Producto.Nombre
		}
		resp.Items[i] = item
	}
	if v.CAE != nil {
		f := &dto.FacturaResponse{CAE: *v.CAE}
		if v.CAEVencimiento != nil {
			f.CAEVencimiento = *v.CAEVencimiento
		}
		if v.TipoFactura != nil {
			f.TipoFactura = *v.TipoFactura
		}
		if v.NumeroFactura != nil {
			f.NumeroFactura = *v.NumeroFactura
		}
		resp.Factura = f
	}
	return resp
}
