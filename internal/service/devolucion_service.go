package service

import (
	"context"
	"errors"
	"fmt"

	"kioscopos/internal/dto"
	"kioscopos/internal/infra"
	"kioscopos/internal/model"
	"kioscopos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type DevolucionService interface {
	ProcesarDevolucion(ctx context.Context, usuarioID uuid.UUID, req dto.DevolucionRequest) (*dto.DevolucionResponse, error)
	ListarPorVenta(ctx context.Context, ventaID uuid.UUID) ([]dto.DevolucionResponse, error)
}

type devolucionService struct {
	store repository.Store
	cache *infra.CatalogCache
	clock Clock
}

func NewDevolucionService(store repository.Store, cache *infra.CatalogCache, clock Clock) DevolucionService {
	return &devolucionService{store: store, cache: cache, clock: clock}
}

// ── ProcesarDevolucion ────────────────────────────────────────────────────────
// One transaction: header + items, stock credited back (promo lines through
// their components), and a refund egreso against whichever session is open.

func (s *devolucionService) ProcesarDevolucion(ctx context.Context, usuarioID uuid.UUID, req dto.DevolucionRequest) (*dto.DevolucionResponse, error) {
	ventaID, err := uuid.Parse(req.VentaID)
	if err != nil {
		return nil, ErrInvalidID
	}
	if len(req.Items) == 0 {
		return nil, ErrInvalidReturnQuantity.Withf("La devolucion debe tener al menos un item")
	}
	if req.TotalReintegro.IsNegative() {
		return nil, ErrInvalidAmount.Withf("El reintegro no puede ser negativo")
	}

	pedidas := make(map[uuid.UUID]int, len(req.Items))
	dev := model.Devolucion{
		VentaID:        ventaID,
		TotalReintegro: req.TotalReintegro.Round(2),
		Motivo:         req.Motivo,
		UsuarioID:      usuarioID,
	}
	for _, it := range req.Items {
		if it.Cantidad <= 0 {
			return nil, ErrInvalidReturnQuantity
		}
		if it.PrecioReintegro.IsNegative() {
			return nil, ErrInvalidPrice
		}
		id, err := uuid.Parse(it.ProductoID)
		if err != nil {
			return nil, ErrInvalidID
		}
		pedidas[id] += it.Cantidad
		dev.Items = append(dev.Items, model.DevolucionItem{
			ProductoID:      id,
			Cantidad:        it.Cantidad,
			PrecioReintegro: it.PrecioReintegro,
			Subtotal:        it.PrecioReintegro.Mul(decimal.NewFromInt(int64(it.Cantidad))),
		})
	}

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Ventas().LockForUpdate(ctx, ventaID); err != nil {
			return notFound(err, ErrSaleNotFound)
		}
		venta, err := tx.Ventas().FindByID(ctx, ventaID)
		if err != nil {
			return notFound(err, ErrSaleNotFound)
		}
		if err := verificarCantidades(ctx, tx, venta, pedidas); err != nil {
			return err
		}
		salidas, err := tx.MovimientosStock().ListByReferencia(ctx, venta.ID, model.StockVenta)
		if err != nil {
			return err
		}

		sesion, err := tx.Caja().FindSesionAbierta(ctx, false)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			sesion = nil
		case err != nil:
			return err
		}
		if dev.Fecha, err = s.clock.fechaCaja(ctx, tx, sesion); err != nil {
			return err
		}
		if err := tx.Devoluciones().Create(ctx, &dev); err != nil {
			return err
		}

		var deltas []Delta
		for _, it := range dev.Items {
			d, err := creditosDevolucion(ctx, tx, venta, salidas, it.ProductoID, it.Cantidad)
			if err != nil {
				return err
			}
			deltas = append(deltas, d...)
		}
		motivo := "devolucion"
		if dev.Motivo != "" {
			motivo = "devolucion: " + dev.Motivo
		}
		if _, err := registrarDeltas(ctx, tx, deltas, model.StockDevolucion, true, usuarioID, dev.ID, motivo, dev.Fecha); err != nil {
			return err
		}

		if dev.TotalReintegro.IsPositive() {
			mov := model.MovimientoCaja{
				Fecha:        dev.Fecha,
				Tipo:         model.MovimientoEgreso,
				Monto:        dev.TotalReintegro,
				Descripcion:  fmt.Sprintf("Reintegro devolucion ticket #%d", venta.NumeroTicket),
				UsuarioID:    usuarioID,
				ReferenciaID: &dev.ID,
			}
			if sesion != nil {
				mov.SesionCajaID = &sesion.ID
			}
			if err := tx.Caja().CreateMovimiento(ctx, &mov); err != nil {
				return err
			}
			dev.MovimientoCajaID = &mov.ID
		}
		return nil
	})
	if err != nil {
		return nil, fail("procesar devolucion", err, map[string]interface{}{
			"venta_id": req.VentaID, "items": len(req.Items), "total_reintegro": req.TotalReintegro.String(),
		})
	}

	log.Info().Str("devolucion_id", dev.ID.String()).Str("venta_id", req.VentaID).
		Str("total_reintegro", dev.TotalReintegro.StringFixed(2)).Msg("devolucion registrada")
	s.cache.Invalidate(ctx)
	resp := toDevolucionResponse(&dev)
	return &resp, nil
}

// verificarCantidades rejects products that are not on the sale and
// cumulative returns above the sold quantity.
func verificarCantidades(ctx context.Context, tx repository.Store, venta *model.Venta, pedidas map[uuid.UUID]int) error {
	vendidas := make(map[uuid.UUID]int, len(venta.Items))
	for _, it := range venta.Items {
		vendidas[it.ProductoID] += it.Cantidad
	}
	devueltas, err := tx.Devoluciones().CantidadesDevueltas(ctx, venta.ID)
	if err != nil {
		return err
	}
	for id, n := range pedidas {
		vendida, ok := vendidas[id]
		if !ok {
			return ErrInvalidReturnQuantity.Withf("El producto %s no pertenece a la venta", id)
		}
		if disponible := vendida - devueltas[id]; n > disponible {
			return ErrInvalidReturnQuantity.Withf("Se vendieron %d unidades y quedan %d por devolver", vendida, disponible)
		}
	}
	return nil
}

// creditosDevolucion returns the stock credits for cantidad units of
// productoID coming back from venta. A promo replays what the sale took from
// each component, per unit, so redefining the promo later does not change
// which products get their stock back.
func creditosDevolucion(ctx context.Context, tx repository.Store, venta *model.Venta, salidas []model.MovimientoStock, productoID uuid.UUID, cantidad int) ([]Delta, error) {
	p, err := tx.Productos().FindByID(ctx, productoID)
	if err != nil {
		return nil, notFound(err, ErrProductNotFound)
	}
	if !p.EsPromo {
		d, err := ResolverDeltas(p, nil, cantidad)
		if err != nil {
			return nil, err
		}
		return Invertir(d), nil
	}

	vendida := 0
	for _, it := range venta.Items {
		if it.ProductoID == productoID {
			vendida += it.Cantidad
		}
	}
	salida := make(map[uuid.UUID]int)
	var orden []uuid.UUID
	for _, m := range salidas {
		if m.OrigenID == nil || *m.OrigenID != productoID {
			continue
		}
		if _, ok := salida[m.ProductoID]; !ok {
			orden = append(orden, m.ProductoID)
		}
		salida[m.ProductoID] -= m.Cantidad
	}
	if vendida == 0 || len(orden) == 0 {
		return nil, ErrInvalidPromoConfig.Withf("La venta no registra salidas de stock para la promo %s", p.Nombre)
	}

	deltas := make([]Delta, 0, len(orden))
	for _, id := range orden {
		deltas = append(deltas, Delta{
			ProductoID: id,
			Cantidad:   salida[id] / vendida * cantidad,
			Origen:     productoID,
		})
	}
	return deltas, nil
}

func (s *devolucionService) ListarPorVenta(ctx context.Context, ventaID uuid.UUID) ([]dto.DevolucionResponse, error) {
	if _, err := s.store.Ventas().FindByID(ctx, ventaID); err != nil {
		return nil, fail("listar devoluciones", notFound(err, ErrSaleNotFound), map[string]interface{}{"venta_id": ventaID.String()})
	}
	devs, err := s.store.Devoluciones().ListByVenta(ctx, ventaID)
	if err != nil {
		return nil, fail("listar devoluciones", err, map[string]interface{}{"venta_id": ventaID.String()})
	}
	out := make([]dto.DevolucionResponse, len(devs))
	for i := range devs {
		out[i] = toDevolucionResponse(&devs[i])
	}
	return out, nil
}

func toDevolucionResponse(d *model.Devolucion) dto.DevolucionResponse {
	resp := dto.DevolucionResponse{
		ID:               d.ID.String(),
		VentaID:          d.VentaID.String(),
		Fecha:            d.Fecha,
		TotalReintegro:   d.TotalReintegro,
		Motivo:           d.Motivo,
		MovimientoCajaID: uuidPtrString(d.MovimientoCajaID),
		Items:            make([]dto.ItemDevolucionResponse, len(d.Items)),
	}
	for i, it := range d.Items {
		resp.Items[i] = dto.ItemDevolucionResponse{
			ProductoID:      it.ProductoID.String(),
			Cantidad:        it.Cantidad,
			PrecioReintegro: it.PrecioReintegro,
			Subtotal:        it.Subtotal,
		}
	}
	return resp
}
