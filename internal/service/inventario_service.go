package service

import (
	"context"
	"errors"

	"kioscopos/internal/dto"
	"kioscopos/internal/infra"
	"kioscopos/internal/model"
	"kioscopos/internal/repository"

	"github.com/google/uuid"
)

// InventarioService covers manual stock changes and the stock audit log.
type InventarioService interface {
	AjustarStock(ctx context.Context, usuarioID uuid.UUID, req dto.AjusteStockRequest) (*dto.MovimientoStockResponse, error)
	Alertas(ctx context.Context) ([]dto.AlertaStockResponse, error)
	ListarMovimientos(ctx context.Context, filter dto.MovimientoStockFilter) (*dto.MovimientoStockListResponse, error)
}

type inventarioService struct {
	store repository.Store
	cache *infra.CatalogCache
	clock Clock
}

func NewInventarioService(store repository.Store, cache *infra.CatalogCache, clock Clock) InventarioService {
	return &inventarioService{store: store, cache: cache, clock: clock}
}

// signoAjuste maps an adjustment type to the sign of its delta.
var signoAjuste = map[string]int{
	model.StockCompra:      1,
	model.StockAjusteSuma:  1,
	model.StockAjusteResta: -1,
	model.StockPerdida:     -1,
}

// ── AjustarStock ──────────────────────────────────────────────────────────────
// compra / ajuste_suma / ajuste_resta / perdida on a plain product. Manual
// adjustments may leave stock negative: they record what physically happened.

func (s *inventarioService) AjustarStock(ctx context.Context, usuarioID uuid.UUID, req dto.AjusteStockRequest) (*dto.MovimientoStockResponse, error) {
	signo, ok := signoAjuste[req.Tipo]
	if !ok {
		return nil, ErrInvalidMovementType
	}
	if req.Cantidad <= 0 {
		return nil, ErrInvalidQuantity
	}
	productoID, err := uuid.Parse(req.ProductoID)
	if err != nil {
		return nil, ErrInvalidID
	}
	var referencia *uuid.UUID
	if req.ProveedorID != nil {
		pid, err := uuid.Parse(*req.ProveedorID)
		if err != nil {
			return nil, ErrInvalidID
		}
		referencia = &pid
	}

	var mov model.MovimientoStock
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		p, err := tx.Productos().FindByID(ctx, productoID)
		if err != nil {
			return notFound(err, ErrProductNotFound)
		}
		if p.EsPromo {
			return ErrPromoStockNotAdjustable
		}
		if referencia != nil {
			if _, err := tx.Proveedores().FindByID(ctx, *referencia); err != nil {
				return notFound(err, ErrSupplierNotFound)
			}
		}
		delta := signo * req.Cantidad
		antes, despues, err := tx.Productos().UpdateStock(ctx, productoID, delta, true)
		if err != nil {
			return err
		}
		mov = model.MovimientoStock{
			ProductoID:    productoID,
			Tipo:          req.Tipo,
			Cantidad:      delta,
			StockAnterior: antes,
			StockNuevo:    despues,
			Motivo:        req.Motivo,
			UsuarioID:     usuarioID,
			ReferenciaID:  referencia,
			Fecha:         s.clock.fecha(),
		}
		return tx.MovimientosStock().Create(ctx, &mov)
	})
	if err != nil {
		return nil, fail("ajustar stock", err, map[string]interface{}{
			"producto_id": req.ProductoID, "tipo": req.Tipo, "cantidad": req.Cantidad, "usuario_id": usuarioID.String(),
		})
	}
	s.cache.Invalidate(ctx)
	resp := toMovimientoStockResponse(mov)
	return &resp, nil
}

// ── Alertas ───────────────────────────────────────────────────────────────────
// Active products whose effective stock is at or below stock_minimo.

func (s *inventarioService) Alertas(ctx context.Context) ([]dto.AlertaStockResponse, error) {
	productos, err := s.store.Productos().ListActivos(ctx)
	if err != nil {
		return nil, fail("alertas stock", err, nil)
	}
	stock, _, err := stockEfectivoBatch(ctx, s.store.Productos(), productos)
	if err != nil {
		return nil, fail("alertas stock", err, nil)
	}
	alertas := []dto.AlertaStockResponse{}
	for _, p := range productos {
		efectivo := stock[p.ID]
		if efectivo > p.StockMinimo {
			continue
		}
		alertas = append(alertas, dto.AlertaStockResponse{
			ProductoID:  p.ID.String(),
			Nombre:      p.Nombre,
			StockActual: efectivo,
			StockMinimo: p.StockMinimo,
			PrecioVenta: p.PrecioVenta,
			EsPromo:     p.EsPromo,
		})
	}
	return alertas, nil
}

// ── ListarMovimientos ─────────────────────────────────────────────────────────

func (s *inventarioService) ListarMovimientos(ctx context.Context, filter dto.MovimientoStockFilter) (*dto.MovimientoStockListResponse, error) {
	movs, total, err := s.store.MovimientosStock().List(ctx, filter)
	if err != nil {
		return nil, fail("listar movimientos stock", err, map[string]interface{}{"producto_id": filter.ProductoID})
	}
	data := make([]dto.MovimientoStockResponse, len(movs))
	for i, m := range movs {
		data[i] = toMovimientoStockResponse(m)
	}
	return &dto.MovimientoStockListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// registrarDeltas applies deltas inside tx and appends one audit row per delta.
// It returns the products left below zero.
func registrarDeltas(ctx context.Context, tx repository.Store, deltas []Delta, tipo string, allowNegative bool, usuarioID, referencia uuid.UUID, motivo, fecha string) ([]dto.AdvertenciaStock, error) {
	var negativos []dto.AdvertenciaStock
	for _, d := range deltas {
		antes, despues, err := tx.Productos().UpdateStock(ctx, d.ProductoID, d.Cantidad, allowNegative)
		switch {
		case errors.Is(err, repository.ErrStockInsuficiente):
			return nil, ErrInsufficientStock.Withf("Stock insuficiente para %s. Disponible: %d", d.Nombre, antes)
		case err != nil:
			return nil, notFound(err, ErrProductNotFound)
		}
		ref := referencia
		mov := &model.MovimientoStock{
			ProductoID:    d.ProductoID,
			Tipo:          tipo,
			Cantidad:      d.Cantidad,
			StockAnterior: antes,
			StockNuevo:    despues,
			Motivo:        motivo,
			UsuarioID:     usuarioID,
			ReferenciaID:  &ref,
			Fecha:         fecha,
		}
		if d.Origen != uuid.Nil {
			origen := d.Origen
			mov.OrigenID = &origen
		}
		if err := tx.MovimientosStock().Create(ctx, mov); err != nil {
			return nil, err
		}
		if despues < 0 {
			negativos = append(negativos, dto.AdvertenciaStock{ProductoID: d.ProductoID.String(), Nombre: d.Nombre, StockNuevo: despues})
		}
	}
	return negativos, nil
}

func toMovimientoStockResponse(m model.MovimientoStock) dto.MovimientoStockResponse {
	return dto.MovimientoStockResponse{
		ID:            m.ID.String(),
		ProductoID:    m.ProductoID.String(),
		Tipo:          m.Tipo,
		Cantidad:      m.Cantidad,
		StockAnterior: m.StockAnterior,
		StockNuevo:    m.StockNuevo,
		Motivo:        m.Motivo,
		UsuarioID:     m.UsuarioID.String(),
		ReferenciaID:  uuidPtrString(m.ReferenciaID),
		Fecha:         m.Fecha,
	}
}
