package service

import (
	"context"
	"errors"
	"math"

	"kioscopos/internal/dto"
	"kioscopos/internal/infra"
	"kioscopos/internal/model"
	"kioscopos/internal/repository"

	"github.com/google/uuid"
)

// ProductoService is the catalog read-through. Every response carries the
// effective stock, derived for promos.
type ProductoService interface {
	Crear(ctx context.Context, req dto.CrearProductoRequest) (*dto.ProductoResponse, error)
	ObtenerPorID(ctx context.Context, id uuid.UUID) (*dto.ProductoResponse, error)
	ObtenerPorBarcode(ctx context.Context, barcode string) (*dto.ProductoResponse, error)
	Listar(ctx context.Context, filter dto.ProductoFilter) (*dto.ProductoListResponse, error)
	Buscar(ctx context.Context, q string) ([]dto.ProductoResponse, error)
	Actualizar(ctx context.Context, id uuid.UUID, req dto.ActualizarProductoRequest) (*dto.ProductoResponse, error)
	Desactivar(ctx context.Context, id uuid.UUID) error
	DefinirComponentes(ctx context.Context, promoID uuid.UUID, req dto.DefinirComponentesRequest) (*dto.ProductoResponse, error)
	ConsultarPrecio(ctx context.Context, barcode string) (*dto.ConsultaPreciosResponse, error)
}

type productoService struct {
	store repository.Store
	cache *infra.CatalogCache
}

func NewProductoService(store repository.Store, cache *infra.CatalogCache) ProductoService {
	return &productoService{store: store, cache: cache}
}

const busquedaLimite = 50

// ── Crear / Actualizar ────────────────────────────────────────────────────────

func (s *productoService) Crear(ctx context.Context, req dto.CrearProductoRequest) (*dto.ProductoResponse, error) {
	if req.PrecioCosto.IsNegative() || req.PrecioVenta.IsNegative() {
		return nil, ErrInvalidPrice
	}
	p := &model.Producto{
		CodigoBarras: emptyToNil(req.CodigoBarras),
		Nombre:       req.Nombre,
		Categoria:    req.Categoria,
		PrecioCosto:  req.PrecioCosto,
		PrecioVenta:  req.PrecioVenta,
		StockActual:  req.StockActual,
		StockMinimo:  req.StockMinimo,
		UnidadMedida: req.UnidadMedida,
		EsPromo:      req.EsPromo,
		Activo:       true,
	}
	if p.UnidadMedida == "" {
		p.UnidadMedida = model.UnidadUnidad
	}
	if p.EsPromo {
		p.StockActual = 0
	}
	if req.ProveedorID != nil {
		id, err := s.proveedorExistente(ctx, *req.ProveedorID)
		if err != nil {
			return nil, err
		}
		p.ProveedorID = &id
	}

	if err := s.store.Productos().Create(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateBarcode
		}
		return nil, fail("crear producto", err, map[string]interface{}{"nombre": p.Nombre})
	}
	s.cache.Invalidate(ctx)
	return s.respuesta(ctx, p)
}

func (s *productoService) Actualizar(ctx context.Context, id uuid.UUID, req dto.ActualizarProductoRequest) (*dto.ProductoResponse, error) {
	p, err := s.store.Productos().FindByID(ctx, id)
	if err != nil {
		return nil, fail("actualizar producto", notFound(err, ErrProductNotFound), map[string]interface{}{"producto_id": id.String()})
	}
	if req.CodigoBarras != nil {
		p.CodigoBarras = emptyToNil(req.CodigoBarras)
	}
	if req.Nombre != nil {
		p.Nombre = *req.Nombre
	}
	if req.Categoria != nil {
		p.Categoria = *req.Categoria
	}
	if req.PrecioCosto != nil {
		if req.PrecioCosto.IsNegative() {
			return nil, ErrInvalidPrice
		}
		p.PrecioCosto = *req.PrecioCosto
	}
	if req.PrecioVenta != nil {
		if req.PrecioVenta.IsNegative() {
			return nil, ErrInvalidPrice
		}
		p.PrecioVenta = *req.PrecioVenta
	}
	if req.StockMinimo != nil {
		p.StockMinimo = *req.StockMinimo
	}
	if req.UnidadMedida != nil {
		p.UnidadMedida = *req.UnidadMedida
	}
	if req.ProveedorID != nil {
		pid, err := s.proveedorExistente(ctx, *req.ProveedorID)
		if err != nil {
			return nil, err
		}
		p.ProveedorID = &pid
	}

	if err := s.store.Productos().Update(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateBarcode
		}
		return nil, fail("actualizar producto", err, map[string]interface{}{"producto_id": id.String()})
	}
	s.cache.Invalidate(ctx)
	return s.respuesta(ctx, p)
}

func (s *productoService) Desactivar(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Productos().SoftDelete(ctx, id); err != nil {
		return fail("desactivar producto", notFound(err, ErrProductNotFound), map[string]interface{}{"producto_id": id.String()})
	}
	s.cache.Invalidate(ctx)
	return nil
}

// ── DefinirComponentes ────────────────────────────────────────────────────────
// Replaces the whole component set of a promo. Components must be plain,
// existing products with a positive quantity.

func (s *productoService) DefinirComponentes(ctx context.Context, promoID uuid.UUID, req dto.DefinirComponentesRequest) (*dto.ProductoResponse, error) {
	var promo *model.Producto
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		promo, err = tx.Productos().FindByID(ctx, promoID)
		if err != nil {
			return notFound(err, ErrProductNotFound)
		}
		if !promo.EsPromo {
			return ErrInvalidPromoConfig.Withf("%s no es una promo", promo.Nombre)
		}

		comps := make([]model.PromoComponente, 0, len(req.Componentes))
		vistos := map[uuid.UUID]bool{}
		for _, in := range req.Componentes {
			cid, err := uuid.Parse(in.ComponenteID)
			if err != nil {
				return ErrInvalidID
			}
			if in.Cantidad <= 0 {
				return ErrInvalidQuantity
			}
			if cid == promoID || vistos[cid] {
				return ErrInvalidPromoConfig.Withf("Componente repetido o igual a la promo")
			}
			vistos[cid] = true
			comp, err := tx.Productos().FindByID(ctx, cid)
			if err != nil {
				return notFound(err, ErrProductNotFound)
			}
			if comp.EsPromo {
				return ErrInvalidPromoConfig.Withf("%s es una promo y no puede ser componente", comp.Nombre)
			}
			comps = append(comps, model.PromoComponente{ComponenteID: cid, CantidadPorPromo: in.Cantidad})
		}
		return tx.Productos().ReplaceComponentes(ctx, promoID, comps)
	})
	if err != nil {
		return nil, fail("definir componentes", err, map[string]interface{}{
			"promo_id": promoID.String(), "componentes": len(req.Componentes),
		})
	}
	s.cache.Invalidate(ctx)
	return s.respuesta(ctx, promo)
}

// ── Lecturas ──────────────────────────────────────────────────────────────────

func (s *productoService) ObtenerPorID(ctx context.Context, id uuid.UUID) (*dto.ProductoResponse, error) {
	p, err := s.store.Productos().FindByID(ctx, id)
	if err != nil {
		return nil, fail("obtener producto", notFound(err, ErrProductNotFound), map[string]interface{}{"producto_id": id.String()})
	}
	return s.respuesta(ctx, p)
}

func (s *productoService) ObtenerPorBarcode(ctx context.Context, barcode string) (*dto.ProductoResponse, error) {
	cacheKey := "barcode:" + barcode
	var cached dto.ProductoResponse
	slot, hit := s.cache.Get(ctx, cacheKey, &cached)
	if hit {
		return &cached, nil
	}

	p, err := s.store.Productos().FindByBarcode(ctx, barcode)
	if err != nil {
		return nil, fail("obtener por barcode", notFound(err, ErrProductNotFound), map[string]interface{}{"barcode": barcode})
	}
	resp, err := s.respuesta(ctx, p)
	if err != nil {
		return nil, err
	}
	s.cache.Fill(ctx, slot, resp)
	return resp, nil
}

// ConsultarPrecio backs the public price checker. Same lookup and cache as a scan.
func (s *productoService) ConsultarPrecio(ctx context.Context, barcode string) (*dto.ConsultaPreciosResponse, error) {
	p, err := s.ObtenerPorBarcode(ctx, barcode)
	if err != nil {
		return nil, err
	}
	return &dto.ConsultaPreciosResponse{
		Nombre:          p.Nombre,
		PrecioVenta:     p.PrecioVenta,
		StockDisponible: p.StockActual,
		EsPromo:         p.EsPromo,
	}, nil
}

func (s *productoService) Listar(ctx context.Context, filter dto.ProductoFilter) (*dto.ProductoListResponse, error) {
	productos, total, err := s.store.Productos().List(ctx, filter)
	if err != nil {
		return nil, fail("listar productos", err, map[string]interface{}{"page": filter.Page})
	}
	data, err := s.respuestas(ctx, productos)
	if err != nil {
		return nil, err
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 20
	}
	return &dto.ProductoListResponse{
		Data:       data,
		Total:      total,
		Page:       filter.Page,
		Limit:      limit,
		TotalPages: int(math.Ceil(float64(total) / float64(limit))),
	}, nil
}

func (s *productoService) Buscar(ctx context.Context, q string) ([]dto.ProductoResponse, error) {
	productos, err := s.store.Productos().Search(ctx, q, busquedaLimite)
	if err != nil {
		return nil, fail("buscar productos", err, map[string]interface{}{"q": q})
	}
	return s.respuestas(ctx, productos)
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func (s *productoService) proveedorExistente(ctx context.Context, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, ErrInvalidID
	}
	if _, err := s.store.Proveedores().FindByID(ctx, id); err != nil {
		return uuid.Nil, fail("buscar proveedor", notFound(err, ErrSupplierNotFound), map[string]interface{}{"proveedor_id": raw})
	}
	return id, nil
}

func (s *productoService) respuesta(ctx context.Context, p *model.Producto) (*dto.ProductoResponse, error) {
	out, err := s.respuestas(ctx, []model.Producto{*p})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

func (s *productoService) respuestas(ctx context.Context, productos []model.Producto) ([]dto.ProductoResponse, error) {
	stock, comps, err := stockEfectivoBatch(ctx, s.store.Productos(), productos)
	if err != nil {
		return nil, fail("stock efectivo", err, map[string]interface{}{"productos": len(productos)})
	}
	out := make([]dto.ProductoResponse, len(productos))
	for i := range productos {
		out[i] = toProductoResponse(&productos[i], stock[productos[i].ID], comps[productos[i].ID])
	}
	return out, nil
}

func toProductoResponse(p *model.Producto, stock int, comps []model.PromoComponente) dto.ProductoResponse {
	resp := dto.ProductoResponse{
		ID:           p.ID.String(),
		CodigoBarras: p.CodigoBarras,
		Nombre:       p.Nombre,
		Categoria:    p.Categoria,
		PrecioCosto:  p.PrecioCosto,
		PrecioVenta:  p.PrecioVenta,
		StockActual:  stock,
		StockMinimo:  p.StockMinimo,
		UnidadMedida: p.UnidadMedida,
		EsPromo:      p.EsPromo,
		Activo:       p.Activo,
		ProveedorID:  uuidPtrString(p.ProveedorID),
	}
	for _, c := range comps {
		cr := dto.ComponenteResponse{ComponenteID: c.ComponenteID.String(), Cantidad: c.CantidadPorPromo}
		if c.Componente != nil {
			cr.Nombre = c.Componente.Nombre
			cr.StockActual = c.Componente.StockActual
		}
		resp.Componentes = append(resp.Componentes, cr)
	}
	return resp
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s
	return &v
}

func uuidPtrString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
