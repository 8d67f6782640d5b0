package memory

import (
	"context"
	"strings"

	"kioscopos/internal/dto"
	"kioscopos/internal/model"
	"kioscopos/internal/repository"

	"github.com/google/uuid"
)

type productos struct{ s *Store }

func (r productos) barcodeTaken(p *model.Producto) bool {
	if p.CodigoBarras == nil {
		return false
	}
	for id, o := range r.s.st.productos {
		if id != p.ID && o.CodigoBarras != nil && *o.CodigoBarras == *p.CodigoBarras {
			return true
		}
	}
	return false
}

func (r productos) Create(_ context.Context, p *model.Producto) error {
	defer r.s.lock()()
	ensureID(&p.ID)
	if _, ok := r.s.st.productos[p.ID]; ok || r.barcodeTaken(p) {
		return repository.ErrDuplicate
	}
	p.CreatedAt, p.UpdatedAt = now(), now()
	r.s.st.productos[p.ID] = *p
	return nil
}

func (r productos) Update(_ context.Context, p *model.Producto) error {
	defer r.s.lock()()
	actual, ok := r.s.st.productos[p.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if r.barcodeTaken(p) {
		return repository.ErrDuplicate
	}
	p.StockActual = actual.StockActual
	p.EsPromo = actual.EsPromo
	p.CreatedAt = actual.CreatedAt
	p.UpdatedAt = now()
	r.s.st.productos[p.ID] = *p
	return nil
}

func (r productos) FindByID(_ context.Context, id uuid.UUID) (*model.Producto, error) {
	defer r.s.lock()()
	p, ok := r.s.st.productos[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r productos) FindByBarcode(_ context.Context, barcode string) (*model.Producto, error) {
	defer r.s.lock()()
	for _, p := range r.s.st.productos {
		if p.Activo && p.CodigoBarras != nil && *p.CodigoBarras == barcode {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r productos) sorted(keep func(model.Producto) bool) []model.Producto {
	out := []model.Producto{}
	for _, p := range r.s.st.productos {
		if keep(p) {
			out = append(out, p)
		}
	}
	sortBy(out, func(a, b model.Producto) bool { return a.Nombre < b.Nombre })
	return out
}

func (r productos) List(_ context.Context, f dto.ProductoFilter) ([]model.Producto, int64, error) {
	defer r.s.lock()()
	nombre := strings.ToLower(f.Nombre)
	rows := r.sorted(func(p model.Producto) bool {
		switch f.Activo {
		case "false":
			if p.Activo {
				return false
			}
		case "all":
		default:
			if !p.Activo {
				return false
			}
		}
		if f.Barcode != "" && (p.CodigoBarras == nil || *p.CodigoBarras != f.Barcode) {
			return false
		}
		if nombre != "" && !strings.Contains(strings.ToLower(p.Nombre), nombre) {
			return false
		}
		if f.Categoria != "" && p.Categoria != f.Categoria {
			return false
		}
		if f.ProveedorID != "" && (p.ProveedorID == nil || p.ProveedorID.String() != f.ProveedorID) {
			return false
		}
		return true
	})
	return paginate(rows, f.Page, f.Limit), int64(len(rows)), nil
}

func (r productos) Search(_ context.Context, q string, limit int) ([]model.Producto, error) {
	defer r.s.lock()()
	lq := strings.ToLower(q)
	rows := r.sorted(func(p model.Producto) bool {
		if !p.Activo {
			return false
		}
		return strings.Contains(strings.ToLower(p.Nombre), lq) || (p.CodigoBarras != nil && *p.CodigoBarras == q)
	})
	return paginate(rows, 1, limit), nil
}

func (r productos) ListActivos(_ context.Context) ([]model.Producto, error) {
	defer r.s.lock()()
	return r.sorted(func(p model.Producto) bool { return p.Activo }), nil
}

func (r productos) SoftDelete(_ context.Context, id uuid.UUID) error {
	defer r.s.lock()()
	p, ok := r.s.st.productos[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Activo = false
	r.s.st.productos[id] = p
	return nil
}

func (r productos) UpdateStock(_ context.Context, id uuid.UUID, delta int, allowNegative bool) (int, int, error) {
	defer r.s.lock()()
	p, ok := r.s.st.productos[id]
	if !ok {
		return 0, 0, repository.ErrNotFound
	}
	antes := p.StockActual
	if antes+delta < 0 && !allowNegative {
		return antes, antes, repository.ErrStockInsuficiente
	}
	p.StockActual = antes + delta
	r.s.st.productos[id] = p
	return antes, p.StockActual, nil
}

func (r productos) withComponente(comps []model.PromoComponente) []model.PromoComponente {
	out := make([]model.PromoComponente, 0, len(comps))
	for _, c := range comps {
		if p, ok := r.s.st.productos[c.ComponenteID]; ok {
			c.Componente = &p
		}
		out = append(out, c)
	}
	return out
}

func (r productos) Componentes(_ context.Context, promoID uuid.UUID) ([]model.PromoComponente, error) {
	defer r.s.lock()()
	return r.withComponente(r.s.st.componentes[promoID]), nil
}

func (r productos) ComponentesDe(_ context.Context, promoIDs []uuid.UUID) (map[uuid.UUID][]model.PromoComponente, error) {
	defer r.s.lock()()
	out := make(map[uuid.UUID][]model.PromoComponente, len(promoIDs))
	for _, id := range promoIDs {
		if comps := r.s.st.componentes[id]; len(comps) > 0 {
			out[id] = r.withComponente(comps)
		}
	}
	return out, nil
}

func (r productos) ReplaceComponentes(_ context.Context, promoID uuid.UUID, comps []model.PromoComponente) error {
	defer r.s.lock()()
	seen := map[uuid.UUID]bool{}
	rows := make([]model.PromoComponente, 0, len(comps))
	for i := range comps {
		if seen[comps[i].ComponenteID] {
			return repository.ErrDuplicate
		}
		seen[comps[i].ComponenteID] = true
		comps[i].PromoID = promoID
		ensureID(&comps[i].ID)
		c := comps[i]
		c.Componente = nil
		rows = append(rows, c)
	}
	if len(rows) == 0 {
		delete(r.s.st.componentes, promoID)
		return nil
	}
	r.s.st.componentes[promoID] = rows
	return nil
}
