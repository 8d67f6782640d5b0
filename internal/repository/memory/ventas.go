package memory

import (
	"context"
	"strings"

	"kioscopos/internal/dto"
	"kioscopos/internal/model"
	"kioscopos/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ventas struct{ s *Store }

func enVentana(fecha string, w repository.Ventana) bool {
	return fecha >= w.Desde && (w.Hasta == "" || fecha < w.Hasta)
}

func (r ventas) Create(_ context.Context, v *model.Venta) error {
	defer r.s.lock()()
	ensureID(&v.ID)
	if _, ok := r.s.st.ventas[v.ID]; ok {
		return repository.ErrDuplicate
	}
	items := make([]model.VentaItem, len(v.Items))
	for i := range v.Items {
		ensureID(&v.Items[i].ID)
		v.Items[i].VentaID = v.ID
		items[i] = v.Items[i]
		items[i].Producto = nil
	}
	row := *v
	row.Items = items
	r.s.st.ventas[v.ID] = row
	return nil
}

// hydrate returns a copy with Items[].Producto filled like Preload does.
func (r ventas) hydrate(v model.Venta) model.Venta {
	items := make([]model.VentaItem, len(v.Items))
	for i, it := range v.Items {
		if p, ok := r.s.st.productos[it.ProductoID]; ok {
			it.Producto = &p
		}
		items[i] = it
	}
	v.Items = items
	return v
}

// LockForUpdate only checks existence: memory transactions are already
// serialized.
func (r ventas) LockForUpdate(_ context.Context, id uuid.UUID) error {
	defer r.s.lock()()
	if _, ok := r.s.st.ventas[id]; !ok {
		return repository.ErrNotFound
	}
	return nil
}

func (r ventas) FindByID(_ context.Context, id uuid.UUID) (*model.Venta, error) {
	defer r.s.lock()()
	v, ok := r.s.st.ventas[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	v = r.hydrate(v)
	return &v, nil
}

func (r ventas) List(_ context.Context, f dto.VentaFilter) ([]model.Venta, int64, error) {
	defer r.s.lock()()
	rows := []model.Venta{}
	for _, v := range r.s.st.ventas {
		if f.Fecha != "" && !strings.HasPrefix(v.Fecha, f.Fecha+" ") {
			continue
		}
		if f.MetodoPago != "" && v.MetodoPago != f.MetodoPago {
			continue
		}
		rows = append(rows, r.hydrate(v))
	}
	sortBy(rows, func(a, b model.Venta) bool { return a.NumeroTicket > b.NumeroTicket })
	return paginate(rows, f.Page, f.Limit), int64(len(rows)), nil
}

func (r ventas) NextTicketNumber(_ context.Context) (int, error) {
	defer r.s.lock()()
	max := 0
	for _, v := range r.s.st.ventas {
		if v.NumeroTicket > max {
			max = v.NumeroTicket
		}
	}
	return max + 1, nil
}

func (r ventas) TotalesPorMetodo(_ context.Context, w repository.Ventana) (map[string]decimal.Decimal, error) {
	defer r.s.lock()()
	out := map[string]decimal.Decimal{}
	for _, v := range r.s.st.ventas {
		if enVentana(v.Fecha, w) {
			out[v.MetodoPago] = out[v.MetodoPago].Add(v.Total)
		}
	}
	return out, nil
}

func (r ventas) AnotarFactura(_ context.Context, id uuid.UUID, f dto.AnotarFacturaRequest) error {
	defer r.s.lock()()
	v, ok := r.s.st.ventas[id]
	if !ok {
		return repository.ErrNotFound
	}
	if v.CAE != nil {
		return repository.ErrConflict
	}
	cae, venc, tipo, num := f.CAE, f.CAEVencimiento, f.TipoFactura, f.NumeroFactura
	v.CAE, v.CAEVencimiento, v.TipoFactura, v.NumeroFactura = &cae, &venc, &tipo, &num
	r.s.st.ventas[id] = v
	return nil
}
