package memory

import (
	"context"

	"kioscopos/internal/dto"
	"kioscopos/internal/model"

	"github.com/google/uuid"
)

type devoluciones struct{ s *Store }

func (r devoluciones) Create(_ context.Context, d *model.Devolucion) error {
	defer r.s.lock()()
	ensureID(&d.ID)
	items := make([]model.DevolucionItem, len(d.Items))
	for i := range d.Items {
		ensureID(&d.Items[i].ID)
		d.Items[i].DevolucionID = d.ID
		items[i] = d.Items[i]
	}
	row := *d
	row.Items = items
	r.s.st.devoluciones[d.ID] = row
	return nil
}

func (r devoluciones) ListByVenta(_ context.Context, ventaID uuid.UUID) ([]model.Devolucion, error) {
	defer r.s.lock()()
	rows := []model.Devolucion{}
	for _, d := range r.s.st.devoluciones {
		if d.VentaID == ventaID {
			rows = append(rows, d)
		}
	}
	sortBy(rows, func(a, b model.Devolucion) bool { return a.Fecha < b.Fecha })
	return rows, nil
}

func (r devoluciones) CantidadesDevueltas(_ context.Context, ventaID uuid.UUID) (map[uuid.UUID]int, error) {
	defer r.s.lock()()
	out := map[uuid.UUID]int{}
	for _, d := range r.s.st.devoluciones {
		if d.VentaID != ventaID {
			continue
		}
		for _, it := range d.Items {
			out[it.ProductoID] += it.Cantidad
		}
	}
	return out, nil
}

type movimientosStock struct{ s *Store }

func (r movimientosStock) Create(_ context.Context, m *model.MovimientoStock) error {
	defer r.s.lock()()
	ensureID(&m.ID)
	row := *m
	row.Producto = nil
	r.s.st.movimientosStock = append(r.s.st.movimientosStock, row)
	return nil
}

func (r movimientosStock) List(_ context.Context, f dto.MovimientoStockFilter) ([]model.MovimientoStock, int64, error) {
	defer r.s.lock()()
	rows := []model.MovimientoStock{}
	// Newest first, insertion order breaking ties within the same second.
	for i := len(r.s.st.movimientosStock) - 1; i >= 0; i-- {
		m := r.s.st.movimientosStock[i]
		if f.ProductoID != "" && m.ProductoID.String() != f.ProductoID {
			continue
		}
		if f.Tipo != "" && m.Tipo != f.Tipo {
			continue
		}
		rows = append(rows, m)
	}
	sortBy(rows, func(a, b model.MovimientoStock) bool { return a.Fecha > b.Fecha })
	return paginate(rows, f.Page, f.Limit), int64(len(rows)), nil
}

func (r movimientosStock) ListByReferencia(_ context.Context, referenciaID uuid.UUID, tipo string) ([]model.MovimientoStock, error) {
	defer r.s.lock()()
	rows := []model.MovimientoStock{}
	for _, m := range r.s.st.movimientosStock {
		if m.Tipo == tipo && m.ReferenciaID != nil && *m.ReferenciaID == referenciaID {
			rows = append(rows, m)
		}
	}
	return rows, nil
}
