package memory

import (
	"context"

	"kioscopos/internal/model"
	"kioscopos/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type caja struct{ s *Store }

func (r caja) abierta() (model.SesionCaja, bool) {
	for _, s := range r.s.st.sesiones {
		if s.ClosedAt == nil {
			return s, true
		}
	}
	return model.SesionCaja{}, false
}

func (r caja) CreateSesion(_ context.Context, s *model.SesionCaja) error {
	defer r.s.lock()()
	ensureID(&s.ID)
	if _, ok := r.abierta(); ok && s.ClosedAt == nil {
		return repository.ErrDuplicate
	}
	if _, ok := r.s.st.sesiones[s.ID]; ok {
		return repository.ErrDuplicate
	}
	r.s.st.sesiones[s.ID] = *s
	return nil
}

func (r caja) FindSesionAbierta(_ context.Context, _ bool) (*model.SesionCaja, error) {
	defer r.s.lock()()
	s, ok := r.abierta()
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (r caja) FindSesionByID(_ context.Context, id uuid.UUID) (*model.SesionCaja, error) {
	defer r.s.lock()()
	s, ok := r.s.st.sesiones[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (r caja) UltimoCierre(_ context.Context) (string, error) {
	defer r.s.lock()()
	ultimo := ""
	for _, s := range r.s.st.sesiones {
		if s.ClosedAt != nil && *s.ClosedAt > ultimo {
			ultimo = *s.ClosedAt
		}
	}
	return ultimo, nil
}

func (r caja) UltimaMarca(_ context.Context) (string, error) {
	defer r.s.lock()()
	ultima := ""
	for _, v := range r.s.st.ventas {
		if v.Fecha > ultima {
			ultima = v.Fecha
		}
	}
	for _, m := range r.s.st.movimientosCaja {
		if m.Fecha > ultima {
			ultima = m.Fecha
		}
	}
	return ultima, nil
}

func (r caja) CerrarSesion(_ context.Context, s *model.SesionCaja) error {
	defer r.s.lock()()
	cur, ok := r.s.st.sesiones[s.ID]
	if !ok || cur.ClosedAt != nil {
		return repository.ErrConflict
	}
	cur.Estado = model.EstadoCajaCerrada
	cur.ClosedAt = s.ClosedAt
	cur.MontoFinal = s.MontoFinal
	cur.MontoReal = s.MontoReal
	cur.Diferencia = s.Diferencia
	cur.TotalVentas = s.TotalVentas
	cur.TotalMovimientos = s.TotalMovimientos
	cur.ClasificacionDesvio = s.ClasificacionDesvio
	cur.Observaciones = s.Observaciones
	cur.CerradaPor = s.CerradaPor
	r.s.st.sesiones[s.ID] = cur
	s.Estado = model.EstadoCajaCerrada
	return nil
}

func (r caja) ListSesiones(_ context.Context, page, limit int) ([]model.SesionCaja, int64, error) {
	defer r.s.lock()()
	rows := make([]model.SesionCaja, 0, len(r.s.st.sesiones))
	for _, s := range r.s.st.sesiones {
		rows = append(rows, s)
	}
	sortBy(rows, func(a, b model.SesionCaja) bool { return a.OpenedAt > b.OpenedAt })
	return paginate(rows, page, limit), int64(len(rows)), nil
}

func (r caja) CreateMovimiento(_ context.Context, m *model.MovimientoCaja) error {
	defer r.s.lock()()
	ensureID(&m.ID)
	r.s.st.movimientosCaja = append(r.s.st.movimientosCaja, *m)
	return nil
}

func (r caja) ListMovimientos(_ context.Context, w repository.Ventana) ([]model.MovimientoCaja, error) {
	defer r.s.lock()()
	out := []model.MovimientoCaja{}
	for _, m := range r.s.st.movimientosCaja {
		if enVentana(m.Fecha, w) {
			out = append(out, m)
		}
	}
	sortBy(out, func(a, b model.MovimientoCaja) bool { return a.Fecha < b.Fecha })
	return out, nil
}

func (r caja) SumMovimientos(_ context.Context, w repository.Ventana) (decimal.Decimal, decimal.Decimal, error) {
	defer r.s.lock()()
	ingresos, egresos := decimal.Zero, decimal.Zero
	for _, m := range r.s.st.movimientosCaja {
		if !enVentana(m.Fecha, w) {
			continue
		}
		switch m.Tipo {
		case model.MovimientoIngreso:
			ingresos = ingresos.Add(m.Monto)
		case model.MovimientoEgreso:
			egresos = egresos.Add(m.Monto)
		}
	}
	return ingresos, egresos, nil
}
