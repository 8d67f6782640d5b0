package repository

import (
	"context"

	"kioscopos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CajaRepository interface {
	// CreateSesion returns ErrDuplicate when another session is still open.
	CreateSesion(ctx context.Context, s *model.SesionCaja) error
	// FindSesionAbierta returns the single open session or ErrNotFound.
	// forUpdate locks the row until the surrounding transaction ends.
	FindSesionAbierta(ctx context.Context, forUpdate bool) (*model.SesionCaja, error)
	FindSesionByID(ctx context.Context, id uuid.UUID) (*model.SesionCaja, error)
	// UltimoCierre returns the latest closed_at, or "" when no session was ever closed.
	UltimoCierre(ctx context.Context) (string, error)
	// UltimaMarca returns the latest fecha over sales and cash movements, or
	// "" when there are none.
	UltimaMarca(ctx context.Context) (string, error)
	// CerrarSesion persists the close fields only if the row is still open;
	// otherwise ErrConflict.
	CerrarSesion(ctx context.Context, s *model.SesionCaja) error
	ListSesiones(ctx context.Context, page, limit int) ([]model.SesionCaja, int64, error)

	CreateMovimiento(ctx context.Context, m *model.MovimientoCaja) error
	ListMovimientos(ctx context.Context, w Ventana) ([]model.MovimientoCaja, error)
	// SumMovimientos returns the ingreso and egreso totals inside w.
	SumMovimientos(ctx context.Context, w Ventana) (ingresos, egresos decimal.Decimal, err error)
}

type cajaRepo struct{ db *gorm.DB }

func (r *cajaRepo) CreateSesion(ctx context.Context, s *model.SesionCaja) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return translate(r.db.WithContext(ctx).Create(s).Error)
}

func (r *cajaRepo) FindSesionAbierta(ctx context.Context, forUpdate bool) (*model.SesionCaja, error) {
	var s model.SesionCaja
	q := r.db.WithContext(ctx)
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.Where("closed_at IS NULL").First(&s).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *cajaRepo) FindSesionByID(ctx context.Context, id uuid.UUID) (*model.SesionCaja, error) {
	var s model.SesionCaja
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *cajaRepo) UltimoCierre(ctx context.Context) (string, error) {
	var ultimo string
	err := r.db.WithContext(ctx).Model(&model.SesionCaja{}).
		Select("COALESCE(MAX(closed_at), '')").
		Row().Scan(&ultimo)
	return ultimo, err
}

func (r *cajaRepo) UltimaMarca(ctx context.Context) (string, error) {
	var ultima string
	for _, m := range []interface{}{&model.Venta{}, &model.MovimientoCaja{}} {
		var f string
		err := r.db.WithContext(ctx).Model(m).
			Select("COALESCE(MAX(fecha), '')").
			Row().Scan(&f)
		if err != nil {
			return "", err
		}
		if f > ultima {
			ultima = f
		}
	}
	return ultima, nil
}

func (r *cajaRepo) CerrarSesion(ctx context.Context, s *model.SesionCaja) error {
	res := r.db.WithContext(ctx).Model(&model.SesionCaja{}).
		Where("id = ? AND closed_at IS NULL", s.ID).
		Updates(map[string]interface{}{
			"estado":               model.EstadoCajaCerrada,
			"closed_at":            s.ClosedAt,
			"monto_final":          s.MontoFinal,
			"monto_real":           s.MontoReal,
			"diferencia":           s.Diferencia,
			"total_ventas":         s.TotalVentas,
			"total_movimientos":    s.TotalMovimientos,
			"clasificacion_desvio": s.ClasificacionDesvio,
			"observaciones":        s.Observaciones,
			"cerrada_por":          s.CerradaPor,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	s.Estado = model.EstadoCajaCerrada
	return nil
}

func (r *cajaRepo) ListSesiones(ctx context.Context, p, limit int) ([]model.SesionCaja, int64, error) {
	var sesiones []model.SesionCaja
	var total int64
	q := r.db.WithContext(ctx).Model(&model.SesionCaja{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset, lim := page(p, limit)
	err := q.Order("opened_at DESC").Offset(offset).Limit(lim).Find(&sesiones).Error
	return sesiones, total, err
}

func (r *cajaRepo) CreateMovimiento(ctx context.Context, m *model.MovimientoCaja) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return translate(r.db.WithContext(ctx).Create(m).Error)
}

func (r *cajaRepo) ListMovimientos(ctx context.Context, w Ventana) ([]model.MovimientoCaja, error) {
	var movs []model.MovimientoCaja
	err := w.apply(r.db.WithContext(ctx)).Order("fecha ASC").Find(&movs).Error
	return movs, err
}

func (r *cajaRepo) SumMovimientos(ctx context.Context, w Ventana) (decimal.Decimal, decimal.Decimal, error) {
	rows, err := w.apply(r.db.WithContext(ctx).Model(&model.MovimientoCaja{})).
		Select("tipo, COALESCE(SUM(monto), 0)").
		Group("tipo").
		Rows()
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	defer rows.Close()

	ingresos, egresos := decimal.Zero, decimal.Zero
	for rows.Next() {
		var tipo string
		var suma decimal.Decimal
		if err := rows.Scan(&tipo, &suma); err != nil {
			return decimal.Zero, decimal.Zero, err
		}
		switch tipo {
		case model.MovimientoIngreso:
			ingresos = suma.Round(2)
		case model.MovimientoEgreso:
			egresos = suma.Round(2)
		}
	}
	return ingresos, egresos, rows.Err()
}
