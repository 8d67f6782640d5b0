package repository

import (
	"context"

	"kioscopos/internal/dto"
	"kioscopos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ventana is a half-open time window [Desde, Hasta) over FechaLayout strings.
// An empty Hasta means no upper bound.
type Ventana struct {
	Desde string
	Hasta string
}

func (v Ventana) apply(q *gorm.DB) *gorm.DB {
	q = q.Where("fecha >= ?", v.Desde)
	if v.Hasta != "" {
		q = q.Where("fecha < ?", v.Hasta)
	}
	return q
}

type VentaRepository interface {
	// Create inserts the header and its Items together.
	Create(ctx context.Context, v *model.Venta) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Venta, error)
	// LockForUpdate locks the sale row until the surrounding transaction
	// ends, serializing returns against the same sale.
	LockForUpdate(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter dto.VentaFilter) ([]model.Venta, int64, error)
	NextTicketNumber(ctx context.Context) (int, error)
	// TotalesPorMetodo sums sale totals per payment method inside w.
	TotalesPorMetodo(ctx context.Context, w Ventana) (map[string]decimal.Decimal, error)
	// AnotarFactura writes the invoicing fields once. A sale that already
	// carries a CAE yields ErrConflict.
	AnotarFactura(ctx context.Context, id uuid.UUID, f dto.AnotarFacturaRequest) error
}

type ventaRepo struct{ db *gorm.DB }

func (r *ventaRepo) Create(ctx context.Context, v *model.Venta) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	for i := range v.Items {
		if v.Items[i].ID == uuid.Nil {
			v.Items[i].ID = uuid.New()
		}
		v.Items[i].VentaID = v.ID
	}
	return translate(r.db.WithContext(ctx).Create(v).Error)
}

func (r *ventaRepo) LockForUpdate(ctx context.Context, id uuid.UUID) error {
	var v model.Venta
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id = ?", id).
		First(&v).Error
	return translate(err)
}

func (r *ventaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Venta, error) {
	var v model.Venta
	err := r.db.WithContext(ctx).Preload("Items.Producto").Where("id = ?", id).First(&v).Error
	if err != nil {
		return nil, translate(err)
	}
	return &v, nil
}

func (r *ventaRepo) List(ctx context.Context, filter dto.VentaFilter) ([]model.Venta, int64, error) {
	var ventas []model.Venta
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Venta{})
	if filter.Fecha != "" {
		// fecha is FechaLayout, so the day is its first 10 characters.
		q = q.Where("fecha LIKE ?", filter.Fecha+" %")
	}
	if filter.MetodoPago != "" {
		q = q.Where("metodo_pago = ?", filter.MetodoPago)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := page(filter.Page, filter.Limit)
	err := q.Preload("Items.Producto").
		Order("numero_ticket DESC").
		Offset(offset).Limit(limit).
		Find(&ventas).Error
	return ventas, total, err
}

// ticketLockKey is the advisory lock that serializes ticket numbering on
// PostgreSQL. SQLite runs on a single connection and needs none.
const ticketLockKey = 7201

func (r *ventaRepo) NextTicketNumber(ctx context.Context) (int, error) {
	db := r.db.WithContext(ctx)
	if db.Dialector.Name() == "postgres" {
		if err := db.Exec("SELECT pg_advisory_xact_lock(?)", ticketLockKey).Error; err != nil {
			return 0, err
		}
	}
	var max int
	err := db.Model(&model.Venta{}).
		Select("COALESCE(MAX(numero_ticket), 0)").
		Row().Scan(&max)
	return max + 1, err
}

func (r *ventaRepo) TotalesPorMetodo(ctx context.Context, w Ventana) (map[string]decimal.Decimal, error) {
	rows, err := w.apply(r.db.WithContext(ctx).Model(&model.Venta{})).
		Select("metodo_pago, COALESCE(SUM(total), 0)").
		Group("metodo_pago").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]decimal.Decimal)
	for rows.Next() {
		var metodo string
		var suma decimal.Decimal
		if err := rows.Scan(&metodo, &suma); err != nil {
			return nil, err
		}
		out[metodo] = suma.Round(2)
	}
	return out, rows.Err()
}

func (r *ventaRepo) AnotarFactura(ctx context.Context, id uuid.UUID, f dto.AnotarFacturaRequest) error {
	res := r.db.WithContext(ctx).Model(&model.Venta{}).
		Where("id = ? AND cae IS NULL", id).
		Updates(map[string]interface{}{
			"cae":             f.CAE,
			"cae_vencimiento": f.CAEVencimiento,
			"tipo_factura":    f.TipoFactura,
			"numero_factura":  f.NumeroFactura,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := r.db.WithContext(ctx).Model(&model.Venta{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrConflict
	}
	return nil
}
