package repository

import (
	"context"

	"kioscopos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DevolucionRepository interface {
	// Create inserts the header and its Items together.
	Create(ctx context.Context, d *model.Devolucion) error
	ListByVenta(ctx context.Context, ventaID uuid.UUID) ([]model.Devolucion, error)
	// CantidadesDevueltas sums previously returned units per product of a sale.
	CantidadesDevueltas(ctx context.Context, ventaID uuid.UUID) (map[uuid.UUID]int, error)
}

type devolucionRepo struct{ db *gorm.DB }

func (r *devolucionRepo) Create(ctx context.Context, d *model.Devolucion) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	for i := range d.Items {
		if d.Items[i].ID == uuid.Nil {
			d.Items[i].ID = uuid.New()
		}
		d.Items[i].DevolucionID = d.ID
	}
	return translate(r.db.WithContext(ctx).Create(d).Error)
}

func (r *devolucionRepo) ListByVenta(ctx context.Context, ventaID uuid.UUID) ([]model.Devolucion, error) {
	var devs []model.Devolucion
	err := r.db.WithContext(ctx).Preload("Items").
		Where("venta_id = ?", ventaID).
		Order("fecha ASC").
		Find(&devs).Error
	return devs, err
}

func (r *devolucionRepo) CantidadesDevueltas(ctx context.Context, ventaID uuid.UUID) (map[uuid.UUID]int, error) {
	rows, err := r.db.WithContext(ctx).Model(&model.DevolucionItem{}).
		Select("devolucion_items.producto_id, COALESCE(SUM(devolucion_items.cantidad), 0)").
		Joins("JOIN devoluciones ON devoluciones.id = devolucion_items.devolucion_id").
		Where("devoluciones.venta_id = ?", ventaID).
		Group("devolucion_items.producto_id").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uuid.UUID]int)
	for rows.Next() {
		var id uuid.UUID
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, rows.Err()
}
