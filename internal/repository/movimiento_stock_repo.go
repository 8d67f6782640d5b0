package repository

import (
	"context"

	"kioscopos/internal/dto"
	"kioscopos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MovimientoStockRepository is append-only: there is no Update or Delete.
type MovimientoStockRepository interface {
	Create(ctx context.Context, m *model.MovimientoStock) error
	List(ctx context.Context, filter dto.MovimientoStockFilter) ([]model.MovimientoStock, int64, error)
	// ListByReferencia returns the rows of tipo written for referenciaID, in
	// insertion order.
	ListByReferencia(ctx context.Context, referenciaID uuid.UUID, tipo string) ([]model.MovimientoStock, error)
}

type movimientoStockRepo struct{ db *gorm.DB }

func (r *movimientoStockRepo) Create(ctx context.Context, m *model.MovimientoStock) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return translate(r.db.WithContext(ctx).Omit("Producto").Create(m).Error)
}

func (r *movimientoStockRepo) List(ctx context.Context, filter dto.MovimientoStockFilter) ([]model.MovimientoStock, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.MovimientoStock{})
	if filter.ProductoID != "" {
		q = q.Where("producto_id = ?", filter.ProductoID)
	}
	if filter.Tipo != "" {
		q = q.Where("tipo = ?", filter.Tipo)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := page(filter.Page, filter.Limit)
	var movimientos []model.MovimientoStock
	err := q.Order("fecha DESC").Offset(offset).Limit(limit).Find(&movimientos).Error
	return movimientos, total, err
}

func (r *movimientoStockRepo) ListByReferencia(ctx context.Context, referenciaID uuid.UUID, tipo string) ([]model.MovimientoStock, error) {
	var movimientos []model.MovimientoStock
	err := r.db.WithContext(ctx).
		Where("referencia_id = ? AND tipo = ?", referenciaID, tipo).
		Order("fecha, id").
		Find(&movimientos).Error
	return movimientos, err
}
