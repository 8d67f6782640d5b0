package repository

import (
	"context"
	"strings"

	"kioscopos/internal/dto"
	"kioscopos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ClienteRepository interface {
	Create(ctx context.Context, c *model.Cliente) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Cliente, error)
	List(ctx context.Context, filter dto.ClienteFilter) ([]model.Cliente, int64, error)
	// AddDeuda shifts deuda_actual by delta with an SQL expression, never
	// read-modify-write. ErrNotFound when the client does not exist.
	AddDeuda(ctx context.Context, id uuid.UUID, delta decimal.Decimal) error
	CreatePago(ctx context.Context, p *model.PagoDeuda) error
}

type clienteRepo struct{ db *gorm.DB }

func (r *clienteRepo) Create(ctx context.Context, c *model.Cliente) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return translate(r.db.WithContext(ctx).Create(c).Error)
}

func (r *clienteRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Cliente, error) {
	var c model.Cliente
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *clienteRepo) List(ctx context.Context, filter dto.ClienteFilter) ([]model.Cliente, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Cliente{})
	if filter.Q != "" {
		q = q.Where("LOWER(nombre) LIKE ? OR dni = ?", "%"+strings.ToLower(filter.Q)+"%", filter.Q)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset, limit := page(filter.Page, filter.Limit)
	var clientes []model.Cliente
	err := q.Order("nombre ASC").Offset(offset).Limit(limit).Find(&clientes).Error
	return clientes, total, err
}

func (r *clienteRepo) AddDeuda(ctx context.Context, id uuid.UUID, delta decimal.Decimal) error {
	res := r.db.WithContext(ctx).Model(&model.Cliente{}).Where("id = ?", id).
		Update("deuda_actual", gorm.Expr("deuda_actual + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *clienteRepo) CreatePago(ctx context.Context, p *model.PagoDeuda) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return translate(r.db.WithContext(ctx).Create(p).Error)
}
