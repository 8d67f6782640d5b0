package repository

import (
	"context"
	"strings"

	"kioscopos/internal/dto"
	"kioscopos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductoRepository defines the data access contract for products and promo components.
type ProductoRepository interface {
	Create(ctx context.Context, p *model.Producto) error
	// Update writes the catalog fields only; stock changes go through UpdateStock.
	Update(ctx context.Context, p *model.Producto) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Producto, error)
	FindByBarcode(ctx context.Context, barcode string) (*model.Producto, error)
	List(ctx context.Context, filter dto.ProductoFilter) ([]model.Producto, int64, error)
	Search(ctx context.Context, q string, limit int) ([]model.Producto, error)
	ListActivos(ctx context.Context) ([]model.Producto, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error

	// UpdateStock applies delta to stock_actual under a row lock and returns
	// the quantities before and after. With allowNegative=false a result
	// below zero is refused with ErrStockInsuficiente and nothing is written.
	UpdateStock(ctx context.Context, id uuid.UUID, delta int, allowNegative bool) (antes, despues int, err error)

	// Componentes returns the components of a promo with Componente preloaded.
	Componentes(ctx context.Context, promoID uuid.UUID) ([]model.PromoComponente, error)
	// ComponentesDe batches Componentes for listings.
	ComponentesDe(ctx context.Context, promoIDs []uuid.UUID) (map[uuid.UUID][]model.PromoComponente, error)
	ReplaceComponentes(ctx context.Context, promoID uuid.UUID, comps []model.PromoComponente) error
}

type productoRepo struct{ db *gorm.DB }

func (r *productoRepo) Create(ctx context.Context, p *model.Producto) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return translate(r.db.WithContext(ctx).Create(p).Error)
}

// catalogFields are the columns Update may write. stock_actual is owned by
// UpdateStock and es_promo is fixed at creation.
var catalogFields = []string{
	"codigo_barras", "nombre", "categoria", "precio_costo", "precio_venta",
	"stock_minimo", "unidad_medida", "proveedor_id", "activo", "updated_at",
}

func (r *productoRepo) Update(ctx context.Context, p *model.Producto) error {
	res := r.db.WithContext(ctx).Model(p).Select(catalogFields).Updates(p)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *productoRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Producto, error) {
	var p model.Producto
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *productoRepo) FindByBarcode(ctx context.Context, barcode string) (*model.Producto, error) {
	var p model.Producto
	err := r.db.WithContext(ctx).Where("codigo_barras = ? AND activo = ?", barcode, true).First(&p).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *productoRepo) List(ctx context.Context, filter dto.ProductoFilter) ([]model.Producto, int64, error) {
	var productos []model.Producto
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Producto{})

	// Activo filter: "false" = inactivos, "all" = todos, anything else = activos (default)
	switch filter.Activo {
	case "false":
		q = q.Where("activo = ?", false)
	case "all":
	default:
		q = q.Where("activo = ?", true)
	}

	if filter.Barcode != "" {
		q = q.Where("codigo_barras = ?", filter.Barcode)
	}
	if filter.Nombre != "" {
		q = q.Where("LOWER(nombre) LIKE ?", "%"+strings.ToLower(filter.Nombre)+"%")
	}
	if filter.Categoria != "" {
		q = q.Where("categoria = ?", filter.Categoria)
	}
	if filter.ProveedorID != "" {
		q = q.Where("proveedor_id = ?", filter.ProveedorID)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := page(filter.Page, filter.Limit)
	err := q.Order("nombre ASC").Limit(limit).Offset(offset).Find(&productos).Error
	return productos, total, err
}

// Search matches name substring or exact barcode among active products.
func (r *productoRepo) Search(ctx context.Context, q string, limit int) ([]model.Producto, error) {
	var productos []model.Producto
	err := r.db.WithContext(ctx).
		Where("activo = ? AND (LOWER(nombre) LIKE ? OR codigo_barras = ?)", true, "%"+strings.ToLower(q)+"%", q).
		Order("nombre ASC").Limit(limit).
		Find(&productos).Error
	return productos, err
}

func (r *productoRepo) ListActivos(ctx context.Context) ([]model.Producto, error) {
	var productos []model.Producto
	err := r.db.WithContext(ctx).Where("activo = ?", true).Order("nombre ASC").Find(&productos).Error
	return productos, err
}

func (r *productoRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&model.Producto{}).Where("id = ?", id).Update("activo", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *productoRepo) UpdateStock(ctx context.Context, id uuid.UUID, delta int, allowNegative bool) (int, int, error) {
	var p model.Producto
	// FOR UPDATE on PostgreSQL; the SQLite dialector drops the clause and the
	// single writer connection serializes instead.
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id", "stock_actual").
		Where("id = ?", id).
		First(&p).Error
	if err != nil {
		return 0, 0, translate(err)
	}

	antes := p.StockActual
	despues := antes + delta
	if despues < 0 && !allowNegative {
		return antes, antes, ErrStockInsuficiente
	}

	err = r.db.WithContext(ctx).Model(&model.Producto{}).Where("id = ?", id).
		Update("stock_actual", gorm.Expr("stock_actual + ?", delta)).Error
	if err != nil {
		return 0, 0, err
	}
	return antes, despues, nil
}

func (r *productoRepo) Componentes(ctx context.Context, promoID uuid.UUID) ([]model.PromoComponente, error) {
	var comps []model.PromoComponente
	err := r.db.WithContext(ctx).Preload("Componente").
		Where("promo_id = ?", promoID).
		Find(&comps).Error
	return comps, err
}

func (r *productoRepo) ComponentesDe(ctx context.Context, promoIDs []uuid.UUID) (map[uuid.UUID][]model.PromoComponente, error) {
	out := make(map[uuid.UUID][]model.PromoComponente, len(promoIDs))
	if len(promoIDs) == 0 {
		return out, nil
	}
	var comps []model.PromoComponente
	err := r.db.WithContext(ctx).Preload("Componente").
		Where("promo_id IN ?", promoIDs).
		Find(&comps).Error
	if err != nil {
		return nil, err
	}
	for _, c := range comps {
		out[c.PromoID] = append(out[c.PromoID], c)
	}
	return out, nil
}

func (r *productoRepo) ReplaceComponentes(ctx context.Context, promoID uuid.UUID, comps []model.PromoComponente) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("promo_id = ?", promoID).Delete(&model.PromoComponente{}).Error; err != nil {
		return err
	}
	for i := range comps {
		comps[i].PromoID = promoID
		if comps[i].ID == uuid.Nil {
			comps[i].ID = uuid.New()
		}
		comps[i].Componente = nil
	}
	if len(comps) == 0 {
		return nil
	}
	return translate(db.Create(&comps).Error)
}
