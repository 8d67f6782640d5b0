package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned by every Find* when no row matches.
	ErrNotFound = errors.New("registro no encontrado")
	// ErrDuplicate is returned when a unique constraint rejects a write,
	// including the single-open-session index.
	ErrDuplicate = errors.New("registro duplicado")
	// ErrConflict is returned when a conditional update affected no rows.
	ErrConflict = errors.New("conflicto de estado")
	// ErrStockInsuficiente is returned by UpdateStock when negative stock is not allowed.
	ErrStockInsuficiente = errors.New("stock insuficiente")
)

// Store is the Ledger Store: per-entity repositories plus a transactional scope.
// Services depend on this interface, not on the concrete GORM implementation,
// so coordinators can be unit-tested against repository/memory.
type Store interface {
	Productos() ProductoRepository
	Ventas() VentaRepository
	Caja() CajaRepository
	Clientes() ClienteRepository
	Devoluciones() DevolucionRepository
	MovimientosStock() MovimientoStockRepository
	Usuarios() UsuarioRepository
	Proveedores() ProveedorRepository

	// Transaction runs fn inside a single transaction. Every write made through
	// the tx Store is rolled back when fn returns an error. Callers must not
	// use the outer Store inside fn.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

type gormStore struct{ db *gorm.DB }

// NewStore returns the GORM-backed Store.
func NewStore(db *gorm.DB) Store { return &gormStore{db: db} }

func (s *gormStore) Productos() ProductoRepository { return &productoRepo{db: s.db} }
func (s *gormStore) Ventas() VentaRepository       { return &ventaRepo{db: s.db} }
func (s *gormStore) Caja() CajaRepository          { return &cajaRepo{db: s.db} }
func (s *gormStore) Clientes() ClienteRepository   { return &clienteRepo{db: s.db} }
func (s *gormStore) Devoluciones() DevolucionRepository {
	return &devolucionRepo{db: s.db}
}
func (s *gormStore) MovimientosStock() MovimientoStockRepository {
	return &movimientoStockRepo{db: s.db}
}
func (s *gormStore) Usuarios() UsuarioRepository      { return &usuarioRepo{db: s.db} }
func (s *gormStore) Proveedores() ProveedorRepository { return &proveedorRepo{db: s.db} }

func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), isUniqueViolation(err):
		return ErrDuplicate
	}
	return err
}

// isUniqueViolation catches drivers that bypass gorm's error translator.
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "SQLSTATE 23505")
}

// page normalizes pagination input.
func page(p, limit int) (offset, lim int) {
	if p < 1 {
		p = 1
	}
	if limit < 1 {
		limit = 20
	}
	return (p - 1) * limit, limit
}
