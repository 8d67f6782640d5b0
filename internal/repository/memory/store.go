// Package memory is an in-process repository.Store. Transactions are
// copy-on-write: the state is cloned, fn runs against the clone and the clone
// replaces the state only when fn succeeds. A single mutex serializes
// transactions, which gives them the same isolation the SQLite store has.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"kioscopos/internal/model"
	"kioscopos/internal/repository"

	"github.com/google/uuid"
)

type state struct {
	productos        map[uuid.UUID]model.Producto
	componentes      map[uuid.UUID][]model.PromoComponente // keyed by promo
	ventas           map[uuid.UUID]model.Venta
	sesiones         map[uuid.UUID]model.SesionCaja
	movimientosCaja  []model.MovimientoCaja
	clientes         map[uuid.UUID]model.Cliente
	pagos            []model.PagoDeuda
	devoluciones     map[uuid.UUID]model.Devolucion
	movimientosStock []model.MovimientoStock
	usuarios         map[uuid.UUID]model.Usuario
	proveedores      map[uuid.UUID]model.Proveedor
}

func newState() *state {
	return &state{
		productos:    map[uuid.UUID]model.Producto{},
		componentes:  map[uuid.UUID][]model.PromoComponente{},
		ventas:       map[uuid.UUID]model.Venta{},
		sesiones:     map[uuid.UUID]model.SesionCaja{},
		clientes:     map[uuid.UUID]model.Cliente{},
		devoluciones: map[uuid.UUID]model.Devolucion{},
		usuarios:     map[uuid.UUID]model.Usuario{},
		proveedores:  map[uuid.UUID]model.Proveedor{},
	}
}

// clone copies every table. Row values are copied; nested slices are shared
// because rows are replaced wholesale, never edited in place.
func (s *state) clone() *state {
	return &state{
		productos:        cloneMap(s.productos),
		componentes:      cloneMap(s.componentes),
		ventas:           cloneMap(s.ventas),
		sesiones:         cloneMap(s.sesiones),
		movimientosCaja:  append([]model.MovimientoCaja(nil), s.movimientosCaja...),
		clientes:         cloneMap(s.clientes),
		pagos:            append([]model.PagoDeuda(nil), s.pagos...),
		devoluciones:     cloneMap(s.devoluciones),
		movimientosStock: append([]model.MovimientoStock(nil), s.movimientosStock...),
		usuarios:         cloneMap(s.usuarios),
		proveedores:      cloneMap(s.proveedores),
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Store implements repository.Store in memory.
type Store struct {
	mu   *sync.Mutex
	st   *state
	inTx bool
}

// New returns an empty Store.
func New() *Store {
	return &Store{mu: &sync.Mutex{}, st: newState()}
}

var _ repository.Store = (*Store)(nil)

// lock is a no-op inside a transaction: the transaction already holds mu.
func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	defer s.lock()()
	if err := ctx.Err(); err != nil {
		return err
	}
	snap := s.st.clone()
	if err := fn(&Store{mu: s.mu, st: snap, inTx: true}); err != nil {
		return err
	}
	*s.st = *snap
	return nil
}

func (s *Store) Productos() repository.ProductoRepository { return productos{s} }
func (s *Store) Ventas() repository.VentaRepository       { return ventas{s} }
func (s *Store) Caja() repository.CajaRepository          { return caja{s} }
func (s *Store) Clientes() repository.ClienteRepository   { return clientes{s} }
func (s *Store) Devoluciones() repository.DevolucionRepository {
	return devoluciones{s}
}
func (s *Store) MovimientosStock() repository.MovimientoStockRepository {
	return movimientosStock{s}
}
func (s *Store) Usuarios() repository.UsuarioRepository      { return usuarios{s} }
func (s *Store) Proveedores() repository.ProveedorRepository { return proveedores{s} }

func paginate[T any](rows []T, page, limit int) []T {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	start := (page - 1) * limit
	if start >= len(rows) {
		return []T{}
	}
	end := start + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}

func sortBy[T any](rows []T, less func(a, b T) bool) {
	sort.SliceStable(rows, func(i, j int) bool { return less(rows[i], rows[j]) })
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func now() time.Time { return time.Now() }
