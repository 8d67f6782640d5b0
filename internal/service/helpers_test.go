package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"kioscopos/internal/dto"
	"kioscopos/internal/infra"
	"kioscopos/internal/model"
	"kioscopos/internal/repository"
	"kioscopos/internal/repository/memory"
	"kioscopos/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// ── Clock ─────────────────────────────────────────────────────────────────────

// fakeClock advances one second per reading so every write lands on its own
// timestamp.
type fakeClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.Local), step: time.Second}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.t
	c.t = c.t.Add(c.step)
	return t
}

// Freeze pins the clock at t; every later reading returns t.
func (c *fakeClock) Freeze(t time.Time) {
	c.mu.Lock()
	c.t, c.step = t, 0
	c.mu.Unlock()
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// ── Backends ──────────────────────────────────────────────────────────────────

type backend struct {
	name string
	open func(t *testing.T) repository.Store
}

var backends = []backend{
	{"memory", func(*testing.T) repository.Store { return memory.New() }},
	{"sqlite", openSQLite},
}

func openSQLite(t *testing.T) repository.Store {
	t.Helper()
	db, err := infra.NewDatabase("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return repository.NewStore(db)
}

// eachBackend runs fn once per Store implementation.
func eachBackend(t *testing.T, fn func(t *testing.T, store repository.Store)) {
	for _, b := range backends {
		b := b
		t.Run(b.name, func(t *testing.T) { fn(t, b.open(t)) })
	}
}

// ── Fixture ───────────────────────────────────────────────────────────────────

type recordingHandoff struct {
	mu   sync.Mutex
	jobs []dto.TicketJob
	err  error
}

func (h *recordingHandoff) EnqueueTicket(_ context.Context, job dto.TicketJob) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	h.jobs = append(h.jobs, job)
	return nil
}

func (h *recordingHandoff) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.jobs)
}

type fixture struct {
	store        repository.Store
	clock        *fakeClock
	usuario      uuid.UUID
	handoff      *recordingHandoff
	ventas       service.VentaService
	caja         service.CajaService
	devoluciones service.DevolucionService
	inventario   service.InventarioService
	productos    service.ProductoService
	clientes     service.ClienteService
}

var politicaPorDefecto = service.PoliticaVenta{AllowNegativeStock: true}

func newFixture(store repository.Store, politica service.PoliticaVenta) *fixture {
	clock := newFakeClock()
	handoff := &recordingHandoff{}
	return &fixture{
		store:        store,
		clock:        clock,
		usuario:      uuid.New(),
		handoff:      handoff,
		ventas:       service.NewVentaService(store, nil, handoff, clock.Now, politica),
		caja:         service.NewCajaService(store, clock.Now),
		devoluciones: service.NewDevolucionService(store, nil, clock.Now),
		inventario:   service.NewInventarioService(store, nil, clock.Now),
		productos:    service.NewProductoService(store, nil),
		clientes:     service.NewClienteService(store, clock.Now),
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func (f *fixture) producto(t *testing.T, nombre, precio string, stock int) *model.Producto {
	t.Helper()
	p := &model.Producto{
		Nombre:       nombre,
		Categoria:    "kiosco",
		PrecioCosto:  dec(precio).Div(decimal.NewFromInt(2)),
		PrecioVenta:  dec(precio),
		StockActual:  stock,
		StockMinimo:  5,
		UnidadMedida: model.UnidadUnidad,
		Activo:       true,
	}
	require.NoError(t, f.store.Productos().Create(context.Background(), p))
	return p
}

// promo creates a promo bundle; comps maps component → units per promo.
func (f *fixture) promo(t *testing.T, nombre, precio string, comps map[*model.Producto]int) *model.Producto {
	t.Helper()
	p := &model.Producto{
		Nombre:       nombre,
		Categoria:    "promos",
		PrecioVenta:  dec(precio),
		StockMinimo:  1,
		UnidadMedida: model.UnidadUnidad,
		EsPromo:      true,
		Activo:       true,
	}
	ctx := context.Background()
	require.NoError(t, f.store.Productos().Create(ctx, p))
	var rows []model.PromoComponente
	for c, n := range comps {
		rows = append(rows, model.PromoComponente{ComponenteID: c.ID, CantidadPorPromo: n})
	}
	require.NoError(t, f.store.Productos().ReplaceComponentes(ctx, p.ID, rows))
	return p
}

func (f *fixture) cliente(t *testing.T, nombre string) *model.Cliente {
	t.Helper()
	c := &model.Cliente{Nombre: nombre}
	require.NoError(t, f.store.Clientes().Create(context.Background(), c))
	return c
}

func (f *fixture) stock(t *testing.T, id uuid.UUID) int {
	t.Helper()
	p, err := f.store.Productos().FindByID(context.Background(), id)
	require.NoError(t, err)
	return p.StockActual
}

func (f *fixture) abrir(t *testing.T, inicial string) *dto.SesionCajaResponse {
	t.Helper()
	s, err := f.caja.Abrir(context.Background(), f.usuario, dto.AbrirCajaRequest{MontoInicial: dec(inicial)})
	require.NoError(t, err)
	return s
}

func (f *fixture) vender(t *testing.T, metodo string, p *model.Producto, cantidad int) *dto.VentaResponse {
	t.Helper()
	v, err := f.ventas.RegistrarVenta(context.Background(), f.usuario, dto.RegistrarVentaRequest{
		MetodoPago: metodo,
		Items:      []dto.ItemVentaRequest{{ProductoID: p.ID.String(), Cantidad: cantidad, PrecioUnitario: p.PrecioVenta}},
	})
	require.NoError(t, err)
	return v
}

// ── Fault injection ───────────────────────────────────────────────────────────

var errInjected = errors.New("fallo inyectado")

// faultyStore fails the chosen writes inside transactions.
type faultyStore struct {
	repository.Store
	failStockMovs bool
	failCajaMovs  bool
}

func (s faultyStore) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	return s.Store.Transaction(ctx, func(tx repository.Store) error {
		return fn(faultyStore{Store: tx, failStockMovs: s.failStockMovs, failCajaMovs: s.failCajaMovs})
	})
}

func (s faultyStore) MovimientosStock() repository.MovimientoStockRepository {
	return faultyMovStock{MovimientoStockRepository: s.Store.MovimientosStock(), fail: s.failStockMovs}
}

func (s faultyStore) Caja() repository.CajaRepository {
	return faultyCaja{CajaRepository: s.Store.Caja(), fail: s.failCajaMovs}
}

type faultyMovStock struct {
	repository.MovimientoStockRepository
	fail bool
}

func (r faultyMovStock) Create(ctx context.Context, m *model.MovimientoStock) error {
	if r.fail {
		return errInjected
	}
	return r.MovimientoStockRepository.Create(ctx, m)
}

type faultyCaja struct {
	repository.CajaRepository
	fail bool
}

func (r faultyCaja) CreateMovimiento(ctx context.Context, m *model.MovimientoCaja) error {
	if r.fail {
		return errInjected
	}
	return r.CajaRepository.CreateMovimiento(ctx, m)
}

func newMemory() repository.Store { return memory.New() }
