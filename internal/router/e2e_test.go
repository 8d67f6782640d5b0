//go:build integration

package router_test

// End-to-end suite against real PostgreSQL and Redis via testcontainers.
// Run with: go test -tags integration ./internal/router/... -v

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"kioscopos/internal/config"
	"kioscopos/internal/dto"
	"kioscopos/internal/infra"
	"kioscopos/internal/model"
	"kioscopos/internal/repository"
	"kioscopos/internal/router"
	"kioscopos/internal/worker"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"golang.org/x/crypto/bcrypt"
)

type e2eEnv struct {
	*api
	spool *infra.SpoolPrinter
}

func setupE2E(t *testing.T, allowNegative bool) *e2eEnv {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.Run(ctx, "postgres:15-alpine",
		tcPostgres.WithDatabase("kiosco_test"),
		tcPostgres.WithUsername("kiosco"),
		tcPostgres.WithPassword("kiosco"),
		tcPostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(pgC) })
	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(rdC) })
	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Env:                    "test",
		CORSOrigins:            "*",
		DatabaseURL:            pgURL,
		RedisURL:               rdURL,
		CatalogCacheTTLSeconds: 60,
		JWTSecret:              "e2e-secret",
		JWTExpirationHours:     1,
		JWTRefreshHours:        2,
		TicketMaxAttempts:      2,
		AllowNegativeStock:     allowNegative,
		PriceTolerancePct:      "0",
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	require.NoError(t, err)
	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)
	store := repository.NewStore(db)

	for _, u := range []struct{ username, rol string }{
		{"caja1", model.RolCajero},
		{"admin", model.RolAdministrador},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte("secreto123"), bcrypt.MinCost)
		require.NoError(t, err)
		require.NoError(t, store.Usuarios().Create(ctx, &model.Usuario{
			Username: u.username, Nombre: u.username, PasswordHash: string(hash), Rol: u.rol, Activo: true,
		}))
	}

	spool, err := infra.NewSpoolPrinter(t.TempDir())
	require.NoError(t, err)
	cb := infra.NewCircuitBreaker(infra.DefaultCBConfig())
	dispatcher := worker.NewRedisDispatcher(rdb, cfg.TicketMaxAttempts)
	wctx, cancel := context.WithCancel(ctx)
	dispatcher.Start(wctx, 2, worker.NewTicketWorker(spool, cb).Handle)
	t.Cleanup(func() {
		cancel()
		dispatcher.Wait()
	})

	r := router.New(router.Deps{
		Config:  cfg,
		DB:      db,
		Store:   store,
		Redis:   rdb,
		Handoff: dispatcher,
		Printer: cb,
	})
	return &e2eEnv{api: &api{t: t, handler: r}, spool: spool}
}

func (e *e2eEnv) producto(token, nombre string, precio int64, stock int) dto.ProductoResponse {
	e.t.Helper()
	barcode := fmt.Sprintf("779%010d", time.Now().UnixNano()%1e10)
	w := e.do(http.MethodPost, "/v1/productos", token, dto.CrearProductoRequest{
		CodigoBarras: &barcode, Nombre: nombre, PrecioVenta: decimal.NewFromInt(precio), StockActual: stock,
	})
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[dto.ProductoResponse](e.t, w).Data
}

func TestE2E_VentaImprimeTicketYCierraCaja(t *testing.T) {
	e := setupE2E(t, true)
	cajero := e.login("caja1").AccessToken
	admin := e.login("admin").AccessToken

	w := e.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	coca := e.producto(admin, "Coca 500", 1200, 24)
	w = e.do(http.MethodPost, "/v1/caja/abrir", cajero, dto.AbrirCajaRequest{MontoInicial: decimal.NewFromInt(5000)})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = e.do(http.MethodPost, "/v1/ventas", cajero, dto.RegistrarVentaRequest{
		Items:      []dto.ItemVentaRequest{{ProductoID: coca.ID, Cantidad: 2, PrecioUnitario: decimal.NewFromInt(1200)}},
		MetodoPago: "efectivo",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	venta := decode[dto.VentaResponse](t, w).Data

	require.Eventually(t, func() bool {
		_, err := os.Stat(e.spool.Path(venta.NumeroTicket))
		return err == nil
	}, 10*time.Second, 50*time.Millisecond)

	w = e.do(http.MethodPost, "/v1/caja/cerrar", cajero, dto.CerrarCajaRequest{MontoReal: decimal.NewFromInt(7400)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cierre := decode[dto.CierreCajaResponse](t, w).Data
	assert.True(t, decimal.NewFromInt(7400).Equal(*cierre.Sesion.MontoFinal))
	assert.True(t, decimal.Zero.Equal(cierre.Desvio.Monto))
}

func TestE2E_VentasConcurrentesNoSobrevenden(t *testing.T) {
	e := setupE2E(t, false)
	cajero := e.login("caja1").AccessToken
	admin := e.login("admin").AccessToken
	chicle := e.producto(admin, "Chicle", 100, 5)

	var wg sync.WaitGroup
	codes := make(chan int, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := e.do(http.MethodPost, "/v1/ventas", cajero, dto.RegistrarVentaRequest{
				Items:      []dto.ItemVentaRequest{{ProductoID: chicle.ID, Cantidad: 1, PrecioUnitario: decimal.NewFromInt(100)}},
				MetodoPago: "efectivo",
			})
			codes <- w.Code
		}()
	}
	wg.Wait()
	close(codes)

	ok := 0
	for c := range codes {
		if c == http.StatusCreated {
			ok++
		}
	}
	assert.Equal(t, 5, ok)

	w := e.do(http.MethodGet, "/v1/productos/"+chicle.ID, cajero, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decode[dto.ProductoResponse](t, w).Data.StockActual)
}

func TestE2E_RetirosConcurrentesRespetanSaldo(t *testing.T) {
	e := setupE2E(t, true)
	cajero := e.login("caja1").AccessToken

	w := e.do(http.MethodPost, "/v1/caja/abrir", cajero, dto.AbrirCajaRequest{MontoInicial: decimal.NewFromInt(100)})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var wg sync.WaitGroup
	codes := make(chan int, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := e.do(http.MethodPost, "/v1/caja/movimiento", cajero, dto.MovimientoCajaRequest{
				Tipo: "egreso", Monto: decimal.NewFromInt(40), Descripcion: "Retiro",
			})
			codes <- w.Code
		}()
	}
	wg.Wait()
	close(codes)

	ok := 0
	for c := range codes {
		if c == http.StatusCreated {
			ok++
		}
	}
	assert.Equal(t, 2, ok)
}

func TestE2E_DevolucionesConcurrentesNoSuperanLoVendido(t *testing.T) {
	e := setupE2E(t, true)
	cajero := e.login("caja1").AccessToken
	admin := e.login("admin").AccessToken
	yerba := e.producto(admin, "Yerba 1kg", 3000, 10)

	w := e.do(http.MethodPost, "/v1/ventas", cajero, dto.RegistrarVentaRequest{
		Items:      []dto.ItemVentaRequest{{ProductoID: yerba.ID, Cantidad: 2, PrecioUnitario: decimal.NewFromInt(3000)}},
		MetodoPago: "tarjeta",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	venta := decode[dto.VentaResponse](t, w).Data

	var wg sync.WaitGroup
	codes := make(chan int, 6)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := e.do(http.MethodPost, "/v1/devoluciones", cajero, dto.DevolucionRequest{
				VentaID: venta.ID,
				Items:   []dto.ItemDevolucionRequest{{ProductoID: yerba.ID, Cantidad: 1, PrecioReintegro: decimal.Zero}},
			})
			codes <- w.Code
		}()
	}
	wg.Wait()
	close(codes)

	ok := 0
	for c := range codes {
		if c == http.StatusCreated {
			ok++
		}
	}
	assert.Equal(t, 2, ok)

	w = e.do(http.MethodGet, "/v1/productos/"+yerba.ID, cajero, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 10, decode[dto.ProductoResponse](t, w).Data.StockActual)
}
