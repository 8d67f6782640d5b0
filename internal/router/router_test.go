package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"kioscopos/internal/config"
	"kioscopos/internal/dto"
	"kioscopos/internal/infra"
	"kioscopos/internal/model"
	"kioscopos/internal/repository/memory"
	"kioscopos/internal/router"
	"kioscopos/internal/worker"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() { gin.SetMode(gin.TestMode) }

type envelope[T any] struct {
	Success   bool   `json:"success"`
	Data      T      `json:"data"`
	ErrorKind string `json:"error_kind"`
	Code      string `json:"code"`
	Detail    string `json:"detail"`
}

type recordingHandoff struct {
	mu   sync.Mutex
	jobs []dto.TicketJob
}

func (h *recordingHandoff) EnqueueTicket(_ context.Context, job dto.TicketJob) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.jobs = append(h.jobs, job)
	return nil
}

// steppingClock advances one second per reading so that every event lands
// on its own timestamp.
func steppingClock() func() time.Time {
	var mu sync.Mutex
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.Local)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

type api struct {
	t       *testing.T
	handler http.Handler
	handoff *recordingHandoff
}

func newAPI(t *testing.T) *api {
	t.Helper()
	handoff := &recordingHandoff{}
	a := newAPIWith(t, handoff)
	a.handoff = handoff
	return a
}

// newAPIWith builds the router over an in-memory store with the given
// ticket hand-off.
func newAPIWith(t *testing.T, handoff worker.Handoff) *api {
	t.Helper()
	store := memory.New()
	for _, u := range []struct{ username, rol string }{
		{"caja1", model.RolCajero},
		{"admin", model.RolAdministrador},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte("secreto123"), bcrypt.MinCost)
		require.NoError(t, err)
		require.NoError(t, store.Usuarios().Create(context.Background(), &model.Usuario{
			Username: u.username, Nombre: u.username, PasswordHash: string(hash), Rol: u.rol, Activo: true,
		}))
	}
	cfg := &config.Config{
		Env:                "development",
		CORSOrigins:        "*",
		JWTSecret:          "router-test-secret",
		JWTExpirationHours: 1,
		JWTRefreshHours:    2,
		AllowNegativeStock: false,
		PriceTolerancePct:  "0",
	}
	r := router.New(router.Deps{
		Config:  cfg,
		Store:   store,
		Handoff: handoff,
		Printer: infra.NewCircuitBreaker(infra.DefaultCBConfig()),
		Clock:   steppingClock(),
	})
	return &api{t: t, handler: r}
}

func (a *api) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func (a *api) login(username string) dto.LoginResponse {
	a.t.Helper()
	w := a.do(http.MethodPost, "/v1/auth/login", "", dto.LoginRequest{Username: username, Password: "secreto123"})
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	return decode[dto.LoginResponse](a.t, w).Data
}

func TestHealth_MemoryMode(t *testing.T) {
	a := newAPI(t)
	w := a.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "memory", body["db"])
	assert.Equal(t, "disabled", body["redis"])
	assert.Equal(t, "closed", body["printer"])
}

func TestAuth(t *testing.T) {
	a := newAPI(t)

	w := a.do(http.MethodPost, "/v1/auth/login", "", dto.LoginRequest{Username: "caja1", Password: "incorrecta"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(http.MethodPost, "/v1/auth/login", "", map[string]string{"username": "caja1"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	tokens := a.login("caja1")
	assert.Equal(t, model.RolCajero, tokens.User.Rol)

	// Refresh tokens do not open protected routes.
	w = a.do(http.MethodGet, "/v1/productos", tokens.RefreshToken, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(http.MethodPost, "/v1/auth/refresh", "", dto.RefreshRequest{RefreshToken: tokens.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode[dto.LoginResponse](t, w).Data.AccessToken)

	w = a.do(http.MethodPost, "/v1/auth/refresh", "", dto.RefreshRequest{RefreshToken: tokens.AccessToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Role gate.
	w = a.do(http.MethodGet, "/v1/usuarios", tokens.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = a.do(http.MethodGet, "/v1/usuarios", a.login("admin").AccessToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestJornadaCompleta(t *testing.T) {
	a := newAPI(t)
	cajero := a.login("caja1").AccessToken
	admin := a.login("admin").AccessToken

	barcode := "7790001000017"
	w := a.do(http.MethodPost, "/v1/productos", cajero, dto.CrearProductoRequest{Nombre: "Alfajor", PrecioVenta: decimal.NewFromInt(100), StockActual: 10})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(http.MethodPost, "/v1/productos", admin, dto.CrearProductoRequest{
		CodigoBarras: &barcode, Nombre: "Alfajor", PrecioCosto: decimal.NewFromInt(60),
		PrecioVenta: decimal.NewFromInt(100), StockActual: 10, StockMinimo: 2,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	producto := decode[dto.ProductoResponse](t, w).Data

	// Public price check.
	w = a.do(http.MethodGet, "/v1/precio/"+barcode, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decimal.NewFromInt(100).Equal(decode[dto.ConsultaPreciosResponse](t, w).Data.PrecioVenta))

	w = a.do(http.MethodGet, "/v1/precio/0000", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "ProductNotFound", decode[any](t, w).Code)

	// Session.
	w = a.do(http.MethodPost, "/v1/caja/abrir", cajero, dto.AbrirCajaRequest{MontoInicial: decimal.NewFromInt(1000)})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sesion := decode[dto.SesionCajaResponse](t, w).Data

	w = a.do(http.MethodPost, "/v1/caja/abrir", cajero, dto.AbrirCajaRequest{MontoInicial: decimal.NewFromInt(1000)})
	assert.Equal(t, http.StatusConflict, w.Code)
	env := decode[any](t, w)
	assert.False(t, env.Success)
	assert.Equal(t, "state_conflict", env.ErrorKind)
	assert.Equal(t, "SessionAlreadyOpen", env.Code)

	// Sale.
	venta := dto.RegistrarVentaRequest{
		Items:      []dto.ItemVentaRequest{{ProductoID: producto.ID, Cantidad: 2, PrecioUnitario: decimal.NewFromInt(100)}},
		MetodoPago: "efectivo",
	}
	w = a.do(http.MethodPost, "/v1/ventas", cajero, venta)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	vendida := decode[dto.VentaResponse](t, w).Data
	assert.True(t, decimal.NewFromInt(200).Equal(vendida.Total))
	assert.Equal(t, 1, vendida.NumeroTicket)
	require.NotNil(t, vendida.SesionCajaID)
	assert.Equal(t, sesion.ID, *vendida.SesionCajaID)
	assert.Len(t, a.handoff.jobs, 1)

	w = a.do(http.MethodPost, "/v1/ventas", cajero, dto.RegistrarVentaRequest{MetodoPago: "efectivo"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "EmptyCart", decode[any](t, w).Code)

	w = a.do(http.MethodPost, "/v1/ventas", cajero, dto.RegistrarVentaRequest{
		Items:      []dto.ItemVentaRequest{{ProductoID: producto.ID, Cantidad: 50, PrecioUnitario: decimal.NewFromInt(100)}},
		MetodoPago: "efectivo",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "InsufficientStock", decode[any](t, w).Code)

	w = a.do(http.MethodGet, "/v1/ventas/"+vendida.ID, cajero, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = a.do(http.MethodGet, "/v1/ventas/no-es-uuid", cajero, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "validation_error", decode[any](t, w).ErrorKind)
	assert.Equal(t, "InvalidID", decode[any](t, w).Code)

	// Drawer: 1000 + 200.
	w = a.do(http.MethodGet, "/v1/caja/"+sesion.ID+"/resumen", cajero, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decimal.NewFromInt(1200).Equal(decode[dto.ResumenCajaResponse](t, w).Data.SaldoFinal))

	w = a.do(http.MethodPost, "/v1/caja/movimiento", cajero, dto.MovimientoCajaRequest{Tipo: "egreso", Monto: decimal.NewFromInt(5000), Descripcion: "Pago proveedor"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "InsufficientBalance", decode[any](t, w).Code)

	// Return one unit.
	w = a.do(http.MethodPost, "/v1/devoluciones", cajero, dto.DevolucionRequest{
		VentaID:        vendida.ID,
		Items:          []dto.ItemDevolucionRequest{{ProductoID: producto.ID, Cantidad: 1, PrecioReintegro: decimal.NewFromInt(100)}},
		TotalReintegro: decimal.NewFromInt(100),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = a.do(http.MethodGet, "/v1/productos/"+producto.ID, cajero, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 9, decode[dto.ProductoResponse](t, w).Data.StockActual)

	// Close with a wrong echo, then correctly.
	wrong := decimal.NewFromInt(1200)
	w = a.do(http.MethodPost, "/v1/caja/cerrar", cajero, dto.CerrarCajaRequest{MontoReal: decimal.NewFromInt(1100), MontoFinal: &wrong})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "SummaryMismatch", decode[any](t, w).Code)

	w = a.do(http.MethodPost, "/v1/caja/cerrar", cajero, dto.CerrarCajaRequest{MontoReal: decimal.NewFromInt(1100)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cierre := decode[dto.CierreCajaResponse](t, w).Data
	assert.True(t, decimal.NewFromInt(1100).Equal(*cierre.Sesion.MontoFinal))
	assert.Equal(t, "normal", cierre.Desvio.Clasificacion)

	w = a.do(http.MethodGet, "/v1/caja/actual", cajero, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Report is restricted and consistent.
	w = a.do(http.MethodGet, "/v1/caja/"+sesion.ID+"/reporte", cajero, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = a.do(http.MethodGet, "/v1/caja/"+sesion.ID+"/reporte", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[dto.ReporteCajaResponse](t, w).Data.Descuadre)
}

func TestClientesYCuentaCorriente(t *testing.T) {
	a := newAPI(t)
	cajero := a.login("caja1").AccessToken
	admin := a.login("admin").AccessToken

	w := a.do(http.MethodPost, "/v1/productos", admin, dto.CrearProductoRequest{Nombre: "Yerba", PrecioVenta: decimal.NewFromInt(3000), StockActual: 5})
	require.Equal(t, http.StatusCreated, w.Code)
	yerba := decode[dto.ProductoResponse](t, w).Data

	w = a.do(http.MethodPost, "/v1/clientes", cajero, dto.CrearClienteRequest{Nombre: "Don Jose"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	cliente := decode[dto.ClienteResponse](t, w).Data

	w = a.do(http.MethodPost, "/v1/ventas", cajero, dto.RegistrarVentaRequest{
		Items:      []dto.ItemVentaRequest{{ProductoID: yerba.ID, Cantidad: 1, PrecioUnitario: decimal.NewFromInt(3000)}},
		MetodoPago: "cuenta_corriente",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "MissingClientForCreditSale", decode[any](t, w).Code)

	w = a.do(http.MethodPost, "/v1/ventas", cajero, dto.RegistrarVentaRequest{
		Items:      []dto.ItemVentaRequest{{ProductoID: yerba.ID, Cantidad: 1, PrecioUnitario: decimal.NewFromInt(3000)}},
		MetodoPago: "cuenta_corriente",
		ClienteID:  &cliente.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = a.do(http.MethodPost, "/v1/clientes/"+cliente.ID+"/pagos", cajero, dto.PagoDeudaRequest{Monto: decimal.NewFromInt(1000), MetodoPago: "tarjeta"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.True(t, decimal.NewFromInt(2000).Equal(decode[dto.PagoDeudaResponse](t, w).Data.DeudaActual))

	w = a.do(http.MethodGet, "/v1/clientes/"+cliente.ID, cajero, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decimal.NewFromInt(2000).Equal(decode[dto.ClienteResponse](t, w).Data.DeudaActual))
}

func TestValidacionDeEntrada(t *testing.T) {
	a := newAPI(t)
	cajero := a.login("caja1").AccessToken

	req := httptest.NewRequest(http.MethodPost, "/v1/ventas", bytes.NewBufferString("{no es json"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cajero)
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	mal := decode[any](t, w)
	assert.False(t, mal.Success)
	assert.Equal(t, "validation_error", mal.ErrorKind)
	assert.Equal(t, "InvalidJSON", mal.Code)

	w = a.do(http.MethodPost, "/v1/caja/movimiento", cajero, dto.MovimientoCajaRequest{Tipo: "transferencia", Monto: decimal.NewFromInt(10), Descripcion: "x"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "InvalidRequest", decode[any](t, w).Code)

	w = a.do(http.MethodGet, "/v1/ventas?metodo_pago=cheque", cajero, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestTicketsFallidos(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	dispatcher := worker.NewRedisDispatcher(rdb, 1)
	a := newAPIWith(t, dispatcher)
	admin := a.login("admin").AccessToken
	cajero := a.login("caja1").AccessToken

	ctx, cancel := context.WithCancel(context.Background())
	dispatcher.Start(ctx, 1, func(context.Context, dto.TicketJob) error { return errors.New("tapa abierta") })
	require.NoError(t, dispatcher.EnqueueTicket(ctx, dto.TicketJob{VentaID: "v-1", NumeroTicket: 42}))
	require.Eventually(t, func() bool {
		n, err := worker.DLQLength(ctx, rdb, worker.QueueTicket)
		return err == nil && n == 1
	}, 5*time.Second, 20*time.Millisecond)
	cancel()
	dispatcher.Wait()

	w := a.do(http.MethodGet, "/v1/tickets/fallidos", cajero, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(http.MethodGet, "/v1/tickets/fallidos", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	fallidos := decode[[]worker.TicketFallido](t, w).Data
	require.Len(t, fallidos, 1)
	assert.Equal(t, 42, fallidos[0].NumeroTicket)
	assert.Equal(t, "tapa abierta", fallidos[0].Motivo)

	w = a.do(http.MethodGet, "/v1/tickets/fallidos?limit=0", admin, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = a.do(http.MethodPost, "/v1/tickets/fallidos/reimprimir", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 1, decode[map[string]int](t, w).Data["reencolados"])

	pendientes, err := rdb.LLen(context.Background(), worker.QueueTicket).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, pendientes)
}

func TestTicketsFallidos_SinRedisNoSeExponen(t *testing.T) {
	a := newAPI(t)
	admin := a.login("admin").AccessToken
	w := a.do(http.MethodGet, "/v1/tickets/fallidos", admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
