package router

import (
	"time"

	"kioscopos/internal/config"
	"kioscopos/internal/handler"
	"kioscopos/internal/infra"
	"kioscopos/internal/middleware"
	"kioscopos/internal/model"
	"kioscopos/internal/repository"
	"kioscopos/internal/service"
	"kioscopos/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the process-level collaborators built by cmd/server.
// DB is nil in the in-memory demo mode and Redis is nil when not configured.
type Deps struct {
	Config  *config.Config
	DB      *gorm.DB
	Store   repository.Store
	Redis   *redis.Client
	Handoff worker.Handoff
	Printer *infra.CircuitBreaker
	Clock   service.Clock
}

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Store ← DB/Redis
func New(d Deps) *gin.Engine {
	cfg := d.Config
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	clock := d.Clock
	if clock == nil {
		clock = service.SystemClock
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Infrastructure ───────────────────────────────────────────────────────
	cache := infra.NewCatalogCache(d.Redis, time.Duration(cfg.CatalogCacheTTLSeconds)*time.Second)

	// ── Services ─────────────────────────────────────────────────────────────
	politica := service.PoliticaVenta{
		AllowNegativeStock: cfg.AllowNegativeStock,
		PriceTolerancePct:  cfg.Tolerance(),
	}
	authSvc := service.NewAuthService(d.Store.Usuarios(), cfg)
	productoSvc := service.NewProductoService(d.Store, cache)
	inventarioSvc := service.NewInventarioService(d.Store, cache, clock)
	ventaSvc := service.NewVentaService(d.Store, cache, d.Handoff, clock, politica)
	cajaSvc := service.NewCajaService(d.Store, clock)
	devolucionSvc := service.NewDevolucionService(d.Store, cache, clock)
	clienteSvc := service.NewClienteService(d.Store, clock)
	proveedorSvc := service.NewProveedorService(d.Store.Proveedores())

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	usuariosH := handler.NewUsuariosHandler(authSvc)
	productosH := handler.NewProductosHandler(productoSvc)
	consultaH := handler.NewConsultaPreciosHandler(productoSvc)
	inventarioH := handler.NewInventarioHandler(inventarioSvc)
	ventasH := handler.NewVentasHandler(ventaSvc)
	devolucionesH := handler.NewDevolucionesHandler(devolucionSvc)
	cajaH := handler.NewCajaHandler(cajaSvc)
	clientesH := handler.NewClientesHandler(clienteSvc)
	proveedoresH := handler.NewProveedoresHandler(proveedorSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(d.DB, d.Redis, d.Printer))

	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Price check, no auth required
	r.GET("/v1/precio/:barcode", consultaH.GetPrecioPorBarcode)

	todos := middleware.RequireRole(model.RolCajero, model.RolSupervisor, model.RolAdministrador)
	encargados := middleware.RequireRole(model.RolSupervisor, model.RolAdministrador)
	admin := middleware.RequireRole(model.RolAdministrador)

	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	{
		v1.POST("/ventas", todos, ventasH.RegistrarVenta)
		v1.GET("/ventas", todos, ventasH.ListarVentas)
		v1.GET("/ventas/:id", todos, ventasH.ObtenerVenta)
		v1.GET("/ventas/:id/devoluciones", todos, devolucionesH.ListarPorVenta)
		v1.PATCH("/ventas/:id/factura", encargados, ventasH.AnotarFactura)

		v1.POST("/devoluciones", todos, devolucionesH.Procesar)

		v1.GET("/productos", todos, productosH.Listar)
		v1.GET("/productos/buscar", todos, productosH.Buscar)
		v1.GET("/productos/barcode/:barcode", todos, productosH.ObtenerPorBarcode)
		v1.GET("/productos/:id", todos, productosH.ObtenerPorID)
		prods := v1.Group("/productos", admin)
		{
			prods.POST("", productosH.Crear)
			prods.PUT("/:id", productosH.Actualizar)
			prods.DELETE("/:id", productosH.Desactivar)
			prods.PUT("/:id/componentes", productosH.DefinirComponentes)
		}

		inv := v1.Group("/inventario", encargados)
		{
			inv.POST("/ajustes", inventarioH.AjustarStock)
			inv.GET("/movimientos", inventarioH.ListarMovimientos)
			inv.GET("/alertas", inventarioH.ObtenerAlertas)
		}

		caja := v1.Group("/caja")
		{
			caja.POST("/abrir", todos, cajaH.Abrir)
			caja.GET("/actual", todos, cajaH.Actual)
			caja.GET("/:id/resumen", todos, cajaH.Resumen)
			caja.POST("/movimiento", todos, cajaH.RegistrarMovimiento)
			caja.POST("/cerrar", todos, cajaH.Cerrar)
			caja.GET("/:id/reporte", encargados, cajaH.Reporte)
			caja.GET("/historial", encargados, cajaH.Historial)
		}

		clientes := v1.Group("/clientes", todos)
		{
			clientes.POST("", clientesH.Crear)
			clientes.GET("", clientesH.Listar)
			clientes.GET("/:id", clientesH.Obtener)
			clientes.POST("/:id/pagos", clientesH.RegistrarPago)
		}

		prov := v1.Group("/proveedores", admin)
		{
			prov.POST("", proveedoresH.Crear)
			prov.GET("", proveedoresH.Listar)
			prov.GET("/:id", proveedoresH.ObtenerPorID)
		}

		usuarios := v1.Group("/usuarios", admin)
		{
			usuarios.POST("", usuariosH.Crear)
			usuarios.GET("", usuariosH.Listar)
		}

		// Failed tickets exist only with the Redis queue.
		if q, isQueue := d.Handoff.(handler.TicketQueue); isQueue {
			ticketsH := handler.NewTicketsHandler(q)
			tickets := v1.Group("/tickets/fallidos", encargados)
			{
				tickets.GET("", ticketsH.ListarFallidos)
				tickets.POST("/reimprimir", ticketsH.Reimprimir)
			}
		}
	}

	// Swagger UI, only enabled outside production
	if !cfg.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
