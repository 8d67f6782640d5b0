package infra

import (
	"fmt"
	"strings"

	"kioscopos/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Models lists every table owned by the ledger, in dependency order.
var Models = []interface{}{
	&model.Usuario{},
	&model.Proveedor{},
	&model.Producto{},
	&model.PromoComponente{},
	&model.Cliente{},
	&model.SesionCaja{},
	&model.MovimientoCaja{},
	&model.Venta{},
	&model.VentaItem{},
	&model.PagoDeuda{},
	&model.Devolucion{},
	&model.DevolucionItem{},
	&model.MovimientoStock{},
}

// IsPostgresDSN reports whether dsn targets PostgreSQL rather than an SQLite file.
func IsPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// NewDatabase opens the ledger database, runs AutoMigrate to create / update
// all tables, then applies the idempotent SQL patches that GORM cannot express
// (partial indexes).
//
// PostgreSQL URLs use the pgx-backed driver; anything else is handed to the
// embedded SQLite driver. SQLite gets a single connection: the database
// allows one writer, and a single connection turns writer contention into
// queueing instead of SQLITE_BUSY errors.
func NewDatabase(dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if IsPostgresDSN(dsn) {
		dialector = postgres.Open(dsn)
	} else {
		dialector = sqlite.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if IsPostgresDSN(dsn) {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
	} else {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	}

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations creates or updates the schema. It is idempotent.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	if err := applySchemaPatches(db); err != nil {
		return fmt.Errorf("schema patches: %w", err)
	}
	return nil
}

// applySchemaPatches runs idempotent DDL statements that GORM AutoMigrate cannot
// express. Both SQLite and PostgreSQL accept this syntax.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		// At most one session with closed_at IS NULL. Every open row has
		// estado = 'abierta', so uniqueness on estado over open rows is enough.
		{"single open cash session", `CREATE UNIQUE INDEX IF NOT EXISTS ux_sesiones_caja_abierta
			ON sesiones_caja (estado) WHERE closed_at IS NULL`},
		{"movimientos_caja by fecha+tipo", `CREATE INDEX IF NOT EXISTS idx_movimientos_caja_fecha_tipo
			ON movimientos_caja (fecha, tipo)`},
		{"ventas by fecha+metodo", `CREATE INDEX IF NOT EXISTS idx_ventas_fecha_metodo
			ON ventas (fecha, metodo_pago)`},
	}
	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
