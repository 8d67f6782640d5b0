package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"kioscopos/internal/dto"
	"kioscopos/internal/model"
	"kioscopos/internal/repository"
	"kioscopos/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaja_CicloCompleto(t *testing.T) {
	eachBackend(t, func(t *testing.T, store repository.Store) {
		f := newFixture(store, politicaPorDefecto)
		ctx := context.Background()
		p := f.producto(t, "Alfajor", "100", 20)

		sesion := f.abrir(t, "5000")
		f.vender(t, model.MetodoEfectivo, p, 2)
		f.vender(t, model.MetodoTarjeta, p, 3) // not part of the drawer balance
		_, err := f.caja.RegistrarMovimiento(ctx, f.usuario, dto.MovimientoCajaRequest{
			Tipo: model.MovimientoEgreso, Monto: dec("50"), Descripcion: "hielo",
		})
		require.NoError(t, err)

		resumen, err := f.caja.Resumen(ctx, uuid.MustParse(sesion.ID))
		require.NoError(t, err)
		assert.True(t, dec("200").Equal(resumen.TotalVentasEfectivo), "ventas %s", resumen.TotalVentasEfectivo)
		assert.True(t, resumen.TotalIngresos.IsZero())
		assert.True(t, dec("50").Equal(resumen.TotalEgresos))
		assert.True(t, dec("5150").Equal(resumen.SaldoFinal))

		cierre, err := f.caja.Cerrar(ctx, f.usuario, dto.CerrarCajaRequest{MontoReal: dec("5150")})
		require.NoError(t, err)
		assert.Equal(t, model.EstadoCajaCerrada, cierre.Sesion.Estado)
		require.NotNil(t, cierre.Sesion.ClosedAt)
		assert.True(t, dec("5150").Equal(*cierre.Sesion.MontoFinal))
		assert.True(t, cierre.Sesion.Diferencia.IsZero())
		assert.True(t, dec("200").Equal(*cierre.Sesion.TotalVentas))
		assert.True(t, dec("-50").Equal(*cierre.Sesion.TotalMovimientos))
		assert.Equal(t, service.DesvioNormal, cierre.Desvio.Clasificacion)

		_, err = f.caja.SesionActual(ctx)
		assert.ErrorIs(t, err, service.ErrNoOpenSession)
	})
}

func TestCaja_UnaSolaSesionAbierta(t *testing.T) {
	eachBackend(t, func(t *testing.T, store repository.Store) {
		f := newFixture(store, politicaPorDefecto)
		ctx := context.Background()

		f.abrir(t, "100")
		_, err := f.caja.Abrir(ctx, f.usuario, dto.AbrirCajaRequest{MontoInicial: dec("200")})
		assert.ErrorIs(t, err, service.ErrSessionAlreadyOpen)

		_, err = f.caja.Cerrar(ctx, f.usuario, dto.CerrarCajaRequest{MontoReal: dec("100")})
		require.NoError(t, err)
		segunda := f.abrir(t, "300")
		assert.True(t, dec("300").Equal(segunda.MontoInicial))

		actual, err := f.caja.SesionActual(ctx)
		require.NoError(t, err)
		assert.Equal(t, segunda.ID, actual.ID)
	})
}

func TestCaja_AbrirConcurrente(t *testing.T) {
	eachBackend(t, func(t *testing.T, store repository.Store) {
		f := newFixture(store, politicaPorDefecto)
		const n = 8

		var wg sync.WaitGroup
		errs := make([]error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = f.caja.Abrir(context.Background(), uuid.New(), dto.AbrirCajaRequest{MontoInicial: dec("100")})
			}(i)
		}
		wg.Wait()

		ok := 0
		for _, err := range errs {
			if err == nil {
				ok++
				continue
			}
			assert.ErrorIs(t, err, service.ErrSessionAlreadyOpen)
		}
		assert.Equal(t, 1, ok)

		hist, err := f.caja.Historial(context.Background(), dto.HistorialCajaFilter{Page: 1, Limit: 20})
		require.NoError(t, err)
		assert.EqualValues(t, 1, hist.Total)
	})
}

func TestCaja_EgresoSinSaldo(t *testing.T) {
	eachBackend(t, func(t *testing.T, store repository.Store) {
		f := newFixture(store, politicaPorDefecto)
		ctx := context.Background()
		sesion := f.abrir(t, "1000")

		_, err := f.caja.RegistrarMovimiento(ctx, f.usuario, dto.MovimientoCajaRequest{
			Tipo: model.MovimientoEgreso, Monto: dec("1500"), Descripcion: "proveedor",
		})
		require.ErrorIs(t, err, service.ErrInsufficientBalance)
		assert.Contains(t, err.Error(), "Disponible: $1000.00")

		resumen, err := f.caja.Resumen(ctx, uuid.MustParse(sesion.ID))
		require.NoError(t, err)
		assert.True(t, dec("1000").Equal(resumen.SaldoFinal))

		// The whole balance can be withdrawn.
		_, err = f.caja.RegistrarMovimiento(ctx, f.usuario, dto.MovimientoCajaRequest{
			Tipo: model.MovimientoEgreso, Monto: dec("1000"), Descripcion: "deposito",
		})
		assert.NoError(t, err)
	})
}

func TestCaja_EgresosConcurrentesNoSobregiran(t *testing.T) {
	eachBackend(t, func(t *testing.T, store repository.Store) {
		f := newFixture(store, politicaPorDefecto)
		f.abrir(t, "100")
		const n = 5

		var wg sync.WaitGroup
		errs := make([]error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = f.caja.RegistrarMovimiento(context.Background(), f.usuario, dto.MovimientoCajaRequest{
					Tipo: model.MovimientoEgreso, Monto: dec("40"), Descripcion: "retiro",
				})
			}(i)
		}
		wg.Wait()

		ok := 0
		for _, err := range errs {
			if err == nil {
				ok++
			}
		}
		assert.Equal(t, 2, ok)
	})
}

func TestCaja_MovimientosInvalidos(t *testing.T) {
	f := newFixture(newMemory(), politicaPorDefecto)
	ctx := context.Background()

	_, err := f.caja.RegistrarMovimiento(ctx, f.usuario, dto.MovimientoCajaRequest{Tipo: model.MovimientoEgreso, Monto: dec("10"), Descripcion: "x"})
	assert.ErrorIs(t, err, service.ErrNoOpenSession)

	_, err = f.caja.RegistrarMovimiento(ctx, f.usuario, dto.MovimientoCajaRequest{Tipo: model.MovimientoIngreso, Monto: decimal.Zero, Descripcion: "x"})
	assert.ErrorIs(t, err, service.ErrInvalidAmount)

	_, err = f.caja.RegistrarMovimiento(ctx, f.usuario, dto.MovimientoCajaRequest{Tipo: "transferencia", Monto: dec("10"), Descripcion: "x"})
	assert.ErrorIs(t, err, service.ErrInvalidMovementType)

	// Entries do not need an open session.
	mov, err := f.caja.RegistrarMovimiento(ctx, f.usuario, dto.MovimientoCajaRequest{Tipo: model.MovimientoIngreso, Monto: dec("10"), Descripcion: "cambio"})
	require.NoError(t, err)
	assert.Nil(t, mov.SesionCajaID)
}

func TestCaja_CerrarRechazaEcoInconsistente(t *testing.T) {
	eachBackend(t, func(t *testing.T, store repository.Store) {
		f := newFixture(store, politicaPorDefecto)
		ctx := context.Background()
		p := f.producto(t, "Alfajor", "100", 20)
		f.abrir(t, "500")
		f.vender(t, model.MetodoEfectivo, p, 1)

		mal := dec("700")
		_, err := f.caja.Cerrar(ctx, f.usuario, dto.CerrarCajaRequest{MontoReal: dec("600"), MontoFinal: &mal})
		require.ErrorIs(t, err, service.ErrSummaryMismatch)
		assert.Contains(t, err.Error(), "calculado $600.00")

		// Still open.
		_, err = f.caja.SesionActual(ctx)
		require.NoError(t, err)

		bien, ventas, movs := dec("600"), dec("100"), decimal.Zero
		cierre, err := f.caja.Cerrar(ctx, f.usuario, dto.CerrarCajaRequest{
			MontoReal: dec("600"), MontoFinal: &bien, TotalVentas: &ventas, TotalMovimientos: &movs,
		})
		require.NoError(t, err)
		assert.True(t, cierre.Desvio.Monto.IsZero())
	})
}

func TestCaja_ClasificacionDesvio(t *testing.T) {
	cases := []struct {
		real string
		want string
	}{
		{"1000", service.DesvioNormal},
		{"990", service.DesvioNormal},
		{"960", service.DesvioAdvertencia},
		{"1050", service.DesvioAdvertencia},
		{"900", service.DesvioCritico},
	}
	for _, tc := range cases {
		t.Run(tc.real, func(t *testing.T) {
			f := newFixture(newMemory(), politicaPorDefecto)
			f.abrir(t, "1000")
			cierre, err := f.caja.Cerrar(context.Background(), f.usuario, dto.CerrarCajaRequest{MontoReal: dec(tc.real)})
			require.NoError(t, err)
			assert.Equal(t, tc.want, cierre.Desvio.Clasificacion)
			assert.True(t, dec(tc.real).Sub(dec("1000")).Equal(cierre.Desvio.Monto))
		})
	}
}

func TestCaja_CerrarDosVeces(t *testing.T) {
	f := newFixture(newMemory(), politicaPorDefecto)
	ctx := context.Background()
	sesion := f.abrir(t, "100")

	_, err := f.caja.Cerrar(ctx, f.usuario, dto.CerrarCajaRequest{SesionCajaID: sesion.ID, MontoReal: dec("100")})
	require.NoError(t, err)
	_, err = f.caja.Cerrar(ctx, f.usuario, dto.CerrarCajaRequest{SesionCajaID: sesion.ID, MontoReal: dec("100")})
	assert.ErrorIs(t, err, service.ErrSessionClosed)
	_, err = f.caja.Cerrar(ctx, f.usuario, dto.CerrarCajaRequest{MontoReal: dec("100")})
	assert.ErrorIs(t, err, service.ErrNoOpenSession)
	_, err = f.caja.Cerrar(ctx, f.usuario, dto.CerrarCajaRequest{SesionCajaID: uuid.NewString(), MontoReal: dec("100")})
	assert.ErrorIs(t, err, service.ErrSessionNotFound)
}

func TestCaja_SesionesConsecutivasNoSeSolapan(t *testing.T) {
	eachBackend(t, func(t *testing.T, store repository.Store) {
		f := newFixture(store, politicaPorDefecto)
		ctx := context.Background()
		p := f.producto(t, "Alfajor", "100", 50)

		primera := f.abrir(t, "0")
		f.vender(t, model.MetodoEfectivo, p, 1)
		_, err := f.caja.Cerrar(ctx, f.usuario, dto.CerrarCajaRequest{MontoReal: dec("100")})
		require.NoError(t, err)

		// Reopen in the same second the first one closed.
		f.clock.Advance(-time.Second)
		segunda := f.abrir(t, "0")
		f.vender(t, model.MetodoEfectivo, p, 2)

		r1, err := f.caja.Reporte(ctx, uuid.MustParse(primera.ID))
		require.NoError(t, err)
		r2, err := f.caja.Resumen(ctx, uuid.MustParse(segunda.ID))
		require.NoError(t, err)

		assert.GreaterOrEqual(t, segunda.OpenedAt, *r1.Sesion.ClosedAt)
		assert.True(t, dec("100").Equal(r1.Resumen.TotalVentasEfectivo))
		assert.True(t, dec("200").Equal(r2.TotalVentasEfectivo))
		assert.False(t, r1.Descuadre)
	})
}

func TestCaja_ReporteRecomputaElCierre(t *testing.T) {
	eachBackend(t, func(t *testing.T, store repository.Store) {
		f := newFixture(store, politicaPorDefecto)
		ctx := context.Background()
		p := f.producto(t, "Alfajor", "150", 50)

		sesion := f.abrir(t, "2000")
		f.vender(t, model.MetodoEfectivo, p, 4)
		f.vender(t, model.MetodoMercadoPago, p, 1)
		_, err := f.caja.RegistrarMovimiento(ctx, f.usuario, dto.MovimientoCajaRequest{Tipo: model.MovimientoIngreso, Monto: dec("500"), Descripcion: "cambio"})
		require.NoError(t, err)
		_, err = f.caja.RegistrarMovimiento(ctx, f.usuario, dto.MovimientoCajaRequest{Tipo: model.MovimientoEgreso, Monto: dec("120.50"), Descripcion: "delivery"})
		require.NoError(t, err)
		cierre, err := f.caja.Cerrar(ctx, f.usuario, dto.CerrarCajaRequest{MontoReal: dec("2979")})
		require.NoError(t, err)

		// Activity after the close does not leak into the closed window.
		f.clock.Advance(time.Minute)
		f.vender(t, model.MetodoEfectivo, p, 1)

		rep, err := f.caja.Reporte(ctx, uuid.MustParse(sesion.ID))
		require.NoError(t, err)
		assert.False(t, rep.Descuadre)
		require.NotNil(t, rep.MontoFinalAlmacenado)
		assert.True(t, rep.MontoFinalAlmacenado.Equal(rep.Resumen.SaldoFinal))
		assert.True(t, dec("2979.50").Equal(rep.Resumen.SaldoFinal), "saldo %s", rep.Resumen.SaldoFinal)
		assert.True(t, dec("150").Equal(rep.VentasPorMetodo[model.MetodoMercadoPago]))
		assert.Len(t, rep.Movimientos, 2)
		assert.True(t, dec("-0.50").Equal(cierre.Desvio.Monto))
	})
}

func TestCaja_ReaperturaEnElMismoSegundo(t *testing.T) {
	eachBackend(t, func(t *testing.T, store repository.Store) {
		f := newFixture(store, politicaPorDefecto)
		f.clock.Freeze(time.Date(2026, 3, 2, 9, 0, 0, 500_000_000, time.Local))
		ctx := context.Background()
		p := f.producto(t, "Gaseosa", "50", 10)

		primera := f.abrir(t, "100")
		_, err := f.caja.Cerrar(ctx, f.usuario, dto.CerrarCajaRequest{MontoReal: dec("100")})
		require.NoError(t, err)
		segunda := f.abrir(t, "100")

		v := f.vender(t, model.MetodoEfectivo, p, 1)
		assert.GreaterOrEqual(t, v.Fecha, segunda.OpenedAt)

		egreso := dto.MovimientoCajaRequest{Tipo: model.MovimientoEgreso, Monto: dec("100"), Descripcion: "retiro"}
		_, err = f.caja.RegistrarMovimiento(ctx, f.usuario, egreso)
		require.NoError(t, err)
		_, err = f.caja.RegistrarMovimiento(ctx, f.usuario, egreso)
		assert.ErrorIs(t, err, service.ErrInsufficientBalance)

		resumen, err := f.caja.Resumen(ctx, uuid.MustParse(segunda.ID))
		require.NoError(t, err)
		assert.True(t, dec("50").Equal(resumen.TotalVentasEfectivo), "ventas %s", resumen.TotalVentasEfectivo)
		assert.True(t, dec("50").Equal(resumen.SaldoFinal), "saldo %s", resumen.SaldoFinal)

		rep, err := f.caja.Reporte(ctx, uuid.MustParse(primera.ID))
		require.NoError(t, err)
		assert.False(t, rep.Descuadre)
		assert.True(t, dec("100").Equal(rep.Resumen.SaldoFinal))
	})
}

func TestCaja_VentaTrasElCierreNoReabreLaVentana(t *testing.T) {
	eachBackend(t, func(t *testing.T, store repository.Store) {
		f := newFixture(store, politicaPorDefecto)
		f.clock.Freeze(time.Date(2026, 3, 2, 9, 0, 0, 500_000_000, time.Local))
		ctx := context.Background()
		p := f.producto(t, "Gaseosa", "50", 10)

		sesion := f.abrir(t, "100")
		cierre, err := f.caja.Cerrar(ctx, f.usuario, dto.CerrarCajaRequest{MontoReal: dec("100")})
		require.NoError(t, err)

		v := f.vender(t, model.MetodoEfectivo, p, 1)
		assert.GreaterOrEqual(t, v.Fecha, *cierre.Sesion.ClosedAt)
		_, err = f.caja.RegistrarMovimiento(ctx, f.usuario, dto.MovimientoCajaRequest{
			Tipo: model.MovimientoIngreso, Monto: dec("30"), Descripcion: "cambio",
		})
		require.NoError(t, err)

		rep, err := f.caja.Reporte(ctx, uuid.MustParse(sesion.ID))
		require.NoError(t, err)
		assert.False(t, rep.Descuadre)
		assert.True(t, rep.Resumen.TotalVentasEfectivo.IsZero())
		assert.True(t, rep.Resumen.TotalIngresos.IsZero())
	})
}

func TestCaja_AperturaNoAbsorbeVentasPrevias(t *testing.T) {
	eachBackend(t, func(t *testing.T, store repository.Store) {
		f := newFixture(store, politicaPorDefecto)
		f.clock.Freeze(time.Date(2026, 3, 2, 9, 0, 0, 500_000_000, time.Local))
		ctx := context.Background()
		p := f.producto(t, "Gaseosa", "50", 10)

		previa := f.vender(t, model.MetodoEfectivo, p, 1)
		sesion := f.abrir(t, "100")
		assert.Greater(t, sesion.OpenedAt, previa.Fecha)
		f.vender(t, model.MetodoEfectivo, p, 2)

		resumen, err := f.caja.Resumen(ctx, uuid.MustParse(sesion.ID))
		require.NoError(t, err)
		assert.True(t, dec("100").Equal(resumen.TotalVentasEfectivo), "ventas %s", resumen.TotalVentasEfectivo)
		assert.True(t, dec("200").Equal(resumen.SaldoFinal))
	})
}
