package service_test

import (
	"context"
	"testing"

	"kioscopos/internal/dto"
	"kioscopos/internal/model"
	"kioscopos/internal/repository"
	"kioscopos/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCuentaCorriente_VentaYPagoSeCompensan(t *testing.T) {
	eachBackend(t, func(t *testing.T, store repository.Store) {
		f := newFixture(store, politicaPorDefecto)
		ctx := context.Background()
		c := f.cliente(t, "Doña Rosa")
		p := f.producto(t, "Pan 1kg", "500", 20)
		clienteID := c.ID.String()
		sesion := f.abrir(t, "0")

		_, err := f.ventas.RegistrarVenta(ctx, f.usuario, dto.RegistrarVentaRequest{
			MetodoPago: model.MetodoCuentaCorriente,
			ClienteID:  &clienteID,
			Items:      []dto.ItemVentaRequest{{ProductoID: p.ID.String(), Cantidad: 1, PrecioUnitario: dec("500")}},
		})
		require.NoError(t, err)

		con, err := f.clientes.Obtener(ctx, c.ID)
		require.NoError(t, err)
		assert.True(t, dec("500").Equal(con.DeudaActual), "deuda %s", con.DeudaActual)

		pago, err := f.clientes.RegistrarPago(ctx, f.usuario, c.ID, dto.PagoDeudaRequest{Monto: dec("500"), MetodoPago: model.MetodoEfectivo})
		require.NoError(t, err)
		assert.True(t, pago.DeudaActual.IsZero())

		// The cash payment entered the open drawer; the credit sale did not.
		resumen, err := f.caja.Resumen(ctx, uuid.MustParse(sesion.ID))
		require.NoError(t, err)
		assert.True(t, resumen.TotalVentasEfectivo.IsZero())
		assert.True(t, dec("500").Equal(resumen.TotalIngresos))
	})
}

func TestRegistrarPago_Validaciones(t *testing.T) {
	f := newFixture(newMemory(), politicaPorDefecto)
	ctx := context.Background()
	c := f.cliente(t, "Juan")

	_, err := f.clientes.RegistrarPago(ctx, f.usuario, c.ID, dto.PagoDeudaRequest{Monto: dec("0"), MetodoPago: model.MetodoEfectivo})
	assert.ErrorIs(t, err, service.ErrInvalidAmount)

	_, err = f.clientes.RegistrarPago(ctx, f.usuario, c.ID, dto.PagoDeudaRequest{Monto: dec("10"), MetodoPago: model.MetodoCuentaCorriente})
	assert.ErrorIs(t, err, service.ErrInvalidPaymentMethod)

	_, err = f.clientes.RegistrarPago(ctx, f.usuario, uuid.New(), dto.PagoDeudaRequest{Monto: dec("10"), MetodoPago: model.MetodoTarjeta})
	assert.ErrorIs(t, err, service.ErrClientNotFound)

	// A card payment without debt leaves a credit balance.
	pago, err := f.clientes.RegistrarPago(ctx, f.usuario, c.ID, dto.PagoDeudaRequest{Monto: dec("10"), MetodoPago: model.MetodoTarjeta})
	require.NoError(t, err)
	assert.True(t, dec("-10").Equal(pago.DeudaActual))
}

func TestClientes_CrearYListar(t *testing.T) {
	eachBackend(t, func(t *testing.T, store repository.Store) {
		f := newFixture(store, politicaPorDefecto)
		ctx := context.Background()
		dni := "30111222"

		_, err := f.clientes.Crear(ctx, dto.CrearClienteRequest{Nombre: "Marta Gomez", DNI: &dni})
		require.NoError(t, err)
		_, err = f.clientes.Crear(ctx, dto.CrearClienteRequest{Nombre: "Marta G.", DNI: &dni})
		assert.ErrorIs(t, err, service.ErrDuplicateDNI)
		_, err = f.clientes.Crear(ctx, dto.CrearClienteRequest{Nombre: "Pedro Paz"})
		require.NoError(t, err)

		res, err := f.clientes.Listar(ctx, dto.ClienteFilter{Q: "marta", Page: 1, Limit: 20})
		require.NoError(t, err)
		require.EqualValues(t, 1, res.Total)
		assert.Equal(t, "Marta Gomez", res.Data[0].Nombre)

		_, err = f.clientes.Obtener(ctx, uuid.New())
		assert.ErrorIs(t, err, service.ErrClientNotFound)
	})
}
