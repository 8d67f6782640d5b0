package service

import (
	"context"
	"errors"

	"kioscopos/internal/dto"
	"kioscopos/internal/model"
	"kioscopos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type ClienteService interface {
	Crear(ctx context.Context, req dto.CrearClienteRequest) (*dto.ClienteResponse, error)
	Obtener(ctx context.Context, id uuid.UUID) (*dto.ClienteResponse, error)
	Listar(ctx context.Context, filter dto.ClienteFilter) (*dto.ClienteListResponse, error)
	RegistrarPago(ctx context.Context, usuarioID, clienteID uuid.UUID, req dto.PagoDeudaRequest) (*dto.PagoDeudaResponse, error)
}

type clienteService struct {
	store repository.Store
	clock Clock
}

func NewClienteService(store repository.Store, clock Clock) ClienteService {
	return &clienteService{store: store, clock: clock}
}

func (s *clienteService) Crear(ctx context.Context, req dto.CrearClienteRequest) (*dto.ClienteResponse, error) {
	c := &model.Cliente{
		Nombre:   req.Nombre,
		DNI:      emptyToNil(req.DNI),
		Telefono: emptyToNil(req.Telefono),
	}
	if err := s.store.Clientes().Create(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateDNI
		}
		return nil, fail("crear cliente", err, map[string]interface{}{"nombre": req.Nombre})
	}
	resp := toClienteResponse(c)
	return &resp, nil
}

func (s *clienteService) Obtener(ctx context.Context, id uuid.UUID) (*dto.ClienteResponse, error) {
	c, err := s.store.Clientes().FindByID(ctx, id)
	if err != nil {
		return nil, fail("obtener cliente", notFound(err, ErrClientNotFound), map[string]interface{}{"cliente_id": id.String()})
	}
	resp := toClienteResponse(c)
	return &resp, nil
}

func (s *clienteService) Listar(ctx context.Context, filter dto.ClienteFilter) (*dto.ClienteListResponse, error) {
	clientes, total, err := s.store.Clientes().List(ctx, filter)
	if err != nil {
		return nil, fail("listar clientes", err, map[string]interface{}{"q": filter.Q})
	}
	data := make([]dto.ClienteResponse, len(clientes))
	for i := range clientes {
		data[i] = toClienteResponse(&clientes[i])
	}
	return &dto.ClienteListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// ── RegistrarPago ─────────────────────────────────────────────────────────────
// Debt may go below zero (credit in favour of the customer). A cash payment
// taken while a session is open also enters the drawer as an ingreso.

func (s *clienteService) RegistrarPago(ctx context.Context, usuarioID, clienteID uuid.UUID, req dto.PagoDeudaRequest) (*dto.PagoDeudaResponse, error) {
	if !req.Monto.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if req.MetodoPago == model.MetodoCuentaCorriente || !metodoValido(req.MetodoPago) {
		return nil, ErrInvalidPaymentMethod.Withf("Metodo de pago invalido: %q", req.MetodoPago)
	}

	pago := model.PagoDeuda{
		ClienteID:  clienteID,
		Monto:      req.Monto.Round(2),
		MetodoPago: req.MetodoPago,
		UsuarioID:  usuarioID,
	}
	var cliente *model.Cliente
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		sesion, err := tx.Caja().FindSesionAbierta(ctx, false)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			sesion = nil
		case err != nil:
			return err
		}
		if pago.Fecha, err = s.clock.fechaCaja(ctx, tx, sesion); err != nil {
			return err
		}

		if err := tx.Clientes().AddDeuda(ctx, clienteID, pago.Monto.Neg()); err != nil {
			return notFound(err, ErrClientNotFound)
		}
		if err := tx.Clientes().CreatePago(ctx, &pago); err != nil {
			return err
		}

		if req.MetodoPago == model.MetodoEfectivo && sesion != nil {
			mov := model.MovimientoCaja{
				Fecha:        pago.Fecha,
				Tipo:         model.MovimientoIngreso,
				Monto:        pago.Monto,
				Descripcion:  "Pago de cuenta corriente",
				UsuarioID:    usuarioID,
				SesionCajaID: &sesion.ID,
				ReferenciaID: &pago.ID,
			}
			if err := tx.Caja().CreateMovimiento(ctx, &mov); err != nil {
				return err
			}
		}

		cliente, err = tx.Clientes().FindByID(ctx, clienteID)
		return err
	})
	if err != nil {
		return nil, fail("registrar pago deuda", err, map[string]interface{}{
			"cliente_id": clienteID.String(), "monto": req.Monto.String(), "metodo_pago": req.MetodoPago,
		})
	}

	log.Info().Str("cliente_id", clienteID.String()).
		Str("monto", pago.Monto.StringFixed(2)).
		Str("deuda_actual", cliente.DeudaActual.StringFixed(2)).
		Msg("pago de deuda registrado")
	return &dto.PagoDeudaResponse{
		ID:          pago.ID.String(),
		ClienteID:   clienteID.String(),
		Monto:       pago.Monto,
		MetodoPago:  pago.MetodoPago,
		Fecha:       pago.Fecha,
		DeudaActual: cliente.DeudaActual,
	}, nil
}

func toClienteResponse(c *model.Cliente) dto.ClienteResponse {
	return dto.ClienteResponse{
		ID:          c.ID.String(),
		Nombre:      c.Nombre,
		DNI:         c.DNI,
		Telefono:    c.Telefono,
		DeudaActual: c.DeudaActual,
	}
}
