package service

import (
	"context"
	"errors"
	"time"

	"kioscopos/internal/dto"
	"kioscopos/internal/model"
	"kioscopos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Clasificación del desvío de cierre.
const (
	DesvioNormal      = "normal"
	DesvioAdvertencia = "advertencia"
	DesvioCritico     = "critico"
)

type CajaService interface {
	Abrir(ctx context.Context, usuarioID uuid.UUID, req dto.AbrirCajaRequest) (*dto.SesionCajaResponse, error)
	SesionActual(ctx context.Context) (*dto.SesionCajaResponse, error)
	Resumen(ctx context.Context, sesionID uuid.UUID) (*dto.ResumenCajaResponse, error)
	RegistrarMovimiento(ctx context.Context, usuarioID uuid.UUID, req dto.MovimientoCajaRequest) (*dto.MovimientoCajaResponse, error)
	Cerrar(ctx context.Context, usuarioID uuid.UUID, req dto.CerrarCajaRequest) (*dto.CierreCajaResponse, error)
	Reporte(ctx context.Context, sesionID uuid.UUID) (*dto.ReporteCajaResponse, error)
	Historial(ctx context.Context, filter dto.HistorialCajaFilter) (*dto.HistorialCajaResponse, error)
}

type cajaService struct {
	store repository.Store
	clock Clock
}

func NewCajaService(store repository.Store, clock Clock) CajaService {
	return &cajaService{store: store, clock: clock}
}

// ── Abrir ─────────────────────────────────────────────────────────────────────
// The partial unique index on open sessions is the guard; the pre-check only
// produces a friendlier path for the common case.

func (s *cajaService) Abrir(ctx context.Context, usuarioID uuid.UUID, req dto.AbrirCajaRequest) (*dto.SesionCajaResponse, error) {
	if req.MontoInicial.IsNegative() {
		return nil, ErrInvalidAmount.Withf("El monto inicial no puede ser negativo")
	}

	var sesion model.SesionCaja
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if _, err := tx.Caja().FindSesionAbierta(ctx, false); err == nil {
			return ErrSessionAlreadyOpen
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		// Sessions partition the timeline: a session never starts before
		// the previous one ended, nor at or before an event already recorded.
		openedAt := s.clock.fecha()
		ultimo, err := tx.Caja().UltimoCierre(ctx)
		if err != nil {
			return err
		}
		if ultimo > openedAt {
			openedAt = ultimo
		}
		marca, err := tx.Caja().UltimaMarca(ctx)
		if err != nil {
			return err
		}
		if marca != "" && marca >= openedAt {
			openedAt = model.FormatFecha(fechaOCero(marca).Add(time.Second))
		}

		sesion = model.SesionCaja{
			UsuarioID:    usuarioID,
			MontoInicial: req.MontoInicial.Round(2),
			Estado:       model.EstadoCajaAbierta,
			OpenedAt:     openedAt,
		}
		return tx.Caja().CreateSesion(ctx, &sesion)
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, ErrSessionAlreadyOpen
	}
	if err != nil {
		return nil, fail("abrir caja", err, map[string]interface{}{
			"usuario_id": usuarioID.String(), "monto_inicial": req.MontoInicial.String(),
		})
	}

	log.Info().Str("sesion_caja_id", sesion.ID.String()).Str("opened_at", sesion.OpenedAt).Msg("caja abierta")
	resp := toSesionCajaResponse(&sesion)
	return &resp, nil
}

func (s *cajaService) SesionActual(ctx context.Context) (*dto.SesionCajaResponse, error) {
	sesion, err := s.store.Caja().FindSesionAbierta(ctx, false)
	if err != nil {
		return nil, fail("sesion actual", notFound(err, ErrNoOpenSession), nil)
	}
	resp := toSesionCajaResponse(sesion)
	return &resp, nil
}

// ── Resumen ───────────────────────────────────────────────────────────────────
// SaldoFinal = inicial + ventas en efectivo + ingresos − egresos, all inside
// the session window.

func (s *cajaService) Resumen(ctx context.Context, sesionID uuid.UUID) (*dto.ResumenCajaResponse, error) {
	var resumen *dto.ResumenCajaResponse
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		sesion, err := tx.Caja().FindSesionByID(ctx, sesionID)
		if err != nil {
			return notFound(err, ErrSessionNotFound)
		}
		resumen, _, err = resumir(ctx, tx, sesion)
		return err
	})
	if err != nil {
		return nil, fail("resumen caja", err, map[string]interface{}{"sesion_caja_id": sesionID.String()})
	}
	return resumen, nil
}

func ventanaDe(sesion *model.SesionCaja) repository.Ventana {
	w := repository.Ventana{Desde: sesion.OpenedAt}
	if sesion.ClosedAt != nil {
		w.Hasta = *sesion.ClosedAt
	}
	return w
}

// resumir computes the summary for sesion and also returns the per-method
// sale totals it read.
func resumir(ctx context.Context, tx repository.Store, sesion *model.SesionCaja) (*dto.ResumenCajaResponse, map[string]decimal.Decimal, error) {
	return resumirEn(ctx, tx, sesion, ventanaDe(sesion))
}

func resumirEn(ctx context.Context, tx repository.Store, sesion *model.SesionCaja, w repository.Ventana) (*dto.ResumenCajaResponse, map[string]decimal.Decimal, error) {
	porMetodo, err := tx.Ventas().TotalesPorMetodo(ctx, w)
	if err != nil {
		return nil, nil, err
	}
	ingresos, egresos, err := tx.Caja().SumMovimientos(ctx, w)
	if err != nil {
		return nil, nil, err
	}
	ventasEfectivo := porMetodo[model.MetodoEfectivo]
	return &dto.ResumenCajaResponse{
		SesionCajaID:        sesion.ID.String(),
		MontoInicial:        sesion.MontoInicial,
		TotalVentasEfectivo: ventasEfectivo,
		TotalIngresos:       ingresos,
		TotalEgresos:        egresos,
		SaldoFinal:          sesion.MontoInicial.Add(ventasEfectivo).Add(ingresos).Sub(egresos),
	}, porMetodo, nil
}

// ── RegistrarMovimiento ───────────────────────────────────────────────────────
// Movements are append-only. A withdrawal locks the open session and
// re-derives the balance in the same transaction so two concurrent
// withdrawals cannot both pass the check.

func (s *cajaService) RegistrarMovimiento(ctx context.Context, usuarioID uuid.UUID, req dto.MovimientoCajaRequest) (*dto.MovimientoCajaResponse, error) {
	if req.Tipo != model.MovimientoIngreso && req.Tipo != model.MovimientoEgreso {
		return nil, ErrInvalidMovementType.Withf("Tipo de movimiento invalido: %q", req.Tipo)
	}
	if !req.Monto.IsPositive() {
		return nil, ErrInvalidAmount
	}

	mov := model.MovimientoCaja{
		Tipo:        req.Tipo,
		Monto:       req.Monto.Round(2),
		Descripcion: req.Descripcion,
		UsuarioID:   usuarioID,
	}
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		sesion, err := tx.Caja().FindSesionAbierta(ctx, req.Tipo == model.MovimientoEgreso)
		switch {
		case err == nil:
			mov.SesionCajaID = &sesion.ID
		case !errors.Is(err, repository.ErrNotFound):
			return err
		case req.Tipo == model.MovimientoEgreso:
			return ErrNoOpenSession
		default:
			sesion = nil
		}

		if req.Tipo == model.MovimientoEgreso {
			resumen, _, err := resumir(ctx, tx, sesion)
			if err != nil {
				return err
			}
			if mov.Monto.GreaterThan(resumen.SaldoFinal) {
				return ErrInsufficientBalance.Withf("Saldo insuficiente. Disponible: $%s", resumen.SaldoFinal.StringFixed(2))
			}
		}

		if mov.Fecha, err = s.clock.fechaCaja(ctx, tx, sesion); err != nil {
			return err
		}
		return tx.Caja().CreateMovimiento(ctx, &mov)
	})
	if err != nil {
		return nil, fail("registrar movimiento caja", err, map[string]interface{}{
			"tipo": req.Tipo, "monto": req.Monto.String(), "usuario_id": usuarioID.String(),
		})
	}
	resp := toMovimientoCajaResponse(&mov)
	return &resp, nil
}

// ── Cerrar ────────────────────────────────────────────────────────────────────
// Terminal. The theoretical balance is computed here; figures sent by the UI
// are only cross-checked.

func (s *cajaService) Cerrar(ctx context.Context, usuarioID uuid.UUID, req dto.CerrarCajaRequest) (*dto.CierreCajaResponse, error) {
	if req.MontoReal.IsNegative() {
		return nil, ErrInvalidAmount.Withf("El monto contado no puede ser negativo")
	}

	var resp dto.CierreCajaResponse
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		sesion, err := s.sesionACerrar(ctx, tx, req.SesionCajaID)
		if err != nil {
			return err
		}

		closedAt := model.FormatFecha(s.clock().Truncate(time.Second).Add(time.Second))
		if closedAt <= sesion.OpenedAt {
			closedAt = model.FormatFecha(fechaOCero(sesion.OpenedAt).Add(time.Second))
		}
		resumen, _, err := resumirEn(ctx, tx, sesion, repository.Ventana{Desde: sesion.OpenedAt, Hasta: closedAt})
		if err != nil {
			return err
		}

		montoFinal := resumen.SaldoFinal
		totalMovimientos := resumen.TotalIngresos.Sub(resumen.TotalEgresos)
		if err := verificarEco("monto_final", req.MontoFinal, montoFinal); err != nil {
			return err
		}
		if err := verificarEco("total_ventas", req.TotalVentas, resumen.TotalVentasEfectivo); err != nil {
			return err
		}
		if err := verificarEco("total_movimientos", req.TotalMovimientos, totalMovimientos); err != nil {
			return err
		}

		montoReal := req.MontoReal.Round(2)
		diferencia := montoReal.Sub(montoFinal)
		pct := porcentajeDesvio(diferencia, montoFinal)
		clasificacion := clasificarDesvio(pct)

		sesion.ClosedAt = &closedAt
		sesion.MontoFinal = &montoFinal
		sesion.MontoReal = &montoReal
		sesion.Diferencia = &diferencia
		sesion.TotalVentas = &resumen.TotalVentasEfectivo
		sesion.TotalMovimientos = &totalMovimientos
		sesion.ClasificacionDesvio = &clasificacion
		sesion.Observaciones = req.Observaciones
		sesion.CerradaPor = &usuarioID
		if err := tx.Caja().CerrarSesion(ctx, sesion); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrSessionClosed
			}
			return err
		}

		resp = dto.CierreCajaResponse{
			Sesion:  toSesionCajaResponse(sesion),
			Resumen: *resumen,
			Desvio:  dto.DesvioResponse{Monto: diferencia, Porcentaje: pct, Clasificacion: clasificacion},
		}
		return nil
	})
	if err != nil {
		return nil, fail("cerrar caja", err, map[string]interface{}{
			"sesion_caja_id": req.SesionCajaID, "monto_real": req.MontoReal.String(), "usuario_id": usuarioID.String(),
		})
	}

	ev := log.Info()
	if resp.Desvio.Clasificacion == DesvioCritico {
		ev = log.Warn()
	}
	ev.Str("sesion_caja_id", resp.Sesion.ID).
		Str("diferencia", resp.Desvio.Monto.StringFixed(2)).
		Str("clasificacion", resp.Desvio.Clasificacion).
		Msg("caja cerrada")
	return &resp, nil
}

// sesionACerrar resolves the target session: the one named by the request,
// or the open one when the request names none.
func (s *cajaService) sesionACerrar(ctx context.Context, tx repository.Store, id string) (*model.SesionCaja, error) {
	if id == "" {
		sesion, err := tx.Caja().FindSesionAbierta(ctx, true)
		if err != nil {
			return nil, notFound(err, ErrNoOpenSession)
		}
		return sesion, nil
	}
	sesionID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrInvalidID
	}
	sesion, err := tx.Caja().FindSesionByID(ctx, sesionID)
	if err != nil {
		return nil, notFound(err, ErrSessionNotFound)
	}
	if !sesion.Abierta() {
		return nil, ErrSessionClosed
	}
	return sesion, nil
}

func verificarEco(campo string, informado *decimal.Decimal, calculado decimal.Decimal) error {
	if informado == nil || informado.Round(2).Equal(calculado.Round(2)) {
		return nil
	}
	return ErrSummaryMismatch.Withf("%s informado $%s, calculado $%s",
		campo, informado.StringFixed(2), calculado.StringFixed(2))
}

func porcentajeDesvio(diferencia, base decimal.Decimal) decimal.Decimal {
	if base.IsZero() {
		if diferencia.IsZero() {
			return decimal.Zero
		}
		return cien
	}
	return diferencia.Div(base).Mul(cien).Round(2)
}

// clasificarDesvio: normal |pct| <= 1, advertencia <= 5, critico above.
func clasificarDesvio(pct decimal.Decimal) string {
	abs := pct.Abs()
	switch {
	case abs.LessThanOrEqual(decimal.NewFromInt(1)):
		return DesvioNormal
	case abs.LessThanOrEqual(decimal.NewFromInt(5)):
		return DesvioAdvertencia
	default:
		return DesvioCritico
	}
}

// ── Reporte ───────────────────────────────────────────────────────────────────
// Rebuilt only from the persisted row and the window contents, so a stored
// monto_final that no longer matches flags later drift.

func (s *cajaService) Reporte(ctx context.Context, sesionID uuid.UUID) (*dto.ReporteCajaResponse, error) {
	var rep dto.ReporteCajaResponse
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		sesion, err := tx.Caja().FindSesionByID(ctx, sesionID)
		if err != nil {
			return notFound(err, ErrSessionNotFound)
		}
		resumen, porMetodo, err := resumir(ctx, tx, sesion)
		if err != nil {
			return err
		}
		movs, err := tx.Caja().ListMovimientos(ctx, ventanaDe(sesion))
		if err != nil {
			return err
		}

		rep = dto.ReporteCajaResponse{
			Sesion:               toSesionCajaResponse(sesion),
			Resumen:              *resumen,
			VentasPorMetodo:      porMetodo,
			Movimientos:          make([]dto.MovimientoCajaResponse, len(movs)),
			MontoFinalAlmacenado: sesion.MontoFinal,
		}
		for i := range movs {
			rep.Movimientos[i] = toMovimientoCajaResponse(&movs[i])
		}
		if sesion.MontoFinal != nil && !sesion.MontoFinal.Equal(resumen.SaldoFinal) {
			rep.Descuadre = true
			log.Warn().Str("sesion_caja_id", sesionID.String()).
				Str("almacenado", sesion.MontoFinal.StringFixed(2)).
				Str("recalculado", resumen.SaldoFinal.StringFixed(2)).
				Msg("descuadre en reporte de caja")
		}
		return nil
	})
	if err != nil {
		return nil, fail("reporte caja", err, map[string]interface{}{"sesion_caja_id": sesionID.String()})
	}
	return &rep, nil
}

func (s *cajaService) Historial(ctx context.Context, filter dto.HistorialCajaFilter) (*dto.HistorialCajaResponse, error) {
	sesiones, total, err := s.store.Caja().ListSesiones(ctx, filter.Page, filter.Limit)
	if err != nil {
		return nil, fail("historial caja", err, nil)
	}
	data := make([]dto.SesionCajaResponse, len(sesiones))
	for i := range sesiones {
		data[i] = toSesionCajaResponse(&sesiones[i])
	}
	return &dto.HistorialCajaResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func fechaOCero(s string) time.Time {
	t, err := model.ParseFecha(s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func toSesionCajaResponse(s *model.SesionCaja) dto.SesionCajaResponse {
	return dto.SesionCajaResponse{
		ID:                  s.ID.String(),
		UsuarioID:           s.UsuarioID.String(),
		Estado:              s.Estado,
		OpenedAt:            s.OpenedAt,
		ClosedAt:            s.ClosedAt,
		MontoInicial:        s.MontoInicial,
		MontoFinal:          s.MontoFinal,
		MontoReal:           s.MontoReal,
		Diferencia:          s.Diferencia,
		TotalVentas:         s.TotalVentas,
		TotalMovimientos:    s.TotalMovimientos,
		ClasificacionDesvio: s.ClasificacionDesvio,
		Observaciones:       s.Observaciones,
	}
}

func toMovimientoCajaResponse(m *model.MovimientoCaja) dto.MovimientoCajaResponse {
	return dto.MovimientoCajaResponse{
		ID:           m.ID.String(),
		Fecha:        m.Fecha,
		Tipo:         m.Tipo,
		Monto:        m.Monto,
		Descripcion:  m.Descripcion,
		UsuarioID:    m.UsuarioID.String(),
		SesionCajaID: uuidPtrString(m.SesionCajaID),
	}
}
