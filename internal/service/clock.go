package service

import (
	"context"
	"time"

	"kioscopos/internal/model"
	"kioscopos/internal/repository"
)

// Clock returns the current wall-clock time. Services take one so tests can
// pin timestamps.
type Clock func() time.Time

// SystemClock is the production Clock.
func SystemClock() time.Time { return time.Now() }

func (c Clock) fecha() string { return model.FormatFecha(c()) }

// fechaCaja stamps a write that counts toward the drawer. With sesion open the
// stamp is never before its opened_at; with no session open it is never
// before the last closed_at, so the event cannot land in a closed window.
func (c Clock) fechaCaja(ctx context.Context, tx repository.Store, sesion *model.SesionCaja) (string, error) {
	fecha := c.fecha()
	var piso string
	if sesion != nil {
		piso = sesion.OpenedAt
	} else {
		ultimo, err := tx.Caja().UltimoCierre(ctx)
		if err != nil {
			return "", err
		}
		piso = ultimo
	}
	if piso > fecha {
		fecha = piso
	}
	return fecha, nil
}
