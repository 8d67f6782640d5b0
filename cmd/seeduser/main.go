// Command seeduser creates the first administrator so the POS can be used
// right after install. Existing users are left untouched.
//
// Uso: SEED_USERNAME=admin SEED_PASSWORD=... go run ./cmd/seeduser
package main

import (
	"context"
	"errors"
	"os"

	"kioscopos/internal/config"
	"kioscopos/internal/dto"
	"kioscopos/internal/infra"
	"kioscopos/internal/model"
	"kioscopos/internal/repository"
	"kioscopos/internal/service"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.UsesMemoryStore() {
		log.Fatal().Msg("DATABASE_URL=memory has nothing to seed")
	}

	req := dto.CrearUsuarioRequest{
		Username: envOr("SEED_USERNAME", "admin"),
		Nombre:   envOr("SEED_NOMBRE", "Administrador"),
		Password: os.Getenv("SEED_PASSWORD"),
		Rol:      model.RolAdministrador,
	}
	if len(req.Password) < 8 {
		log.Fatal().Msg("SEED_PASSWORD must have at least 8 characters")
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	store := repository.NewStore(db)

	u, err := service.NewAuthService(store.Usuarios(), cfg).CrearUsuario(context.Background(), req)
	switch {
	case errors.Is(err, service.ErrDuplicateUsername):
		log.Info().Str("username", req.Username).Msg("user already exists, nothing to do")
	case err != nil:
		log.Fatal().Err(err).Msg("failed to create user")
	default:
		log.Info().Str("username", u.Username).Str("id", u.ID).Msg("administrator created")
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
