package service

import (
	"context"
	"errors"

	"kioscopos/internal/dto"
	"kioscopos/internal/model"
	"kioscopos/internal/repository"

	"github.com/google/uuid"
)

type ProveedorService interface {
	Crear(ctx context.Context, req dto.CrearProveedorRequest) (*dto.ProveedorResponse, error)
	ObtenerPorID(ctx context.Context, id uuid.UUID) (*dto.ProveedorResponse, error)
	Listar(ctx context.Context) ([]dto.ProveedorResponse, error)
}

type proveedorService struct {
	repo repository.ProveedorRepository
}

func NewProveedorService(repo repository.ProveedorRepository) ProveedorService {
	return &proveedorService{repo: repo}
}

func (s *proveedorService) Crear(ctx context.Context, req dto.CrearProveedorRequest) (*dto.ProveedorResponse, error) {
	p := &model.Proveedor{
		RazonSocial: req.RazonSocial,
		CUIT:        req.CUIT,
		Telefono:    emptyToNil(req.Telefono),
		Email:       emptyToNil(req.Email),
		Activo:      true,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateCUIT
		}
		return nil, fail("crear proveedor", err, map[string]interface{}{"cuit": req.CUIT})
	}
	resp := toProveedorResponse(p)
	return &resp, nil
}

func (s *proveedorService) ObtenerPorID(ctx context.Context, id uuid.UUID) (*dto.ProveedorResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fail("obtener proveedor", notFound(err, ErrSupplierNotFound), map[string]interface{}{"proveedor_id": id.String()})
	}
	resp := toProveedorResponse(p)
	return &resp, nil
}

func (s *proveedorService) Listar(ctx context.Context) ([]dto.ProveedorResponse, error) {
	proveedores, err := s.repo.List(ctx)
	if err != nil {
		return nil, fail("listar proveedores", err, nil)
	}
	out := make([]dto.ProveedorResponse, len(proveedores))
	for i := range proveedores {
		out[i] = toProveedorResponse(&proveedores[i])
	}
	return out, nil
}

func toProveedorResponse(p *model.Proveedor) dto.ProveedorResponse {
	return dto.ProveedorResponse{
		ID:          p.ID.String(),
		RazonSocial: p.RazonSocial,
		CUIT:        p.CUIT,
		Telefono:    p.Telefono,
		Email:       p.Email,
		Activo:      p.Activo,
	}
}
