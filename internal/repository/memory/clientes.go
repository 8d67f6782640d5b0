package memory

import (
	"context"
	"strings"

	"kioscopos/internal/dto"
	"kioscopos/internal/model"
	"kioscopos/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type clientes struct{ s *Store }

func (r clientes) Create(_ context.Context, c *model.Cliente) error {
	defer r.s.lock()()
	ensureID(&c.ID)
	for _, o := range r.s.st.clientes {
		if o.ID == c.ID || (c.DNI != nil && o.DNI != nil && *o.DNI == *c.DNI) {
			return repository.ErrDuplicate
		}
	}
	c.CreatedAt = now()
	r.s.st.clientes[c.ID] = *c
	return nil
}

func (r clientes) FindByID(_ context.Context, id uuid.UUID) (*model.Cliente, error) {
	defer r.s.lock()()
	c, ok := r.s.st.clientes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r clientes) List(_ context.Context, f dto.ClienteFilter) ([]model.Cliente, int64, error) {
	defer r.s.lock()()
	q := strings.ToLower(f.Q)
	rows := []model.Cliente{}
	for _, c := range r.s.st.clientes {
		if q != "" && !strings.Contains(strings.ToLower(c.Nombre), q) && (c.DNI == nil || *c.DNI != f.Q) {
			continue
		}
		rows = append(rows, c)
	}
	sortBy(rows, func(a, b model.Cliente) bool { return a.Nombre < b.Nombre })
	return paginate(rows, f.Page, f.Limit), int64(len(rows)), nil
}

func (r clientes) AddDeuda(_ context.Context, id uuid.UUID, delta decimal.Decimal) error {
	defer r.s.lock()()
	c, ok := r.s.st.clientes[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.DeudaActual = c.DeudaActual.Add(delta)
	r.s.st.clientes[id] = c
	return nil
}

func (r clientes) CreatePago(_ context.Context, p *model.PagoDeuda) error {
	defer r.s.lock()()
	ensureID(&p.ID)
	r.s.st.pagos = append(r.s.st.pagos, *p)
	return nil
}

type proveedores struct{ s *Store }

func (r proveedores) Create(_ context.Context, p *model.Proveedor) error {
	defer r.s.lock()()
	ensureID(&p.ID)
	for _, o := range r.s.st.proveedores {
		if o.ID == p.ID || o.CUIT == p.CUIT {
			return repository.ErrDuplicate
		}
	}
	p.CreatedAt = now()
	r.s.st.proveedores[p.ID] = *p
	return nil
}

func (r proveedores) FindByID(_ context.Context, id uuid.UUID) (*model.Proveedor, error) {
	defer r.s.lock()()
	p, ok := r.s.st.proveedores[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r proveedores) List(_ context.Context) ([]model.Proveedor, error) {
	defer r.s.lock()()
	rows := []model.Proveedor{}
	for _, p := range r.s.st.proveedores {
		if p.Activo {
			rows = append(rows, p)
		}
	}
	sortBy(rows, func(a, b model.Proveedor) bool { return a.RazonSocial < b.RazonSocial })
	return rows, nil
}

type usuarios struct{ s *Store }

func (r usuarios) Create(_ context.Context, u *model.Usuario) error {
	defer r.s.lock()()
	ensureID(&u.ID)
	for _, o := range r.s.st.usuarios {
		if o.ID == u.ID || o.Username == u.Username {
			return repository.ErrDuplicate
		}
	}
	u.CreatedAt, u.UpdatedAt = now(), now()
	r.s.st.usuarios[u.ID] = *u
	return nil
}

func (r usuarios) FindByUsername(_ context.Context, username string) (*model.Usuario, error) {
	defer r.s.lock()()
	for _, u := range r.s.st.usuarios {
		if u.Username == username && u.Activo {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r usuarios) FindByID(_ context.Context, id uuid.UUID) (*model.Usuario, error) {
	defer r.s.lock()()
	u, ok := r.s.st.usuarios[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r usuarios) List(_ context.Context) ([]model.Usuario, error) {
	defer r.s.lock()()
	rows := []model.Usuario{}
	for _, u := range r.s.st.usuarios {
		if u.Activo {
			rows = append(rows, u)
		}
	}
	sortBy(rows, func(a, b model.Usuario) bool { return a.Username < b.Username })
	return rows, nil
}
