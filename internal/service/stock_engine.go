package service

import (
	"context"

	"kioscopos/internal/model"
	"kioscopos/internal/repository"

	"github.com/google/uuid"
)

// Delta is one concrete stock change produced by the stock engine.
type Delta struct {
	ProductoID uuid.UUID
	Nombre     string
	Cantidad   int
	Origen     uuid.UUID // product sold or returned that produced the delta
}

// ResolverDeltas resolves selling cantidad units of p into stock decrements.
// A plain product decrements itself. A promo decrements every component by
// CantidadPorPromo × cantidad and never touches its own stock. A promo with
// no components cannot be resolved and yields ErrInsufficientStock.
func ResolverDeltas(p *model.Producto, comps []model.PromoComponente, cantidad int) ([]Delta, error) {
	if !p.EsPromo {
		return []Delta{{ProductoID: p.ID, Nombre: p.Nombre, Cantidad: -cantidad, Origen: p.ID}}, nil
	}
	if len(comps) == 0 {
		return nil, ErrInsufficientStock.Withf("La promo %s no tiene componentes", p.Nombre)
	}
	deltas := make([]Delta, 0, len(comps))
	for _, c := range comps {
		nombre := ""
		if c.Componente != nil {
			nombre = c.Componente.Nombre
		}
		deltas = append(deltas, Delta{
			ProductoID: c.ComponenteID,
			Nombre:     nombre,
			Cantidad:   -(c.CantidadPorPromo * cantidad),
			Origen:     p.ID,
		})
	}
	return deltas, nil
}

// Invertir flips the sign of every delta (sale → return).
func Invertir(deltas []Delta) []Delta {
	out := make([]Delta, len(deltas))
	for i, d := range deltas {
		d.Cantidad = -d.Cantidad
		out[i] = d
	}
	return out
}

// StockEfectivo is the sellable quantity of p. For a promo it is the minimum
// over components of floor(stock / cantidad_por_promo), and 0 when the promo
// has no components or any component is missing, misconfigured or out of stock.
func StockEfectivo(p *model.Producto, comps []model.PromoComponente) int {
	if !p.EsPromo {
		return p.StockActual
	}
	if len(comps) == 0 {
		return 0
	}
	min := -1
	for _, c := range comps {
		if c.Componente == nil || c.CantidadPorPromo <= 0 || c.Componente.StockActual <= 0 {
			return 0
		}
		n := c.Componente.StockActual / c.CantidadPorPromo
		if min < 0 || n < min {
			min = n
		}
	}
	return min
}

// stockEfectivoBatch computes StockEfectivo for a listing with one component
// query. Every catalog surface goes through here or StockEfectivo.
func stockEfectivoBatch(ctx context.Context, repo repository.ProductoRepository, productos []model.Producto) (map[uuid.UUID]int, map[uuid.UUID][]model.PromoComponente, error) {
	var promoIDs []uuid.UUID
	for _, p := range productos {
		if p.EsPromo {
			promoIDs = append(promoIDs, p.ID)
		}
	}
	comps, err := repo.ComponentesDe(ctx, promoIDs)
	if err != nil {
		return nil, nil, err
	}
	stock := make(map[uuid.UUID]int, len(productos))
	for i := range productos {
		stock[productos[i].ID] = StockEfectivo(&productos[i], comps[productos[i].ID])
	}
	return stock, comps, nil
}
