package pricing

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/alejandrodnm/parlaybot/internal/domain"
	"github.com/alejandrodnm/parlaybot/internal/ports"
)

// Constantes de calibración de los clamps por par. Igual que los breakpoints
// de la escalera, vienen del venue y se preservan tal cual.
var (
	// pairFloorFactor: el precio ajustado del par nunca baja del 10% del
	// producto sin ajustar.
	pairFloorFactor = domain.MustFix("0.1")
	// pairEpsilon: margen sobre max(oddsA, oddsB) como techo del par. Sin
	// este techo la escalera podría dejar el combinado MÁS favorable al
	// apostador que cualquiera de las piernas sueltas — arbitraje
	// estadístico gratis.
	pairEpsilon = domain.MustFix("0.001")
)

// OddsPolicy calcula precios por pierna y combinados, con ajuste SGP para
// pares correlacionados. Solo lee del venue; no tiene estado mutable propio
// más allá de la tabla compartida.
type OddsPolicy struct {
	venue ports.Venue
	table *SGPTable
}

// NewOddsPolicy crea la policy sobre el venue y la tabla SGP dados.
func NewOddsPolicy(venue ports.Venue, table *SGPTable) *OddsPolicy {
	return &OddsPolicy{venue: venue, table: table}
}

// pricedLeg es una pierna con sus metadatos y su precio de trabajo.
type pricedLeg struct {
	leg   domain.Leg
	meta  domain.Market
	price *uint256.Int // se va ajustando par a par
}

// Price calcula el precio combinado de un parlay y los precios ajustados por
// pierna.
//
// Algoritmo:
//  1. precio aislado de cada pierna (inválida/no disponible ⇒ rechazo);
//  2. por cada par correlacionado, factor de la escalera SGP sobre la pierna
//     de línea, con clamp del producto del par a
//     [10% del producto sin ajustar, max(pA, pB) + epsilon];
//  3. producto de todos los precios finales, con el floor global re-aplicado
//     al final.
//
// Cualquier rechazo equivale a precio 0: mercado duplicado, posición
// inválida, precio no disponible o par no elegible para su categoría.
func (p *OddsPolicy) Price(ctx context.Context, legs []domain.Leg, floorPrice *uint256.Int) (combined *uint256.Int, perLeg []*uint256.Int, err error) {
	priced, err := p.fetchLegs(ctx, legs)
	if err != nil {
		return nil, nil, err
	}

	if err := p.adjustPairs(priced); err != nil {
		return nil, nil, err
	}

	combined = domain.Unit.Clone()
	perLeg = make([]*uint256.Int, len(priced))
	for i, pl := range priced {
		combined = domain.MulFix(combined, pl.price)
		perLeg[i] = pl.price
	}

	// Floor global: acota el multiplicador máximo de payout de la plataforma.
	if combined.Lt(floorPrice) {
		combined = floorPrice.Clone()
	}
	return combined, perLeg, nil
}

// fetchLegs lee metadatos y odds de cada pierna y valida la petición.
func (p *OddsPolicy) fetchLegs(ctx context.Context, legs []domain.Leg) ([]pricedLeg, error) {
	seen := make(map[string]bool, len(legs))
	priced := make([]pricedLeg, 0, len(legs))

	for _, leg := range legs {
		if seen[leg.MarketID] {
			// Un mercado no se puede parlayar contra sí mismo.
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateMarket, leg.MarketID)
		}
		seen[leg.MarketID] = true

		meta, err := p.venue.MarketMeta(ctx, leg.MarketID)
		if err != nil {
			return nil, fmt.Errorf("pricing.Price: meta %s: %w", leg.MarketID, err)
		}
		if !meta.ValidOutcome(leg.Outcome) {
			return nil, fmt.Errorf("%w: market %s outcome %d", domain.ErrInvalidOutcome, leg.MarketID, leg.Outcome)
		}

		odds, err := p.venue.LegOdds(ctx, leg)
		if err != nil {
			return nil, fmt.Errorf("pricing.Price: odds %s: %w", leg.MarketID, err)
		}
		if odds.IsZero() || odds.Gt(domain.Unit) {
			return nil, fmt.Errorf("%w: market %s", domain.ErrLegUnavailable, leg.MarketID)
		}

		priced = append(priced, pricedLeg{leg: leg, meta: meta, price: odds.Clone()})
	}
	return priced, nil
}

// adjustPairs aplica el ajuste SGP a cada par correlacionado, en orden de
// piernas. El ajuste muta el precio de trabajo de la pierna de línea.
func (p *OddsPolicy) adjustPairs(priced []pricedLeg) error {
	for i := 0; i < len(priced); i++ {
		for j := i + 1; j < len(priced); j++ {
			if !domain.Correlated(priced[i].meta, priced[j].meta) {
				continue
			}
			if err := p.adjustPair(priced, i, j); err != nil {
				return err
			}
		}
	}
	return nil
}

// adjustPair ajusta un par correlacionado (i, j).
func (p *OddsPolicy) adjustPair(priced []pricedLeg, i, j int) error {
	// La pierna de línea es la que lleva el atributo derivado; si ambas son
	// líneas del mismo padre, la segunda del par hace de línea.
	parent, line := i, j
	if priced[i].meta.IsLine() && !priced[j].meta.IsLine() {
		parent, line = j, i
	}

	pp, pl := priced[parent], priced[line]
	fee, ok := p.table.Fee(
		pp.meta.Tag1, pp.meta.Tag2, pl.meta.Tag2,
		pp.leg.Outcome, pl.leg.Outcome,
		pp.price, pl.price,
	)
	if !ok {
		return fmt.Errorf("%w: %s + %s", domain.ErrIneligiblePairing, pp.leg.MarketID, pl.leg.MarketID)
	}

	raw := domain.MulFix(pp.price, pl.price)
	lower := domain.MulFix(raw, pairFloorFactor)
	upper := domain.AddFix(domain.MaxFix(pp.price, pl.price), pairEpsilon)

	adjustedLine := domain.MulFix(pl.price, fee)
	pair := domain.MulFix(pp.price, adjustedLine)

	// Re-normalización: el par ajustado no puede salir de [lower, upper].
	switch {
	case pair.Lt(lower):
		adjustedLine = domain.DivFix(lower, pp.price)
	case pair.Gt(upper):
		adjustedLine = domain.DivFix(upper, pp.price)
	}

	priced[line].price = adjustedLine
	return nil
}
