package pricing

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/alejandrodnm/parlaybot/internal/domain"
	"github.com/alejandrodnm/parlaybot/internal/ports"
	"github.com/alejandrodnm/parlaybot/internal/risk"
)

// capMultiplier: la exposición por pierna se admite hasta 2× el cap por
// mercado del venue.
const capMultiplier = 2

// Request es un parlay candidato a cotizar: mercados y posiciones en arrays
// paralelos, más el stake bruto.
type Request struct {
	Markets   []string
	Positions []domain.Outcome
	Stake     *uint256.Int
}

// Legs convierte los arrays paralelos en piernas. Falla si las longitudes no
// coinciden.
func (r Request) Legs() ([]domain.Leg, error) {
	if len(r.Markets) != len(r.Positions) {
		return nil, domain.ErrLengthMismatch
	}
	legs := make([]domain.Leg, len(r.Markets))
	for i := range r.Markets {
		legs[i] = domain.Leg{MarketID: r.Markets[i], Outcome: r.Positions[i]}
	}
	return legs, nil
}

// QuoteEngine es cálculo puro: cotiza un parlay contra el estado actual sin
// mutar nada. Seguro para muchos lectores concurrentes.
type QuoteEngine struct {
	policy *OddsPolicy
	ledger *risk.Ledger
	venue  ports.Venue
}

// NewQuoteEngine crea el QuoteEngine sobre la policy, el ledger (solo
// lectura) y el venue.
func NewQuoteEngine(policy *OddsPolicy, ledger *risk.Ledger, venue ports.Venue) *QuoteEngine {
	return &QuoteEngine{policy: policy, ledger: ledger, venue: venue}
}

// Quote cotiza el parlay con los parámetros y el protocol fee (ya resuelto
// por caller) dados.
//
// Errores de validación y de pricing devuelven (Quote{}, err) — la cuota
// entera es cero. Los fallos de capacidad devuelven la cuota calculada con
// Admissible=false y Reason: nunca se admite un parlay a medias.
func (q *QuoteEngine) Quote(ctx context.Context, req Request, params domain.Params, protocolFee *uint256.Int) (domain.Quote, error) {
	legs, err := req.Legs()
	if err != nil {
		return domain.Quote{}, err
	}
	if len(legs) < params.MinLegs || len(legs) > params.MaxLegs {
		return domain.Quote{}, fmt.Errorf("%w: %d legs", domain.ErrParlaySize, len(legs))
	}
	if req.Stake == nil || req.Stake.Lt(params.MinStake) {
		return domain.Quote{}, domain.ErrStakeTooLow
	}
	if req.Stake.Gt(params.MaxStake) {
		return domain.Quote{}, domain.ErrStakeTooHigh
	}

	combined, perLeg, err := q.policy.Price(ctx, legs, params.FloorPrice)
	if err != nil {
		return domain.Quote{}, err
	}

	// netStake = stake × (1 − safeBoxFee − protocolFee)
	keep := domain.SubFix(domain.SubFix(domain.Unit, params.SafeBoxFee), protocolFee)
	netStake := domain.MulFix(req.Stake, keep)

	perLegAmounts := make([]*uint256.Int, len(perLeg))
	for i, price := range perLeg {
		perLegAmounts[i] = domain.DivFix(netStake, price)
	}

	payoutBasis := domain.DivFix(req.Stake, combined)
	amplification := domain.SubFix(payoutBasis, netStake)

	quote := domain.Quote{
		Stake:         req.Stake.Clone(),
		NetStake:      netStake,
		CombinedPrice: combined,
		PerLegPrices:  perLeg,
		PerLegAmounts: perLegAmounts,
		PayoutBasis:   payoutBasis,
		Amplification: amplification,
	}

	// Veredicto de admisión. Lecturas del venue ANTES de cualquier lock; el
	// buy re-valida los mismos incrementos atómicamente en el commit.
	caps := make([]*uint256.Int, len(legs))
	incs := make([]risk.ExposureInc, len(legs))
	for i, leg := range legs {
		cap, err := q.venue.MarketCap(ctx, leg.MarketID)
		if err != nil {
			return domain.Quote{}, fmt.Errorf("pricing.Quote: market cap %s: %w", leg.MarketID, err)
		}
		caps[i] = cap
		incs[i] = risk.ExposureInc{
			MarketID: leg.MarketID,
			Outcome:  leg.Outcome,
			Amount:   req.Stake,
			Cap:      new(uint256.Int).Mul(cap, uint256.NewInt(capMultiplier)),
		}
	}
	quote.PerLegCaps = caps

	combo := comboIncFor(legs, quote.Amplification, params)

	switch {
	case combined.Lt(params.FloorPrice):
		quote.Reason = domain.ErrBelowFloor
	case domain.SubFix(payoutBasis, req.Stake).Gt(params.MaxSupportedAmount):
		quote.Reason = domain.ErrPayoutTooLarge
	default:
		quote.Reason = q.ledger.Check(incs, combo)
	}
	quote.Admissible = quote.Reason == nil
	return quote, nil
}

// ExposureIncs construye los incrementos de exposición que el buy debe
// commitear para una cuota ya calculada.
func ExposureIncs(legs []domain.Leg, quote domain.Quote) []risk.ExposureInc {
	incs := make([]risk.ExposureInc, len(legs))
	for i, leg := range legs {
		incs[i] = risk.ExposureInc{
			MarketID: leg.MarketID,
			Outcome:  leg.Outcome,
			Amount:   quote.Stake,
			Cap:      new(uint256.Int).Mul(quote.PerLegCaps[i], uint256.NewInt(capMultiplier)),
		}
	}
	return incs
}

// ComboInc construye el incremento de exposición por combinación para una
// cuota, o nil si el parlay no entra en el cap por combinación.
func ComboInc(legs []domain.Leg, quote domain.Quote, params domain.Params) *risk.ComboInc {
	return comboIncFor(legs, quote.Amplification, params)
}

func comboIncFor(legs []domain.Leg, amplification *uint256.Int, params domain.Params) *risk.ComboInc {
	if len(legs) < 2 || len(legs) > params.MaxLegs {
		return nil
	}
	ids := make([]string, len(legs))
	for i, leg := range legs {
		ids[i] = leg.MarketID
	}
	return &risk.ComboInc{
		Key:    domain.CombinationKey(ids),
		Amount: amplification,
		Cap:    params.MaxComboExposure,
	}
}
