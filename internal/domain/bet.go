package domain

import (
	"time"

	"github.com/holiman/uint256"
)

// Phase represents the settlement lifecycle of a parlay bet.
type Phase int8

const (
	PhaseTrading  Phase = iota // before any resolution
	PhaseMaturity              // every leg confirmed, or one leg confirmed lost
	PhaseExpiry                // force-expired past the settlement deadline
)

func (p Phase) String() string {
	switch p {
	case PhaseMaturity:
		return "MATURITY"
	case PhaseExpiry:
		return "EXPIRY"
	default:
		return "TRADING"
	}
}

// BetLeg is one leg of a placed bet with its stake-adjusted price frozen at
// buy time and the resolution reported by the venue.
type BetLeg struct {
	Leg
	Price  *uint256.Int
	Result LegResult
}

// ParlayBet holds the immutable terms of one combined bet plus its mutable
// settlement state. A bet never shares mutable state with another bet; the
// engine owns the record and mutates it under its own lock.
type ParlayBet struct {
	ID    string
	Owner string
	Legs  []BetLeg

	Stake         *uint256.Int // stake bruto cobrado
	NetStake      *uint256.Int // stake tras fees — lo que financia la apuesta
	PayoutBasis   *uint256.Int // stake / precio combinado
	CombinedPrice *uint256.Int

	CreatedAt time.Time
	ExpiresAt time.Time

	Phase    Phase
	Lost     bool // una pierna confirmada perdida mata todo el parlay
	Resolved bool // terminal: exercised o expired; las re-invocaciones son no-op
	Paused   bool
}

// ApplyResult records the venue's result for leg i. A single non-void losing
// leg marks the whole bet lost immediately, independent of pending legs.
// Results are write-once: a leg already confirmed keeps its first result.
func (b *ParlayBet) ApplyResult(i int, r LegResult) {
	if i < 0 || i >= len(b.Legs) || r == ResultPending {
		return
	}
	if b.Legs[i].Result != ResultPending {
		return
	}
	b.Legs[i].Result = r
	if r == ResultLost {
		b.Lost = true
	}
	if b.Resolvable() && b.Phase == PhaseTrading {
		b.Phase = PhaseMaturity
	}
}

// Resolvable reports whether the bet can be exercised: either known-lost
// (short circuit) or every leg confirmed.
func (b *ParlayBet) Resolvable() bool {
	if b.Lost {
		return true
	}
	for _, l := range b.Legs {
		if l.Result == ResultPending {
			return false
		}
	}
	return true
}

// Won reports whether the bet resolved with every leg won or void.
func (b *ParlayBet) Won() bool {
	return b.Resolvable() && !b.Lost
}

// Payout computes the amount owed on a won bet: the funded amount amplified
// by 1/price for each won leg. Void legs pass through at x1. Returns zero for
// lost or unresolved bets.
func (b *ParlayBet) Payout(funded *uint256.Int) *uint256.Int {
	if !b.Won() {
		return new(uint256.Int)
	}
	payout := funded.Clone()
	for _, l := range b.Legs {
		if l.Result != ResultWon {
			continue // void: multiplica por 1
		}
		payout = DivFix(payout, l.Price)
	}
	return payout
}

// Expired reports whether the settlement deadline has passed.
func (b *ParlayBet) Expired(now time.Time) bool {
	return now.After(b.ExpiresAt)
}

// MarketIDs returns the market id of every leg, in leg order.
func (b *ParlayBet) MarketIDs() []string {
	ids := make([]string, len(b.Legs))
	for i, l := range b.Legs {
		ids[i] = l.MarketID
	}
	return ids
}

// Clone returns a deep copy safe to hand outside the engine's lock.
func (b *ParlayBet) Clone() *ParlayBet {
	cp := *b
	cp.Legs = make([]BetLeg, len(b.Legs))
	for i, l := range b.Legs {
		cp.Legs[i] = l
		cp.Legs[i].Price = l.Price.Clone()
	}
	cp.Stake = b.Stake.Clone()
	cp.NetStake = b.NetStake.Clone()
	cp.PayoutBasis = b.PayoutBasis.Clone()
	cp.CombinedPrice = b.CombinedPrice.Clone()
	return &cp
}
