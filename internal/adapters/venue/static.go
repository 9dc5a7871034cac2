package venue

import (
	"context"
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"github.com/alejandrodnm/parlaybot/internal/domain"
	"github.com/alejandrodnm/parlaybot/internal/ports"
)

// Static es un venue en memoria para dry-run y tests: mercados, odds, caps y
// resultados se cargan a mano y no cambian solos.
type Static struct {
	mu      sync.RWMutex
	markets map[string]domain.Market
	odds    map[string]map[domain.Outcome]*uint256.Int
	caps    map[string]*uint256.Int
	results map[string]map[domain.Outcome]domain.LegResult
}

var _ ports.Venue = (*Static)(nil)

// NewStatic crea un venue vacío.
func NewStatic() *Static {
	return &Static{
		markets: make(map[string]domain.Market),
		odds:    make(map[string]map[domain.Outcome]*uint256.Int),
		caps:    make(map[string]*uint256.Int),
		results: make(map[string]map[domain.Outcome]domain.LegResult),
	}
}

// AddMarket registra un mercado con sus odds por posición y su cap.
func (s *Static) AddMarket(m domain.Market, odds map[domain.Outcome]*uint256.Int, cap *uint256.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.markets[m.ID] = m
	byOutcome := make(map[domain.Outcome]*uint256.Int, len(odds))
	for o, v := range odds {
		byOutcome[o] = v.Clone()
	}
	s.odds[m.ID] = byOutcome
	s.caps[m.ID] = cap.Clone()
}

// SetOdds reemplaza las odds de una posición.
func (s *Static) SetOdds(marketID string, o domain.Outcome, odds *uint256.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if by, ok := s.odds[marketID]; ok {
		by[o] = odds.Clone()
	}
}

// SetResult fija el resultado de una posición de un mercado.
func (s *Static) SetResult(marketID string, o domain.Outcome, r domain.LegResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	by, ok := s.results[marketID]
	if !ok {
		by = make(map[domain.Outcome]domain.LegResult)
		s.results[marketID] = by
	}
	by[o] = r
}

// Resolve fija el resultado de TODAS las posiciones de un mercado: la
// ganadora como WON y el resto como LOST.
func (s *Static) Resolve(marketID string, winner domain.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.markets[marketID]
	if !ok {
		return
	}
	by := make(map[domain.Outcome]domain.LegResult, m.OutcomeCount)
	for o := domain.Outcome(0); o < domain.Outcome(m.OutcomeCount); o++ {
		if o == winner {
			by[o] = domain.ResultWon
		} else {
			by[o] = domain.ResultLost
		}
	}
	s.results[marketID] = by
}

// Void anula un mercado: todas las posiciones pasan como VOID.
func (s *Static) Void(marketID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.markets[marketID]
	if !ok {
		return
	}
	by := make(map[domain.Outcome]domain.LegResult, m.OutcomeCount)
	for o := domain.Outcome(0); o < domain.Outcome(m.OutcomeCount); o++ {
		by[o] = domain.ResultVoid
	}
	s.results[marketID] = by
}

func (s *Static) MarketMeta(_ context.Context, marketID string) (domain.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.markets[marketID]
	if !ok {
		return domain.Market{}, fmt.Errorf("venue.Static: unknown market %s", marketID)
	}
	return m, nil
}

func (s *Static) LegOdds(_ context.Context, leg domain.Leg) (*uint256.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	odds, ok := s.odds[leg.MarketID][leg.Outcome]
	if !ok {
		return nil, fmt.Errorf("venue.Static: no odds for market %s outcome %d", leg.MarketID, leg.Outcome)
	}
	return odds.Clone(), nil
}

func (s *Static) MarketCap(_ context.Context, marketID string) (*uint256.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cap, ok := s.caps[marketID]
	if !ok {
		return nil, fmt.Errorf("venue.Static: no cap for market %s", marketID)
	}
	return cap.Clone(), nil
}

func (s *Static) LegResult(_ context.Context, leg domain.Leg) (domain.LegResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.results[leg.MarketID][leg.Outcome]; ok {
		return r, nil
	}
	return domain.ResultPending, nil
}
