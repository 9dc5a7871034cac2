package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/holiman/uint256"

	"github.com/alejandrodnm/parlaybot/internal/domain"
	"github.com/alejandrodnm/parlaybot/internal/ports"
	"github.com/alejandrodnm/parlaybot/internal/pricing"
	"github.com/alejandrodnm/parlaybot/internal/risk"
)

// Deps son las dependencias externas del engine. Venue y Pool son
// obligatorias; Referrals, Ramp, Store y Events pueden ser nil y la
// funcionalidad correspondiente se desactiva.
type Deps struct {
	Venue     ports.Venue
	Pool      ports.CollateralPool
	Referrals ports.ReferralLedger
	Ramp      ports.Ramp
	Store     ports.BetStore
	Events    ports.EventSink
}

// Engine es el orquestador del mercado de parlays: cotiza, compra, liquida y
// expira apuestas. Todas las mutaciones de apuestas pasan por su lock; las
// lecturas del venue siempre ocurren fuera de él.
type Engine struct {
	deps   Deps
	table  *pricing.SGPTable
	ledger *risk.Ledger
	quoter *pricing.QuoteEngine

	mu           sync.RWMutex
	params       domain.Params
	feeOverrides map[string]*uint256.Int // protocol fee por cuenta
	bets         map[string]*domain.ParlayBet

	operator string
	now      func() time.Time
}

// New crea un Engine con sus dependencias inyectadas. La tabla SGP se
// comparte con el pricing; operator es la única cuenta autorizada para las
// operaciones administrativas.
func New(deps Deps, table *pricing.SGPTable, params domain.Params, operator string) *Engine {
	ledger := risk.NewLedger()
	policy := pricing.NewOddsPolicy(deps.Venue, table)
	return &Engine{
		deps:         deps,
		table:        table,
		ledger:       ledger,
		quoter:       pricing.NewQuoteEngine(policy, ledger, deps.Venue),
		params:       params,
		feeOverrides: make(map[string]*uint256.Int),
		bets:         make(map[string]*domain.ParlayBet),
		operator:     operator,
		now:          time.Now,
	}
}

// Params devuelve una copia de los parámetros vigentes.
func (e *Engine) Params() domain.Params {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.params
}

// Ledger expone el risk ledger (para inspección y tests).
func (e *Engine) Ledger() *risk.Ledger {
	return e.ledger
}

// Quote cotiza un parlay para la cuenta dada, con su protocol fee efectivo.
// Es pura: no reserva capacidad ni congela precios.
func (e *Engine) Quote(ctx context.Context, caller string, req pricing.Request) (domain.Quote, error) {
	params, fee := e.paramsAndFee(caller)
	return e.quoter.Quote(ctx, req, params, fee)
}

// CanAdmit indica si el parlay sería admitido a los precios y la capacidad
// actuales, con el protocol fee global. Advisory igual que Quote: el buy
// re-valida en el commit. Una petición inválida o sin precio cuenta como no
// admisible.
func (e *Engine) CanAdmit(ctx context.Context, req pricing.Request) bool {
	params, fee := e.paramsAndFee("")
	quote, err := e.quoter.Quote(ctx, req, params, fee)
	if err != nil {
		return false
	}
	return quote.Admissible
}

// Bet devuelve una copia de la apuesta o ErrUnknownBet.
func (e *Engine) Bet(betID string) (*domain.ParlayBet, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	bet, ok := e.bets[betID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownBet, betID)
	}
	return bet.Clone(), nil
}

// OpenBets devuelve copias de todas las apuestas no resueltas.
func (e *Engine) OpenBets() []*domain.ParlayBet {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*domain.ParlayBet, 0, len(e.bets))
	for _, bet := range e.bets {
		if !bet.Resolved {
			out = append(out, bet.Clone())
		}
	}
	return out
}

// Restore recarga apuestas abiertas y el risk ledger desde el store. Se llama
// una vez al arrancar, antes de aceptar tráfico.
func (e *Engine) Restore(ctx context.Context) error {
	if e.deps.Store == nil {
		return nil
	}

	bets, err := e.deps.Store.LoadOpenBets(ctx)
	if err != nil {
		return fmt.Errorf("engine.Restore: load bets: %w", err)
	}
	snap, err := e.deps.Store.LoadLedger(ctx)
	if err != nil {
		return fmt.Errorf("engine.Restore: load ledger: %w", err)
	}

	e.mu.Lock()
	for _, bet := range bets {
		e.bets[bet.ID] = bet
	}
	e.mu.Unlock()
	e.ledger.Restore(snap)

	slog.Info("engine restored", "open_bets", len(bets))
	return nil
}

// paramsAndFee devuelve los parámetros vigentes y el protocol fee efectivo
// para una cuenta (override si existe).
func (e *Engine) paramsAndFee(account string) (domain.Params, *uint256.Int) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if fee, ok := e.feeOverrides[account]; ok {
		return e.params, fee.Clone()
	}
	return e.params, e.params.ProtocolFee.Clone()
}

// emit entrega un evento al sink. Los errores del sink se loguean y nunca
// abortan la operación que los generó.
func (e *Engine) emit(ctx context.Context, ev domain.Event) {
	if e.deps.Events == nil {
		return
	}
	if err := e.deps.Events.Emit(ctx, ev); err != nil {
		slog.Warn("event sink error", "type", ev.Type, "bet", ev.BetID, "err", err)
	}
}

// persist guarda el estado de una apuesta y el snapshot del ledger. Los
// errores de persistencia se loguean: el estado en memoria es el autoritativo
// y la operación ya está comprometida.
func (e *Engine) persist(ctx context.Context, bet *domain.ParlayBet, created bool) {
	if e.deps.Store == nil {
		return
	}
	var err error
	if created {
		err = e.deps.Store.SaveBet(ctx, bet)
	} else {
		err = e.deps.Store.UpdateBet(ctx, bet)
	}
	if err != nil {
		slog.Error("bet persistence error", "bet", bet.ID, "err", err)
	}
	if err := e.deps.Store.SaveLedger(ctx, e.ledger.Snapshot()); err != nil {
		slog.Error("ledger persistence error", "err", err)
	}
}
