package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/parlaybot/internal/domain"
)

// CycleStats resume un ciclo del daemon de settlement.
type CycleStats struct {
	OpenBets int // apuestas abiertas al empezar el ciclo
	Polled   int // piernas pendientes consultadas al venue
	Matured  int // apuestas que pasaron a maturity en este ciclo
	Expired  int // apuestas expiradas a la fuerza
}

// RunSettlement ejecuta el loop de settlement hasta que el contexto se
// cancele: consulta resultados pendientes, madura apuestas resueltas y expira
// las que superaron su plazo. Con once=true ejecuta un solo ciclo.
func (e *Engine) RunSettlement(ctx context.Context, interval time.Duration, once bool) error {
	slog.Info("settlement starting", "interval", interval, "once", once)

	if _, err := e.SettleOnce(ctx); err != nil {
		slog.Error("settlement cycle failed", "err", err)
		if once {
			return err
		}
	}
	if once {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("settlement stopped")
			return nil
		case <-ticker.C:
			if _, err := e.SettleOnce(ctx); err != nil {
				slog.Error("settlement cycle failed", "err", err)
			}
		}
	}
}

// SettleOnce ejecuta exactamente un ciclo de settlement.
func (e *Engine) SettleOnce(ctx context.Context) (CycleStats, error) {
	start := time.Now()
	stats := CycleStats{}

	open := e.OpenBets()
	stats.OpenBets = len(open)

	for _, bet := range open {
		matured, polled, err := e.refreshBet(ctx, bet)
		if err != nil {
			slog.Warn("bet refresh failed", "bet", bet.ID, "err", err)
			continue
		}
		stats.Polled += polled
		if matured {
			stats.Matured++
		}
	}

	// Expiración forzosa de las que agotaron su plazo sin ejercerse. El
	// daemon actúa como el operador.
	now := e.now()
	for _, bet := range e.OpenBets() {
		if !bet.Expired(now) || bet.Paused {
			continue
		}
		if err := e.Expire(ctx, bet.ID, e.operator); err != nil {
			if !errors.Is(err, domain.ErrAlreadyResolved) {
				slog.Warn("forced expiry failed", "bet", bet.ID, "err", err)
			}
			continue
		}
		stats.Expired++
	}

	slog.Info("settlement cycle complete",
		"open", stats.OpenBets,
		"polled", stats.Polled,
		"matured", stats.Matured,
		"expired", stats.Expired,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return stats, nil
}

// refreshBet consulta al venue los resultados pendientes de una apuesta y los
// aplica. Devuelve si la apuesta pasó a resoluble en este ciclo.
func (e *Engine) refreshBet(ctx context.Context, snapshot *domain.ParlayBet) (matured bool, polled int, err error) {
	results := make(map[int]domain.LegResult)
	for i, leg := range snapshot.Legs {
		if leg.Result != domain.ResultPending {
			continue
		}
		r, err := e.deps.Venue.LegResult(ctx, leg.Leg)
		if err != nil {
			return false, polled, fmt.Errorf("leg %s: %w", leg.MarketID, err)
		}
		polled++
		if r != domain.ResultPending {
			results[i] = r
		}
	}
	if len(results) == 0 {
		return false, polled, nil
	}

	e.mu.Lock()
	bet, ok := e.bets[snapshot.ID]
	if !ok || bet.Resolved {
		e.mu.Unlock()
		return false, polled, nil
	}
	wasResolvable := bet.Resolvable()
	for i, r := range results {
		bet.ApplyResult(i, r)
	}
	matured = !wasResolvable && bet.Resolvable()
	stored := bet.Clone()
	e.mu.Unlock()

	if e.deps.Store != nil {
		if err := e.deps.Store.UpdateBet(ctx, stored); err != nil {
			slog.Error("bet persistence error", "bet", stored.ID, "err", err)
		}
	}
	if matured {
		e.emit(ctx, domain.Event{
			Type:    domain.EventBetResolved,
			At:      e.now(),
			BetID:   stored.ID,
			Account: stored.Owner,
			Detail:  fmt.Sprintf("won=%t", stored.Won()),
		})
		slog.Info("bet matured", "bet", stored.ID, "won", stored.Won())
	}
	return matured, polled, nil
}
