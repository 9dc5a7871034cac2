package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/holiman/uint256"

	"github.com/alejandrodnm/parlaybot/internal/domain"
)

// Exercise liquida una apuesta resoluble: lee los resultados pendientes del
// venue, y si la apuesta queda resuelta paga al dueño (si ganó) y libera la
// reserva. Cualquiera puede ejercer una vez la apuesta es resoluble — el
// payout va siempre al dueño, así que un keeper puede barrer apuestas
// perdidas y liberar sus reservas. Idempotente: una apuesta ya resuelta
// devuelve payout cero sin tocar nada.
func (e *Engine) Exercise(ctx context.Context, betID, caller string) (*uint256.Int, error) {
	return e.exercise(ctx, betID, caller, "", false)
}

// ExerciseWithOfframp es Exercise con el payout convertido al asset dado y
// entregado por el ramp en vez de en token de settlement. Devuelve el importe
// entregado en el asset destino. Como redirige el formato de los fondos, solo
// el dueño puede llamarlo.
func (e *Engine) ExerciseWithOfframp(ctx context.Context, betID, caller, asset string) (*uint256.Int, error) {
	if asset == "" {
		return nil, fmt.Errorf("engine.ExerciseWithOfframp: empty asset")
	}
	if e.deps.Ramp == nil {
		return nil, fmt.Errorf("engine.ExerciseWithOfframp: no ramp configured")
	}
	return e.exercise(ctx, betID, caller, asset, true)
}

func (e *Engine) exercise(ctx context.Context, betID, caller, offrampAsset string, requireOwner bool) (*uint256.Int, error) {
	// Fotografía de la apuesta para las lecturas del venue, sin el lock.
	snapshot, err := e.exerciseSnapshot(betID, caller, requireOwner)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		// Ya resuelta: no-op.
		return new(uint256.Int), nil
	}

	// Lecturas del venue FUERA del lock: solo las piernas aún pendientes.
	results := make(map[int]domain.LegResult)
	for i, leg := range snapshot.Legs {
		if leg.Result != domain.ResultPending {
			continue
		}
		r, err := e.deps.Venue.LegResult(ctx, leg.Leg)
		if err != nil {
			return nil, fmt.Errorf("engine.Exercise: leg result %s: %w", leg.MarketID, err)
		}
		results[i] = r
	}

	// Aplicar resultados y marcar resuelta, bajo el lock. Marcar ANTES de
	// mover fondos cierra la ventana de doble ejercicio; si los fondos fallan
	// se desmarca.
	bet, matured, err := e.markResolved(betID, caller, requireOwner, results)
	if err != nil {
		return nil, err
	}
	if bet == nil {
		return new(uint256.Int), nil
	}

	// La maduración se anuncia aunque los fondos fallen después: los
	// resultados de las piernas ya quedaron aplicados.
	if matured {
		e.emit(ctx, domain.Event{
			Type:    domain.EventBetResolved,
			At:      e.now(),
			BetID:   betID,
			Account: bet.Owner,
			Detail:  fmt.Sprintf("won=%t", bet.Won()),
		})
	}

	payout, err := e.settleBet(ctx, bet, offrampAsset)
	if err != nil {
		e.unmarkResolved(betID)
		return nil, err
	}

	e.mu.Lock()
	stored := e.bets[betID]
	e.mu.Unlock()
	e.persist(ctx, stored, false)

	e.emit(ctx, domain.Event{
		Type:    domain.EventBetExercised,
		At:      e.now(),
		BetID:   betID,
		Account: bet.Owner,
		Amount:  payout,
		Detail:  fmt.Sprintf("won=%t", bet.Won()),
	})
	slog.Info("bet exercised",
		"bet", betID,
		"owner", bet.Owner,
		"caller", caller,
		"won", bet.Won(),
		"payout", domain.FormatFix(payout),
	)
	return payout, nil
}

// exerciseSnapshot valida el acceso y devuelve una copia de la apuesta para
// las lecturas del venue, o nil si ya está resuelta.
func (e *Engine) exerciseSnapshot(betID, caller string, requireOwner bool) (*domain.ParlayBet, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	bet, ok := e.bets[betID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownBet, betID)
	}
	if requireOwner && bet.Owner != caller {
		return nil, fmt.Errorf("%w: bet %s", domain.ErrNotOwner, betID)
	}
	if bet.Paused {
		return nil, fmt.Errorf("%w: %s", domain.ErrBetPaused, betID)
	}
	if bet.Resolved {
		return nil, nil
	}
	return bet.Clone(), nil
}

// markResolved aplica los resultados leídos y marca la apuesta como resuelta
// si quedó resoluble. Devuelve una copia congelada para el settlement (nil si
// otra llamada concurrente la resolvió primero) y si la apuesta maduró en
// esta misma llamada.
func (e *Engine) markResolved(betID, caller string, requireOwner bool, results map[int]domain.LegResult) (*domain.ParlayBet, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	bet, ok := e.bets[betID]
	if !ok {
		return nil, false, fmt.Errorf("%w: %s", domain.ErrUnknownBet, betID)
	}
	if requireOwner && bet.Owner != caller {
		return nil, false, fmt.Errorf("%w: bet %s", domain.ErrNotOwner, betID)
	}
	if bet.Paused {
		return nil, false, fmt.Errorf("%w: %s", domain.ErrBetPaused, betID)
	}
	if bet.Resolved {
		return nil, false, nil
	}

	wasResolvable := bet.Resolvable()
	for i, r := range results {
		bet.ApplyResult(i, r)
	}
	if !bet.Resolvable() {
		return nil, false, fmt.Errorf("%w: %s", domain.ErrNotResolvable, betID)
	}
	bet.Resolved = true
	return bet.Clone(), !wasResolvable, nil
}

// unmarkResolved reabre una apuesta cuyo movimiento de fondos falló.
func (e *Engine) unmarkResolved(betID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if bet, ok := e.bets[betID]; ok {
		bet.Resolved = false
	}
}

// settleBet mueve los fondos de una apuesta resuelta: libera la reserva y, si
// ganó, paga al dueño. El payout se acota al payout basis reservado.
func (e *Engine) settleBet(ctx context.Context, bet *domain.ParlayBet, offrampAsset string) (*uint256.Int, error) {
	if err := e.deps.Pool.Release(ctx, bet.ID); err != nil {
		return nil, fmt.Errorf("engine.Exercise: release: %w", err)
	}

	if !bet.Won() {
		// Perdida: el net stake queda en el pool.
		return new(uint256.Int), nil
	}

	payout := domain.MinFix(bet.Payout(bet.NetStake), bet.PayoutBasis)
	if payout.IsZero() {
		return payout, nil
	}

	// Si el pago falla hay que volver a reservar la amplificación: la
	// apuesta se reabre y su payout sigue comprometido.
	restoreReserve := func() {
		amp := domain.SubFix(bet.PayoutBasis, bet.NetStake)
		if err := e.deps.Pool.Reserve(ctx, bet.ID, amp); err != nil {
			slog.Error("rollback: re-reserve failed", "bet", bet.ID, "err", err)
		}
	}

	if offrampAsset == "" {
		if err := e.deps.Pool.Pay(ctx, bet.Owner, payout); err != nil {
			restoreReserve()
			return nil, fmt.Errorf("engine.Exercise: pay: %w", err)
		}
		return payout, nil
	}

	delivered, err := e.deps.Ramp.FromSettlement(ctx, bet.Owner, offrampAsset, payout)
	if err != nil {
		restoreReserve()
		return nil, fmt.Errorf("engine.Exercise: offramp %s: %w", offrampAsset, err)
	}
	return delivered, nil
}
