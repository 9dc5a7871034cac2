package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/holiman/uint256"

	"github.com/alejandrodnm/parlaybot/internal/domain"
)

// Operaciones administrativas. Todas requieren el operador autorizado; un
// caller distinto recibe ErrNotOperator sin cambio de estado.

// Expire fuerza el cierre de una apuesta que superó su plazo de settlement
// sin ser ejercida: libera la reserva y barre el net stake al safe box. El
// dueño pierde el derecho al payout.
func (e *Engine) Expire(ctx context.Context, betID, caller string) error {
	if err := e.authorized(caller); err != nil {
		return err
	}

	bet, params, prevPhase, err := e.markExpired(betID)
	if err != nil {
		return err
	}
	reopen := func() {
		e.mu.Lock()
		if stored, ok := e.bets[betID]; ok {
			stored.Resolved = false
			stored.Phase = prevPhase
		}
		e.mu.Unlock()
	}

	if err := e.deps.Pool.Release(ctx, bet.ID); err != nil {
		reopen()
		return fmt.Errorf("engine.Expire: release: %w", err)
	}
	if err := e.deps.Pool.Pay(ctx, params.SafeBox, bet.NetStake); err != nil {
		// Restaurar la reserva y reabrir: la expiración es todo o nada.
		amp := domain.SubFix(bet.PayoutBasis, bet.NetStake)
		if rerr := e.deps.Pool.Reserve(ctx, bet.ID, amp); rerr != nil {
			slog.Error("rollback: re-reserve failed", "bet", betID, "err", rerr)
		}
		reopen()
		return fmt.Errorf("engine.Expire: sweep: %w", err)
	}

	e.mu.Lock()
	stored := e.bets[betID]
	e.mu.Unlock()
	e.persist(ctx, stored, false)

	e.emit(ctx, domain.Event{
		Type:    domain.EventBetExpired,
		At:      e.now(),
		BetID:   betID,
		Account: bet.Owner,
		Amount:  bet.NetStake,
	})
	slog.Info("bet expired", "bet", betID, "owner", bet.Owner,
		"swept", domain.FormatFix(bet.NetStake))
	return nil
}

// markExpired valida y marca la apuesta como expirada bajo el lock. Devuelve
// también la fase previa, para poder reabrir la apuesta tal cual estaba si el
// movimiento de fondos posterior falla.
func (e *Engine) markExpired(betID string) (*domain.ParlayBet, domain.Params, domain.Phase, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	bet, ok := e.bets[betID]
	if !ok {
		return nil, domain.Params{}, 0, fmt.Errorf("%w: %s", domain.ErrUnknownBet, betID)
	}
	if bet.Resolved {
		return nil, domain.Params{}, 0, fmt.Errorf("%w: %s", domain.ErrAlreadyResolved, betID)
	}
	if !bet.Expired(e.now()) {
		return nil, domain.Params{}, 0, fmt.Errorf("%w: %s until %s", domain.ErrNotExpired,
			betID, bet.ExpiresAt.Format("2006-01-02 15:04:05"))
	}

	prev := bet.Phase
	bet.Phase = domain.PhaseExpiry
	bet.Resolved = true
	return bet.Clone(), e.params, prev, nil
}

// SetParams reemplaza los parámetros de proceso. Las apuestas ya compradas no
// se recalculan: sus términos quedaron congelados en el buy.
func (e *Engine) SetParams(ctx context.Context, caller string, params domain.Params) error {
	if err := e.authorized(caller); err != nil {
		return err
	}

	e.mu.Lock()
	e.params = params
	e.mu.Unlock()

	e.emit(ctx, domain.Event{Type: domain.EventParametersChanged, At: e.now(), Account: caller})
	slog.Info("params updated", "by", caller)
	return nil
}

// SetFeeOverride fija el protocol fee de una cuenta concreta, por encima del
// fee global. Fee nil elimina el override.
func (e *Engine) SetFeeOverride(ctx context.Context, caller, account string, fee *uint256.Int) error {
	if err := e.authorized(caller); err != nil {
		return err
	}

	e.mu.Lock()
	if fee == nil {
		delete(e.feeOverrides, account)
	} else {
		e.feeOverrides[account] = fee.Clone()
	}
	e.mu.Unlock()

	e.emit(ctx, domain.Event{
		Type:    domain.EventParametersChanged,
		At:      e.now(),
		Account: account,
		Amount:  fee,
		Detail:  "protocol fee override",
	})
	return nil
}

// SetSGPFee fija un override exacto en la tabla SGP para un par concreto de
// (categorías, posiciones).
func (e *Engine) SetSGPFee(ctx context.Context, caller, tag1, tagA, tagB string, posA, posB domain.Outcome, fee *uint256.Int) error {
	if err := e.authorized(caller); err != nil {
		return err
	}
	e.table.SetOverride(tag1, tagA, tagB, posA, posB, fee)

	e.emit(ctx, domain.Event{
		Type:   domain.EventParametersChanged,
		At:     e.now(),
		Amount: fee,
		Detail: fmt.Sprintf("sgp override %s/%s/%s", tag1, tagA, tagB),
	})
	return nil
}

// PauseBet bloquea el ejercicio de una apuesta (disputas, incidencias del
// venue). La pausa no detiene el reloj de expiración.
func (e *Engine) PauseBet(caller, betID string) error {
	return e.setPaused(caller, betID, true)
}

// ResumeBet levanta la pausa.
func (e *Engine) ResumeBet(caller, betID string) error {
	return e.setPaused(caller, betID, false)
}

func (e *Engine) setPaused(caller, betID string, paused bool) error {
	if err := e.authorized(caller); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	bet, ok := e.bets[betID]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownBet, betID)
	}
	bet.Paused = paused
	slog.Info("bet pause state changed", "bet", betID, "paused", paused)
	return nil
}

func (e *Engine) authorized(caller string) error {
	if caller != e.operator {
		return fmt.Errorf("%w: %s", domain.ErrNotOperator, caller)
	}
	return nil
}
