package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/parlaybot/internal/adapters/treasury"
	"github.com/alejandrodnm/parlaybot/internal/domain"
	"github.com/alejandrodnm/parlaybot/internal/pricing"
)

// sweepBlockedPool rechaza los pagos a una cuenta concreta; el resto del
// comportamiento es el del pool real.
type sweepBlockedPool struct {
	*treasury.Pool
	blocked string
}

func (p *sweepBlockedPool) Pay(ctx context.Context, to string, amount *uint256.Int) error {
	if p.blocked != "" && to == p.blocked {
		return errors.New("pay refused")
	}
	return p.Pool.Pay(ctx, to, amount)
}

func TestExpireSweepsToSafeBox(t *testing.T) {
	f := newFixture(t, domain.DefaultParams())
	advance := f.freezeTime(time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC))
	bet := f.buyStandard(t, "alice")
	ctx := context.Background()

	// Antes del plazo no se puede expirar.
	err := f.eng.Expire(ctx, bet.ID, testOperator)
	assert.ErrorIs(t, err, domain.ErrNotExpired)

	advance(90*24*time.Hour + time.Minute)
	require.NoError(t, f.eng.Expire(ctx, bet.ID, testOperator))

	// 5 de fees del buy + 95 de net stake barrido.
	assert.Equal(t, domain.Fix(100), f.pool.AccountBalance("safebox"))
	assert.True(t, f.pool.Reserved(bet.ID).IsZero())
	assert.Equal(t, domain.Fix(9_900), f.pool.AccountBalance("alice"), "el dueño no recupera nada")

	stored, err := f.eng.Bet(bet.ID)
	require.NoError(t, err)
	assert.True(t, stored.Resolved)
	assert.Equal(t, domain.PhaseExpiry, stored.Phase)

	// Repetir falla: ya resuelta.
	err = f.eng.Expire(ctx, bet.ID, testOperator)
	assert.ErrorIs(t, err, domain.ErrAlreadyResolved)
}

func TestExpireRollsBackOnSweepFailure(t *testing.T) {
	f := newFixture(t, domain.DefaultParams())
	advance := f.freezeTime(time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC))
	bet := f.buyStandard(t, "alice")
	ctx := context.Background()

	blocker := &sweepBlockedPool{Pool: f.pool, blocked: "safebox"}
	f.eng.deps.Pool = blocker

	advance(91 * 24 * time.Hour)
	err := f.eng.Expire(ctx, bet.ID, testOperator)
	require.Error(t, err)

	// Todo o nada: la apuesta reabierta en su fase previa y la reserva
	// restaurada, lista para reintentar.
	stored, err := f.eng.Bet(bet.ID)
	require.NoError(t, err)
	assert.False(t, stored.Resolved)
	assert.Equal(t, domain.PhaseTrading, stored.Phase)
	assert.Equal(t, domain.Fix(405), f.pool.Reserved(bet.ID))

	// Desbloqueado el pago, la expiración completa.
	blocker.blocked = ""
	require.NoError(t, f.eng.Expire(ctx, bet.ID, testOperator))
	assert.Equal(t, domain.Fix(100), f.pool.AccountBalance("safebox"))
	assert.True(t, f.pool.Reserved(bet.ID).IsZero())
}

func TestExpiredBetCannotBeExercised(t *testing.T) {
	f := newFixture(t, domain.DefaultParams())
	advance := f.freezeTime(time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC))
	bet := f.buyStandard(t, "alice")
	ctx := context.Background()

	f.venue.Resolve("m1", domain.Home)
	f.venue.Resolve("m2", domain.Home)

	advance(91 * 24 * time.Hour)
	require.NoError(t, f.eng.Expire(ctx, bet.ID, testOperator))

	// Tras la expiración el ejercicio es no-op: sin payout tardío.
	payout, err := f.eng.Exercise(ctx, bet.ID, "alice")
	require.NoError(t, err)
	assert.True(t, payout.IsZero())
}

func TestAdminRequiresOperator(t *testing.T) {
	f := newFixture(t, domain.DefaultParams())
	bet := f.buyStandard(t, "alice")
	ctx := context.Background()

	assert.ErrorIs(t, f.eng.Expire(ctx, bet.ID, "alice"), domain.ErrNotOperator)
	assert.ErrorIs(t, f.eng.SetParams(ctx, "alice", domain.DefaultParams()), domain.ErrNotOperator)
	assert.ErrorIs(t, f.eng.SetFeeOverride(ctx, "alice", "bob", domain.MustFix("0.01")), domain.ErrNotOperator)
	assert.ErrorIs(t, f.eng.SetSGPFee(ctx, "alice", "match-1", "", "total", domain.Home, domain.Over, domain.MustFix("1.1")), domain.ErrNotOperator)
	assert.ErrorIs(t, f.eng.PauseBet("alice", bet.ID), domain.ErrNotOperator)
	assert.ErrorIs(t, f.eng.ResumeBet("alice", bet.ID), domain.ErrNotOperator)
}

func TestSetParamsAppliesToNewQuotes(t *testing.T) {
	f := newFixture(t, domain.DefaultParams())
	ctx := context.Background()
	bet := f.buyStandard(t, "alice")

	params := domain.DefaultParams()
	params.SafeBoxFee = domain.MustFix("0.10")
	require.NoError(t, f.eng.SetParams(ctx, testOperator, params))

	quote, err := f.eng.Quote(ctx, "alice", pricing.Request{
		Markets:   []string{"m1", "m2"},
		Positions: []domain.Outcome{domain.Home, domain.Home},
		Stake:     domain.Fix(100),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.Fix(88), quote.NetStake)

	// Los términos de la apuesta ya comprada no se recalculan.
	stored, err := f.eng.Bet(bet.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Fix(95), stored.NetStake)
}

func TestSetSGPFeeOverridesLadder(t *testing.T) {
	f := newFixture(t, domain.DefaultParams())
	ctx := context.Background()

	// La escalera del fixture daría fee 1.25; el override exacto manda.
	require.NoError(t, f.eng.SetSGPFee(ctx, testOperator, "match-1", "", "total",
		domain.Home, domain.Over, domain.MustFix("1.5")))

	quote, err := f.eng.Quote(ctx, "alice", pricing.Request{
		Markets:   []string{"m1", "m1-total"},
		Positions: []domain.Outcome{domain.Home, domain.Over},
		Stake:     domain.Fix(100),
	})
	require.NoError(t, err)
	// Línea 0.4 × 1.5 = 0.6, combinado 0.5 × 0.6 = 0.3.
	assert.Equal(t, domain.MustFix("0.3"), quote.CombinedPrice)
}

func TestClearFeeOverride(t *testing.T) {
	f := newFixture(t, domain.DefaultParams())
	ctx := context.Background()
	req := pricing.Request{
		Markets:   []string{"m1", "m2"},
		Positions: []domain.Outcome{domain.Home, domain.Home},
		Stake:     domain.Fix(100),
	}

	require.NoError(t, f.eng.SetFeeOverride(ctx, testOperator, "alice", domain.MustFix("0.10")))
	quote, err := f.eng.Quote(ctx, "alice", req)
	require.NoError(t, err)
	assert.Equal(t, domain.Fix(87), quote.NetStake)

	require.NoError(t, f.eng.SetFeeOverride(ctx, testOperator, "alice", nil))
	quote, err = f.eng.Quote(ctx, "alice", req)
	require.NoError(t, err)
	assert.Equal(t, domain.Fix(95), quote.NetStake)
}

func TestPauseUnknownBet(t *testing.T) {
	f := newFixture(t, domain.DefaultParams())
	assert.ErrorIs(t, f.eng.PauseBet(testOperator, "nope"), domain.ErrUnknownBet)
}
