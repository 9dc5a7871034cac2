package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/parlaybot/internal/domain"
)

// recorder acumula los eventos emitidos por el engine.
type recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recorder) Emit(_ context.Context, ev domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) byType(t domain.EventType) []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Event
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func TestSettleOncePollsPendingLegs(t *testing.T) {
	f := newFixture(t, domain.DefaultParams())
	f.buyStandard(t, "alice")

	// Sin resultados todavía: dos piernas consultadas, nada madura.
	stats, err := f.eng.SettleOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CycleStats{OpenBets: 1, Polled: 2}, stats)
}

func TestSettleOnceMaturesBet(t *testing.T) {
	f := newFixture(t, domain.DefaultParams())
	rec := &recorder{}
	f.eng.deps.Events = rec
	bet := f.buyStandard(t, "alice")
	ctx := context.Background()

	f.venue.Resolve("m1", domain.Home)

	stats, err := f.eng.SettleOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Matured, "una pierna pendiente: aún no madura")

	f.venue.Resolve("m2", domain.Home)
	stats, err = f.eng.SettleOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Matured)
	assert.Equal(t, 1, stats.Polled, "la pierna ya confirmada no se vuelve a consultar")

	resolved := rec.byType(domain.EventBetResolved)
	require.Len(t, resolved, 1)
	assert.Equal(t, bet.ID, resolved[0].BetID)

	// Madurar no paga: el dueño aún debe ejercer.
	assert.Equal(t, domain.Fix(405), f.pool.Reserved(bet.ID))
	payout, err := f.eng.Exercise(ctx, bet.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.Fix(475), payout)
}

func TestSettleOnceLossMaturesWithPendingLeg(t *testing.T) {
	f := newFixture(t, domain.DefaultParams())
	f.buyStandard(t, "alice")

	// La pierna perdida corta el parlay aunque la otra siga pendiente.
	f.venue.Resolve("m1", domain.Away)

	stats, err := f.eng.SettleOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Matured)
}

func TestSettleOnceForcesExpiry(t *testing.T) {
	f := newFixture(t, domain.DefaultParams())
	rec := &recorder{}
	f.eng.deps.Events = rec
	advance := f.freezeTime(time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC))

	bet := f.buyStandard(t, "alice")
	ctx := context.Background()

	stats, err := f.eng.SettleOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Expired)

	advance(91 * 24 * time.Hour)
	stats, err = f.eng.SettleOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Expired)
	assert.Len(t, rec.byType(domain.EventBetExpired), 1)
	assert.True(t, f.pool.Reserved(bet.ID).IsZero())
	assert.Empty(t, f.eng.OpenBets())
}

func TestSettleOnceSkipsPausedForExpiry(t *testing.T) {
	f := newFixture(t, domain.DefaultParams())
	advance := f.freezeTime(time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC))

	bet := f.buyStandard(t, "alice")
	require.NoError(t, f.eng.PauseBet(testOperator, bet.ID))

	advance(91 * 24 * time.Hour)
	stats, err := f.eng.SettleOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Expired, "una apuesta pausada no se expira a la fuerza")
	assert.Len(t, f.eng.OpenBets(), 1)
}

func TestRunSettlementOnceMode(t *testing.T) {
	f := newFixture(t, domain.DefaultParams())
	f.buyStandard(t, "alice")
	f.venue.Resolve("m1", domain.Home)
	f.venue.Resolve("m2", domain.Home)

	require.NoError(t, f.eng.RunSettlement(context.Background(), time.Minute, true))
}

func TestRunSettlementStopsOnCancel(t *testing.T) {
	f := newFixture(t, domain.DefaultParams())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.eng.RunSettlement(ctx, 10*time.Millisecond, false) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("el loop de settlement no paró al cancelar el contexto")
	}
}
