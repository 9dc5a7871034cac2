package notify

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/parlaybot/internal/domain"
)

func testBet(id string) *domain.ParlayBet {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	return &domain.ParlayBet{
		ID:    id,
		Owner: "alice",
		Legs: []domain.BetLeg{
			{Leg: domain.Leg{MarketID: "m1", Outcome: domain.Home}, Price: domain.MustFix("0.5"), Result: domain.ResultWon},
			{Leg: domain.Leg{MarketID: "m2", Outcome: domain.Home}, Price: domain.MustFix("0.4"), Result: domain.ResultPending},
		},
		Stake:         domain.Fix(100),
		NetStake:      domain.Fix(95),
		PayoutBasis:   domain.Fix(500),
		CombinedPrice: domain.MustFix("0.2"),
		CreatedAt:     now,
		ExpiresAt:     now.Add(90 * 24 * time.Hour),
		Phase:         domain.PhaseTrading,
	}
}

func TestEmitFormatsEvent(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf, false)

	err := c.Emit(context.Background(), domain.Event{
		Type:    domain.EventBetCreated,
		At:      time.Date(2026, 1, 10, 12, 30, 45, 0, time.UTC),
		BetID:   "0123456789abcdef",
		Account: "alice",
		Amount:  domain.Fix(100),
		Detail:  "2 legs",
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "[12:30:45]")
	assert.Contains(t, out, "bet=01234567", "el id se acorta a 8 caracteres")
	assert.Contains(t, out, "account=alice")
	assert.Contains(t, out, "amount=100")
	assert.Contains(t, out, "(2 legs)")
}

func TestEmitOmitsEmptyFields(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf, false)

	err := c.Emit(context.Background(), domain.Event{
		Type: domain.EventParametersChanged,
		At:   time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	out := buf.String()
	assert.NotContains(t, out, "bet=")
	assert.NotContains(t, out, "account=")
	assert.NotContains(t, out, "amount=")
}

func TestPrintBetsCompact(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf, false)

	mature := testBet("bet-mature")
	mature.Phase = domain.PhaseMaturity
	c.PrintBets([]*domain.ParlayBet{testBet("bet-trading"), mature})

	out := buf.String()
	assert.Contains(t, out, "2 open bets")
	assert.Contains(t, out, "trading:1 maturity:1")
	assert.Contains(t, out, "stake:100")
}

func TestPrintBetsTable(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf, true)

	c.PrintBets([]*domain.ParlayBet{testBet("0123456789abcdef")})

	out := buf.String()
	assert.Contains(t, out, "1 open bets")
	assert.Contains(t, out, "01234567")
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "2 (1 ok)", "piernas con una resuelta")
	assert.Contains(t, out, "500")
}

func TestPrintBetsEmpty(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf, true)

	c.PrintBets(nil)
	assert.Contains(t, buf.String(), "no open bets")
}
