package venue

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/parlaybot/internal/domain"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *HTTP {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTP(NewClient(srv.URL))
}

func TestMarketMeta(t *testing.T) {
	v := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets/m1-total", r.URL.Path)
		w.Write([]byte(`{"id":"m1-total","outcome_count":2,"tag1":"match-1","tag2":"total","parent_id":"m1"}`))
	})

	m, err := v.MarketMeta(context.Background(), "m1-total")
	require.NoError(t, err)
	assert.Equal(t, domain.Market{
		ID: "m1-total", OutcomeCount: 2, Tag1: "match-1", Tag2: "total", ParentID: "m1",
	}, m)
}

func TestLegOdds(t *testing.T) {
	v := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets/m1/odds", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("outcome"))
		w.Write([]byte(`{"odds":"0.35"}`))
	})

	odds, err := v.LegOdds(context.Background(), domain.Leg{MarketID: "m1", Outcome: domain.Away})
	require.NoError(t, err)
	assert.Equal(t, domain.MustFix("0.35"), odds)
}

func TestLegOddsBadDecimal(t *testing.T) {
	v := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"odds":"not-a-number"}`))
	})

	_, err := v.LegOdds(context.Background(), domain.Leg{MarketID: "m1", Outcome: domain.Home})
	assert.Error(t, err)
}

func TestMarketCap(t *testing.T) {
	v := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets/m1/cap", r.URL.Path)
		w.Write([]byte(`{"cap":"1000000"}`))
	})

	cap, err := v.MarketCap(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, domain.Fix(1_000_000), cap)
}

func TestLegResultStatuses(t *testing.T) {
	cases := []struct {
		status string
		want   domain.LegResult
	}{
		{"won", domain.ResultWon},
		{"lost", domain.ResultLost},
		{"void", domain.ResultVoid},
		{"pending", domain.ResultPending},
		{"", domain.ResultPending},
	}
	for _, tc := range cases {
		t.Run("status "+tc.status, func(t *testing.T) {
			v := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"status":"` + tc.status + `"}`))
			})
			r, err := v.LegResult(context.Background(), domain.Leg{MarketID: "m1", Outcome: domain.Home})
			require.NoError(t, err)
			assert.Equal(t, tc.want, r)
		})
	}
}

func TestLegResultUnknownStatus(t *testing.T) {
	v := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"postponed"}`))
	})

	_, err := v.LegResult(context.Background(), domain.Leg{MarketID: "m1", Outcome: domain.Home})
	assert.Error(t, err)
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	v := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"cap":"100"}`))
	})

	cap, err := v.MarketCap(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, domain.Fix(100), cap)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	v := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "no such market", http.StatusNotFound)
	})

	_, err := v.MarketCap(context.Background(), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such market")
	assert.Equal(t, int32(1), calls.Load())
}
