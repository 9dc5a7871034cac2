package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCorrelated(t *testing.T) {
	moneyline := Market{ID: "m1", OutcomeCount: 3, Tag1: "match-1"}
	total := Market{ID: "m1-total", OutcomeCount: 2, Tag1: "match-1", Tag2: "total", ParentID: "m1"}
	spread := Market{ID: "m1-spread", OutcomeCount: 2, Tag1: "match-1", Tag2: "spread", ParentID: "m1"}
	otherMatch := Market{ID: "m2", OutcomeCount: 3, Tag1: "match-2"}
	otherTotal := Market{ID: "m2-total", OutcomeCount: 2, Tag1: "match-2", Tag2: "total", ParentID: "m2"}
	orphanLine := Market{ID: "x-total", OutcomeCount: 2, Tag1: "match-1", Tag2: "total"}

	cases := []struct {
		name string
		a, b Market
		want bool
	}{
		{"padre e hija", moneyline, total, true},
		{"hija y padre", total, moneyline, true},
		{"líneas hermanas", total, spread, true},
		{"partidos distintos", moneyline, otherMatch, false},
		{"líneas de partidos distintos", total, otherTotal, false},
		{"mismo mercado literal", moneyline, moneyline, false},
		{"línea sin padre declarado", orphanLine, total, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Correlated(tc.a, tc.b))
		})
	}
}

func TestValidOutcome(t *testing.T) {
	ternary := Market{ID: "m", OutcomeCount: 3}
	assert.True(t, ternary.ValidOutcome(Home))
	assert.True(t, ternary.ValidOutcome(Draw))
	assert.False(t, ternary.ValidOutcome(3))

	binary := Market{ID: "l", OutcomeCount: 2, Tag2: "total"}
	assert.True(t, binary.ValidOutcome(Under))
	assert.False(t, binary.ValidOutcome(Draw))
}

func TestIsLine(t *testing.T) {
	assert.False(t, Market{ID: "m"}.IsLine())
	assert.True(t, Market{ID: "l", Tag2: "total"}.IsLine())
}
