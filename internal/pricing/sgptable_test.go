package pricing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/parlaybot/internal/domain"
)

func ladderEntry(line, pMin, pMax, lMin, lMax, fee string) SGPEntry {
	return SGPEntry{
		Line:      line,
		ParentMin: domain.MustFix(pMin),
		ParentMax: domain.MustFix(pMax),
		LineMin:   domain.MustFix(lMin),
		LineMax:   domain.MustFix(lMax),
		Fee:       domain.MustFix(fee),
	}
}

func TestSGPTableFirstMatchWins(t *testing.T) {
	// Dos entradas solapadas: debe ganar la primera en orden de archivo.
	table := NewSGPTable([]SGPEntry{
		ladderEntry("total", "0.4", "0.6", "0.3", "0.5", "1.25"),
		ladderEntry("total", "0", "1", "0", "1", "2.0"),
	})

	fee, ok := table.Fee("match-1", "", "total", domain.Home, domain.Over,
		domain.MustFix("0.5"), domain.MustFix("0.4"))
	require.True(t, ok)
	assert.Equal(t, domain.MustFix("1.25"), fee)

	// Fuera del rango de la primera entrada cae en la segunda.
	fee, ok = table.Fee("match-1", "", "total", domain.Home, domain.Over,
		domain.MustFix("0.9"), domain.MustFix("0.4"))
	require.True(t, ok)
	assert.Equal(t, domain.MustFix("2.0"), fee)
}

func TestSGPTableRangesAreHalfOpen(t *testing.T) {
	table := NewSGPTable([]SGPEntry{
		ladderEntry("total", "0.4", "0.6", "0.3", "0.5", "1.25"),
	})

	// Límite inferior inclusivo.
	_, ok := table.Fee("m", "", "total", domain.Home, domain.Over,
		domain.MustFix("0.4"), domain.MustFix("0.3"))
	assert.True(t, ok)

	// Límite superior exclusivo.
	_, ok = table.Fee("m", "", "total", domain.Home, domain.Over,
		domain.MustFix("0.6"), domain.MustFix("0.3"))
	assert.False(t, ok)
}

func TestSGPTableNoEntryMeansIneligible(t *testing.T) {
	table := NewSGPTable([]SGPEntry{
		ladderEntry("total", "0", "1", "0", "1", "1.1"),
	})

	_, ok := table.Fee("m", "", "spread", domain.Home, domain.Over,
		domain.MustFix("0.5"), domain.MustFix("0.4"))
	assert.False(t, ok, "categoría sin entrada en la escalera")
}

func TestSGPTableOverrideTakesPriority(t *testing.T) {
	table := NewSGPTable([]SGPEntry{
		ladderEntry("total", "0", "1", "0", "1", "1.1"),
	})
	table.SetOverride("match-1", "", "total", domain.Home, domain.Over, domain.MustFix("1.5"))

	fee, ok := table.Fee("match-1", "", "total", domain.Home, domain.Over,
		domain.MustFix("0.5"), domain.MustFix("0.4"))
	require.True(t, ok)
	assert.Equal(t, domain.MustFix("1.5"), fee)

	// El override es exacto por posiciones: otra posición usa la escalera.
	fee, ok = table.Fee("match-1", "", "total", domain.Home, domain.Under,
		domain.MustFix("0.5"), domain.MustFix("0.4"))
	require.True(t, ok)
	assert.Equal(t, domain.MustFix("1.1"), fee)
}

func TestLoadSGPTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sgp.yaml")
	data := `entries:
  - line: total
    parent_min: "0.4"
    parent_max: "0.6"
    line_min: "0.3"
    line_max: "0.5"
    fee: "1.25"
  - line: spread
    parent_min: "0"
    parent_max: "1"
    line_min: "0"
    line_max: "1"
    fee: "1.05"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	table, err := LoadSGPTable(path)
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())

	fee, ok := table.Fee("m", "", "spread", domain.Home, domain.Over,
		domain.MustFix("0.7"), domain.MustFix("0.2"))
	require.True(t, ok)
	assert.Equal(t, domain.MustFix("1.05"), fee)
}

func TestLoadSGPTableRejectsBadEntries(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"rango vacío", `entries:
  - {line: total, parent_min: "0.6", parent_max: "0.4", line_min: "0", line_max: "1", fee: "1.1"}`},
		{"fee cero", `entries:
  - {line: total, parent_min: "0", parent_max: "1", line_min: "0", line_max: "1", fee: "0"}`},
		{"sin categoría", `entries:
  - {line: "", parent_min: "0", parent_max: "1", line_min: "0", line_max: "1", fee: "1.1"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "sgp.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.yaml), 0o644))
			_, err := LoadSGPTable(path)
			assert.Error(t, err)
		})
	}
}
