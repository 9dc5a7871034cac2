package pricing

// sgptable.go — escalera de fees para same-game parlays.
//
// La calibración es data, no código: entradas disjuntas
// (categoría de línea, rango de odds del padre, rango de odds de la línea)
// → factor de ajuste, evaluadas en orden fijo — el primer match gana.
// Los breakpoints vienen calibrados contra datos históricos del venue y se
// preservan tal cual; no derivan de ningún modelo cerrado.
//
// El operador puede además fijar overrides exactos por
// (tag1, tagA, tagB, posición A, posición B), que tienen prioridad sobre la
// escalera.

import (
	"fmt"
	"os"
	"sync"

	"github.com/holiman/uint256"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/parlaybot/internal/domain"
)

// SGPEntry es una entrada compilada de la escalera. Los rangos son
// [Min, Max): inclusivo abajo, exclusivo arriba.
type SGPEntry struct {
	Line      string // categoría de la línea ("total", "spread", ...)
	ParentMin *uint256.Int
	ParentMax *uint256.Int
	LineMin   *uint256.Int
	LineMax   *uint256.Int
	Fee       *uint256.Int // factor sobre el precio de la línea; 1e18 = neutro
}

// sgpEntryYAML es el formato en disco: decimales en texto para no pasar por
// float64.
type sgpEntryYAML struct {
	Line      string `yaml:"line"`
	ParentMin string `yaml:"parent_min"`
	ParentMax string `yaml:"parent_max"`
	LineMin   string `yaml:"line_min"`
	LineMax   string `yaml:"line_max"`
	Fee       string `yaml:"fee"`
}

type sgpFileYAML struct {
	Entries []sgpEntryYAML `yaml:"entries"`
}

// SGPTable es la tabla de ajustes SGP: escalera calibrada + overrides del
// operador. Lecturas concurrentes; escrituras solo vía SetOverride.
type SGPTable struct {
	mu        sync.RWMutex
	entries   []SGPEntry
	overrides map[string]*uint256.Int
}

// NewSGPTable crea una tabla con las entradas dadas, en ese orden.
func NewSGPTable(entries []SGPEntry) *SGPTable {
	return &SGPTable{
		entries:   entries,
		overrides: make(map[string]*uint256.Int),
	}
}

// LoadSGPTable carga la escalera desde el archivo YAML de calibración.
func LoadSGPTable(path string) (*SGPTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pricing.LoadSGPTable: read %q: %w", path, err)
	}

	var file sgpFileYAML
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("pricing.LoadSGPTable: parse YAML: %w", err)
	}

	entries := make([]SGPEntry, 0, len(file.Entries))
	for i, e := range file.Entries {
		compiled, err := compileEntry(e)
		if err != nil {
			return nil, fmt.Errorf("pricing.LoadSGPTable: entry %d: %w", i, err)
		}
		entries = append(entries, compiled)
	}
	return NewSGPTable(entries), nil
}

// Fee devuelve el factor de ajuste para un par correlacionado.
// tagA/posA corresponden a la pierna padre, tagB/posB a la pierna de línea.
// Devuelve (fee, true) si hay override o entrada de escalera aplicable;
// (nil, false) si el par no es elegible para su categoría.
func (t *SGPTable) Fee(tag1, tagA, tagB string, posA, posB domain.Outcome, parentOdds, lineOdds *uint256.Int) (*uint256.Int, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if fee, ok := t.overrides[overrideKey(tag1, tagA, tagB, posA, posB)]; ok {
		return fee.Clone(), true
	}

	for _, e := range t.entries {
		if e.Line != tagB {
			continue
		}
		if inRange(parentOdds, e.ParentMin, e.ParentMax) && inRange(lineOdds, e.LineMin, e.LineMax) {
			return e.Fee.Clone(), true
		}
	}
	return nil, false
}

// SetOverride fija (o reemplaza) un override exacto del operador.
func (t *SGPTable) SetOverride(tag1, tagA, tagB string, posA, posB domain.Outcome, fee *uint256.Int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.overrides[overrideKey(tag1, tagA, tagB, posA, posB)] = fee.Clone()
}

// Len devuelve el número de entradas de la escalera.
func (t *SGPTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

func overrideKey(tag1, tagA, tagB string, posA, posB domain.Outcome) string {
	return fmt.Sprintf("%s|%s|%s|%d|%d", tag1, tagA, tagB, posA, posB)
}

// inRange comprueba min <= v < max.
func inRange(v, min, max *uint256.Int) bool {
	return !v.Lt(min) && v.Lt(max)
}

func compileEntry(e sgpEntryYAML) (SGPEntry, error) {
	out := SGPEntry{Line: e.Line}
	if e.Line == "" {
		return out, fmt.Errorf("missing line category")
	}

	var err error
	if out.ParentMin, err = domain.ParseFix(e.ParentMin); err != nil {
		return out, fmt.Errorf("parent_min: %w", err)
	}
	if out.ParentMax, err = domain.ParseFix(e.ParentMax); err != nil {
		return out, fmt.Errorf("parent_max: %w", err)
	}
	if out.LineMin, err = domain.ParseFix(e.LineMin); err != nil {
		return out, fmt.Errorf("line_min: %w", err)
	}
	if out.LineMax, err = domain.ParseFix(e.LineMax); err != nil {
		return out, fmt.Errorf("line_max: %w", err)
	}
	if out.Fee, err = domain.ParseFix(e.Fee); err != nil {
		return out, fmt.Errorf("fee: %w", err)
	}
	if !out.ParentMin.Lt(out.ParentMax) || !out.LineMin.Lt(out.LineMax) {
		return out, fmt.Errorf("empty odds range")
	}
	if out.Fee.IsZero() {
		return out, fmt.Errorf("zero fee factor")
	}
	return out, nil
}
