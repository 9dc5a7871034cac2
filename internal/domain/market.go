package domain

// Outcome es el índice de la posición elegida dentro de un mercado.
// Los mercados ternarios usan Home/Away/Draw; los de línea usan Over/Under.
type Outcome uint8

const (
	Home Outcome = 0
	Away Outcome = 1
	Draw Outcome = 2
)

const (
	Over  Outcome = 0
	Under Outcome = 1
)

// Market son los metadatos de un mercado individual del venue.
type Market struct {
	ID           string
	OutcomeCount uint8
	// Tag1 es la categoría primaria: identifica el partido/evento subyacente.
	Tag1 string
	// Tag2 es la categoría secundaria de línea ("total", "spread", ...).
	// Vacío para el mercado principal (moneyline).
	Tag2 string
	// ParentID es el mercado padre del que se deriva esta línea, si aplica.
	ParentID string
}

// IsLine devuelve true si el mercado es una línea derivada (lleva Tag2).
func (m Market) IsLine() bool {
	return m.Tag2 != ""
}

// ValidOutcome devuelve true si el índice de posición existe en este mercado.
func (m Market) ValidOutcome(o Outcome) bool {
	return uint8(o) < m.OutcomeCount
}

// Correlated detecta si dos mercados pertenecen al mismo partido y forman un
// par SGP: misma categoría primaria Y (uno es hijo estructural del otro, o
// ambos son líneas que comparten el mismo padre).
// Dos referencias al mismo mercado literal NO son un par correlacionado —
// se rechazan antes como parlay inválido.
func Correlated(a, b Market) bool {
	if a.ID == b.ID || a.Tag1 != b.Tag1 {
		return false
	}
	if a.ParentID == b.ID || b.ParentID == a.ID {
		return true
	}
	return a.IsLine() && b.IsLine() && a.ParentID != "" && a.ParentID == b.ParentID
}

// Leg es una pierna de un parlay: (mercado, posición elegida).
type Leg struct {
	MarketID string
	Outcome  Outcome
}

// LegResult es el resultado de una pierna según el venue.
type LegResult int8

const (
	ResultPending LegResult = iota // el venue aún no confirmó el resultado
	ResultWon                      // la posición elegida ganó
	ResultLost                     // la posición elegida perdió
	ResultVoid                     // mercado anulado: la pierna pasa como ganada a cuota 1
)

func (r LegResult) String() string {
	switch r {
	case ResultWon:
		return "WON"
	case ResultLost:
		return "LOST"
	case ResultVoid:
		return "VOID"
	default:
		return "PENDING"
	}
}
