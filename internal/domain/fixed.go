package domain

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// Todas las magnitudes monetarias y los precios se representan como enteros
// de punto fijo con base 1e18 (*uint256.Int). Mul/Div truncan hacia abajo,
// igual que la aritmética entera del venue — NO redondear: la paridad de
// precios depende de la truncación exacta.

// FixedDecimals es el número de decimales de la base de punto fijo.
const FixedDecimals = 18

const oneUnit uint64 = 1_000_000_000_000_000_000

// Unit es 1.0 en punto fijo (1e18). Tratar como constante: nunca mutar.
var Unit = uint256.NewInt(oneUnit)

// Fix construye un valor de punto fijo a partir de unidades enteras
// (Fix(100) = 100.0 = 100e18).
func Fix(units uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(units), Unit)
}

// MulFix multiplica dos valores de punto fijo: a*b/1e18, truncando.
func MulFix(a, b *uint256.Int) *uint256.Int {
	z := new(uint256.Int).Mul(a, b)
	return z.Div(z, Unit)
}

// DivFix divide dos valores de punto fijo: a*1e18/b, truncando.
// Devuelve 0 si b es 0.
func DivFix(a, b *uint256.Int) *uint256.Int {
	if b.IsZero() {
		return new(uint256.Int)
	}
	z := new(uint256.Int).Mul(a, Unit)
	return z.Div(z, b)
}

// AddFix devuelve a+b en un valor nuevo.
func AddFix(a, b *uint256.Int) *uint256.Int {
	return new(uint256.Int).Add(a, b)
}

// SubFix devuelve a-b en un valor nuevo, saturando en 0 si b > a.
func SubFix(a, b *uint256.Int) *uint256.Int {
	if b.Gt(a) {
		return new(uint256.Int)
	}
	return new(uint256.Int).Sub(a, b)
}

// MinFix devuelve el menor de a y b (copia).
func MinFix(a, b *uint256.Int) *uint256.Int {
	if a.Lt(b) {
		return a.Clone()
	}
	return b.Clone()
}

// MaxFix devuelve el mayor de a y b (copia).
func MaxFix(a, b *uint256.Int) *uint256.Int {
	if a.Gt(b) {
		return a.Clone()
	}
	return b.Clone()
}

// ParseFix parsea un decimal en texto ("0.25", "100", "1.5") a punto fijo.
// Máximo 18 decimales; más decimales es un error, no se trunca en silencio.
func ParseFix(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("domain.ParseFix: empty value")
	}

	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
	}
	if intPart == "" {
		intPart = "0"
	}
	if len(fracPart) > FixedDecimals {
		return nil, fmt.Errorf("domain.ParseFix: %q has more than %d decimals", s, FixedDecimals)
	}

	whole, err := uint256.FromDecimal(intPart)
	if err != nil {
		return nil, fmt.Errorf("domain.ParseFix: %q: %w", s, err)
	}
	z := new(uint256.Int).Mul(whole, Unit)

	if fracPart != "" {
		// Rellenar a 18 dígitos: "25" → 250000000000000000
		padded := fracPart + strings.Repeat("0", FixedDecimals-len(fracPart))
		frac, err := uint256.FromDecimal(padded)
		if err != nil {
			return nil, fmt.Errorf("domain.ParseFix: %q: %w", s, err)
		}
		z.Add(z, frac)
	}
	return z, nil
}

// MustFix es ParseFix que hace panic — solo para constantes y tests.
func MustFix(s string) *uint256.Int {
	v, err := ParseFix(s)
	if err != nil {
		panic(err)
	}
	return v
}

// FormatFix formatea un punto fijo como decimal, sin ceros finales.
func FormatFix(v *uint256.Int) string {
	whole := new(uint256.Int).Div(v, Unit)
	frac := new(uint256.Int).Mod(v, Unit)
	if frac.IsZero() {
		return whole.Dec()
	}
	fs := fmt.Sprintf("%018s", frac.Dec())
	fs = strings.TrimRight(fs, "0")
	return whole.Dec() + "." + fs
}
