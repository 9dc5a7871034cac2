package ports

import (
	"context"

	"github.com/holiman/uint256"
)

// Ramp convierte entre el token de settlement y otros colaterales.
type Ramp interface {
	// ToSettlement convierte amount del asset dado (debitado de from) a
	// token de settlement depositado en el pool. Devuelve lo obtenido; si es
	// menor que lo requerido, el buy entero debe abortar.
	ToSettlement(ctx context.Context, from, asset string, amount *uint256.Int) (*uint256.Int, error)

	// FromSettlement convierte amount de settlement del pool al asset dado y
	// lo entrega a to. Devuelve lo entregado.
	FromSettlement(ctx context.Context, to, asset string, amount *uint256.Int) (*uint256.Int, error)
}
