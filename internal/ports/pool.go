package ports

import (
	"context"

	"github.com/holiman/uint256"
)

// CollateralPool custodia los fondos por apuesta. Cada operación es atómica;
// un error significa que no se movió nada.
type CollateralPool interface {
	// Collect cobra amount de la cuenta from hacia el pool.
	Collect(ctx context.Context, from string, amount *uint256.Int) error

	// Reserve aparta en el pool la amplificación (payout − netStake) de una
	// apuesta contra el payout futuro.
	Reserve(ctx context.Context, betID string, amount *uint256.Int) error

	// Release devuelve al pool la reserva de una apuesta (perdida, pagada o
	// expirada).
	Release(ctx context.Context, betID string) error

	// Pay paga amount desde el pool a la cuenta to.
	Pay(ctx context.Context, to string, amount *uint256.Int) error

	// Balance devuelve el balance libre actual del pool.
	Balance(ctx context.Context) (*uint256.Int, error)
}
