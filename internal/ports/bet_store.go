package ports

import (
	"context"

	"github.com/alejandrodnm/parlaybot/internal/domain"
	"github.com/alejandrodnm/parlaybot/internal/risk"
)

// BetStore persiste apuestas y el estado del risk ledger para sobrevivir
// reinicios. El engine funciona con store nil (tests, dry-run).
type BetStore interface {
	// SaveBet persiste una apuesta recién creada con sus piernas.
	SaveBet(ctx context.Context, bet *domain.ParlayBet) error

	// UpdateBet persiste el estado de settlement de una apuesta existente.
	UpdateBet(ctx context.Context, bet *domain.ParlayBet) error

	// LoadOpenBets devuelve todas las apuestas no resueltas.
	LoadOpenBets(ctx context.Context) ([]*domain.ParlayBet, error)

	// SaveLedger persiste el snapshot del risk ledger.
	SaveLedger(ctx context.Context, snap risk.Snapshot) error

	// LoadLedger carga el último snapshot persistido.
	LoadLedger(ctx context.Context) (risk.Snapshot, error)

	// Close cierra la conexión limpiamente.
	Close() error
}
