package ports

import (
	"context"

	"github.com/holiman/uint256"

	"github.com/alejandrodnm/parlaybot/internal/domain"
)

// Venue is the single-leg market venue the engine prices against. All reads
// are advisory: the engine never calls the venue while holding its commit
// lock, and re-checks admission with previously read values at commit time.
type Venue interface {
	// MarketMeta returns the metadata (outcome count, tags, parent) for a market.
	MarketMeta(ctx context.Context, marketID string) (domain.Market, error)

	// LegOdds returns the isolated fixed-point price of one leg.
	// Zero means unavailable/ineligible.
	LegOdds(ctx context.Context, leg domain.Leg) (*uint256.Int, error)

	// MarketCap returns the venue's own per-market exposure cap. The engine
	// admits parlays only while exposure stays within twice this cap.
	MarketCap(ctx context.Context, marketID string) (*uint256.Int, error)

	// LegResult returns the current resolution of a leg from the bettor's
	// point of view: pending, won, lost or void.
	LegResult(ctx context.Context, leg domain.Leg) (domain.LegResult, error)
}
