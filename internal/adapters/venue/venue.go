package venue

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/holiman/uint256"

	"github.com/alejandrodnm/parlaybot/internal/domain"
	"github.com/alejandrodnm/parlaybot/internal/ports"
)

// HTTP implementa ports.Venue contra el API JSON del venue. Los precios
// llegan como decimales en texto y se parsean a punto fijo sin pasar por
// float64.
type HTTP struct {
	client *Client
}

var _ ports.Venue = (*HTTP)(nil)

// NewHTTP crea el adaptador sobre el client dado.
func NewHTTP(client *Client) *HTTP {
	return &HTTP{client: client}
}

// marketDTO es la respuesta de /markets/{id}.
type marketDTO struct {
	ID           string `json:"id"`
	OutcomeCount uint8  `json:"outcome_count"`
	Tag1         string `json:"tag1"`
	Tag2         string `json:"tag2"`
	ParentID     string `json:"parent_id"`
}

// oddsDTO es la respuesta de /markets/{id}/odds.
type oddsDTO struct {
	Odds string `json:"odds"`
}

// capDTO es la respuesta de /markets/{id}/cap.
type capDTO struct {
	Cap string `json:"cap"`
}

// resultDTO es la respuesta de /markets/{id}/result.
type resultDTO struct {
	Status string `json:"status"` // pending | won | lost | void
}

func (v *HTTP) MarketMeta(ctx context.Context, marketID string) (domain.Market, error) {
	var dto marketDTO
	if err := v.client.get(ctx, v.client.metaLimiter, "/markets/"+url.PathEscape(marketID), nil, &dto); err != nil {
		return domain.Market{}, fmt.Errorf("venue.MarketMeta: %s: %w", marketID, err)
	}
	return domain.Market{
		ID:           dto.ID,
		OutcomeCount: dto.OutcomeCount,
		Tag1:         dto.Tag1,
		Tag2:         dto.Tag2,
		ParentID:     dto.ParentID,
	}, nil
}

func (v *HTTP) LegOdds(ctx context.Context, leg domain.Leg) (*uint256.Int, error) {
	var dto oddsDTO
	q := url.Values{"outcome": {strconv.Itoa(int(leg.Outcome))}}
	err := v.client.get(ctx, v.client.oddsLimiter, "/markets/"+url.PathEscape(leg.MarketID)+"/odds", q, &dto)
	if err != nil {
		return nil, fmt.Errorf("venue.LegOdds: %s: %w", leg.MarketID, err)
	}
	odds, err := domain.ParseFix(dto.Odds)
	if err != nil {
		return nil, fmt.Errorf("venue.LegOdds: %s: odds %q: %w", leg.MarketID, dto.Odds, err)
	}
	return odds, nil
}

func (v *HTTP) MarketCap(ctx context.Context, marketID string) (*uint256.Int, error) {
	var dto capDTO
	err := v.client.get(ctx, v.client.metaLimiter, "/markets/"+url.PathEscape(marketID)+"/cap", nil, &dto)
	if err != nil {
		return nil, fmt.Errorf("venue.MarketCap: %s: %w", marketID, err)
	}
	cap, err := domain.ParseFix(dto.Cap)
	if err != nil {
		return nil, fmt.Errorf("venue.MarketCap: %s: cap %q: %w", marketID, dto.Cap, err)
	}
	return cap, nil
}

func (v *HTTP) LegResult(ctx context.Context, leg domain.Leg) (domain.LegResult, error) {
	var dto resultDTO
	q := url.Values{"outcome": {strconv.Itoa(int(leg.Outcome))}}
	err := v.client.get(ctx, v.client.oddsLimiter, "/markets/"+url.PathEscape(leg.MarketID)+"/result", q, &dto)
	if err != nil {
		return domain.ResultPending, fmt.Errorf("venue.LegResult: %s: %w", leg.MarketID, err)
	}
	switch dto.Status {
	case "won":
		return domain.ResultWon, nil
	case "lost":
		return domain.ResultLost, nil
	case "void":
		return domain.ResultVoid, nil
	case "pending", "":
		return domain.ResultPending, nil
	default:
		return domain.ResultPending, fmt.Errorf("venue.LegResult: %s: unknown status %q", leg.MarketID, dto.Status)
	}
}
