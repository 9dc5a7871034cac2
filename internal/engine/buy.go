package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"github.com/alejandrodnm/parlaybot/internal/domain"
	"github.com/alejandrodnm/parlaybot/internal/pricing"
)

// bpsUnit es 1 basis point en punto fijo (1e18 / 10_000).
var bpsUnit = uint256.NewInt(100_000_000_000_000)

// BuyRequest es una orden de compra de un parlay.
type BuyRequest struct {
	Markets   []string
	Positions []domain.Outcome
	Stake     *uint256.Int

	// ExpectedPayout es el payout basis que el comprador vio al cotizar;
	// SlippageBps acota cuánto puede haber caído el basis real. Un basis por
	// encima del esperado también aborta: el precio ya no es el cotizado.
	// ExpectedPayout nil desactiva el check.
	ExpectedPayout *uint256.Int
	SlippageBps    uint64

	// Caller paga; Recipient (o Caller si está vacío) es el dueño de la
	// apuesta y quien cobra el payout.
	Caller    string
	Recipient string

	// Referrer opcional: se registra en el primer buy y cobra una fracción
	// del protocol fee en cada compra posterior.
	Referrer string

	// CollateralAsset distinto de vacío compra con otro colateral, convertido
	// a token de settlement vía el ramp.
	CollateralAsset string
}

// Buy ejecuta la compra de un parlay de principio a fin: cotiza, cobra,
// commitea exposición, reserva el payout y liquida fees. Todo o nada: si
// cualquier paso falla, los anteriores se deshacen en orden inverso y el
// error sale sin estado parcial.
func (e *Engine) Buy(ctx context.Context, req BuyRequest) (*domain.ParlayBet, error) {
	params, fee := e.paramsAndFee(req.Caller)

	quoteReq := pricing.Request{Markets: req.Markets, Positions: req.Positions, Stake: req.Stake}
	quote, err := e.quoter.Quote(ctx, quoteReq, params, fee)
	if err != nil {
		return nil, err
	}
	if !quote.Admissible {
		return nil, quote.Reason
	}
	if err := checkSlippage(quote.PayoutBasis, req.ExpectedPayout, req.SlippageBps); err != nil {
		return nil, err
	}

	legs, err := quoteReq.Legs()
	if err != nil {
		return nil, err
	}

	// Pila de deshacer: cada paso comprometido registra su inverso.
	var undo []func()
	rollback := func() {
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
	}

	// 1. Cobro del stake (con conversión de colateral si aplica).
	if err := e.collectStake(ctx, req, quote.Stake); err != nil {
		return nil, err
	}
	undo = append(undo, func() {
		if err := e.deps.Pool.Pay(ctx, req.Caller, quote.Stake); err != nil {
			slog.Error("rollback: stake refund failed", "account", req.Caller, "err", err)
		}
	})

	// 2. Commit atómico de exposición. El ledger re-valida los caps leídos al
	// cotizar bajo su propio mutex.
	incs := pricing.ExposureIncs(legs, quote)
	combo := pricing.ComboInc(legs, quote, params)
	if err := e.ledger.Commit(incs, combo); err != nil {
		rollback()
		return nil, err
	}
	undo = append(undo, func() { e.ledger.Revert(incs, combo) })

	// 3. Crear la apuesta y reservar su amplificación contra el payout.
	bet := e.newBet(req, quote, params)
	if err := e.deps.Pool.Reserve(ctx, bet.ID, quote.Amplification); err != nil {
		rollback()
		return nil, fmt.Errorf("engine.Buy: reserve: %w", err)
	}
	undo = append(undo, func() {
		if err := e.deps.Pool.Release(ctx, bet.ID); err != nil {
			slog.Error("rollback: release failed", "bet", bet.ID, "err", err)
		}
	})

	// 4. Liquidar fees: safe box + protocolo, con la cuota del referrer
	// descontada del protocol fee.
	if err := e.settleFees(ctx, req, quote, params, fee, bet.ID); err != nil {
		rollback()
		return nil, err
	}

	e.mu.Lock()
	e.bets[bet.ID] = bet
	e.mu.Unlock()

	e.persist(ctx, bet, true)
	e.emit(ctx, domain.Event{
		Type:    domain.EventBetCreated,
		At:      bet.CreatedAt,
		BetID:   bet.ID,
		Account: bet.Owner,
		Amount:  bet.Stake,
		Detail:  fmt.Sprintf("%d legs, combined price %s", len(bet.Legs), domain.FormatFix(bet.CombinedPrice)),
	})

	slog.Info("bet created",
		"bet", bet.ID,
		"owner", bet.Owner,
		"legs", len(bet.Legs),
		"stake", domain.FormatFix(bet.Stake),
		"payout_basis", domain.FormatFix(bet.PayoutBasis),
	)
	return bet.Clone(), nil
}

// collectStake cobra el stake al caller, convirtiendo desde otro colateral si
// la orden lo pide. Una conversión que rinde menos del stake requerido aborta
// la compra y devuelve lo convertido.
func (e *Engine) collectStake(ctx context.Context, req BuyRequest, stake *uint256.Int) error {
	if req.CollateralAsset == "" {
		if err := e.deps.Pool.Collect(ctx, req.Caller, stake); err != nil {
			return fmt.Errorf("engine.Buy: collect stake: %w", err)
		}
		return nil
	}

	if e.deps.Ramp == nil {
		return fmt.Errorf("engine.Buy: no ramp configured for asset %s", req.CollateralAsset)
	}
	got, err := e.deps.Ramp.ToSettlement(ctx, req.Caller, req.CollateralAsset, stake)
	if err != nil {
		return fmt.Errorf("engine.Buy: convert %s: %w", req.CollateralAsset, err)
	}
	if got.Lt(stake) {
		if err := e.deps.Pool.Pay(ctx, req.Caller, got); err != nil {
			slog.Error("conversion refund failed", "account", req.Caller, "err", err)
		}
		return fmt.Errorf("%w: got %s, need %s", domain.ErrConversionShortfall,
			domain.FormatFix(got), domain.FormatFix(stake))
	}
	// El excedente de la conversión también se devuelve.
	if got.Gt(stake) {
		excess := domain.SubFix(got, stake)
		if err := e.deps.Pool.Pay(ctx, req.Caller, excess); err != nil {
			slog.Warn("conversion excess refund failed", "account", req.Caller, "err", err)
		}
	}
	return nil
}

// settleFees paga el safe box fee y el protocol fee desde el pool. Si el
// caller tiene referrer registrado (o registra uno en esta compra), el
// referrer cobra su fracción del protocol fee y el resto va al safe box.
func (e *Engine) settleFees(ctx context.Context, req BuyRequest, quote domain.Quote, params domain.Params, protocolFee *uint256.Int, betID string) error {
	safeBoxAmt := domain.MulFix(quote.Stake, params.SafeBoxFee)
	protocolAmt := domain.MulFix(quote.Stake, protocolFee)

	referrer := e.resolveReferrer(ctx, req.Caller, req.Referrer)
	referralAmt := new(uint256.Int)
	if referrer != "" {
		referralAmt = domain.MulFix(protocolAmt, params.ReferralShare)
	}

	houseAmt := domain.SubFix(domain.AddFix(safeBoxAmt, protocolAmt), referralAmt)
	if !houseAmt.IsZero() {
		if err := e.deps.Pool.Pay(ctx, params.SafeBox, houseAmt); err != nil {
			return fmt.Errorf("engine.Buy: pay safe box: %w", err)
		}
	}
	if !referralAmt.IsZero() {
		if err := e.deps.Pool.Pay(ctx, referrer, referralAmt); err != nil {
			// Deshacer el pago al safe box para mantener el todo-o-nada.
			if perr := e.deps.Pool.Collect(ctx, params.SafeBox, houseAmt); perr != nil {
				slog.Error("rollback: safe box clawback failed", "err", perr)
			}
			return fmt.Errorf("engine.Buy: pay referrer: %w", err)
		}
		e.emit(ctx, domain.Event{
			Type:    domain.EventReferrerPaid,
			At:      e.now(),
			BetID:   betID,
			Account: referrer,
			Amount:  referralAmt,
		})
	}

	e.emit(ctx, domain.Event{
		Type:    domain.EventFeeSettled,
		At:      e.now(),
		BetID:   betID,
		Account: params.SafeBox,
		Amount:  houseAmt,
	})
	return nil
}

// resolveReferrer registra el referrer de la orden (el primero gana) y
// devuelve el efectivo para esta compra.
func (e *Engine) resolveReferrer(ctx context.Context, caller, requested string) string {
	if e.deps.Referrals == nil {
		return ""
	}
	if requested != "" && requested != caller {
		if err := e.deps.Referrals.Record(ctx, caller, requested); err != nil {
			slog.Warn("referrer registration failed", "bettor", caller, "err", err)
		}
	}
	referrer, err := e.deps.Referrals.ReferrerOf(ctx, caller)
	if err != nil {
		slog.Warn("referrer lookup failed", "bettor", caller, "err", err)
		return ""
	}
	if referrer == caller {
		return ""
	}
	return referrer
}

// newBet materializa la apuesta a partir de la cuota, con los precios por
// pierna congelados.
func (e *Engine) newBet(req BuyRequest, quote domain.Quote, params domain.Params) *domain.ParlayBet {
	owner := req.Recipient
	if owner == "" {
		owner = req.Caller
	}
	now := e.now()

	legs := make([]domain.BetLeg, len(req.Markets))
	for i := range req.Markets {
		legs[i] = domain.BetLeg{
			Leg:    domain.Leg{MarketID: req.Markets[i], Outcome: req.Positions[i]},
			Price:  quote.PerLegPrices[i].Clone(),
			Result: domain.ResultPending,
		}
	}

	return &domain.ParlayBet{
		ID:            uuid.NewString(),
		Owner:         owner,
		Legs:          legs,
		Stake:         quote.Stake.Clone(),
		NetStake:      quote.NetStake.Clone(),
		PayoutBasis:   quote.PayoutBasis.Clone(),
		CombinedPrice: quote.CombinedPrice.Clone(),
		CreatedAt:     now,
		ExpiresAt:     now.Add(params.SettlementWindow),
		Phase:         domain.PhaseTrading,
	}
}

// checkSlippage valida que el payout basis cotizado siga dentro de la banda
// esperada: expected/basis debe quedar en [1, 1+slippage]. Un basis por
// debajo de expected/(1+slippage) es deriva en contra; uno por ENCIMA de
// expected delata que el precio ya no es el que el comprador cotizó, y
// también aborta.
func checkSlippage(basis, expected *uint256.Int, slippageBps uint64) error {
	if expected == nil || expected.IsZero() {
		return nil
	}
	div := domain.AddFix(domain.Unit, new(uint256.Int).Mul(uint256.NewInt(slippageBps), bpsUnit))
	minBasis := domain.DivFix(expected, div)
	if basis.Gt(expected) || basis.Lt(minBasis) {
		return fmt.Errorf("%w: basis %s outside [%s, %s]", domain.ErrSlippageExceeded,
			domain.FormatFix(basis), domain.FormatFix(minBasis), domain.FormatFix(expected))
	}
	return nil
}
