package domain

import "errors"

// Taxonomía de errores del engine. Los llamadores distinguen clases con
// errors.Is; el engine garantiza que ningún error deja estado parcial.

// Errores de validación: la petición está mal formada o viola reglas
// estáticas. Rechazo síncrono, sin cambio de estado.
var (
	ErrLengthMismatch  = errors.New("legs and positions length mismatch")
	ErrParlaySize      = errors.New("parlay size outside configured bounds")
	ErrDuplicateMarket = errors.New("duplicate market in parlay")
	ErrInvalidOutcome  = errors.New("outcome index out of range")
	ErrStakeTooLow     = errors.New("stake below configured minimum")
	ErrStakeTooHigh    = errors.New("stake above configured maximum")
)

// Errores de admisión: la petición es válida pero excede la capacidad de
// riesgo actual. El llamador puede reintentar con menos stake.
var (
	ErrBelowFloor        = errors.New("combined price below platform floor")
	ErrMarketCapExceeded = errors.New("per-market exposure cap exceeded")
	ErrComboCapExceeded  = errors.New("combination exposure cap exceeded")
	ErrPayoutTooLarge    = errors.New("amplification above max supported amount")
	ErrSlippageExceeded  = errors.New("payout outside slippage tolerance")
	ErrLegUnavailable    = errors.New("leg price unavailable")
	ErrIneligiblePairing = errors.New("correlated pair ineligible for parlay")
)

// Errores de estado de mercado: referencia a apuestas en el estado incorrecto.
var (
	ErrUnknownBet      = errors.New("unknown bet id")
	ErrNotResolvable   = errors.New("bet not resolvable yet")
	ErrAlreadyResolved = errors.New("bet already resolved")
	ErrNotExpired      = errors.New("bet still within its deadline")
	ErrBetPaused       = errors.New("bet is paused")
)

// Errores de autorización y dependencias externas.
var (
	ErrNotOwner            = errors.New("caller is not the bet owner")
	ErrNotOperator         = errors.New("caller is not an authorized operator")
	ErrConversionShortfall = errors.New("collateral conversion returned less than required")
)
