package domain

import (
	"time"

	"github.com/holiman/uint256"
)

// Params son los parámetros de proceso del engine: fees, límites de tamaño
// y de riesgo. Solo el operador autorizado los cambia.
type Params struct {
	// ProtocolFee es la fracción del stake que cobra el protocolo (1e18).
	// Puede estar sobreescrita por dirección (ver overrides del engine).
	ProtocolFee *uint256.Int
	// SafeBoxFee es la fracción del stake que va al safe box.
	SafeBoxFee *uint256.Int
	// ReferralShare es la fracción del protocol fee que se paga al referrer.
	ReferralShare *uint256.Int

	MinStake *uint256.Int
	MaxStake *uint256.Int
	MinLegs  int
	MaxLegs  int

	// FloorPrice es el precio combinado mínimo soportado por la plataforma;
	// acota el multiplicador máximo de payout.
	FloorPrice *uint256.Int
	// MaxSupportedAmount acota (payout basis − stake) por apuesta.
	MaxSupportedAmount *uint256.Int
	// MaxComboExposure acota la amplificación agregada por combinación
	// exacta de mercados.
	MaxComboExposure *uint256.Int

	// SettlementWindow es el plazo desde la compra hasta que la apuesta
	// puede ser expirada a la fuerza.
	SettlementWindow time.Duration

	// SafeBox es la cuenta que recibe fees y los fondos barridos.
	SafeBox string
}

// DefaultParams devuelve parámetros razonables para tests y dry-run.
func DefaultParams() Params {
	return Params{
		ProtocolFee:        MustFix("0.02"),
		SafeBoxFee:         MustFix("0.03"),
		ReferralShare:      MustFix("0.25"),
		MinStake:           Fix(10),
		MaxStake:           Fix(10_000),
		MinLegs:            2,
		MaxLegs:            10,
		FloorPrice:         MustFix("0.001"),
		MaxSupportedAmount: Fix(20_000),
		MaxComboExposure:   Fix(50_000),
		SettlementWindow:   90 * 24 * time.Hour,
		SafeBox:            "safebox",
	}
}
