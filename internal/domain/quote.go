package domain

import "github.com/holiman/uint256"

// Quote es el resultado del QuoteEngine para un parlay candidato.
// Es puramente informativa: no reserva capacidad ni congela precios.
type Quote struct {
	Stake    *uint256.Int
	NetStake *uint256.Int // stake * (1 − safeBoxFee − protocolFee)

	// CombinedPrice es el producto de los precios ajustados por pierna,
	// ya con el floor global aplicado.
	CombinedPrice *uint256.Int
	// PerLegPrices son los precios ajustados de cada pierna (tras SGP).
	PerLegPrices []*uint256.Int
	// PerLegAmounts es netStake / precio de cada pierna: la contabilidad
	// por pierna que luego prueba la corrección del exercise.
	PerLegAmounts []*uint256.Int
	// PerLegCaps son los caps por mercado del venue leídos al cotizar; el
	// buy los reutiliza en el commit para no llamar al venue bajo el lock.
	PerLegCaps []*uint256.Int

	PayoutBasis   *uint256.Int // stake / combinedPrice
	Amplification *uint256.Int // payoutBasis − netStake: lo que reserva el pool

	// Admissible indica si la cuota pasa los checks de capacidad de riesgo.
	// Si es false, Reason lleva el sentinel de admisión correspondiente.
	Admissible bool
	Reason     error
}
