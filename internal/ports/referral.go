package ports

import "context"

// ReferralLedger registra relaciones bettor → referrer. El pago de la cuota
// de referido lo hace el engine vía CollateralPool.
type ReferralLedger interface {
	// ReferrerOf devuelve el referrer registrado para bettor, o "" si no hay.
	ReferrerOf(ctx context.Context, bettor string) (string, error)

	// Record registra un referrer para bettor. Idempotente: el primer
	// registro gana.
	Record(ctx context.Context, bettor, referrer string) error
}
