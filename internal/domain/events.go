package domain

import (
	"time"

	"github.com/holiman/uint256"
)

// EventType identifica los eventos de dominio que emite el engine.
type EventType string

const (
	EventBetCreated        EventType = "BetCreated"
	EventBetResolved       EventType = "BetResolved"
	EventBetExercised      EventType = "BetExercised"
	EventBetExpired        EventType = "BetExpired"
	EventReferrerPaid      EventType = "ReferrerPaid"
	EventFeeSettled        EventType = "FeeSettled"
	EventParametersChanged EventType = "ParametersChanged"
)

// Event es un cambio de estado observable del engine.
type Event struct {
	Type    EventType
	At      time.Time
	BetID   string
	Account string
	Amount  *uint256.Int // puede ser nil para eventos sin importe
	Detail  string
}
