package ports

import (
	"context"

	"github.com/alejandrodnm/parlaybot/internal/domain"
)

// EventSink recibe los eventos de dominio emitidos por el engine.
type EventSink interface {
	// Emit entrega un evento. Un error se loguea pero nunca aborta la
	// operación que lo generó.
	Emit(ctx context.Context, ev domain.Event) error
}
