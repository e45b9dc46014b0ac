package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"buildtrack/internal/infrastructure"
	"buildtrack/internal/store"
	"buildtrack/pkg/contracts/events"
)

// Validator checks request structs against their validation tags.
type Validator interface {
	ValidateStruct(v interface{}) error
}

// Publisher broadcasts events to connected clients.
type Publisher interface {
	Publish(ctx context.Context, typ events.MessageType, data interface{}) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, events.MessageType, interface{}) error { return nil }

type nopValidator struct{}

func (nopValidator) ValidateStruct(interface{}) error { return nil }

// Clock returns the current time. Services default to time.Now.
type Clock func() time.Time

func serviceLogger(logger *slog.Logger, component string) *slog.Logger {
	return infrastructure.WithComponent(logger, component)
}

// notFound rewrites store.ErrNotFound into the service sentinel for the kind
// of record being looked up.
func notFound(err, sentinel error, id string) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s", sentinel, id)
	}
	return err
}

// publish broadcasts an event and logs a failure. Event delivery never fails
// the operation that produced it.
func publish(ctx context.Context, p Publisher, logger *slog.Logger, typ events.MessageType, data interface{}) {
	if err := p.Publish(ctx, typ, data); err != nil {
		logger.WarnContext(ctx, "event not published",
			slog.String("event", string(typ)),
			slog.String("error", err.Error()))
	}
}
