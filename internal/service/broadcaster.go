package service

import (
	"context"

	"gamepicker/internal/model"

	"github.com/rs/zerolog/log"
)

// Broadcaster publishes room events to connected clients.
// Implemented by the ws transport; declared here to avoid an import cycle.
type Broadcaster interface {
	Publish(ctx context.Context, roomCode string, ev model.Event) error
}

type nopBroadcaster struct{}

func (nopBroadcaster) Publish(context.Context, string, model.Event) error { return nil }

// emit publishes ev and swallows failures. State is already durable by the
// time an event is emitted, so clients catch up on the next poll.
func emit(ctx context.Context, b Broadcaster, roomCode string, ev model.Event) {
	if err := b.Publish(ctx, roomCode, ev); err != nil {
		log.Warn().Err(err).
			Str("room", roomCode).
			Str("event", string(ev.Type())).
			Msg("broadcast failed")
	}
}
