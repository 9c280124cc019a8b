package ws

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gamepicker/internal/model"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var errHubStopped = errors.New("hub stopped")

const channelPrefix = "room:"

func channel(roomCode string) string {
	return fmt.Sprintf("%s%s", channelPrefix, roomCode)
}

// RedisPublisher publishes room events on the room's Redis channel so every
// server instance can relay them to its own sockets (implements service.Broadcaster)
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, roomCode string, ev model.Event) error {
	if roomCode == "" {
		// the global scope has no sockets
		return nil
	}
	data, err := model.Encode(ev)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, channel(roomCode), data).Err()
}

// Relay forwards every room:* pub/sub message to the local hub
type Relay struct {
	client *redis.Client
	hub    *Hub
}

func NewRelay(client *redis.Client, hub *Hub) *Relay {
	return &Relay{client: client, hub: hub}
}

// Run blocks until ctx is cancelled or the subscription fails
func (r *Relay) Run(ctx context.Context) error {
	pubsub := r.client.PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()

	// wait for the subscription to be confirmed before relaying
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("relay subscribe: %w", err)
	}
	log.Info().Str("module", "relay").Msg("listening on room:*")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return errors.New("relay: subscription closed")
			}
			roomCode := strings.TrimPrefix(msg.Channel, channelPrefix)
			if roomCode == "" || strings.Contains(roomCode, ":") {
				continue
			}
			if _, err := model.Decode([]byte(msg.Payload)); err != nil {
				log.Warn().Err(err).Str("room", roomCode).Msg("relay: dropping malformed event")
				continue
			}
			if err := r.hub.Deliver(ctx, roomCode, []byte(msg.Payload)); err != nil {
				if errors.Is(err, errHubStopped) || ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}
