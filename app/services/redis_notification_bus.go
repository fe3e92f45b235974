package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type busEnvelope struct {
	AccountUUID uuid.UUID         `json:"account_uuid"`
	Event       NotificationEvent `json:"event"`
}

// RedisNotificationBus relays notification events between API instances.
// Every instance publishes to Redis and forwards what it receives to its local emitter.
type RedisNotificationBus struct {
	rc     *redis.Client
	prefix string
	local  *NotificationEmitter
}

// NewRedisNotificationBus creates a bus that feeds local
func NewRedisNotificationBus(rc *redis.Client, prefix string, local *NotificationEmitter) *RedisNotificationBus {
	return &RedisNotificationBus{rc: rc, prefix: prefix + "notifications:", local: local}
}

func (b *RedisNotificationBus) channel(accountUUID uuid.UUID) string {
	return b.prefix + accountUUID.String()
}

// Broadcast publishes ev for the account
func (b *RedisNotificationBus) Broadcast(ctx context.Context, accountUUID uuid.UUID, ev NotificationEvent) error {
	payload, err := json.Marshal(busEnvelope{AccountUUID: accountUUID, Event: ev})
	if err != nil {
		return fmt.Errorf("failed to encode notification event: %w", err)
	}
	if err := b.rc.Publish(ctx, b.channel(accountUUID), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish notification event: %w", err)
	}
	return nil
}

// Run forwards published events to the local emitter until ctx is done
func (b *RedisNotificationBus) Run(ctx context.Context) error {
	sub := b.rc.PSubscribe(ctx, b.prefix+"*")
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to notification events: %w", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.forward(ctx, msg)
		}
	}
}

func (b *RedisNotificationBus) forward(ctx context.Context, msg *redis.Message) {
	var env busEnvelope
	if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
		slog.WarnContext(ctx, "dropping malformed notification event", "channel", msg.Channel, "error", err)
		return
	}
	if env.AccountUUID == uuid.Nil {
		id, err := uuid.Parse(strings.TrimPrefix(msg.Channel, b.prefix))
		if err != nil {
			return
		}
		env.AccountUUID = id
	}
	_ = b.local.Broadcast(ctx, env.AccountUUID, env.Event)
}
