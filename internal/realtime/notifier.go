package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/siddhantsaxena45/AI-Interviewer/internal/models"
)

const NotificationChannel = "interview:notifications"

// Notifier delivers session updates to a user's live subscriptions.
// Delivery is best effort: a user with no open subscription misses the event.
type Notifier interface {
	Notify(ctx context.Context, userID string, update models.SessionUpdate)
}

type envelope struct {
	Origin string               `json:"origin"`
	UserID string               `json:"userId"`
	Update models.SessionUpdate `json:"update"`
}

// RedisNotifier delivers locally and fans out to other instances over Redis
// pub/sub. A nil client keeps delivery local.
type RedisNotifier struct {
	hub        *Hub
	rdb        *redis.Client
	instanceID string
	logger     *zap.Logger
}

var _ Notifier = (*RedisNotifier)(nil)

func NewRedisNotifier(hub *Hub, rdb *redis.Client, logger *zap.Logger) *RedisNotifier {
	return &RedisNotifier{
		hub:        hub,
		rdb:        rdb,
		instanceID: uuid.New().String(),
		logger:     logger,
	}
}

func (n *RedisNotifier) InstanceID() string { return n.instanceID }

func (n *RedisNotifier) Notify(ctx context.Context, userID string, update models.SessionUpdate) {
	n.deliver(userID, update)

	if n.rdb == nil {
		return
	}

	data, err := json.Marshal(envelope{Origin: n.instanceID, UserID: userID, Update: update})
	if err != nil {
		n.logger.Error("Failed to marshal session update", zap.Error(err))
		return
	}
	if err := n.rdb.Publish(ctx, NotificationChannel, data).Err(); err != nil {
		n.logger.Warn("Failed to publish session update",
			zap.String("userId", userID),
			zap.String("status", string(update.Status)),
			zap.Error(err))
	}
}

func (n *RedisNotifier) deliver(userID string, update models.SessionUpdate) int {
	return n.hub.Deliver(userID, models.WSFrame{Event: models.SessionUpdateEvent, Data: update})
}

// Subscribe relays updates published by other instances until ctx is done.
func (n *RedisNotifier) Subscribe(ctx context.Context) error {
	if n.rdb == nil {
		return fmt.Errorf("realtime: redis client not configured")
	}

	pubsub := n.rdb.Subscribe(ctx, NotificationChannel)
	defer pubsub.Close()

	// wait for the subscription to be confirmed
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", NotificationChannel, err)
	}
	ch := pubsub.Channel()

	n.logger.Info("Subscribed to session notifications", zap.String("instance", n.instanceID))

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			n.handleMessage(msg.Payload)
		}
	}
}

func (n *RedisNotifier) handleMessage(payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		n.logger.Warn("Failed to unmarshal session update", zap.Error(err))
		return
	}

	// Ignore events from this instance
	if env.Origin == n.instanceID {
		return
	}

	n.deliver(env.UserID, env.Update)
}
