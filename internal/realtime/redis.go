package realtime

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/redis/go-redis/v9"
	"taskpulse/pkg/logger"
)

const (
	broadcastChannel  = "rt:broadcast"
	userChannelPrefix = "rt:user:"
)

// RedisChannel publishes events over Redis pub/sub so every instance's hub
// sees them. Publish failures (including a nil client) degrade to a logged
// no-op per the delivery contract.
type RedisChannel struct {
	client *redis.Client
}

// NewRedisChannel wraps the given Redis client. A nil client yields a
// channel that drops everything.
func NewRedisChannel(client *redis.Client) *RedisChannel {
	return &RedisChannel{client: client}
}

func (r *RedisChannel) publish(ctx context.Context, channel, event string, payload interface{}) {
	if r.client == nil {
		logger.Debug(ctx, "Realtime publish dropped (no transport)", "event", event)
		return
	}
	data, err := json.Marshal(message{Type: event, Payload: payload})
	if err != nil {
		logger.Error(ctx, "Realtime marshal failed", "event", event, "error", err)
		return
	}
	if err := r.client.Publish(ctx, channel, data).Err(); err != nil {
		logger.Warn(ctx, "Realtime publish failed", "channel", channel, "event", event, "error", err)
	}
}

// EmitToUser implements Channel.
func (r *RedisChannel) EmitToUser(ctx context.Context, userID, event string, payload interface{}) {
	r.publish(ctx, userChannelPrefix+userID, event, payload)
}

// EmitAll implements Channel.
func (r *RedisChannel) EmitAll(ctx context.Context, event string, payload interface{}) {
	r.publish(ctx, broadcastChannel, event, payload)
}

// RunBridge subscribes to the realtime Redis channels and feeds frames into
// the hub until ctx is done. Run it in its own goroutine per process.
func RunBridge(ctx context.Context, client *redis.Client, hub *Hub) {
	if client == nil {
		logger.Info(ctx, "Realtime bridge disabled (no Redis)")
		return
	}
	sub := client.PSubscribe(ctx, broadcastChannel, userChannelPrefix+"*")
	defer sub.Close()
	logger.Info(ctx, "Realtime bridge started")
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			userID := ""
			if strings.HasPrefix(msg.Channel, userChannelPrefix) {
				userID = strings.TrimPrefix(msg.Channel, userChannelPrefix)
			}
			hub.dispatch(userID, []byte(msg.Payload))
		}
	}
}
