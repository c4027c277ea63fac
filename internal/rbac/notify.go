package rbac

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// ReloadChannel is the pub/sub channel carrying registry-changed signals.
const ReloadChannel = "rbac:reload"

// RedisNotifier publishes reload signals over Redis pub/sub so every
// instance refreshes its snapshot after an administrative mutation.
type RedisNotifier struct {
	client  *redis.Client
	channel string
}

// NewRedisNotifier constructs a notifier on the given channel.
func NewRedisNotifier(client *redis.Client, channel string) *RedisNotifier {
	if channel == "" {
		channel = ReloadChannel
	}
	return &RedisNotifier{client: client, channel: channel}
}

// NotifyReload signals peers that the registry changed.
func (n *RedisNotifier) NotifyReload(ctx context.Context) error {
	return n.client.Publish(ctx, n.channel, "reload").Err()
}

var _ ReloadNotifier = (*RedisNotifier)(nil)

// ListenReload subscribes to the reload channel and invokes reload for each
// signal until the context is cancelled. Reload failures are logged and the
// stale snapshot stays published; the periodic refresh job catches up later.
func ListenReload(ctx context.Context, client *redis.Client, channel string, logger *slog.Logger, reload func(context.Context) error) error {
	if channel == "" {
		channel = ReloadChannel
	}
	sub := client.Subscribe(ctx, channel)
	defer func() {
		_ = sub.Close()
	}()
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-ch:
			if !ok {
				return nil
			}
			if err := reload(ctx); err != nil && logger != nil {
				logger.Error("rbac snapshot reload", slog.Any("error", err))
			}
		}
	}
}
