// Package notify publishes ingestion summaries to Redis so other services
// can react to a finished sync.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"jobmate/hh-collector/internal/model"
)

const (
	// ChannelSyncCompleted receives one event per finished sync.
	ChannelSyncCompleted = "EVENT_HH_SYNC_COMPLETED"
	// KeyLastSync holds the JSON summary of the most recent sync.
	KeyLastSync = "hh-collector:last_sync"
)

// RedisNotifier records and publishes sync summaries.
type RedisNotifier struct {
	rdb *redis.Client
}

// NewRedisNotifier returns a notifier writing to rdb.
func NewRedisNotifier(rdb *redis.Client) *RedisNotifier {
	return &RedisNotifier{rdb: rdb}
}

type syncEvent struct {
	Type string `json:"type"`
	model.SyncSummary
}

// SyncCompleted stores the summary under KeyLastSync and publishes it on
// ChannelSyncCompleted.
func (n *RedisNotifier) SyncCompleted(ctx context.Context, summary model.SyncSummary) error {
	payload, err := json.Marshal(syncEvent{Type: ChannelSyncCompleted, SyncSummary: summary})
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	if err := n.rdb.Set(ctx, KeyLastSync, payload, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", KeyLastSync, err)
	}
	if err := n.rdb.Publish(ctx, ChannelSyncCompleted, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", ChannelSyncCompleted, err)
	}
	return nil
}

// LastSync returns the most recently stored summary, or nil if none exists.
func (n *RedisNotifier) LastSync(ctx context.Context) (*model.SyncSummary, error) {
	raw, err := n.rdb.Get(ctx, KeyLastSync).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", KeyLastSync, err)
	}

	var ev syncEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, fmt.Errorf("decode %s: %w", KeyLastSync, err)
	}
	return &ev.SyncSummary, nil
}
