// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package notify holds the optional durable queue for PendingNotification:
// an in-memory channel is the default path, and this Redis-backed list
// takes over only when durability across process restarts is enabled.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rapidaai/xiaozhi-go-client/internal/commons"
	"github.com/rapidaai/xiaozhi-go-client/internal/model"
)

const (
	// queueKeyPrefix is namespaced per device so that several boards can
	// share one Redis instance without clobbering each other's queues.
	queueKeyPrefix = "{xiaozhi:notify}:"

	// entryTTL bounds how long an unread notification survives; a board
	// that stays offline longer than this loses the notification rather
	// than growing the queue unbounded.
	entryTTL = 24 * time.Hour
)

// Queue is a Redis list of pending background-tool notifications for one
// device, used in place of the in-memory channel when the deployment wants
// notifications to survive a client restart.
type Queue struct {
	client *redis.Client
	key    string
	logger commons.Logger
}

// NewQueue opens a durable notification queue for deviceID against the given
// Redis address. Connectivity is not verified until the first call.
func NewQueue(addr, password string, db int, deviceID string, logger commons.Logger) *Queue {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Queue{
		client: client,
		key:    queueKeyPrefix + deviceID,
		logger: logger,
	}
}

// Push appends a notification to the tail of the queue and refreshes its
// expiry, so an idle queue doesn't linger in Redis forever.
func (q *Queue) Push(ctx context.Context, n model.PendingNotification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshaling pending notification: %w", err)
	}
	pipe := q.client.TxPipeline()
	pipe.RPush(ctx, q.key, data)
	pipe.Expire(ctx, q.key, entryTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("pushing pending notification: %w", err)
	}
	return nil
}

// Drain pops every notification currently queued, oldest first, leaving the
// queue empty. Called once at startup to replay notifications left over from
// a previous process lifetime.
func (q *Queue) Drain(ctx context.Context) ([]model.PendingNotification, error) {
	var out []model.PendingNotification
	for {
		res, err := q.client.LPop(ctx, q.key).Result()
		if err == redis.Nil {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("draining pending notifications: %w", err)
		}
		var n model.PendingNotification
		if err := json.Unmarshal([]byte(res), &n); err != nil {
			q.logger.Warnf("discarding malformed queued notification: %v", err)
			continue
		}
		out = append(out, n)
	}
}

// Len reports the current queue depth, for diagnostics.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}

// Close releases the underlying Redis connection pool.
func (q *Queue) Close() error {
	return q.client.Close()
}
