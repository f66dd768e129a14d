package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"wheel-service/wheel"
)

const (
	ipcStatusKey    = "steering-wheel"
	ipcStatusPeriod = 100 * time.Millisecond
)

// IPCTx mirrors the wheel status into Redis
type IPCTx struct {
	log   *LeveledLogger
	redis *redis.Client
	mu    sync.Mutex
	last  RedisStatus
	sent  bool
}

func NewIPCTx(logger *LeveledLogger, redis *redis.Client) *IPCTx {
	return &IPCTx{
		log:   logger,
		redis: redis,
	}
}

// changed records data as the last status and reports whether it differs
// from what was sent before
func (tx *IPCTx) changed(data RedisStatus) bool {
	if tx.sent && data == tx.last {
		return false
	}
	tx.last = data
	tx.sent = true
	return true
}

// SendStatus writes the status hash and notifies subscribers. Unchanged
// statuses are skipped.
func (tx *IPCTx) SendStatus(ctx context.Context, data RedisStatus) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if !tx.changed(data) {
		return nil
	}

	pipe := tx.redis.Pipeline()
	pipe.HSet(ctx, ipcStatusKey, data.fields())
	pipe.Publish(ctx, ipcStatusKey, "status")

	if _, err := pipe.Exec(ctx); err != nil {
		// Retry on the next period
		tx.sent = false
		return fmt.Errorf("failed to send status: %w", err)
	}
	return nil
}

// Run samples the wheel until ctx is cancelled
func (tx *IPCTx) Run(ctx context.Context, w *wheel.Wheel) error {
	ticker := time.NewTicker(ipcStatusPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			status := statusFromSnapshot(w.State.Snapshot(), w.Renderer.CurrentMode())
			if err := tx.SendStatus(ctx, status); err != nil && ctx.Err() == nil {
				tx.log.Warn("%v", err)
			}
		}
	}
}
