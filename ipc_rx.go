package main

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"wheel-service/wheel"
)

const (
	ipcModeCommandKey = "steering-wheel:led-mode"
	ipcPopTimeout     = time.Second
	ipcRetryDelay     = 2 * time.Second
)

type modeRequester interface {
	RequestMode(mode wheel.Mode) error
}

// IPCRx receives LED mode commands pushed onto a Redis list
type IPCRx struct {
	log    *LeveledLogger
	redis  *redis.Client
	target modeRequester
}

func NewIPCRx(logger *LeveledLogger, redis *redis.Client, target modeRequester) *IPCRx {
	return &IPCRx{
		log:    logger,
		redis:  redis,
		target: target,
	}
}

// Run pops commands until ctx is cancelled
func (rx *IPCRx) Run(ctx context.Context) error {
	rx.log.Info("Waiting for LED mode commands on %s", ipcModeCommandKey)

	for {
		result, err := rx.redis.BRPop(ctx, ipcPopTimeout, ipcModeCommandKey).Result()
		switch {
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, redis.Nil):
			continue
		case err != nil:
			rx.log.Error("Mode command error: %v", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(ipcRetryDelay):
			}
			continue
		}

		// result is [key, value]
		if len(result) == 2 {
			rx.handleCommand(result[1])
		}
	}
}

func (rx *IPCRx) handleCommand(cmd string) {
	cmd = strings.TrimSpace(strings.ToLower(cmd))
	rx.log.Debug("Mode command received: %s", cmd)

	mode, ok := wheel.ParseMode(cmd)
	if !ok {
		rx.log.Warn("Unknown LED mode command: %q", cmd)
		return
	}
	if err := rx.target.RequestMode(mode); err != nil {
		rx.log.Warn("Failed to request %s mode: %v", mode, err)
	}
}
