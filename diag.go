package main

import (
	"context"
	"sync"

	"github.com/go-redis/redis/v8"

	"wheel-service/wheel"
)

const (
	diagGroupName           = "steering-wheel"
	diagFaultSetKey         = "steering-wheel:fault"
	diagEventStream         = "events:faults"
	diagEventStreamMaxLen   = 1000
	diagNotificationChannel = "steering-wheel"
	diagQueueSize           = 16
)

type faultEvent struct {
	fault   wheel.Fault
	config  wheel.FaultConfig
	present bool
}

// Diag tracks fault presence and reports changes to Redis. SetFaultPresence
// never blocks: reports are queued and written by Run.
type Diag struct {
	log         *LeveledLogger
	redis       *redis.Client
	mu          sync.Mutex
	faultStates map[wheel.Fault]bool
	events      chan faultEvent
}

// NewDiag creates the fault tracker. With a nil client faults are only
// logged.
func NewDiag(logger *LeveledLogger, redis *redis.Client) *Diag {
	return &Diag{
		log:         logger,
		redis:       redis,
		faultStates: make(map[wheel.Fault]bool),
		events:      make(chan faultEvent, diagQueueSize),
	}
}

func (d *Diag) SetFaultPresence(fault wheel.Fault, present bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if fault == wheel.FaultNone {
		return
	}
	if d.faultStates[fault] == present {
		return
	}

	config, ok := wheel.GetFaultConfig(fault)
	if !ok {
		d.log.Warn("Unknown fault code: %d", fault)
		return
	}

	if d.redis != nil {
		select {
		case d.events <- faultEvent{fault: fault, config: config, present: present}:
		default:
			// Left unrecorded so the next change retries
			d.log.Warn("Fault report queue full, dropping code=%d", fault)
			return
		}
	}

	d.faultStates[fault] = present
	switch {
	case present && config.Severity == wheel.SeverityCritical:
		d.log.Error("Fault set: code=%d, description=%s", fault, config.Description)
	case present:
		d.log.Warn("Fault set: code=%d, description=%s", fault, config.Description)
	default:
		d.log.Info("Fault cleared: code=%d, description=%s", fault, config.Description)
	}
}

func (d *Diag) IsPresent(fault wheel.Fault) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.faultStates[fault]
}

// Run writes queued fault reports until ctx is cancelled
func (d *Diag) Run(ctx context.Context) error {
	if d.redis == nil {
		return nil
	}

	// Clear faults left over from a previous run
	pipe := d.redis.Pipeline()
	for _, fault := range wheel.AllFaults {
		pipe.SRem(ctx, diagFaultSetKey, uint32(fault))
	}
	if _, err := pipe.Exec(ctx); err != nil && ctx.Err() == nil {
		d.log.Warn("Failed to clear fault set: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case evt := <-d.events:
			if evt.present {
				d.reportFaultPresent(ctx, evt.fault, evt.config)
			} else {
				d.reportFaultAbsent(ctx, evt.fault)
			}
		}
	}
}

func (d *Diag) reportFaultPresent(ctx context.Context, fault wheel.Fault, config wheel.FaultConfig) {
	pipe := d.redis.Pipeline()

	pipe.SAdd(ctx, diagFaultSetKey, uint32(fault))

	pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: diagEventStream,
		MaxLen: diagEventStreamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"group":       diagGroupName,
			"code":        uint32(fault),
			"description": config.Description,
			"severity":    severityName(config.Severity),
		},
	})

	pipe.Publish(ctx, diagNotificationChannel, "fault")

	if _, err := pipe.Exec(ctx); err != nil {
		d.log.Error("Failed to report fault present: %v", err)
	}
}

func (d *Diag) reportFaultAbsent(ctx context.Context, fault wheel.Fault) {
	pipe := d.redis.Pipeline()

	pipe.SRem(ctx, diagFaultSetKey, uint32(fault))

	pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: diagEventStream,
		MaxLen: diagEventStreamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"group": diagGroupName,
			"code":  -int32(fault),
		},
	})

	pipe.Publish(ctx, diagNotificationChannel, "fault")

	if _, err := pipe.Exec(ctx); err != nil {
		d.log.Error("Failed to report fault absent: %v", err)
	}
}

func severityName(s wheel.FaultSeverity) string {
	if s == wheel.SeverityCritical {
		return "critical"
	}
	return "warning"
}

var _ wheel.FaultReporter = (*Diag)(nil)
