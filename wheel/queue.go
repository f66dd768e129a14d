package wheel

import (
	"context"
	"errors"
	"sync/atomic"
)

var ErrQueueFull = errors.New("work queue full")

type workItem struct {
	name string
	fn   func()
	tick bool
}

// QueueStats counts what happened to posted work items
type QueueStats struct {
	Executed  uint64
	Dropped   uint64
	Coalesced uint64
}

// Queue is a bounded multi-producer, single-consumer FIFO of work items.
// Producers never block; Run executes items one at a time, to completion, in
// the order they were posted.
type Queue struct {
	items       chan workItem
	tickPending atomic.Bool
	log         Logger
	faults      FaultReporter

	executed  atomic.Uint64
	dropped   atomic.Uint64
	coalesced atomic.Uint64
}

func NewQueue(size int, logger Logger, faults FaultReporter) *Queue {
	if size <= 0 {
		size = 1
	}
	if faults == nil {
		faults = nopFaults{}
	}
	return &Queue{
		items:  make(chan workItem, size),
		log:    logger,
		faults: faults,
	}
}

// Post enqueues fn without blocking
func (q *Queue) Post(name string, fn func()) error {
	select {
	case q.items <- workItem{name: name, fn: fn}:
		q.faults.SetFaultPresence(FaultQueueOverflow, false)
		return nil
	default:
		q.dropped.Add(1)
		q.log.Warn("Work queue full, dropping %s", name)
		q.faults.SetFaultPresence(FaultQueueOverflow, true)
		return ErrQueueFull
	}
}

// PostTick enqueues a periodic tick. At most one tick is ever pending: a tick
// posted while the previous one has not started yet is coalesced into it.
func (q *Queue) PostTick(fn func()) error {
	if !q.tickPending.CompareAndSwap(false, true) {
		q.coalesced.Add(1)
		q.log.Debug("Tick still pending, coalescing")
		return nil
	}

	select {
	case q.items <- workItem{name: "tick", fn: fn, tick: true}:
		return nil
	default:
		q.tickPending.Store(false)
		q.dropped.Add(1)
		q.log.Warn("Work queue full, dropping tick")
		q.faults.SetFaultPresence(FaultQueueOverflow, true)
		return ErrQueueFull
	}
}

// Run drains the queue until ctx is cancelled
func (q *Queue) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case item := <-q.items:
			q.execute(item)
		}
	}
}

func (q *Queue) execute(item workItem) {
	if item.tick {
		q.tickPending.Store(false)
	}
	item.fn()
	q.executed.Add(1)
}

// drain runs everything currently queued, including items posted by the
// items it runs, and returns how many were executed.
func (q *Queue) drain() int {
	n := 0
	for {
		select {
		case item := <-q.items:
			q.execute(item)
			n++
		default:
			return n
		}
	}
}

func (q *Queue) Stats() QueueStats {
	return QueueStats{
		Executed:  q.executed.Load(),
		Dropped:   q.dropped.Load(),
		Coalesced: q.coalesced.Load(),
	}
}
