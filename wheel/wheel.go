package wheel

import (
	"context"
	"time"

	"github.com/brutella/can"
	"golang.org/x/sync/errgroup"
)

// ButtonSource reports the live level of a button
type ButtonSource interface {
	Pressed(b Button) (bool, error)
}

// Deps are the collaborators the wheel core drives
type Deps struct {
	Bus       FrameSender
	MainStrip Strip
	AuxStrip  Strip
	Buttons   ButtonSource
	Clock     Clock
	Faults    FaultReporter
	Logger    Logger
}

// Wheel wires the vehicle state, renderer, telemetry ingest and controls to
// a single work queue. Producers (CAN, buttons, timers, IPC) only post to
// the queue.
type Wheel struct {
	cfg     Config
	log     Logger
	buttons ButtonSource

	State     *VehicleState
	Queue     *Queue
	Renderer  *Renderer
	Telemetry *TelemetryIngest
	Controls  *Controls
}

// New wires the core together. A non-positive LEDRate falls back to the
// default frame rate.
func New(cfg Config, deps Deps) *Wheel {
	if cfg.LEDRate <= 0 {
		cfg.LEDRate = DefaultConfig().LEDRate
	}
	faults := deps.Faults
	if faults == nil {
		faults = nopFaults{}
	}

	state := NewVehicleState()
	queue := NewQueue(cfg.QueueSize, deps.Logger, faults)
	renderer := NewRenderer(state, deps.MainStrip, deps.AuxStrip, cfg.LEDRate, deps.Logger)

	return &Wheel{
		cfg:       cfg,
		log:       deps.Logger,
		buttons:   deps.Buttons,
		State:     state,
		Queue:     queue,
		Renderer:  renderer,
		Telemetry: NewTelemetryIngest(state, cfg.TelemetryFrameID, deps.Logger, faults),
		Controls:  NewControls(state, deps.Bus, renderer, deps.Clock, queue, cfg, deps.Logger, faults),
	}
}

// Handle implements can.Handler
func (w *Wheel) Handle(frame can.Frame) {
	if frame.ID != w.cfg.TelemetryFrameID {
		return
	}
	w.Queue.Post("can-rx", func() {
		if err := w.Telemetry.HandleFrame(frame); err != nil {
			w.log.Warn("Error handling CAN frame: %v", err)
		}
	})
}

// HandleEdge is the button edge callback
func (w *Wheel) HandleEdge(b Button, e Edge) {
	w.Queue.Post("button", func() { w.Controls.HandleEdge(b, e) })
}

// RequestMode asks for a display mode change. It only takes effect while the
// tachometer is running.
func (w *Wheel) RequestMode(mode Mode) error {
	return w.Queue.Post("mode", func() {
		current := w.Renderer.Mode()
		if current != ModeTachometer && current != ModeRainbowRoad {
			w.log.Info("Ignoring %s mode request during %s", mode, current)
			return
		}
		if mode != ModeTachometer && mode != ModeRainbowRoad {
			w.log.Warn("Mode %s cannot be requested", mode)
			return
		}
		if mode != current {
			w.Renderer.SetMode(mode)
		}
	})
}

// Run executes the work queue, the LED tick and the boot sequence until ctx
// is cancelled.
func (w *Wheel) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return w.Queue.Run(ctx)
	})
	g.Go(func() error {
		w.runTicker(ctx)
		return nil
	})
	g.Go(func() error {
		return w.boot(ctx)
	})

	err := g.Wait()
	stats := w.Queue.Stats()
	w.log.Info("Work queue stopped: executed=%d dropped=%d coalesced=%d",
		stats.Executed, stats.Dropped, stats.Coalesced)
	return err
}

func (w *Wheel) runTicker(ctx context.Context) {
	ticker := time.NewTicker(time.Second / time.Duration(w.cfg.LEDRate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Queue.PostTick(w.Renderer.Tick)
		}
	}
}

// boot waits out the startup window, during which releasing settings enters
// button test mode, then polls until the driving wiring can be installed.
func (w *Wheel) boot(ctx context.Context) error {
	w.log.Info("Playing startup animation")

	window := time.NewTimer(w.cfg.BootWindow)
	defer window.Stop()

	select {
	case <-ctx.Done():
		return nil
	case <-window.C:
	}

	poll := time.NewTicker(w.cfg.TestPollPeriod)
	defer poll.Stop()

	for {
		done := make(chan bool, 1)
		if err := w.Queue.Post("boot-finish", func() { done <- w.finishBoot() }); err == nil {
			select {
			case <-ctx.Done():
				return nil
			case finished := <-done:
				if finished {
					return nil
				}
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-poll.C:
		}
	}
}

// finishBoot leaves the startup sequence unless test mode is still active and
// upshift and downshift are not both held.
func (w *Wheel) finishBoot() bool {
	if w.Controls.InTestMode() && !w.exitRequested() {
		return false
	}

	w.Controls.InstallNormal()
	w.Renderer.SetMode(ModeTachometer)
	w.log.Info("Startup animation finished")
	return true
}

func (w *Wheel) exitRequested() bool {
	up, err := w.buttons.Pressed(ButtonUpshift)
	if err != nil {
		w.log.Warn("Failed to read upshift button: %v", err)
		return false
	}
	down, err := w.buttons.Pressed(ButtonDownshift)
	if err != nil {
		w.log.Warn("Failed to read downshift button: %v", err)
		return false
	}
	return up && down
}
