package wheel

import (
	"errors"
	"sync"
	"time"

	"github.com/brutella/can"
)

// testLogger implements Logger for testing
type testLogger struct{}

func (l *testLogger) Printf(format string, v ...interface{}) {}
func (l *testLogger) Debug(format string, v ...interface{})  {}
func (l *testLogger) Info(format string, v ...interface{})   {}
func (l *testLogger) Warn(format string, v ...interface{})   {}
func (l *testLogger) Error(format string, v ...interface{})  {}
func (l *testLogger) DebugCAN(direction string, id uint32, data []byte, length uint8) {
}

var errBusDown = errors.New("bus down")

type fakeBus struct {
	frames []can.Frame
	fail   bool
	onSend func(frame can.Frame)
}

func (b *fakeBus) Publish(frame can.Frame) error {
	if b.onSend != nil {
		b.onSend(frame)
	}
	if b.fail {
		return errBusDown
	}
	b.frames = append(b.frames, frame)
	return nil
}

type fakeStrip struct {
	mu     sync.Mutex
	last   []Pixel
	writes int
}

func (s *fakeStrip) Write(pixels []Pixel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = append(s.last[:0], pixels...)
	s.writes++
	return nil
}

type fakeButtons struct {
	mu      sync.Mutex
	pressed map[Button]bool
}

func newFakeButtons() *fakeButtons {
	return &fakeButtons{pressed: make(map[Button]bool)}
}

func (f *fakeButtons) set(b Button, pressed bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pressed[b] = pressed
}

func (f *fakeButtons) Pressed(b Button) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pressed[b], nil
}

type faultRecord struct {
	fault   Fault
	present bool
}

type fakeFaults struct {
	mu      sync.Mutex
	records []faultRecord
	active  map[Fault]bool
}

func newFakeFaults() *fakeFaults {
	return &fakeFaults{active: make(map[Fault]bool)}
}

func (f *fakeFaults) SetFaultPresence(fault Fault, present bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, faultRecord{fault, present})
	f.active[fault] = present
}

func (f *fakeFaults) isActive(fault Fault) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active[fault]
}

// manualClock fires timers only when advanced
type manualClock struct {
	now    time.Duration
	timers []*manualTimer
}

type manualTimer struct {
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	t := &manualTimer{at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *manualClock) Advance(d time.Duration) {
	c.now += d
	for _, t := range c.timers {
		if !t.stopped && !t.fired && t.at <= c.now {
			t.fired = true
			t.f()
		}
	}
}

func (t *manualTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

type testRig struct {
	wheel   *Wheel
	bus     *fakeBus
	main    *fakeStrip
	aux     *fakeStrip
	buttons *fakeButtons
	clock   *manualClock
	faults  *fakeFaults
}

func newTestRig() *testRig {
	return newTestRigWithConfig(DefaultConfig())
}

func newTestRigWithConfig(cfg Config) *testRig {
	rig := &testRig{
		bus:     &fakeBus{},
		main:    &fakeStrip{},
		aux:     &fakeStrip{},
		buttons: newFakeButtons(),
		clock:   &manualClock{},
		faults:  newFakeFaults(),
	}
	rig.wheel = New(cfg, Deps{
		Bus:       rig.bus,
		MainStrip: rig.main,
		AuxStrip:  rig.aux,
		Buttons:   rig.buttons,
		Clock:     rig.clock,
		Faults:    rig.faults,
		Logger:    &testLogger{},
	})
	return rig
}

// edge posts a button edge and runs it
func (rig *testRig) edge(b Button, e Edge) {
	rig.wheel.HandleEdge(b, e)
	rig.wheel.Queue.drain()
}

// normal installs the driving wiring and the tachometer, as the end of the
// boot sequence does.
func (rig *testRig) normal() {
	rig.wheel.Controls.InstallNormal()
	rig.wheel.Renderer.SetMode(ModeTachometer)
}

func (rig *testRig) tick(n int) {
	for i := 0; i < n; i++ {
		rig.wheel.Renderer.Tick()
	}
}
