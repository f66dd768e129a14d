package wheel

import (
	"time"

	"github.com/brutella/can"
)

// FrameSender publishes a CAN frame. *can.Bus satisfies it.
type FrameSender interface {
	Publish(frame can.Frame) error
}

// Timer is a pending one-shot callback
type Timer interface {
	Stop() bool
}

// Clock schedules one-shot callbacks
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// SystemClock schedules callbacks on real time
type SystemClock struct{}

func (SystemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// ModeSetter switches the LED animation
type ModeSetter interface {
	SetMode(mode Mode)
}

// inputHandler is the button wiring currently in effect
type inputHandler interface {
	handleEdge(c *Controls, b Button, e Edge)
}

// Controls turns button edges into CAN commands and local state changes. All
// methods run on the work queue; the wiring is only ever swapped there.
type Controls struct {
	state     *VehicleState
	bus       FrameSender
	modes     ModeSetter
	clock     Clock
	queue     *Queue
	log       Logger
	faults    FaultReporter
	commandID uint32
	longPress time.Duration

	handler      inputHandler
	settingsHeld bool
	pressGen     uint64
	pressTimer   Timer
}

func NewControls(state *VehicleState, bus FrameSender, modes ModeSetter, clock Clock, queue *Queue,
	cfg Config, logger Logger, faults FaultReporter) *Controls {
	if faults == nil {
		faults = nopFaults{}
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Controls{
		state:     state,
		bus:       bus,
		modes:     modes,
		clock:     clock,
		queue:     queue,
		log:       logger,
		faults:    faults,
		commandID: cfg.CommandFrameID,
		longPress: cfg.LongPress,
		handler:   bootInput{},
	}
}

// HandleEdge dispatches a debounced button edge to the current wiring
func (c *Controls) HandleEdge(b Button, e Edge) {
	c.log.Debug("Button %s %s", b, e)
	c.handler.handleEdge(c, b, e)
}

func (c *Controls) InTestMode() bool {
	_, ok := c.handler.(testInput)
	return ok
}

func (c *Controls) InNormalMode() bool {
	_, ok := c.handler.(normalInput)
	return ok
}

// EnterTestMode wires every button straight to the button test array
func (c *Controls) EnterTestMode() {
	c.log.Info("Entering button test mode")
	c.state.ClearButtons()
	c.handler = testInput{}
	c.modes.SetMode(ModeButtonTest)
}

// InstallNormal enables the driving wiring. The settings button no longer
// enters test mode afterwards.
func (c *Controls) InstallNormal() {
	if c.InTestMode() {
		c.log.Info("Exiting button test mode")
	}
	c.state.ClearButtons()
	c.cancelLongPress()
	c.settingsHeld = false
	c.handler = normalInput{}
}

// bootInput is active during the startup window: releasing settings enters
// test mode, everything else is ignored.
type bootInput struct{}

func (bootInput) handleEdge(c *Controls, b Button, e Edge) {
	if b == ButtonSettings && e == EdgeRise {
		c.EnterTestMode()
	}
}

type testInput struct{}

func (testInput) handleEdge(c *Controls, b Button, e Edge) {
	c.state.SetButton(b, e == EdgeFall)
}

type normalInput struct{}

func (normalInput) handleEdge(c *Controls, b Button, e Edge) {
	switch b {
	case ButtonUpshift:
		if e == EdgeFall {
			c.upshift()
		}
	case ButtonDownshift:
		if e == EdgeFall {
			c.downshift()
		}
	case ButtonDRS:
		c.setDRS(e == EdgeFall)
	case ButtonSettings:
		if e == EdgeFall {
			c.armLongPress()
		} else {
			c.cancelLongPress()
		}
	}
}

func (c *Controls) upshift() {
	drs := c.state.DRSEngaged()
	if c.sendCommand(drs, true, false) {
		c.log.Info("Upshift message sent")
	}
}

func (c *Controls) downshift() {
	rpm := c.state.RPM()
	if rpm > MoneyShiftThreshold {
		c.log.Info("Downshift canceled because RPM was above threshold. RPM: %d, threshold: %d",
			rpm, MoneyShiftThreshold)
		return
	}

	drs := c.state.DRSEngaged()
	if c.sendCommand(drs, false, true) {
		c.log.Info("Downshift message sent")
	}
}

func (c *Controls) setDRS(engaged bool) {
	c.state.SetDRSEngaged(engaged)
	c.sendCommand(engaged, false, false)

	if engaged {
		c.log.Info("DRS engaged")
	} else {
		c.log.Info("DRS disengaged")
	}
}

// armLongPress starts the brightness timer. The timer only posts to the queue;
// the toggle itself runs there and is discarded if the press has ended.
func (c *Controls) armLongPress() {
	c.cancelLongPress()
	c.settingsHeld = true

	gen := c.pressGen
	c.pressTimer = c.clock.AfterFunc(c.longPress, func() {
		if err := c.queue.Post("long-press", func() { c.longPressExpired(gen) }); err != nil {
			c.log.Warn("Failed to schedule brightness change: %v", err)
		}
	})
}

func (c *Controls) cancelLongPress() {
	c.settingsHeld = false
	c.pressGen++
	if c.pressTimer != nil {
		c.pressTimer.Stop()
		c.pressTimer = nil
	}
}

func (c *Controls) longPressExpired(gen uint64) {
	if gen != c.pressGen || !c.settingsHeld {
		return
	}
	c.pressTimer = nil

	brightness := c.state.ToggleBrightness()
	c.log.Info("LED brightness setting changed to %.2f", brightness)
}

// sendCommand transmits a command frame: DRS flag, upshift flag, downshift flag
func (c *Controls) sendCommand(drs, upshift, downshift bool) bool {
	frame := packFrame(c.commandID, []byte{
		boolToByte(drs),
		boolToByte(upshift),
		boolToByte(downshift),
	})

	DebugCANFrame(c.log, "TX", frame)

	if err := c.bus.Publish(frame); err != nil {
		c.log.Warn("Failed to send CAN message: %v", err)
		c.faults.SetFaultPresence(FaultCANTxFailed, true)
		return false
	}
	c.faults.SetFaultPresence(FaultCANTxFailed, false)
	return true
}

// packFrame creates a CAN frame with the given ID and data
func packFrame(id uint32, data []byte) can.Frame {
	var frameData [8]byte
	copy(frameData[:], data)
	return can.Frame{
		ID:     id,
		Length: uint8(len(data)),
		Flags:  0,
		Data:   frameData,
	}
}

// Helper function to convert bool to byte
func boolToByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
