package wheel

import (
	"math"
	"sync/atomic"
)

// Strip transmits a full frame of pixels to a physical LED strip
type Strip interface {
	Write(pixels []Pixel) error
}

// Renderer owns the pixel buffers and the animation mode. Apart from
// CurrentMode, its methods must only be called from the work queue.
type Renderer struct {
	state *VehicleState
	main  Strip
	aux   Strip
	log   Logger
	rate  int

	mode    Mode
	ticks   uint64 // frames since the last mode transition
	current atomic.Int32

	mainPixels [MainLEDCount]Pixel
	auxPixels  [AuxLEDCount]Pixel
}

func NewRenderer(state *VehicleState, main, aux Strip, ledRate int, logger Logger) *Renderer {
	if ledRate <= 0 {
		ledRate = DefaultConfig().LEDRate
	}
	r := &Renderer{
		state: state,
		main:  main,
		aux:   aux,
		log:   logger,
		rate:  ledRate,
		mode:  ModeStartupAnim,
	}
	r.current.Store(int32(ModeStartupAnim))
	for i := range r.mainPixels {
		r.mainPixels[i] = Off
	}
	for i := range r.auxPixels {
		r.auxPixels[i] = Off
	}
	return r
}

func (r *Renderer) Mode() Mode {
	return r.mode
}

// CurrentMode may be called from any goroutine
func (r *Renderer) CurrentMode() Mode {
	return Mode(r.current.Load())
}

// Elapsed returns the seconds spent in the current mode
func (r *Renderer) Elapsed() float64 {
	return float64(r.ticks) / float64(r.rate)
}

// SetMode switches the animation and restarts its clock
func (r *Renderer) SetMode(mode Mode) {
	if mode != r.mode {
		r.log.Info("LED mode %s -> %s", r.mode, mode)
	}
	r.mode = mode
	r.ticks = 0
	r.current.Store(int32(mode))
}

// Frame returns the most recently rendered buffers
func (r *Renderer) Frame() ([MainLEDCount]Pixel, [AuxLEDCount]Pixel) {
	return r.mainPixels, r.auxPixels
}

// Tick advances the animation by one frame, renders it and pushes it out to
// both strips.
func (r *Renderer) Tick() {
	r.ticks++
	elapsed := r.Elapsed()
	flash := flashOn(r.ticks, r.rate)
	snap := r.state.Snapshot()

	switch r.mode {
	case ModeStartupAnim:
		r.renderStartup(snap, elapsed)
		if elapsed > StartupAnimTime {
			r.SetMode(ModeStartupSweep)
		}

	case ModeStartupSweep:
		r.renderTach(int(elapsed*FlashRPM*SweepRPMFactor), snap.Brightness, flash)
		r.fillAux(Off)

	case ModeTachometer:
		if snap.CANReceived {
			r.renderTach(snap.RPM, snap.Brightness, flash)
		} else {
			v := level(searchPulse(elapsed) * snap.Brightness)
			r.fillMain(RGB(v, v, 0))
		}
		r.renderAuxStatus(snap, flash)

	case ModeRainbowRoad:
		hueShift := hueShiftAt(elapsed)
		if snap.CANReceived {
			r.renderRainbowTach(snap.RPM, snap.Brightness, flash, hueShift)
		} else {
			v := level(searchPulse(elapsed) * snap.Brightness)
			r.fillMain(HSV(uint8(hueShift), 255, v))
		}
		r.renderAuxStatus(snap, flash)

	case ModeButtonTest:
		v := level(snap.Brightness)
		r.fillMain(Off)
		for i, pressed := range snap.Buttons {
			if pressed {
				r.mainPixels[i] = RGB(v, v, 0)
			}
		}
		r.fillAux(Off)
	}

	r.flush()
}

func (r *Renderer) flush() {
	if err := r.main.Write(r.mainPixels[:]); err != nil {
		r.log.Debug("Main strip write failed: %v", err)
	}
	if err := r.aux.Write(r.auxPixels[:]); err != nil {
		r.log.Debug("Aux strip write failed: %v", err)
	}
}

func (r *Renderer) fillMain(p Pixel) {
	for i := range r.mainPixels {
		r.mainPixels[i] = p
	}
}

func (r *Renderer) fillAux(p Pixel) {
	for i := range r.auxPixels {
		r.auxPixels[i] = p
	}
}

// renderStartup plays a rainbow across both strips, fading in over the first
// second.
func (r *Renderer) renderStartup(snap Snapshot, elapsed float64) {
	hueShift := hueShiftAt(elapsed)
	fade := math.Min(elapsed, 1)
	v := level(fade * fade * snap.Brightness)

	for i := range r.mainPixels {
		r.mainPixels[i] = HSV(uint8(i*16+hueShift), 255, v)
	}
	for i := range r.auxPixels {
		r.auxPixels[i] = HSV(uint8(i*32+16+hueShift), 255, v)
	}
}

func hueShiftAt(elapsed float64) int {
	return int(elapsed * HueShiftRate)
}

// searchPulse is the breathing intensity shown while no telemetry has arrived
func searchPulse(elapsed float64) float64 {
	s := math.Sin(elapsed * 6)
	return s * s
}
