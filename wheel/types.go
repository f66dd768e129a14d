package wheel

import "time"

const (
	MainLEDCount = 16
	AuxLEDCount  = 4
	ButtonCount  = 6

	MinRPM              = 5800
	FlashRPM            = 13800 // Above this RPM the tachometer flashes
	MoneyShiftThreshold = 10200

	// Full on/off period of the over-rev and over-temperature flash, in seconds
	FlashTime = 0.15

	// Engine temperature thresholds, 10x multiplier from the ECU
	EngineColdTemp    = 50 * 10
	EngineHotTemp     = 95 * 10
	EngineVeryHotTemp = 105 * 10

	DefaultBrightness = 1.0
	LowBrightness     = 0.10

	// StartupAnim hands over to StartupSweep once this many seconds have elapsed
	StartupAnimTime = 3.0
	SweepRPMFactor  = 0.6
	HueShiftRate    = 400.0

	DefaultTelemetryFrameID = 0x640
	DefaultCommandFrameID   = 0x641
)

// Mode is the renderer's current animation
type Mode int32

const (
	ModeStartupAnim Mode = iota
	ModeStartupSweep
	ModeTachometer
	ModeRainbowRoad
	ModeButtonTest
)

func (m Mode) String() string {
	switch m {
	case ModeStartupAnim:
		return "startup-anim"
	case ModeStartupSweep:
		return "startup-sweep"
	case ModeTachometer:
		return "tachometer"
	case ModeRainbowRoad:
		return "rainbow"
	case ModeButtonTest:
		return "button-test"
	default:
		return "unknown"
	}
}

// ParseMode maps a display mode command to a Mode. Only the modes that may be
// selected at runtime are accepted.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "tachometer":
		return ModeTachometer, true
	case "rainbow":
		return ModeRainbowRoad, true
	}
	return 0, false
}

// Button identifies one of the six physical wheel buttons. The values double
// as indices into the button test array and the main strip.
type Button int

const (
	ButtonUpshift Button = iota
	ButtonDownshift
	ButtonDRS
	ButtonSettings
	ButtonAux1
	ButtonAux2
)

func (b Button) String() string {
	switch b {
	case ButtonUpshift:
		return "upshift"
	case ButtonDownshift:
		return "downshift"
	case ButtonDRS:
		return "drs"
	case ButtonSettings:
		return "settings"
	case ButtonAux1:
		return "aux1"
	case ButtonAux2:
		return "aux2"
	default:
		return "unknown"
	}
}

// Buttons lists every button in index order
var Buttons = [ButtonCount]Button{
	ButtonUpshift, ButtonDownshift, ButtonDRS, ButtonSettings, ButtonAux1, ButtonAux2,
}

// Edge is a debounced level change. Buttons are pulled up, so pressing one
// produces EdgeFall and releasing it EdgeRise.
type Edge int

const (
	EdgeRise Edge = iota
	EdgeFall
)

func (e Edge) String() string {
	if e == EdgeFall {
		return "fall"
	}
	return "rise"
}

// Config contains the tunables of the wheel core
type Config struct {
	LEDRate          int // frames per second
	BootWindow       time.Duration
	LongPress        time.Duration
	TestPollPeriod   time.Duration
	QueueSize        int
	TelemetryFrameID uint32
	CommandFrameID   uint32
}

func DefaultConfig() Config {
	return Config{
		LEDRate:          60,
		BootWindow:       5 * time.Second,
		LongPress:        3 * time.Second,
		TestPollPeriod:   50 * time.Millisecond,
		QueueSize:        32,
		TelemetryFrameID: DefaultTelemetryFrameID,
		CommandFrameID:   DefaultCommandFrameID,
	}
}
