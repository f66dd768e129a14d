package wheel

import "sync"

// VehicleState is the latest telemetry and UI configuration shared between
// the work items. Every field is only touched with mu held.
type VehicleState struct {
	mu          sync.Mutex
	rpm         int
	engineTemp  int
	canReceived bool
	drsEngaged  bool
	brightness  float64
	buttons     [ButtonCount]bool
}

// Snapshot is a consistent copy of VehicleState
type Snapshot struct {
	RPM         int
	EngineTemp  int
	CANReceived bool
	DRSEngaged  bool
	Brightness  float64
	Buttons     [ButtonCount]bool
}

func NewVehicleState() *VehicleState {
	return &VehicleState{
		brightness: DefaultBrightness,
	}
}

func (s *VehicleState) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		RPM:         s.rpm,
		EngineTemp:  s.engineTemp,
		CANReceived: s.canReceived,
		DRSEngaged:  s.drsEngaged,
		Brightness:  s.brightness,
		Buttons:     s.buttons,
	}
}

// UpdateTelemetry stores a decoded telemetry frame. The engine temperature is
// left untouched when the frame did not carry one.
func (s *VehicleState) UpdateTelemetry(rpm int, engineTemp int, hasTemp bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rpm = rpm
	if hasTemp {
		s.engineTemp = engineTemp
	}
	s.canReceived = true
}

func (s *VehicleState) RPM() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rpm
}

func (s *VehicleState) DRSEngaged() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drsEngaged
}

func (s *VehicleState) SetDRSEngaged(engaged bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drsEngaged = engaged
}

func (s *VehicleState) Brightness() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.brightness
}

// ToggleBrightness flips between the two brightness presets and returns the
// new value.
func (s *VehicleState) ToggleBrightness() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.brightness == DefaultBrightness {
		s.brightness = LowBrightness
	} else {
		s.brightness = DefaultBrightness
	}
	return s.brightness
}

func (s *VehicleState) SetButton(b Button, pressed bool) {
	if b < 0 || int(b) >= ButtonCount {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.buttons[b] = pressed
}

func (s *VehicleState) ClearButtons() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buttons = [ButtonCount]bool{}
}
