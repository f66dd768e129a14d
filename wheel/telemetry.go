package wheel

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/brutella/can"
)

var ErrShortFrame = errors.New("short telemetry frame")

const (
	telemetryMinLength      = 2 // rpm
	telemetryWithTempLength = 4 // rpm + engine temperature
)

// TelemetryIngest decodes ECU frames into the vehicle state
type TelemetryIngest struct {
	state   *VehicleState
	frameID uint32
	log     Logger
	faults  FaultReporter
}

func NewTelemetryIngest(state *VehicleState, frameID uint32, logger Logger, faults FaultReporter) *TelemetryIngest {
	if faults == nil {
		faults = nopFaults{}
	}
	return &TelemetryIngest{
		state:   state,
		frameID: frameID,
		log:     logger,
		faults:  faults,
	}
}

// HandleFrame decodes a telemetry frame. Frames with any other identifier are
// ignored.
func (t *TelemetryIngest) HandleFrame(frame can.Frame) error {
	if frame.ID != t.frameID {
		return nil
	}

	DebugCANFrame(t.log, "RX", frame)

	if frame.Length < telemetryMinLength {
		t.faults.SetFaultPresence(FaultTelemetryShortFrame, true)
		return fmt.Errorf("frame 0x%03X with %d bytes: %w", frame.ID, frame.Length, ErrShortFrame)
	}
	t.faults.SetFaultPresence(FaultTelemetryShortFrame, false)

	// RPM, little endian
	rpm := int(binary.LittleEndian.Uint16(frame.Data[0:2]))

	// Engine temperature, 10x multiplier
	var temp int
	hasTemp := frame.Length >= telemetryWithTempLength
	if hasTemp {
		temp = int(int16(binary.LittleEndian.Uint16(frame.Data[2:4])))
	}

	t.state.UpdateTelemetry(rpm, temp, hasTemp)
	t.log.Debug("RPM: %d", rpm)

	return nil
}
