package wheel

import "github.com/brutella/can"

// Logger interface for wheel logging
type Logger interface {
	Printf(format string, v ...interface{})
	Debug(format string, v ...interface{})
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
	DebugCAN(direction string, id uint32, data []byte, length uint8)
}

// DebugCANFrame formats and logs a CAN frame
func DebugCANFrame(logger Logger, direction string, frame can.Frame) {
	if logger != nil {
		logger.DebugCAN(direction, frame.ID, frame.Data[:], frame.Length)
	}
}
