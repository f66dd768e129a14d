package wheel

type Fault uint32

const (
	FaultNone Fault = iota
	FaultCANTxFailed
	FaultQueueOverflow
	FaultTelemetryShortFrame
)

type FaultSeverity int

const (
	SeverityWarning FaultSeverity = iota
	SeverityCritical
)

type FaultConfig struct {
	Code        Fault
	Description string
	Severity    FaultSeverity
}

var faultConfigs = map[Fault]FaultConfig{
	FaultCANTxFailed:         {FaultCANTxFailed, "CAN command frame rejected", SeverityCritical},
	FaultQueueOverflow:       {FaultQueueOverflow, "Work queue overflow", SeverityWarning},
	FaultTelemetryShortFrame: {FaultTelemetryShortFrame, "Short telemetry frame", SeverityWarning},
}

func GetFaultConfig(fault Fault) (FaultConfig, bool) {
	config, ok := faultConfigs[fault]
	return config, ok
}

// AllFaults lists every reportable fault
var AllFaults = []Fault{FaultCANTxFailed, FaultQueueOverflow, FaultTelemetryShortFrame}

// FaultReporter receives fault presence changes. Implementations must not
// block: it is called from the work queue and from producers.
type FaultReporter interface {
	SetFaultPresence(fault Fault, present bool)
}

type nopFaults struct{}

func (nopFaults) SetFaultPresence(Fault, bool) {}
