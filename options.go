package main

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/physic"

	"wheel-service/hardware"
	"wheel-service/wheel"
)

type LogLevel int

const (
	LogLevelNone  LogLevel = 0
	LogLevelError LogLevel = 1
	LogLevelWarn  LogLevel = 2
	LogLevelInfo  LogLevel = 3
	LogLevelDebug LogLevel = 4
)

type Options struct {
	LogLevel        LogLevel
	RedisServerAddr string
	RedisServerPort uint16
	CANDevice       string
	GPIOChip        string
	ButtonPins      [wheel.ButtonCount]int
	Debounce        time.Duration
	MainSPI         string
	AuxSPI          string
	SPIFrequency    physic.Frequency
	Wheel           wheel.Config
}

// RedisEnabled reports whether the status mirror and mode commands are wired
func (o *Options) RedisEnabled() bool {
	return o.RedisServerAddr != ""
}

func (o *Options) RedisAddr() string {
	return fmt.Sprintf("%s:%d", o.RedisServerAddr, o.RedisServerPort)
}

func (o *Options) ButtonConfig() hardware.ButtonConfig {
	return hardware.ButtonConfig{
		Chip:     o.GPIOChip,
		Offsets:  o.ButtonPins,
		Debounce: o.Debounce,
	}
}

// Validate checks the options that flags cannot constrain on their own
func (o *Options) Validate() error {
	if o.LogLevel < LogLevelNone || o.LogLevel > LogLevelDebug {
		return fmt.Errorf("invalid log level %d", o.LogLevel)
	}
	if o.Wheel.LEDRate <= 0 {
		return fmt.Errorf("invalid LED rate %d", o.Wheel.LEDRate)
	}
	if o.Wheel.TelemetryFrameID > 0x7FF || o.Wheel.CommandFrameID > 0x7FF {
		return fmt.Errorf("CAN identifiers must be 11-bit, got telemetry=0x%X command=0x%X",
			o.Wheel.TelemetryFrameID, o.Wheel.CommandFrameID)
	}

	seen := make(map[int]wheel.Button, wheel.ButtonCount)
	for _, b := range wheel.Buttons {
		pin := o.ButtonPins[b]
		if pin < 0 {
			return fmt.Errorf("invalid line %d for %s button", pin, b)
		}
		if other, dup := seen[pin]; dup {
			return fmt.Errorf("%s and %s buttons share line %d", other, b, pin)
		}
		seen[pin] = b
	}
	return nil
}
