package main

import (
	"strconv"

	"wheel-service/wheel"
)

// RedisStatus is the wheel status mirrored into the steering-wheel hash
type RedisStatus struct {
	RPM         int
	EngineTemp  int // 10x degrees
	CANReceived bool
	DRSEngaged  bool
	Brightness  float64
	Mode        wheel.Mode
}

func statusFromSnapshot(snap wheel.Snapshot, mode wheel.Mode) RedisStatus {
	return RedisStatus{
		RPM:         snap.RPM,
		EngineTemp:  snap.EngineTemp,
		CANReceived: snap.CANReceived,
		DRSEngaged:  snap.DRSEngaged,
		Brightness:  snap.Brightness,
		Mode:        mode,
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func (s RedisStatus) fields() map[string]interface{} {
	return map[string]interface{}{
		"rpm":         s.RPM,
		"engine-temp": s.EngineTemp,
		"can":         onOff(s.CANReceived),
		"drs":         onOff(s.DRSEngaged),
		"brightness":  strconv.FormatFloat(s.Brightness, 'f', 2, 64),
		"mode":        s.Mode.String(),
	}
}
