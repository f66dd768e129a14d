package main

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/go-redis/redis/v8"

	"wheel-service/wheel"
)

func newTestLogger(buf *bytes.Buffer, level LogLevel) *LeveledLogger {
	return NewLeveledLogger(slog.New(newHandler(buf, level, true)), level)
}

func discardLogger() *LeveledLogger {
	return newTestLogger(&bytes.Buffer{}, LogLevelNone)
}

func TestLeveledLogger_Filtering(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf, LogLevelWarn)

	l.Debug("debug %d", 1)
	l.Info("info %d", 2)
	l.Warn("warn %d", 3)
	l.Error("error %d", 4)

	out := buf.String()
	for _, absent := range []string{"debug 1", "info 2"} {
		if strings.Contains(out, absent) {
			t.Errorf("%q should be filtered, got %q", absent, out)
		}
	}
	for _, present := range []string{"warn 3", "error 4"} {
		if !strings.Contains(out, present) {
			t.Errorf("%q missing from %q", present, out)
		}
	}
}

func TestLeveledLogger_DebugCAN(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf, LogLevelDebug)

	l.DebugCAN("TX", 0x641, []byte{1, 0, 0xAB, 0, 0, 0, 0, 0}, 3)

	out := buf.String()
	for _, want := range []string{"CAN TX", "0x641", "01 00 AB"} {
		if !strings.Contains(out, want) {
			t.Errorf("%q missing from %q", want, out)
		}
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected slog.Level
	}{
		{LogLevelNone, levelSilent},
		{LogLevelError, slog.LevelError},
		{LogLevelWarn, slog.LevelWarn},
		{LogLevelInfo, slog.LevelInfo},
		{LogLevelDebug, slog.LevelDebug},
	}
	for _, tc := range tests {
		if got := slogLevel(tc.level); got != tc.expected {
			t.Errorf("slogLevel(%d): expected %v, got %v", tc.level, tc.expected, got)
		}
	}
}

func validOptions() *Options {
	return &Options{
		LogLevel:   LogLevelInfo,
		CANDevice:  "can0",
		GPIOChip:   "gpiochip0",
		ButtonPins: [wheel.ButtonCount]int{5, 6, 13, 19, 26, 21},
		Wheel:      wheel.DefaultConfig(),
	}
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(o *Options)
		valid  bool
	}{
		{"defaults", func(o *Options) {}, true},
		{"log level too high", func(o *Options) { o.LogLevel = 5 }, false},
		{"zero LED rate", func(o *Options) { o.Wheel.LEDRate = 0 }, false},
		{"extended CAN id", func(o *Options) { o.Wheel.CommandFrameID = 0x800 }, false},
		{"shared line", func(o *Options) { o.ButtonPins[wheel.ButtonAux2] = 5 }, false},
		{"negative line", func(o *Options) { o.ButtonPins[wheel.ButtonDRS] = -1 }, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			o := validOptions()
			tc.modify(o)
			err := o.Validate()
			if tc.valid && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tc.valid && err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestOptions_Redis(t *testing.T) {
	o := validOptions()
	if o.RedisEnabled() {
		t.Error("empty server should disable Redis")
	}
	o.RedisServerAddr = "127.0.0.1"
	o.RedisServerPort = 6379
	if !o.RedisEnabled() || o.RedisAddr() != "127.0.0.1:6379" {
		t.Errorf("unexpected Redis address %q", o.RedisAddr())
	}
}

func TestRedisStatus_Fields(t *testing.T) {
	snap := wheel.Snapshot{
		RPM:         9000,
		EngineTemp:  905,
		CANReceived: true,
		DRSEngaged:  false,
		Brightness:  wheel.LowBrightness,
	}
	fields := statusFromSnapshot(snap, wheel.ModeRainbowRoad).fields()

	expected := map[string]interface{}{
		"rpm":         9000,
		"engine-temp": 905,
		"can":         "on",
		"drs":         "off",
		"brightness":  "0.10",
		"mode":        "rainbow",
	}
	if len(fields) != len(expected) {
		t.Fatalf("expected %d fields, got %v", len(expected), fields)
	}
	for k, v := range expected {
		if fields[k] != v {
			t.Errorf("%s: expected %v, got %v", k, v, fields[k])
		}
	}
}

func TestIPCTx_OnlyChangesAreSent(t *testing.T) {
	tx := NewIPCTx(discardLogger(), nil)
	status := RedisStatus{RPM: 1000, Brightness: 1}

	if !tx.changed(status) {
		t.Error("first status should be sent")
	}
	if tx.changed(status) {
		t.Error("identical status should be skipped")
	}
	status.DRSEngaged = true
	if !tx.changed(status) {
		t.Error("changed status should be sent")
	}
}

type fakeRequester struct {
	modes []wheel.Mode
	err   error
}

func (f *fakeRequester) RequestMode(mode wheel.Mode) error {
	f.modes = append(f.modes, mode)
	return f.err
}

func TestIPCRx_HandleCommand(t *testing.T) {
	target := &fakeRequester{}
	rx := NewIPCRx(discardLogger(), nil, target)

	rx.handleCommand("rainbow")
	rx.handleCommand(" Tachometer\n")
	rx.handleCommand("button-test")
	rx.handleCommand("disco")

	expected := []wheel.Mode{wheel.ModeRainbowRoad, wheel.ModeTachometer}
	if len(target.modes) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, target.modes)
	}
	for i := range expected {
		if target.modes[i] != expected[i] {
			t.Errorf("command %d: expected %s, got %s", i, expected[i], target.modes[i])
		}
	}

	target.err = wheel.ErrQueueFull
	rx.handleCommand("rainbow")
	if len(target.modes) != 3 {
		t.Error("a rejected request must still be attempted once")
	}
}

func TestDiag_TracksPresenceWithoutRedis(t *testing.T) {
	d := NewDiag(discardLogger(), nil)

	d.SetFaultPresence(wheel.FaultCANTxFailed, true)
	if !d.IsPresent(wheel.FaultCANTxFailed) {
		t.Fatal("fault should be present")
	}
	d.SetFaultPresence(wheel.FaultCANTxFailed, false)
	if d.IsPresent(wheel.FaultCANTxFailed) {
		t.Error("fault should be cleared")
	}
	if len(d.events) != 0 {
		t.Errorf("nothing should be queued without Redis, got %d", len(d.events))
	}
}

func TestDiag_QueuesOnlyChanges(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()
	d := NewDiag(discardLogger(), client)

	d.SetFaultPresence(wheel.FaultQueueOverflow, true)
	d.SetFaultPresence(wheel.FaultQueueOverflow, true)
	d.SetFaultPresence(wheel.FaultQueueOverflow, false)
	d.SetFaultPresence(wheel.FaultQueueOverflow, false)
	d.SetFaultPresence(wheel.FaultNone, true)

	if len(d.events) != 2 {
		t.Fatalf("expected 2 queued reports, got %d", len(d.events))
	}
	first := <-d.events
	second := <-d.events
	if !first.present || second.present || first.fault != wheel.FaultQueueOverflow {
		t.Errorf("unexpected reports %+v %+v", first, second)
	}
}

func TestDiag_DropsWhenQueueFull(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()
	d := NewDiag(discardLogger(), client)

	present := false
	for i := 0; i < diagQueueSize; i++ {
		present = !present
		d.SetFaultPresence(wheel.FaultCANTxFailed, present)
	}
	// Queue is full; this change is dropped and left unrecorded
	d.SetFaultPresence(wheel.FaultCANTxFailed, !present)
	if d.IsPresent(wheel.FaultCANTxFailed) != present {
		t.Error("dropped change must not be recorded")
	}

	<-d.events
	d.SetFaultPresence(wheel.FaultCANTxFailed, !present)
	if d.IsPresent(wheel.FaultCANTxFailed) == present {
		t.Error("change should be recorded once there is room")
	}
}

func TestHexBytes(t *testing.T) {
	if got := hexBytes([]byte{0xDE, 0xAD, 0xBE, 0xEF}, 2); got != "DE AD" {
		t.Errorf("expected %q, got %q", "DE AD", got)
	}
	if got := hexBytes(nil, 4); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}
