package wheel

import (
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/go-logr/logr/funcr"

	"github.com/san-kum/vescwheel/internal/control"
)

type recordingDriver struct {
	mu        sync.Mutex
	duties    []float64
	requests  int
	onRequest func()
}

func (d *recordingDriver) SetDutyCycle(duty float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.duties = append(d.duties, duty)
}

func (d *recordingDriver) RequestState() {
	d.mu.Lock()
	d.requests++
	fn := d.onRequest
	d.mu.Unlock()
	if fn != nil {
		fn()
	}
}

var testGeometry = control.Geometry{PolePairs: 15, GearRatio: 1, TorqueConst: 0.3}

func newTestController(t *testing.T) (*Controller, *recordingDriver) {
	t.Helper()
	drv := &recordingDriver{}
	c, err := New(control.DefaultGains(), testGeometry, drv)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, drv
}

func TestNewValidation(t *testing.T) {
	if _, err := New(control.DefaultGains(), testGeometry, nil); !errors.Is(err, ErrNilDriver) {
		t.Errorf("nil driver: got %v, want ErrNilDriver", err)
	}

	geom := testGeometry
	geom.PolePairs = 0
	if _, err := New(control.DefaultGains(), geom, &recordingDriver{}); !errors.Is(err, control.ErrInvalidGeometry) {
		t.Errorf("zero pole pairs: got %v, want ErrInvalidGeometry", err)
	}

	gains := control.DefaultGains()
	gains.ControlRate = 0
	if _, err := New(gains, testGeometry, &recordingDriver{}); !errors.Is(err, control.ErrInvalidGains) {
		t.Errorf("zero control rate: got %v, want ErrInvalidGains", err)
	}
}

func TestFirstTickResets(t *testing.T) {
	c, drv := newTestController(t)
	c.ApplyTelemetry(ValuesPacket{Position: 2})
	c.SetTargetVelocity(10)

	s := c.Tick()
	if !s.Reset {
		t.Error("first tick should reset")
	}

	snap := c.Snapshot()
	if snap.TargetPulse != 2 {
		t.Errorf("TargetPulse = %v, want 2", snap.TargetPulse)
	}
	if snap.ErrorInteg != 0 {
		t.Errorf("ErrorInteg = %v, want 0", snap.ErrorInteg)
	}
	if want := control.DefaultGains().Kd * 10; math.Abs(s.Duty-want) > 1e-12 {
		t.Errorf("duty = %v, want %v", s.Duty, want)
	}
	if len(drv.duties) != 1 || drv.requests != 1 {
		t.Errorf("driver saw %d duties and %d requests, want 1 each", len(drv.duties), drv.requests)
	}
	if snap.ResetArmed {
		t.Error("reset should disarm with a non-zero reference")
	}
}

func TestResetRearmsAtZeroReference(t *testing.T) {
	c, drv := newTestController(t)
	c.SetTargetVelocity(5)
	c.Tick()
	c.Tick()
	if c.Snapshot().ResetArmed {
		t.Fatal("reset armed while tracking")
	}

	c.SetTargetVelocity(0)
	s := c.Tick()
	if s.Duty != 0 {
		t.Errorf("released duty = %v, want 0", s.Duty)
	}
	if !c.Snapshot().ResetArmed {
		t.Error("reset not re-armed after zero reference")
	}
	if got := drv.duties[len(drv.duties)-1]; got != 0 {
		t.Errorf("driver duty = %v, want 0", got)
	}
}

func TestSensorFaultRecovery(t *testing.T) {
	c, _ := newTestController(t)
	c.SetTargetVelocity(5)
	c.Tick()

	c.ApplyTelemetry(ValuesPacket{Position: 1})
	c.Tick()
	before := c.PositionSens()

	c.ApplyTelemetry(ValuesPacket{Position: 60})
	s := c.Tick()

	if !s.Fault || !s.Reset {
		t.Fatalf("expected fault and reset, got fault=%v reset=%v", s.Fault, s.Reset)
	}
	if got := c.PositionSens(); got != before {
		t.Errorf("position moved on a glitch: %v -> %v", before, got)
	}
	snap := c.Snapshot()
	if snap.Faults != 1 {
		t.Errorf("Faults = %d, want 1", snap.Faults)
	}
	if snap.TargetPulse != 60 {
		t.Errorf("TargetPulse = %v, want re-anchored at 60", snap.TargetPulse)
	}
	if snap.ErrorInteg != 0 {
		t.Errorf("ErrorInteg = %v, want 0 after reset", snap.ErrorInteg)
	}
}

func TestFaultThresholdBoundary(t *testing.T) {
	c, _ := newTestController(t)
	c.SetTargetVelocity(5)
	c.Tick()

	// 3 counts is within PolePairs/4 = 3.75
	c.ApplyTelemetry(ValuesPacket{Position: 3})
	if s := c.Tick(); s.Fault {
		t.Error("3-count step flagged as fault")
	}
	c.ApplyTelemetry(ValuesPacket{Position: 7})
	if s := c.Tick(); !s.Fault {
		t.Error("4-count step not flagged as fault")
	}
}

func TestPositionIntegratesCounts(t *testing.T) {
	c, _ := newTestController(t)
	c.SetTargetVelocity(5)
	c.Tick()

	for _, p := range []int64{1, 3, 6, 9} {
		c.ApplyTelemetry(ValuesPacket{Position: p})
		c.Tick()
	}
	want := 9.0 / 15 * 2 * math.Pi
	if got := c.PositionSens(); math.Abs(got-want) > 1e-12 {
		t.Errorf("PositionSens = %v, want %v", got, want)
	}
}

func TestTickReusesLastDiffWithoutTelemetry(t *testing.T) {
	c, _ := newTestController(t)
	c.SetTargetVelocity(5)
	c.Tick()

	c.ApplyTelemetry(ValuesPacket{Position: 2})
	c.Tick()
	c.Tick()

	want := 2 * (2.0 / 15 * 2 * math.Pi)
	if got := c.PositionSens(); math.Abs(got-want) > 1e-12 {
		t.Errorf("PositionSens = %v, want %v", got, want)
	}
}

func TestApplyTelemetry(t *testing.T) {
	c, _ := newTestController(t)
	c.SetGearRatio(2)

	c.ApplyTelemetry(ValuesPacket{MotorCurrent: 2, Position: 42, ERPM: 900})
	snap := c.Snapshot()
	if snap.Pulse != 42 || snap.PrevPulse != 0 {
		t.Errorf("pulse/prev = %d/%d, want 42/0", snap.Pulse, snap.PrevPulse)
	}
	if math.Abs(snap.EffortSens-0.3) > 1e-12 {
		t.Errorf("EffortSens = %v, want 0.3", snap.EffortSens)
	}
	if math.Abs(snap.MotorRPM-60) > 1e-12 {
		t.Errorf("MotorRPM = %v, want 60", snap.MotorRPM)
	}

	c.ApplyTelemetry(ValuesPacket{Position: 43})
	if snap := c.Snapshot(); snap.PrevPulse != 42 {
		t.Errorf("PrevPulse = %d, want 42", snap.PrevPulse)
	}
}

func TestIgnoresOtherPackets(t *testing.T) {
	c, _ := newTestController(t)
	c.ApplyTelemetry(ValuesPacket{Position: 5, MotorCurrent: 1})
	before := c.Snapshot()

	c.ApplyTelemetry(FirmwarePacket{Major: 6, Minor: 2})
	c.ApplyTelemetry(UnknownPacket{ID: 0x7f})
	c.ApplyTelemetry(nil)

	after := c.Snapshot()
	if after.Ignored != 3 {
		t.Errorf("Ignored = %d, want 3", after.Ignored)
	}
	after.Ignored = before.Ignored
	if after != before {
		t.Errorf("state changed on ignored packets:\n%+v\n%+v", before, after)
	}
}

func TestSynchronousDriver(t *testing.T) {
	drv := &recordingDriver{}
	c, err := New(control.DefaultGains(), testGeometry, drv)
	if err != nil {
		t.Fatal(err)
	}

	pos := int64(0)
	drv.onRequest = func() {
		pos++
		c.ApplyTelemetry(ValuesPacket{Position: pos})
	}

	c.SetTargetVelocity(3)
	for i := 0; i < 10; i++ {
		c.Tick()
	}
	if got := c.Snapshot().Packets; got != 10 {
		t.Errorf("Packets = %d, want 10", got)
	}
}

func TestConcurrentIngest(t *testing.T) {
	c, _ := newTestController(t)
	c.SetTargetVelocity(4)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := int64(0); i < 1000; i++ {
			c.ApplyTelemetry(ValuesPacket{Position: i / 3, MotorCurrent: 1})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			s := c.Tick()
			if math.Abs(s.Duty) > 1 {
				t.Errorf("duty %v exceeds limit", s.Duty)
				return
			}
		}
	}()
	wg.Wait()

	if snap := c.Snapshot(); snap.Ticks != 1000 || snap.Packets != 1000 {
		t.Errorf("ticks/packets = %d/%d, want 1000/1000", snap.Ticks, snap.Packets)
	}
}

func TestControllerParams(t *testing.T) {
	c, _ := newTestController(t)

	if err := c.SetParam("kp", 0.02); err != nil {
		t.Fatalf("SetParam(kp): %v", err)
	}
	if err := c.SetParam("pole_pairs", 23); err != nil {
		t.Fatalf("SetParam(pole_pairs): %v", err)
	}

	params := c.GetParams()
	if params["kp"] != 0.02 || params["pole_pairs"] != 23 {
		t.Errorf("params not applied: %v", params)
	}
	if c.Geometry().PolePairs != 23 || c.Gains().Kp != 0.02 {
		t.Error("getters disagree with params")
	}

	for _, tc := range []struct {
		name  string
		value float64
	}{
		{"pole_pairs", 0},
		{"pole_pairs", 2.5},
		{"gear_ratio", 0},
		{"control_rate", -1},
		{"unknown", 1},
	} {
		if err := c.SetParam(tc.name, tc.value); err == nil {
			t.Errorf("SetParam(%s, %v) should fail", tc.name, tc.value)
		}
	}
}

func TestLogVerbosity(t *testing.T) {
	var lines []string
	log := funcr.New(func(prefix, args string) {
		lines = append(lines, args)
	}, funcr.Options{Verbosity: 1})

	c, err := New(control.DefaultGains(), testGeometry, &recordingDriver{}, WithLogger(log))
	if err != nil {
		t.Fatal(err)
	}
	c.SetTargetVelocity(5)
	c.Tick()
	c.ApplyTelemetry(FirmwarePacket{Major: 6, Minor: 2})
	c.ApplyTelemetry(ValuesPacket{Position: 60})
	c.Tick()

	joined := strings.Join(lines, "\n")
	if !strings.Contains(joined, "controller configured") {
		t.Error("configuration not logged")
	}
	if !strings.Contains(joined, "hall counter jump") {
		t.Error("sensor fault not logged at V(1)")
	}
	if strings.Contains(joined, "ignoring packet") {
		t.Error("ignored packet logged above its verbosity")
	}
}

func TestCounterJumpAcrossInt64Range(t *testing.T) {
	c, _ := newTestController(t)
	c.SetTargetVelocity(5)

	c.ApplyTelemetry(ValuesPacket{Position: math.MinInt64})
	c.Tick()
	before := c.PositionSens()

	c.ApplyTelemetry(ValuesPacket{Position: math.MaxInt64})
	s := c.Tick()

	if !s.Fault || !s.Reset {
		t.Fatalf("expected fault and reset, got fault=%v reset=%v", s.Fault, s.Reset)
	}
	if got := c.PositionSens(); got != before {
		t.Errorf("position moved on a full-range jump: %v -> %v", before, got)
	}
}

func TestApplyTelemetryPointer(t *testing.T) {
	c, _ := newTestController(t)

	c.ApplyTelemetry(&ValuesPacket{MotorCurrent: 2, Position: 42})
	snap := c.Snapshot()
	if snap.Pulse != 42 || snap.Packets != 1 {
		t.Errorf("pulse=%d packets=%d, want 42/1", snap.Pulse, snap.Packets)
	}

	var nilValues *ValuesPacket
	c.ApplyTelemetry(nilValues)
	snap = c.Snapshot()
	if snap.Pulse != 42 || snap.Ignored != 1 {
		t.Errorf("nil pointer: pulse=%d ignored=%d, want 42/1", snap.Pulse, snap.Ignored)
	}
}
