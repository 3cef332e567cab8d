package device

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/san-kum/vescwheel/internal/dynamo"
	"github.com/san-kum/vescwheel/internal/integrators"
	"github.com/san-kum/vescwheel/internal/physics"
	"github.com/san-kum/vescwheel/internal/wheel"
)

func newSim(t *testing.T, opts ...Option) *Sim {
	t.Helper()
	s, err := New(physics.NewMotor(), integrators.NewRK4(), 15, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestNewValidation(t *testing.T) {
	if _, err := New(nil, integrators.NewRK4(), 15); !errors.Is(err, ErrNoPlant) {
		t.Errorf("nil motor: got %v", err)
	}
	if _, err := New(physics.NewMotor(), integrators.NewRK4(), 0); !errors.Is(err, dynamo.ErrParameterBounds) {
		t.Errorf("zero pole pairs: got %v", err)
	}
	if _, err := New(physics.NewMotor(), nil, 15); err == nil {
		t.Error("nil integrator should fail")
	}
}

func TestPollAnnouncesFirmwareOnce(t *testing.T) {
	s := newSim(t)

	first := s.Poll()
	if len(first) != 1 {
		t.Fatalf("first poll returned %d packets, want 1", len(first))
	}
	if _, ok := first[0].(wheel.FirmwarePacket); !ok {
		t.Fatalf("first packet is %T, want FirmwarePacket", first[0])
	}
	if got := s.Poll(); len(got) != 0 {
		t.Errorf("idle poll returned %d packets", len(got))
	}

	s.RequestState()
	s.RequestState()
	got := s.Poll()
	if len(got) != 2 {
		t.Fatalf("got %d packets for 2 requests", len(got))
	}
	for _, p := range got {
		if p.Kind() != "values" {
			t.Errorf("unexpected %s packet", p.Kind())
		}
	}
}

func TestAdvanceSpinsUp(t *testing.T) {
	s := newSim(t)
	s.SetDutyCycle(0.2)

	for i := 0; i < 100; i++ {
		if err := s.Advance(0.02, 10); err != nil {
			t.Fatalf("Advance: %v", err)
		}
	}

	m := physics.NewMotor()
	want := 0.2 * m.NoLoadSpeed()
	x := s.State()
	if math.Abs(x[1]-want)/want > 0.01 {
		t.Errorf("omega after 2s = %v, want ~%v", x[1], want)
	}
	if math.Abs(s.Time()-2) > 1e-9 {
		t.Errorf("Time = %v, want 2", s.Time())
	}

	s.RequestState()
	s.Poll()
	s.RequestState()
	v := s.Poll()[0].(wheel.ValuesPacket)
	if v.Position != physics.Counts(x[0], 15) {
		t.Errorf("Position = %d, want %d", v.Position, physics.Counts(x[0], 15))
	}
	if math.Abs(v.ERPM-physics.ERPM(x[1], 15)) > 1e-9 {
		t.Errorf("ERPM = %v", v.ERPM)
	}
}

func TestInjectGlitchOnce(t *testing.T) {
	s := newSim(t, WithInitialState(2*math.Pi+1e-6, 0))
	s.Poll()

	s.InjectGlitch(40)
	s.RequestState()
	s.RequestState()
	got := s.Poll()

	if p := got[0].(wheel.ValuesPacket).Position; p != 55 {
		t.Errorf("glitched count = %d, want 55", p)
	}
	if p := got[1].(wheel.ValuesPacket).Position; p != 15 {
		t.Errorf("count after glitch = %d, want 15", p)
	}
}

func TestRunDeliversTelemetry(t *testing.T) {
	s := newSim(t)
	out := make(chan wheel.Packet, 8)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	s.RequestState()
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx, 5*time.Millisecond, 2, out) }()

	var kinds []string
	for len(kinds) < 2 {
		select {
		case p := <-out:
			kinds = append(kinds, p.Kind())
		case <-ctx.Done():
			t.Fatalf("timed out with %v", kinds)
		}
	}
	if kinds[0] != "firmware" || kinds[1] != "values" {
		t.Errorf("packets = %v, want [firmware values]", kinds)
	}

	if err := <-errCh; !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run returned %v", err)
	}
}

func TestSimParams(t *testing.T) {
	s := newSim(t)
	if err := s.SetParam("load", 0.4); err != nil {
		t.Fatal(err)
	}
	if s.GetParams()["load"] != 0.4 {
		t.Error("load not applied to plant")
	}
}
