package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/vescwheel/internal/dynamo"
)

func TestTrackingRMSSkipsSettle(t *testing.T) {
	m := NewTrackingRMS(1.0)

	m.Observe(dynamo.Sample{Time: 0.5, Reference: 10, Plant: dynamo.State{0, 0}})
	if m.Value() != 0 {
		t.Fatalf("sample before settle counted: %v", m.Value())
	}

	m.Observe(dynamo.Sample{Time: 1.0, Reference: 10, Plant: dynamo.State{0, 7}})
	m.Observe(dynamo.Sample{Time: 1.5, Reference: 10, Plant: dynamo.State{0, 14}})
	want := math.Sqrt((9.0 + 16.0) / 2)
	if math.Abs(m.Value()-want) > 1e-12 {
		t.Errorf("tracking_rms = %v, want %v", m.Value(), want)
	}

	m.Reset()
	if m.Value() != 0 {
		t.Errorf("value after reset = %v", m.Value())
	}
}

func TestEstimatorRMS(t *testing.T) {
	m := NewEstimatorRMS(0)
	m.Observe(dynamo.Sample{VelocitySens: 9, Plant: dynamo.State{0, 10}})
	m.Observe(dynamo.Sample{VelocitySens: 11, Plant: dynamo.State{0, 10}})
	if math.Abs(m.Value()-1) > 1e-12 {
		t.Errorf("estimator_rms = %v, want 1", m.Value())
	}
}

func TestControlEffort(t *testing.T) {
	m := NewControlEffort()
	for _, d := range []float64{0.2, -0.4, 0} {
		m.Observe(dynamo.Sample{Duty: d})
	}
	if math.Abs(m.Value()-0.2) > 1e-12 {
		t.Errorf("control_effort = %v, want 0.2", m.Value())
	}
	if m.Peak() != 0.4 {
		t.Errorf("peak = %v, want 0.4", m.Peak())
	}

	m.Reset()
	if m.Value() != 0 || m.Peak() != 0 {
		t.Error("Reset did not clear the accumulators")
	}
}

func TestSaturationAndFaults(t *testing.T) {
	sat := NewSaturation(0.5)
	faults := NewFaults()
	for _, s := range []dynamo.Sample{
		{Duty: 0.5, Fault: true},
		{Duty: -0.5},
		{Duty: 0.1},
		{Duty: 0.49, Fault: true},
	} {
		sat.Observe(s)
		faults.Observe(s)
	}
	if sat.Value() != 0.5 {
		t.Errorf("saturation = %v, want 0.5", sat.Value())
	}
	if faults.Value() != 2 {
		t.Errorf("faults = %v, want 2", faults.Value())
	}
}

func TestRegistry(t *testing.T) {
	all := All(Params{Settle: 1, DutyLimit: 1})
	if len(all) != len(Names()) {
		t.Fatalf("All returned %d metrics, want %d", len(all), len(Names()))
	}
	for i, name := range Names() {
		if all[i].Name() != name {
			t.Errorf("metric %d is %s, want %s", i, all[i].Name(), name)
		}
	}
	if _, err := New("energy", Params{}); err == nil {
		t.Error("expected error for unknown metric")
	}
}
