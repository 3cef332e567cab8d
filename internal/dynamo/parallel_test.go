package dynamo

import (
	"sync/atomic"
	"testing"
)

func TestParallelForCoversRange(t *testing.T) {
	for _, n := range []int{0, 1, 7, 64, 1001} {
		seen := make([]int32, n)
		ParallelFor(n, 4, func(start, end int) {
			for i := start; i < end; i++ {
				atomic.AddInt32(&seen[i], 1)
			}
		})
		for i, c := range seen {
			if c != 1 {
				t.Fatalf("n=%d: index %d visited %d times", n, i, c)
			}
		}
	}
}

func TestSamplePlantVelocity(t *testing.T) {
	s := Sample{VelocitySens: 3}
	if got := s.PlantVelocity(); got != 3 {
		t.Errorf("without plant state: got %v, want estimate 3", got)
	}
	s.Plant = State{1, 9}
	if got := s.PlantVelocity(); got != 9 {
		t.Errorf("with plant state: got %v, want 9", got)
	}
}
