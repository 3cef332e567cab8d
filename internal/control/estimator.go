package control

import "math"

const (
	// HistoryDepth is the number of level changes and rates retained.
	HistoryDepth = 10
	// MaxHold caps how many ticks a single level is credited with.
	MaxHold = 100
	// MaxRate rejects estimates larger than this many counts per tick.
	MaxRate = 100.0
)

type levelRun struct {
	level uint16
	hold  int
}

// Estimator turns a quantized counter into a counts-per-tick rate by
// dividing each level step by how many ticks the level before it persisted.
// Both histories are fixed rings indexed from a single head, so Update is
// O(1) and allocation free.
//
// Counts are truncated to 16 bits. A wrap of the hardware counter therefore
// shows up as a step far above MaxRate and is reported as zero.
//
// The zero value resets itself on the first Update.
type Estimator struct {
	runs     [HistoryDepth]levelRun
	rates    [HistoryDepth]float64
	head     int
	rateHead int
	running  int
}

func quantize(count float64) uint16 {
	return uint16(int64(count))
}

// Reset fills the history with count held for MaxHold ticks and returns 0.
func (e *Estimator) Reset(count float64) float64 {
	lv := quantize(count)
	for i := range e.runs {
		e.runs[i] = levelRun{level: lv, hold: MaxHold}
		e.rates[i] = 0
	}
	e.head = 0
	e.rateHead = 0
	e.running = 1
	return 0
}

func (e *Estimator) run(i int) *levelRun {
	return &e.runs[(e.head+i)%HistoryDepth]
}

// Update feeds one sample and returns the rate in counts per tick.
func (e *Estimator) Update(count float64) float64 {
	if e.running == 0 {
		return e.Reset(count)
	}

	lv := quantize(count)
	if newest := e.run(0); newest.level != lv {
		e.head = (e.head + HistoryDepth - 1) % HistoryDepth
		e.runs[e.head] = levelRun{level: lv, hold: e.running}
		e.running = 1
	} else {
		// a stalled counter keeps stretching the newest run
		if e.running > newest.hold {
			newest.hold = e.running
		}
		if e.running < MaxHold {
			e.running++
		}
	}

	cur, prev := e.run(0), e.run(1)
	rate := float64(int(cur.level)-int(prev.level)) / float64(cur.hold)

	e.rateHead = (e.rateHead + HistoryDepth - 1) % HistoryDepth
	e.rates[e.rateHead] = rate

	if math.Abs(rate) > MaxRate {
		return 0
	}
	return rate
}

// Hold reports how many ticks the newest level has been credited with.
func (e *Estimator) Hold() int {
	return e.run(0).hold
}

// Rates returns the raw (unfiltered) rate history, newest first.
func (e *Estimator) Rates() []float64 {
	out := make([]float64, HistoryDepth)
	for i := range out {
		out[i] = e.rates[(e.rateHead+i)%HistoryDepth]
	}
	return out
}
