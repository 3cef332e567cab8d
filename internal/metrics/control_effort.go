package metrics

import (
	"math"

	"github.com/san-kum/vescwheel/internal/dynamo"
)

// ControlEffort is the mean absolute duty command over the whole run. The
// largest command seen is kept alongside it.
type ControlEffort struct {
	total, peak float64
	ticks       int
}

func NewControlEffort() *ControlEffort { return &ControlEffort{} }

func (*ControlEffort) Name() string { return "control_effort" }

func (c *ControlEffort) Observe(s dynamo.Sample) {
	d := math.Abs(s.Duty)
	c.total += d
	c.peak = math.Max(c.peak, d)
	c.ticks++
}

func (c *ControlEffort) Value() float64 {
	if c.ticks == 0 {
		return 0
	}
	return c.total / float64(c.ticks)
}

// Peak is the largest |duty| observed since the last Reset.
func (c *ControlEffort) Peak() float64 { return c.peak }

func (c *ControlEffort) Reset() { *c = ControlEffort{} }
