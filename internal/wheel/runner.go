package wheel

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"

	"github.com/san-kum/vescwheel/internal/dynamo"
)

// Runner drives a Controller in real time: a ticker at the control rate
// calls Tick while a background goroutine applies packets from the drive.
type Runner struct {
	ctrl       *Controller
	packets    <-chan Packet
	log        logr.Logger
	staleAfter time.Duration
	observers  []dynamo.Observer
	lastRx     atomic.Int64
}

type RunnerOption func(*Runner)

func WithRunnerLogger(log logr.Logger) RunnerOption {
	return func(r *Runner) {
		r.log = log
	}
}

// WithStaleAfter sets how long the runner tolerates silence from the drive
// before logging a warning. Zero disables the check.
func WithStaleAfter(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.staleAfter = d
	}
}

func WithObserver(o dynamo.Observer) RunnerOption {
	return func(r *Runner) {
		r.observers = append(r.observers, o)
	}
}

func NewRunner(ctrl *Controller, packets <-chan Packet, opts ...RunnerOption) (*Runner, error) {
	if ctrl == nil {
		return nil, ErrNilController
	}
	r := &Runner{
		ctrl:       ctrl,
		packets:    packets,
		log:        logr.Discard(),
		staleAfter: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run blocks until ctx is done and returns ctx.Err().
func (r *Runner) Run(ctx context.Context) error {
	period := r.ctrl.Gains().Period()
	r.log.Info("starting control loop", "period", period)

	start := time.Now()
	r.lastRx.Store(start.UnixNano())

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	go r.receiveLoop(ctx)

	warned := false
	for {
		select {
		case <-ctx.Done():
			snap := r.ctrl.Snapshot()
			r.log.Info("control loop stopped", "ticks", snap.Ticks, "faults", snap.Faults, "packets", snap.Packets)
			return ctx.Err()

		case now := <-ticker.C:
			sample := r.ctrl.Tick()
			sample.Time = now.Sub(start).Seconds()
			for _, o := range r.observers {
				o.OnTick(sample)
			}

			if r.staleAfter > 0 {
				age := now.Sub(time.Unix(0, r.lastRx.Load()))
				if age > r.staleAfter && !warned {
					r.log.Info("no telemetry from drive", "age", age)
					warned = true
				} else if age <= r.staleAfter {
					warned = false
				}
			}
		}
	}
}

func (r *Runner) receiveLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-r.packets:
			if !ok {
				r.log.V(1).Info("packet channel closed")
				return
			}
			r.ctrl.ApplyTelemetry(p)
			r.lastRx.Store(time.Now().UnixNano())
		}
	}
}
