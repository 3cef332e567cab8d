// Package optim tunes controller gains by exhaustive search over a grid.
package optim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/vescwheel/internal/config"
	"github.com/san-kum/vescwheel/internal/dynamo"
	"github.com/san-kum/vescwheel/internal/experiment"
)

var ErrNoCandidate = errors.New("optim: no candidate completed")

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Result is the best point found.
type Result struct {
	Params    map[string]float64
	Value     float64
	Evaluated int
	Failed    int
}

// Builder makes an experiment for one point of the grid.
type Builder func(params map[string]float64) (*experiment.Experiment, error)

// FromConfig returns a Builder that applies each point to a copy of base.
func FromConfig(base *config.Config, opts ...experiment.Option) Builder {
	return func(params map[string]float64) (*experiment.Experiment, error) {
		cfg := base.Clone()
		for name, v := range params {
			if err := cfg.ApplyParam(name, v); err != nil {
				return nil, err
			}
		}
		return experiment.New(cfg, opts...)
	}
}

// Points enumerates the grid in row-major order.
func (g *GridSearch) Points() []map[string]float64 {
	points := []map[string]float64{{}}
	for depth, name := range g.paramNames {
		next := make([]map[string]float64, 0, len(points)*len(g.ranges[depth]))
		for _, p := range points {
			for _, v := range g.ranges[depth] {
				q := make(map[string]float64, len(p)+1)
				for k, pv := range p {
					q[k] = pv
				}
				q[name] = v
				next = append(next, q)
			}
		}
		points = next
	}
	return points
}

// Search runs every grid point and returns the one minimising metricName.
// Points that fail to build or run are counted and skipped. Ties go to
// the earlier point.
func (g *GridSearch) Search(ctx context.Context, build Builder, metricName string) (*Result, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, fmt.Errorf("optim: %d params but %d ranges", len(g.paramNames), len(g.ranges))
	}

	points := g.Points()
	values := make([]float64, len(points))
	ok := make([]bool, len(points))

	dynamo.ParallelFor(len(points), 1, func(start, end int) {
		for i := start; i < end; i++ {
			if ctx.Err() != nil {
				return
			}
			exp, err := build(points[i])
			if err != nil {
				continue
			}
			res, err := exp.Run(ctx)
			if err != nil {
				continue
			}
			v, found := res.Metrics[metricName]
			if !found || math.IsNaN(v) {
				continue
			}
			values[i], ok[i] = v, true
		}
	})

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := &Result{Value: math.Inf(1)}
	for i, p := range points {
		if !ok[i] {
			out.Failed++
			continue
		}
		out.Evaluated++
		if values[i] < out.Value {
			out.Value = values[i]
			out.Params = p
		}
	}

	if out.Params == nil {
		return out, ErrNoCandidate
	}
	return out, nil
}
