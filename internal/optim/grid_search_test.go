package optim

import (
	"context"
	"errors"
	"testing"

	"github.com/san-kum/vescwheel/internal/config"
)

func shortConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Duration = 3
	cfg.Settle = 1
	return cfg
}

func TestPoints(t *testing.T) {
	g := NewGridSearch([]string{"kp", "ki"}, [][]float64{{1, 2, 3}, {10, 20}})
	points := g.Points()
	if len(points) != 6 {
		t.Fatalf("got %d points, want 6", len(points))
	}
	if points[0]["kp"] != 1 || points[0]["ki"] != 10 || points[5]["kp"] != 3 || points[5]["ki"] != 20 {
		t.Errorf("unexpected order: %v", points)
	}
}

func TestSearchFindsMinimum(t *testing.T) {
	base := shortConfig()
	g := NewGridSearch([]string{"kp", "kd"}, [][]float64{{0.001, 0.005, 0.02}, {0.0025}})

	res, err := g.Search(context.Background(), FromConfig(base), "tracking_rms")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Evaluated != 3 || res.Failed != 0 {
		t.Fatalf("evaluated %d, failed %d", res.Evaluated, res.Failed)
	}

	build := FromConfig(base)
	for _, p := range g.Points() {
		exp, err := build(p)
		if err != nil {
			t.Fatal(err)
		}
		r, err := exp.Run(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if v := r.Metrics["tracking_rms"]; v < res.Value {
			t.Errorf("point %v scores %v, better than reported best %v", p, v, res.Value)
		}
	}
}

func TestSearchSkipsBadPoints(t *testing.T) {
	g := NewGridSearch([]string{"control_rate"}, [][]float64{{0, 50}})
	res, err := g.Search(context.Background(), FromConfig(shortConfig()), "control_effort")
	if err != nil {
		t.Fatal(err)
	}
	if res.Failed != 1 || res.Params["control_rate"] != 50 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestSearchNoCandidate(t *testing.T) {
	g := NewGridSearch([]string{"bogus"}, [][]float64{{1}})
	if _, err := g.Search(context.Background(), FromConfig(shortConfig()), "tracking_rms"); !errors.Is(err, ErrNoCandidate) {
		t.Errorf("got %v, want ErrNoCandidate", err)
	}
}

func TestSearchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := NewGridSearch([]string{"kp"}, [][]float64{{0.001, 0.002}})
	if _, err := g.Search(ctx, FromConfig(shortConfig()), "tracking_rms"); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}
