package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/vescwheel/internal/analysis"
	"github.com/san-kum/vescwheel/internal/automation"
	"github.com/san-kum/vescwheel/internal/config"
	"github.com/san-kum/vescwheel/internal/dynamo"
	"github.com/san-kum/vescwheel/internal/experiment"
	"github.com/san-kum/vescwheel/internal/export"
	"github.com/san-kum/vescwheel/internal/optim"
	"github.com/san-kum/vescwheel/internal/storage"
	"github.com/san-kum/vescwheel/internal/viz"
	"github.com/spf13/cobra"
)

var (
	dataDir   string
	verbosity int

	configFile string
	preset     string
	runName    string
	integrator string
	duration   float64
	substeps   int
	seed       int64
	target     float64
	kp         float64
	ki         float64
	kd         float64
	iClamp     float64
	dutyLimit  float64
	polePairs  int
	load       float64
	runs       int
	noSave     bool

	stepSize float64

	metricName string
	kpRange    string
	kiRange    string
	kdRange    string

	sweepParam string
	sweepMin   float64
	sweepMax   float64
	sweepSteps int

	trials       int
	perturbation float64
	maxTracking  float64

	svgWidth  int
	svgHeight int
	outFile   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "vescwheel",
		Short:         "wheel velocity controller with a simulated motor drive",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".vescwheel", "data directory")
	rootCmd.PersistentFlags().IntVarP(&verbosity, "verbosity", "v", 0, "log verbosity (1 faults, 2 telemetry)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a closed-loop simulation and store it",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addConfigFlags(runCmd)
	runCmd.Flags().StringVar(&runName, "name", "", "run name (defaults to the preset or \"run\")")
	runCmd.Flags().IntVar(&runs, "runs", 1, "number of seeds to run in parallel")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "drive the controller interactively in real time",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addConfigFlags(liveCmd)
	liveCmd.Flags().Float64Var(&stepSize, "step", 1.0, "reference change per key press (rad/s)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "step response and limit cycle analysis of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export the samples of a run as CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "render reference and velocity traces as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().IntVar(&svgWidth, "width", 800, "image width")
	exportSVGCmd.Flags().IntVar(&svgHeight, "height", 400, "image height")
	exportSVGCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (stdout if empty)")

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "grid search kp, ki and kd against a metric",
		Args:  cobra.NoArgs,
		RunE:  tuneGains,
	}
	addConfigFlags(tuneCmd)
	tuneCmd.Flags().StringVar(&metricName, "metric", "tracking_rms", "metric to minimise")
	tuneCmd.Flags().StringVar(&kpRange, "kp-range", "0.0025,0.005,0.01,0.02", "comma separated kp values")
	tuneCmd.Flags().StringVar(&kiRange, "ki-range", "0.0025,0.005,0.01", "comma separated ki values")
	tuneCmd.Flags().StringVar(&kdRange, "kd-range", "0,0.0025,0.005", "comma separated kd values")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a scripted sequence of simulations from yaml",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "sweep one parameter and report the metrics",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	addConfigFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", "kp", "parameter to sweep")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0.001, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 0.02, "last value")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 8, "number of values")

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "check the gains against random plant perturbations",
		Args:  cobra.NoArgs,
		RunE:  runMonteCarlo,
	}
	addConfigFlags(monteCarloCmd)
	monteCarloCmd.Flags().IntVar(&trials, "trials", 50, "number of trials")
	monteCarloCmd.Flags().Float64Var(&perturbation, "perturbation", 0.3, "relative plant perturbation")
	monteCarloCmd.Flags().Float64Var(&maxTracking, "max-tracking", 1.0, "tracking_rms above which a trial counts as unstable")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range config.ListPresets() {
				cfg := config.GetPreset(name)
				fmt.Printf("  %-10s %s\n", name, describeProfile(cfg))
			}
		},
	}

	initConfigCmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "write a config file with default or preset values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.DefaultConfig()
			if preset != "" {
				if cfg = config.GetPreset(preset); cfg == nil {
					return fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
				}
			}
			if err := config.Save(args[0], cfg); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", args[0])
			return nil
		},
	}
	initConfigCmd.Flags().StringVar(&preset, "preset", "", "start from a preset")

	rootCmd.AddCommand(runCmd, liveCmd, listCmd, plotCmd, analyzeCmd,
		exportJSONCmd, exportCSVCmd, exportSVGCmd, tuneCmd, scenarioCmd, sweepCmd,
		monteCarloCmd, presetsCmd, initConfigCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addConfigFlags(cmd *cobra.Command) {
	d := config.DefaultConfig()
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().StringVar(&integrator, "integrator", d.Integrator, "plant integrator")
	cmd.Flags().Float64Var(&duration, "time", d.Duration, "duration (s)")
	cmd.Flags().IntVar(&substeps, "substeps", d.Substeps, "plant steps per control tick")
	cmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	cmd.Flags().Float64Var(&target, "target", config.DefaultTarget, "constant velocity reference (rad/s)")
	cmd.Flags().Float64Var(&kp, "kp", d.Motor.Kp, "proportional gain")
	cmd.Flags().Float64Var(&ki, "ki", d.Motor.Ki, "integral gain")
	cmd.Flags().Float64Var(&kd, "kd", d.Motor.Kd, "derivative gain")
	cmd.Flags().Float64Var(&iClamp, "i-clamp", d.Motor.IClamp, "integral contribution clamp")
	cmd.Flags().Float64Var(&dutyLimit, "duty-limit", d.Motor.DutyLimiter, "duty cycle limit")
	cmd.Flags().IntVar(&polePairs, "pole-pairs", d.Motor.PolePairs, "hall counts per wheel revolution")
	cmd.Flags().Float64Var(&load, "load", d.Plant.Load, "load torque (N·m)")
}

// buildConfig resolves preset, then config file, then explicitly set flags.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		if cfg = config.GetPreset(preset); cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	f := cmd.Flags()
	if f.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if f.Changed("time") {
		cfg.Duration = duration
	}
	if f.Changed("substeps") {
		cfg.Substeps = substeps
	}
	if f.Changed("seed") || cfg.Seed == 0 {
		cfg.Seed = seed
	}
	if f.Changed("target") {
		cfg.Profile = []config.Setpoint{{At: 0, Velocity: target}}
	}
	if f.Changed("kp") {
		cfg.Motor.Kp = kp
	}
	if f.Changed("ki") {
		cfg.Motor.Ki = ki
	}
	if f.Changed("kd") {
		cfg.Motor.Kd = kd
	}
	if f.Changed("i-clamp") {
		cfg.Motor.IClamp = iClamp
	}
	if f.Changed("duty-limit") {
		cfg.Motor.DutyLimiter = dutyLimit
	}
	if f.Changed("pole-pairs") {
		cfg.Motor.PolePairs = polePairs
	}
	if f.Changed("load") {
		cfg.Plant.Load = load
	}

	return cfg, cfg.Validate()
}

func newLogger() logr.Logger {
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			fmt.Fprintf(os.Stderr, "%s: %s\n", prefix, args)
			return
		}
		fmt.Fprintln(os.Stderr, args)
	}, funcr.Options{Verbosity: verbosity})
}

func describeProfile(cfg *config.Config) string {
	parts := make([]string, len(cfg.Profile))
	for i, sp := range cfg.Profile {
		parts[i] = fmt.Sprintf("%.4g rad/s @ %gs", sp.Velocity, sp.At)
	}
	desc := strings.Join(parts, ", ")
	if len(cfg.Glitches) > 0 || cfg.GlitchRate > 0 {
		desc += " (glitches)"
	}
	return desc
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	log := newLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if runs > 1 {
		return runEnsemble(ctx, cfg, log)
	}

	exp, err := experiment.New(cfg, experiment.WithLogger(log))
	if err != nil {
		return err
	}

	fmt.Printf("running %s for %.1fs at %.0f Hz...\n", describeProfile(cfg), cfg.Duration, cfg.Motor.ControlRate)
	result, err := exp.Run(ctx)
	if err != nil && !errors.Is(err, dynamo.ErrContextCanceled) {
		return err
	}

	fmt.Printf("completed %d ticks in %v (faults: %d)\n", result.Ticks, result.Elapsed, result.Faults)
	if result.Canceled {
		fmt.Println("interrupted, partial run")
	}

	if !noSave {
		name := runName
		if name == "" {
			name = preset
		}
		if name == "" {
			name = "run"
		}
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(name, cfg, result)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}

	fmt.Println("\nmetrics:")
	printMetrics(result.Metrics)
	fmt.Println()
	fmt.Println(plotSamples(result.Samples))
	return nil
}

func runEnsemble(ctx context.Context, cfg *config.Config, log logr.Logger) error {
	fmt.Printf("running %d seeds from %d...\n", runs, cfg.Seed)
	results, err := experiment.Ensemble(ctx, cfg, runs, experiment.WithLogger(log))
	if err != nil {
		return err
	}

	sums := make(map[string]float64)
	worst := make(map[string]float64)
	for _, r := range results {
		for name, v := range r.Metrics {
			sums[name] += v
			worst[name] = math.Max(worst[name], v)
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METRIC\tMEAN\tMAX")
	for _, name := range sortedKeys(sums) {
		fmt.Fprintf(w, "%s\t%.6f\t%.6f\n", name, sums[name]/float64(len(results)), worst[name])
	}
	return w.Flush()
}

func printMetrics(m map[string]float64) {
	for _, name := range sortedKeys(m) {
		fmt.Printf("  %s: %.6f\n", name, m[name])
	}
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func plotSamples(samples []dynamo.Sample) string {
	if len(samples) < 2 {
		return "no samples"
	}

	ref := make([]float64, len(samples))
	vel := make([]float64, len(samples))
	duty := make([]float64, len(samples))
	for i, s := range samples {
		ref[i] = s.Reference
		vel[i] = s.PlantVelocity()
		duty[i] = s.Duty
	}

	velocity := asciigraph.PlotMany([][]float64{ref, vel},
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.SeriesColors(asciigraph.Yellow, asciigraph.Green),
		asciigraph.Caption("reference (yellow) vs wheel velocity (green), rad/s"),
	)
	dutyPlot := asciigraph.Plot(duty,
		asciigraph.Height(6),
		asciigraph.Width(80),
		asciigraph.Caption("duty cycle"),
	)
	return velocity + "\n\n" + dutyPlot
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	// The TUI owns the terminal, so logs are dropped.
	exp, err := experiment.New(cfg)
	if err != nil {
		return err
	}
	s := exp.GetSimulator()

	m := viz.NewModel(s.Controller(), s.Device(), stepSize)
	if err := m.Start(context.Background()); err != nil {
		return err
	}
	defer m.Stop()

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	return m.Err()
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	stored, err := st.List()
	if err != nil {
		return err
	}

	if len(stored) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTIME\tDURATION\tRATE\tINTEG\tFAULTS\tTRACKING")
	for _, run := range stored {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%.0fHz\t%s\t%d\t%.4f\n",
			run.ID,
			run.Name,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.ControlRate,
			run.Integrator,
			run.Faults,
			run.Metrics["tracking_rms"],
		)
	}
	return w.Flush()
}

func loadRun(runID string) (*storage.RunMetadata, []dynamo.Sample, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	samples, err := st.LoadSamples(runID)
	if err != nil {
		return nil, nil, err
	}
	if len(samples) == 0 {
		return nil, nil, fmt.Errorf("run %s has no samples", runID)
	}
	return meta, samples, nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, samples, err := loadRun(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("gains: kp=%g ki=%g kd=%g\n", meta.Gains["kp"], meta.Gains["ki"], meta.Gains["kd"])
	fmt.Printf("samples: %d\n\n", len(samples))
	fmt.Println(plotSamples(samples))
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	meta, samples, err := loadRun(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n\n", meta.ID)

	// Analyse each constant-reference segment separately.
	start := 0
	for i := 1; i <= len(samples); i++ {
		if i < len(samples) && samples[i].Reference == samples[start].Reference {
			continue
		}
		seg := samples[start:i]
		initial := 0.0
		if start > 0 {
			initial = samples[start-1].PlantVelocity()
		}
		analyzeSegment(seg, initial, meta.ControlRate)
		start = i
	}
	return nil
}

func analyzeSegment(seg []dynamo.Sample, initial, rate float64) {
	ref := seg[0].Reference
	t := make([]float64, len(seg))
	y := make([]float64, len(seg))
	errSig := make([]float64, len(seg))
	for i, s := range seg {
		t[i] = s.Time
		y[i] = s.PlantVelocity()
		errSig[i] = s.Reference - y[i]
	}

	fmt.Printf("segment %.2fs-%.2fs, reference %.4g rad/s\n", t[0], t[len(t)-1], ref)

	step := analysis.Step(t, y, initial, ref, 0.05)
	if step.Settled {
		fmt.Printf("  rise time:     %.3fs\n", step.RiseTime)
		fmt.Printf("  overshoot:     %.1f%%\n", step.Overshoot*100)
		fmt.Printf("  settling time: %.3fs\n", step.SettlingTime)
	} else if ref != initial {
		fmt.Println("  did not settle within 5%")
	}

	// Skip the transient before looking for limit cycles.
	tail := errSig[len(errSig)/2:]
	osc := analysis.DominantOscillation(tail, rate)
	if osc.Frequency > 0 {
		fmt.Printf("  limit cycle:   %.2f Hz, amplitude %.4f rad/s\n", osc.Frequency, osc.Amplitude)
	}
	fmt.Println()
}

func exportJSON(cmd *cobra.Command, args []string) error {
	meta, samples, err := loadRun(args[0])
	if err != nil {
		return err
	}
	return storage.ExportJSON(os.Stdout, meta, samples)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	_, samples, err := loadRun(args[0])
	if err != nil {
		return err
	}
	return storage.WriteSamples(os.Stdout, samples)
}

func exportSVG(cmd *cobra.Command, args []string) error {
	_, samples, err := loadRun(args[0])
	if err != nil {
		return err
	}

	svg := export.SamplesToSVG(samples, svgWidth, svgHeight)
	if outFile == "" {
		_, err = fmt.Print(svg)
		return err
	}
	if err := os.WriteFile(outFile, []byte(svg), 0644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", outFile)
	return nil
}

func parseRange(s string) ([]float64, error) {
	var out []float64
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("bad value %q: %w", f, err)
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty range %q", s)
	}
	return out, nil
}

func tuneGains(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	var ranges [][]float64
	for _, s := range []string{kpRange, kiRange, kdRange} {
		r, err := parseRange(s)
		if err != nil {
			return err
		}
		ranges = append(ranges, r)
	}

	gs := optim.NewGridSearch([]string{"kp", "ki", "kd"}, ranges)
	fmt.Printf("searching %d candidates for minimum %s...\n", len(gs.Points()), metricName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	best, err := gs.Search(ctx, optim.FromConfig(cfg), metricName)
	if err != nil {
		return err
	}

	fmt.Printf("evaluated %d (failed %d)\n", best.Evaluated, best.Failed)
	fmt.Printf("best %s: %.6f\n", metricName, best.Value)
	printMetrics(best.Params)
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("scenario %s: %d steps\n", sc.Name, len(sc.Steps))
	results, err := automation.RunScenario(ctx, sc, newLogger())

	st := storage.New(dataDir)
	if initErr := st.Init(); initErr != nil {
		return initErr
	}
	for i, r := range results {
		fmt.Printf("\nstep %d (%s):\n", i+1, describeProfile(r.Config))
		printMetrics(r.Result.Metrics)
		if r.Step.SaveAs == "" {
			continue
		}
		runID, saveErr := st.Save(r.Step.SaveAs, r.Config, r.Result)
		if saveErr != nil {
			return saveErr
		}
		fmt.Printf("  saved as %s\n", runID)
	}
	return err
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := automation.RunSweep(ctx, &automation.ParameterSweep{
		Base:      cfg,
		ParamName: sweepParam,
		ParamMin:  sweepMin,
		ParamMax:  sweepMax,
		NumSteps:  sweepSteps,
	}, newLogger())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tTRACKING\tEFFORT\tSATURATION\tFAULTS\tFINAL\n", strings.ToUpper(sweepParam))
	for _, r := range results {
		fmt.Fprintf(w, "%.5g\t%.4f\t%.4f\t%.3f\t%d\t%.3f\n",
			r.ParamValue,
			r.Metrics["tracking_rms"],
			r.Metrics["control_effort"],
			r.Metrics["saturation"],
			r.Faults,
			r.FinalSpeed,
		)
	}
	return w.Flush()
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := automation.RunMonteCarlo(ctx, &automation.MonteCarloConfig{
		Base:         cfg,
		Perturbation: perturbation,
		NumTrials:    trials,
		Seed:         cfg.Seed,
		MaxTracking:  maxTracking,
	}, newLogger())
	if err != nil {
		return err
	}

	if len(results) == 0 {
		return fmt.Errorf("no trials run")
	}

	stable, unstable := automation.MonteCarloStats(results)
	worst := results[0]
	for _, r := range results[1:] {
		if r.Tracking > worst.Tracking {
			worst = r
		}
	}

	fmt.Printf("stable: %d  unstable: %d  (±%.0f%% inertia, damping, load)\n", stable, unstable, perturbation*100)
	fmt.Printf("worst trial %d: tracking_rms %.4f (inertia %.4g, damping %.4g, load %.4g)\n",
		worst.TrialID, worst.Tracking, worst.Plant.Inertia, worst.Plant.Damping, worst.Plant.Load)
	return nil
}
