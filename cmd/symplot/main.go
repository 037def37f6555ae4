package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot/vg"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/symplot/internal/analysis"
	"github.com/san-kum/symplot/internal/config"
	"github.com/san-kum/symplot/internal/dynamo"
	"github.com/san-kum/symplot/internal/experiment"
	"github.com/san-kum/symplot/internal/export"
	"github.com/san-kum/symplot/internal/figure"
	"github.com/san-kum/symplot/internal/integrators"
	"github.com/san-kum/symplot/internal/models"
	"github.com/san-kum/symplot/internal/sim"
	"github.com/san-kum/symplot/internal/storage"
	"github.com/san-kum/symplot/internal/viz"
)

var (
	dataDir string
	theme   string
	verbose bool

	// run / batch
	preset    string
	outDir    string
	workers   int
	solver    string
	points    int
	preview   bool
	saveRun   bool
	jsonOut   bool
	imgWidth  float64
	imgHeight float64

	// eval / phase
	params    map[string]string
	xFrom     float64
	xTo       float64
	equations []string
	variables []string
	initial   []string
	tSpan     []float64
	pair      []int
	ascii     bool

	evalPoints  int
	phasePoints int
	phaseSolver string

	// terminal size
	width  int
	height int
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "symplot",
		Short:        "plot formulas and ODE systems from declarative configs",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			viz.SetTheme(theme)
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".symplot", "data directory")
	rootCmd.PersistentFlags().StringVar(&theme, "theme", "cyberpunk", "terminal theme ("+strings.Join(viz.ThemeNames(), ", ")+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log per-curve progress to stderr")

	runCmd := &cobra.Command{
		Use:   "run [config.yaml]",
		Short: "render a request to an image",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runRequest,
	}
	runCmd.Flags().StringVar(&preset, "preset", "", "use a built-in request instead of a file")
	addRunFlags(runCmd)

	batchCmd := &cobra.Command{
		Use:   "batch [batch.yaml]",
		Short: "render every request listed in a batch file",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}
	addRunFlags(batchCmd)

	validateCmd := &cobra.Command{
		Use:   "validate [config.yaml]...",
		Short: "check request files without computing anything",
		Args:  cobra.MinimumNArgs(1),
		RunE:  validateFiles,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [name]",
		Short: "list built-in requests, or print one as yaml",
		Args:  cobra.MaximumNArgs(1),
		RunE:  showPresets,
	}

	evalCmd := &cobra.Command{
		Use:   "eval [formula]",
		Short: "evaluate a formula of x over a range",
		Args:  cobra.ExactArgs(1),
		RunE:  evalFormula,
	}
	evalCmd.Flags().StringToStringVarP(&params, "param", "p", nil, "parameter values (name=value)")
	evalCmd.Flags().Float64Var(&xFrom, "from", 0, "start of the x range")
	evalCmd.Flags().Float64Var(&xTo, "to", 1, "end of the x range")
	evalCmd.Flags().IntVarP(&evalPoints, "points", "n", 11, "number of samples")
	addSizeFlags(evalCmd, 60, 10)

	phaseCmd := &cobra.Command{
		Use:   "phase",
		Short: "sketch phase trajectories of an ODE system in the terminal",
		RunE:  phaseSketch,
	}
	phaseCmd.Flags().StringArrayVarP(&equations, "eq", "e", nil, "right-hand side, one per variable")
	phaseCmd.Flags().StringSliceVar(&variables, "var", nil, "state variable names, in order")
	phaseCmd.Flags().StringArrayVar(&initial, "ic", nil, "initial condition, comma separated (repeatable)")
	phaseCmd.Flags().Float64SliceVar(&tSpan, "t", []float64{0, 10}, "time span start,end")
	phaseCmd.Flags().IntSliceVar(&pair, "pair", []int{0, 1}, "variable indices for the axes")
	phaseCmd.Flags().StringToStringVarP(&params, "param", "p", nil, "parameter values (name=value)")
	phaseCmd.Flags().StringVar(&phaseSolver, "solver", dynamo.DefaultMethod, "integration method ("+strings.Join(integrators.Names(), ", ")+")")
	phaseCmd.Flags().IntVarP(&phasePoints, "points", "n", dynamo.DefaultSamples, "samples per trajectory")
	phaseCmd.Flags().IntVar(&workers, "workers", 0, "parallel trajectories (0 = one per CPU)")
	phaseCmd.Flags().BoolVar(&ascii, "ascii", false, "plain character plot, one per trajectory")
	addSizeFlags(phaseCmd, 60, 20)
	phaseCmd.MarkFlagRequired("eq")
	phaseCmd.MarkFlagRequired("var")
	phaseCmd.MarkFlagRequired("ic")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "preview a stored run in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	addSizeFlags(plotCmd, 70, 15)

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id] [path]",
		Short: "export a stored run as JSON (stdout when no path)",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  exportJSON,
	}

	renderCmd := &cobra.Command{
		Use:   "render [run_id] [path]",
		Short: "re-render a stored run to an image",
		Args:  cobra.ExactArgs(2),
		RunE:  renderRun,
	}
	renderCmd.Flags().Float64Var(&imgWidth, "width", 8, "image width in inches")
	renderCmd.Flags().Float64Var(&imgHeight, "height", 8, "image height in inches")

	rootCmd.AddCommand(runCmd, batchCmd, validateCmd, presetsCmd, evalCmd, phaseCmd, listCmd, plotCmd, exportJSONCmd, renderCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, viz.StatusError.Render("error: ")+err.Error())
		stop()
		os.Exit(1)
	}
}

// addSizeFlags registers the terminal size flags. The defaults are
// applied in PreRun because the variables are shared between commands.
func addSizeFlags(cmd *cobra.Command, w, h int) {
	cmd.Flags().IntVar(&width, "width", w, "terminal width in columns")
	cmd.Flags().IntVar(&height, "height", h, "terminal height in rows")
	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		if !cmd.Flags().Changed("width") {
			width = w
		}
		if !cmd.Flags().Changed("height") {
			height = h
		}
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "output directory")
	cmd.Flags().IntVar(&workers, "workers", 0, "curves computed in parallel (0 = one per CPU)")
	cmd.Flags().StringVar(&solver, "solver", "", "override the integration method of every curve")
	cmd.Flags().IntVarP(&points, "points", "n", 0, "override n_points")
	cmd.Flags().BoolVar(&preview, "preview", false, "print a terminal preview")
	cmd.Flags().BoolVar(&saveRun, "save", false, "keep the run in the data directory")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "write the curve data next to the image")
	cmd.Flags().Float64Var(&imgWidth, "width", 8, "image width in inches")
	cmd.Flags().Float64Var(&imgHeight, "height", 8, "image height in inches")
}

func logger() *slog.Logger {
	if !verbose {
		return nil
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newRunner() *experiment.Runner {
	r := experiment.NewRunner()
	if workers > 0 {
		r.Workers = workers
	}
	if l := logger(); l != nil {
		r.Logger = l
	}
	return r
}

// applyOverrides lets command line flags win over the request file.
func applyOverrides(cmd *cobra.Command, req *config.Request) {
	if cmd.Flags().Changed("solver") {
		req.Defaults.SolverMethod = solver
		for i := range req.Curves {
			if req.Curves[i].SolverMethod != "" {
				req.Curves[i].SolverMethod = solver
			}
		}
	}
	if cmd.Flags().Changed("points") {
		if req.Defaults.Params == nil {
			req.Defaults.Params = map[string]float64{}
		}
		req.Defaults.Params[config.KeyPoints] = float64(points)
		for i := range req.Curves {
			delete(req.Curves[i].Params, config.KeyPoints)
		}
	}
}

func runRequest(cmd *cobra.Command, args []string) error {
	var req *config.Request
	switch {
	case preset != "":
		req = config.GetPreset(preset)
		if req == nil {
			return fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	case len(args) == 1:
		var err error
		if req, err = config.Load(args[0]); err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	default:
		return errors.New("need a config file or --preset")
	}
	applyOverrides(cmd, req)

	rep, err := render(cmd.Context(), newRunner(), req)
	if err != nil {
		return err
	}
	if !rep.OK() {
		return fmt.Errorf("%d of %d curves failed", len(rep.Failures), len(req.Curves))
	}
	return nil
}

// render runs req, writes the image (and optionally JSON and a stored
// run) and prints a summary.
func render(ctx context.Context, runner *experiment.Runner, req *config.Request) (*experiment.Report, error) {
	fmt.Printf("rendering %s (%s, %d curves)...\n", req.Output, req.Type, len(req.Curves))

	rep, err := runner.Run(ctx, req)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(outDir, req.Output)
	opts := export.Options{Width: vg.Length(imgWidth) * vg.Inch, Height: vg.Length(imgHeight) * vg.Inch}
	if err := export.Save(rep.Figure, path, opts); err != nil {
		return rep, fmt.Errorf("failed to save %s: %w", path, err)
	}

	failures := failureStrings(rep.Failures)
	if jsonOut {
		jsonPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".json"
		if err := export.ExportJSON(jsonPath, export.NewExportData(rep.Type, rep.Output, rep.Figure, failures)); err != nil {
			return rep, err
		}
	}

	fmt.Print(viz.Summary(path, rep.Figure, failures, rep.Elapsed))

	if saveRun {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return rep, err
		}
		id, err := st.Save(storage.Run{
			Type:     rep.Type,
			Output:   rep.Output,
			Elapsed:  rep.Elapsed,
			Figure:   rep.Figure,
			Failures: failures,
		})
		if err != nil {
			return rep, err
		}
		fmt.Printf("run id: %s\n", id)
	}

	if preview {
		fmt.Println()
		fmt.Print(viz.Preview(rep.Figure, 70, 15))
	}
	return rep, nil
}

func failureStrings(fs []experiment.Failure) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.Error()
	}
	return out
}

func runBatch(cmd *cobra.Command, args []string) error {
	paths, err := config.LoadBatch(args[0])
	if err != nil {
		return err
	}
	runner := newRunner()

	failed := 0
	for i, path := range paths {
		fmt.Println(viz.Separator(60))
		fmt.Printf("[%d/%d] %s\n", i+1, len(paths), path)

		req, err := config.Load(path)
		if err == nil {
			applyOverrides(cmd, req)
			var rep *experiment.Report
			rep, err = render(cmd.Context(), runner, req)
			if err == nil && !rep.OK() {
				err = fmt.Errorf("%d curves failed", len(rep.Failures))
			}
		}
		if err != nil {
			failed++
			fmt.Println(viz.StatusError.Render("  " + err.Error()))
		}
		if cmd.Context().Err() != nil {
			return cmd.Context().Err()
		}
	}

	fmt.Println(viz.Separator(60))
	if failed > 0 {
		return fmt.Errorf("%d of %d requests failed", failed, len(paths))
	}
	fmt.Println(viz.StatusOK.Render(fmt.Sprintf("%d requests rendered", len(paths))))
	return nil
}

func validateFiles(cmd *cobra.Command, args []string) error {
	bad := 0
	for _, path := range args {
		req, err := config.Load(path)
		if err == nil {
			err = req.Validate()
		}
		if err != nil {
			bad++
			fmt.Printf("%s %s\n", viz.StatusError.Render("✗"), path)
			for _, line := range strings.Split(err.Error(), "\n") {
				fmt.Printf("    %s\n", line)
			}
			continue
		}
		fmt.Printf("%s %s (%s, %d curves)\n", viz.StatusOK.Render("✓"), path, req.Type, len(req.Curves))
	}
	if bad > 0 {
		return fmt.Errorf("%d invalid files", bad)
	}
	return nil
}

func showPresets(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		req := config.GetPreset(args[0])
		if req == nil {
			return fmt.Errorf("unknown preset: %s (available: %v)", args[0], config.ListPresets())
		}
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(req)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTYPE\tCURVES\tOUTPUT")
	for _, name := range config.ListPresets() {
		req := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", name, req.Type, len(req.Curves), req.Output)
	}
	return w.Flush()
}

func parseParams(raw map[string]string) (map[string]float64, error) {
	out := make(map[string]float64, len(raw))
	for k, v := range raw {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("param %s: %w", k, err)
		}
		out[k] = f
	}
	return out, nil
}

func evalFormula(cmd *cobra.Command, args []string) error {
	fn, err := models.NewFunction(args[0])
	if err != nil {
		return err
	}
	values, err := parseParams(params)
	if err != nil {
		return err
	}
	p, err := fn.ParamVector(values)
	if err != nil {
		return err
	}
	n := evalPoints
	if n < 2 {
		return fmt.Errorf("need at least 2 points, got %d", n)
	}

	xs := floats.Span(make([]float64, n), xFrom, xTo)
	ys, err := fn.Evaluate(xs, p)
	if err != nil {
		return err
	}

	fmt.Println(viz.HeaderStyle.Render(fn.Formula()))
	if len(fn.Params()) > 0 {
		fmt.Printf("%s %v\n", viz.MetricLabel.Render("params:"), fn.Params())
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "x\tf(x)\t")
	step := max(1, n/20)
	for i := 0; i < n; i += step {
		fmt.Fprintf(w, "%.6g\t%.6g\t\n", xs[i], ys[i])
	}
	if (n-1)%step != 0 {
		fmt.Fprintf(w, "%.6g\t%.6g\t\n", xs[n-1], ys[n-1])
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fig := figure.New()
	if err := fig.AddCurve(xs, ys, figure.Style{Label: "f(x)"}, figure.Primary); err != nil {
		return err
	}
	fmt.Println()
	fmt.Print(viz.Preview(fig, width, height))
	return nil
}

func parseState(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("initial condition %q: %w", s, err)
		}
		out[i] = v
	}
	return out, nil
}

func phaseSketch(cmd *cobra.Command, args []string) error {
	if len(tSpan) != 2 {
		return fmt.Errorf("--t needs start,end")
	}
	if len(pair) != 2 {
		return fmt.Errorf("--pair needs two indices")
	}
	if len(initial) == 0 {
		return fmt.Errorf("--ic needs at least one initial condition")
	}
	sys, err := models.New(equations, variables)
	if err != nil {
		return err
	}
	for _, i := range pair {
		if i < 0 || i >= sys.StateDim() {
			return fmt.Errorf("%w: pair %v for %d variables", dynamo.ErrDimensionMismatch, pair, sys.StateDim())
		}
	}
	values, err := parseParams(params)
	if err != nil {
		return err
	}
	p, err := sys.ParamVector(values)
	if err != nil {
		return err
	}
	x0s := make([][]float64, len(initial))
	for i, s := range initial {
		if x0s[i], err = parseState(s); err != nil {
			return err
		}
	}

	cfg := dynamo.DefaultConfig()
	cfg.Method = phaseSolver
	cfg.Samples = phasePoints
	s, err := sim.New(sys, cfg)
	if err != nil {
		return err
	}

	start := time.Now()
	res, err := sim.NewEnsemble(s, workers).Run(cmd.Context(), x0s, sim.Span{tSpan[0], tSpan[1]}, p)
	if err != nil {
		return err
	}
	if l := logger(); l != nil {
		l.Debug("phase sketch", "system", sys.Describe(), "method", s.Method(),
			"trajectories", len(x0s), "failed", len(res.Failures), "elapsed", time.Since(start))
	}

	fmt.Println(viz.Panel.Render(sys.Describe()))
	for _, f := range res.Failures {
		fmt.Println(viz.StatusError.Render("✗ ") + f.Error())
	}
	if len(res.Failures) == len(x0s) {
		return fmt.Errorf("all %d trajectories failed", len(x0s))
	}

	fig := figure.New()
	fig.Axes.XLabel, fig.Axes.YLabel = variables[pair[0]], variables[pair[1]]
	for i, tr := range res.Trajectories {
		if tr == nil {
			continue
		}
		portrait := analysis.NewPhasePortrait(tr, pair[0], pair[1])
		if ascii {
			fmt.Printf("%s %s\n", viz.MetricLabel.Render("from"), initial[i])
			fmt.Print(analysis.PhasePortraitToASCII(portrait, width, height))
			continue
		}
		if err := fig.AddCurve(portrait.X, portrait.Y, figure.Style{Label: initial[i]}, figure.Primary); err != nil {
			return err
		}
	}
	if !ascii {
		fmt.Print(viz.PhasePreview(fig, width, height))
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tTIME\tCURVES\tFAILED\tELAPSED\tOUTPUT")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			run.ID,
			run.Type,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			len(run.Curves),
			len(run.Failures),
			run.Elapsed.Round(time.Millisecond),
			run.Output,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	fig, meta, err := storage.New(dataDir).LoadFigure(args[0])
	if err != nil {
		return err
	}
	if fig.Len() == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("type: %s\n", meta.Type)
	fmt.Printf("curves: %d\n\n", fig.Len())
	if meta.Type == config.KindPhase {
		fmt.Print(viz.PhasePreview(fig, width, height))
	} else {
		fmt.Print(viz.Preview(fig, width, height))
	}
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	fig, meta, err := storage.New(dataDir).LoadFigure(args[0])
	if err != nil {
		return err
	}
	data := export.NewExportData(meta.Type, meta.Output, fig, meta.Failures)
	if len(args) == 2 {
		if err := export.ExportJSON(args[1], data); err != nil {
			return err
		}
		fmt.Printf("exported to %s\n", args[1])
		return nil
	}
	return export.WriteJSON(os.Stdout, data)
}

func renderRun(cmd *cobra.Command, args []string) error {
	fig, _, err := storage.New(dataDir).LoadFigure(args[0])
	if err != nil {
		return err
	}
	opts := export.Options{Width: vg.Length(imgWidth) * vg.Inch, Height: vg.Length(imgHeight) * vg.Inch}
	if err := export.Save(fig, args[1], opts); err != nil {
		return err
	}
	fmt.Printf("rendered %s\n", args[1])
	return nil
}
