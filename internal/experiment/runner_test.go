package experiment_test

import (
	"context"
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/symplot/internal/config"
	"github.com/san-kum/symplot/internal/dynamo"
	"github.com/san-kum/symplot/internal/experiment"
	"github.com/san-kum/symplot/internal/expr"
	"github.com/san-kum/symplot/internal/figure"
)

func labels(fig *figure.Figure) []string {
	var out []string
	for _, c := range fig.Curves() {
		out = append(out, c.Style.Label)
	}
	return out
}

func decayCurve(label string, x0 float64) config.Curve {
	return config.Curve{
		Equations:         []string{"-k x"},
		VariableNames:     []string{"x"},
		InitialConditions: []float64{x0},
		TSpan:             []float64{0, 2},
		Styles:            []config.Style{{Label: label}},
	}
}

var _ = Describe("Runner", func() {
	var (
		runner *experiment.Runner
		ctx    context.Context
	)

	BeforeEach(func() {
		runner = experiment.NewRunner()
		ctx = context.Background()
	})

	Describe("function requests", func() {
		It("samples each formula over its x range in request order", func() {
			req := &config.Request{
				Type:     config.KindFunction,
				Output:   "f.svg",
				Defaults: config.Defaults{Params: map[string]float64{"a": 2, config.KeyPoints: 11}},
				Curves: []config.Curve{
					{Formula: "a x^2", XRange: []float64{-1, 1}, Style: &config.Style{Label: "square"}},
					{Formula: `\sin(b x)`, XRange: []float64{0, math.Pi}, Params: map[string]float64{"b": 1}, Style: &config.Style{Label: "sine"}},
				},
			}
			rep, err := runner.Run(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(rep.OK()).To(BeTrue())
			Expect(labels(rep.Figure)).To(Equal([]string{"square", "sine"}))

			sq := rep.Figure.Curves()[0]
			Expect(sq.X).To(HaveLen(11))
			Expect(sq.X[0]).To(Equal(-1.0))
			Expect(sq.Y[0]).To(BeNumerically("~", 2, 1e-12))
			Expect(sq.Y[5]).To(BeNumerically("~", 0, 1e-12))
			Expect(rep.Figure.Axes.Grid).To(BeFalse())
		})

		It("reports a missing parameter for that curve only", func() {
			req := &config.Request{
				Type:   config.KindFunction,
				Output: "f.svg",
				Curves: []config.Curve{
					{Formula: "q x", XRange: []float64{0, 1}, Style: &config.Style{Label: "bad"}},
					{Formula: "x", XRange: []float64{0, 1}, Style: &config.Style{Label: "good"}},
				},
			}
			rep, err := runner.Run(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(rep.Failures).To(HaveLen(1))
			Expect(rep.Failures[0].Curve).To(Equal(0))
			Expect(errors.Is(rep.Failures[0].Err, dynamo.ErrMissingParameter)).To(BeTrue())
			Expect(labels(rep.Figure)).To(Equal([]string{"good"}))
		})
	})

	Describe("ODE time requests", func() {
		var req *config.Request

		BeforeEach(func() {
			req = &config.Request{
				Type:     config.KindODETime,
				Output:   "decay.svg",
				Defaults: config.Defaults{Params: map[string]float64{"k": 1, config.KeyPoints: 50}},
				Curves:   []config.Curve{decayCurve("a", 1), decayCurve("b", 2), decayCurve("c", 3)},
			}
		})

		It("keeps configuration order regardless of worker count", func() {
			for _, workers := range []int{1, 4} {
				runner.Workers = workers
				rep, err := runner.Run(ctx, req)
				Expect(err).NotTo(HaveOccurred())
				Expect(labels(rep.Figure)).To(Equal([]string{"a", "b", "c"}))
			}
		})

		It("integrates to the exact solution at every sample", func() {
			rep, err := runner.Run(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			c := rep.Figure.Curves()[2]
			Expect(c.X).To(HaveLen(50))
			for i, t := range c.X {
				Expect(c.Y[i]).To(BeNumerically("~", 3*math.Exp(-t), 1e-7))
			}
		})

		It("skips a curve whose formula treats a variable as a function", func() {
			req.Curves[1].Equations = []string{"x(1 - x)"}
			rep, err := runner.Run(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(labels(rep.Figure)).To(Equal([]string{"a", "c"}))
			Expect(rep.Failures).To(HaveLen(1))

			var pe *expr.ParseError
			Expect(errors.As(rep.Failures[0].Err, &pe)).To(BeTrue())
			Expect(rep.Failures[0].Formula).To(Equal("x(1 - x)"))
		})

		It("reports a solver failure with its reason and keeps the other curves", func() {
			req.Curves[0].Equations = []string{"x^2"}
			req.Curves[0].SolverMethod = "RK45"
			rep, err := runner.Run(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(labels(rep.Figure)).To(Equal([]string{"b", "c"}))

			var ie *dynamo.IntegrationError
			Expect(rep.Failures).To(HaveLen(1))
			Expect(errors.As(rep.Failures[0].Err, &ie)).To(BeTrue())
			Expect(ie.Method).To(Equal("RK45"))
		})

		It("plots every variable when no styles are given", func() {
			req.Curves = []config.Curve{{
				Equations:         []string{"v", "-x"},
				VariableNames:     []string{"x", "v"},
				InitialConditions: []float64{1, 0},
				TSpan:             []float64{0, 1},
			}}
			rep, err := runner.Run(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(labels(rep.Figure)).To(Equal([]string{"x", "v"}))
		})

		It("places right axis curves on the secondary scale", func() {
			req.Axes.DualYAxis = true
			req.Curves[2].Styles[0].UseRightAxis = true
			rep, err := runner.Run(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(rep.Figure.HasSecondary()).To(BeTrue())
			Expect(rep.Figure.CurvesOn(figure.Secondary)).To(HaveLen(1))
			Expect(rep.Figure.CurvesOn(figure.Primary)).To(HaveLen(2))
		})

		It("rejects an unknown solver before integrating anything", func() {
			req.Curves[0].SolverMethod = "Euler"
			rep, err := runner.Run(ctx, req)
			Expect(errors.Is(err, config.ErrInvalidConfig)).To(BeTrue())
			Expect(rep).To(BeNil())
		})

		It("returns the context error when canceled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			rep, err := runner.Run(cctx, req)
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
			Expect(rep.Failures).To(HaveLen(3))
			Expect(errors.Is(rep.Failures[0].Err, dynamo.ErrContextCanceled)).To(BeTrue())
		})
	})

	Describe("phase portraits", func() {
		var req *config.Request

		BeforeEach(func() {
			req = &config.Request{
				Type:     config.KindPhase,
				Output:   "circle.svg",
				Defaults: config.Defaults{Params: map[string]float64{config.KeyPoints: 201}},
				Curves: []config.Curve{{
					Equations:         []string{"v", "-x"},
					VariableNames:     []string{"x", "v"},
					InitialConditions: []float64{1, 0},
					TSpan:             []float64{0, 2 * math.Pi},
					VarIndices:        []int{0, 1},
					Style:             &config.Style{Label: "orbit"},
				}},
				VectorField: &config.VectorField{Enabled: true, Density: 5},
			}
		})

		It("draws the orbit and a field over its extent", func() {
			rep, err := runner.Run(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(rep.OK()).To(BeTrue())

			q := rep.Figure.Field()
			Expect(q).NotTo(BeNil())
			Expect(q.X).To(HaveLen(5))
			Expect(q.X[0]).To(BeNumerically("~", -1.1, 1e-6))
			Expect(q.X[4]).To(BeNumerically("~", 1.1, 1e-6))
			Expect(q.Color).To(Equal("pink"))
			// at (xmin, ymin) the flow (v, -x) points up and left
			Expect(q.U[0][0]).To(BeNumerically("~", -math.Sqrt2/2, 1e-6))
			Expect(q.V[0][0]).To(BeNumerically("~", math.Sqrt2/2, 1e-6))
		})

		It("uses configured axis limits for the field", func() {
			req.Axes.XLim = []float64{-3, 3}
			req.Axes.YLim = []float64{-2, 2}
			rep, err := runner.Run(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			q := rep.Figure.Field()
			Expect(q.X[0]).To(Equal(-3.0))
			Expect(q.Y[4]).To(BeNumerically("~", 2, 1e-12))
		})

		It("runs every preset without failures", func() {
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				p.Defaults.Params = config.MergeParams(p.Defaults.Params, map[string]float64{config.KeyPoints: 100})
				rep, err := runner.Run(ctx, p)
				Expect(err).NotTo(HaveOccurred(), name)
				Expect(rep.Failures).To(BeEmpty(), name)
				Expect(rep.Figure.Len()).To(BeNumerically(">", 0), name)
			}
		})
	})

	It("lists the built in plot types", func() {
		Expect(experiment.NewRegistry().List()).To(Equal([]string{"function", "ode_time", "phase_portrait"}))
	})
})
