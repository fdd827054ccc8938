package lifetime

import (
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"

	photon "github.com/HamletTheHamster/photon-correlation"
	"github.com/HamletTheHamster/photon-correlation/exponential"
)

// Residual selects the cost minimized by ExponentialFit.
type Residual int

const (
	// SquareDifference sums (data - model)^2.
	SquareDifference Residual = iota
	// Percent sums |(data - model) / data|.
	Percent
)

// ParseResidual accepts "square difference" and "percent".
func ParseResidual(s string) (Residual, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "square difference", "square", "squares":
		return SquareDifference, nil
	case "percent":
		return Percent, nil
	}
	return 0, fmt.Errorf("unknown residual %q", s)
}

func (r Residual) String() string {
	if r == Percent {
		return "percent"
	}
	return "square difference"
}

// FitConfig controls the exponential fits.
type FitConfig struct {
	MinVal       float64
	MaxVal       float64
	Exponentials int
	Residual     Residual

	// Initial holds magnitude, rate pairs to start from. When nil the
	// start is derived from a log-linear fit of the tail.
	Initial []float64

	Logger *zap.Logger
}

// DefaultFitConfig fits one exponential to the tail between 95% and 10% of
// the peak.
func DefaultFitConfig() FitConfig {
	return FitConfig{
		MinVal:       DefaultMinVal,
		MaxVal:       DefaultMaxVal,
		Exponentials: 1,
		Residual:     SquareDifference,
	}
}

func (c FitConfig) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// FitResult is the outcome of a minimization. Warning is set when the
// minimizer ran out of budget; Model is then its best answer so far.
type FitResult struct {
	Model   exponential.MultiExponential
	Cost    float64
	Warning *photon.ConvergenceWarning
}

// LinearFit is a straight line through log(counts) against time.
type LinearFit struct {
	Intercept  float64
	Slope      float64
	SlopeError float64
	Points     int
}

// fitPoints returns the nonzero points of the tail.
func (l *Lifetime) fitPoints(minVal, maxVal float64) (times, counts []float64) {
	tail := l.FitData(minVal, maxVal)
	for i, c := range tail.counts {
		if c != 0 {
			times = append(times, tail.times[i].Center())
			counts = append(counts, c)
		}
	}
	return times, counts
}

// LogLinearFit regresses log(counts) on time over the nonzero tail.
func (l *Lifetime) LogLinearFit(minVal, maxVal float64) (LinearFit, error) {
	times, counts := l.fitPoints(minVal, maxVal)
	if len(times) < 2 {
		return LinearFit{}, fmt.Errorf("log-linear fit over %d points: %w", len(times), photon.ErrInsufficientData)
	}

	logs := make([]float64, len(counts))
	for i, c := range counts {
		logs[i] = math.Log(c)
	}

	alpha, beta := stat.LinearRegression(times, logs, nil, false)
	fit := LinearFit{Intercept: alpha, Slope: beta, Points: len(times)}

	// Standard error of the slope
	n := float64(len(times))
	if len(times) > 2 {
		meanT := stat.Mean(times, nil)
		ssxx, sse := 0., 0.
		for i, t := range times {
			ssxx += (t - meanT) * (t - meanT)
			r := logs[i] - (alpha + beta*t)
			sse += r * r
		}
		if ssxx > 0 {
			fit.SlopeError = math.Sqrt(sse/(n-2)) / math.Sqrt(ssxx)
		}
	}
	return fit, nil
}

// Lifetime is the time constant -1/slope of a single exponential fit to
// the tail. An all-zero curve has lifetime 0.
func (l *Lifetime) Lifetime(minVal, maxVal float64) (float64, error) {
	tau, _, err := l.LifetimeWithError(minVal, maxVal)
	return tau, err
}

// LifetimeWithError also reports the uncertainty of the time constant
// propagated from the slope's standard error.
func (l *Lifetime) LifetimeWithError(minVal, maxVal float64) (float64, float64, error) {
	if l.Total() == 0 {
		return 0, 0, nil
	}

	fit, err := l.LogLinearFit(minVal, maxVal)
	if err != nil {
		return 0, 0, err
	}
	if fit.Slope == 0 {
		return 0, 0, nil
	}
	return -1 / fit.Slope, math.Abs(fit.SlopeError / (fit.Slope * fit.Slope)), nil
}

// initialGuess spreads n terms around the log-linear estimate with
// increasing rates.
func (l *Lifetime) initialGuess(cfg FitConfig, times []float64) []float64 {
	n := cfg.Exponentials
	magnitude, rate := 1., 1e-3

	if fit, err := l.LogLinearFit(cfg.MinVal, cfg.MaxVal); err == nil {
		magnitude = math.Exp(fit.Intercept)
		rate = -fit.Slope
	}
	if rate <= 0 || math.IsInf(magnitude, 0) {
		span := times[len(times)-1] - times[0]
		if span <= 0 {
			span = 1
		}
		rate = 1 / span
		magnitude = 1
	}

	params := make([]float64, 0, 2*n)
	for i := 0; i < n; i++ {
		k := rate * math.Pow(4, float64(i)-float64(n-1)/2)
		params = append(params, magnitude/float64(n), k)
	}
	return params
}

// ExponentialFit fits a sum of cfg.Exponentials decays to the nonzero tail
// with a Nelder-Mead simplex. Parameter sets with a negative entry or with
// rates out of increasing order cost +Inf, which keeps terms from swapping
// labels.
func (l *Lifetime) ExponentialFit(
	cfg FitConfig,
) (
	FitResult, error,
) {

	if cfg.Exponentials < 1 {
		return FitResult{}, &photon.DimensionError{What: "number of exponentials", Got: cfg.Exponentials, Want: 1}
	}

	times, counts := l.fitPoints(cfg.MinVal, cfg.MaxVal)
	if len(times) < 2 {
		return FitResult{}, fmt.Errorf("exponential fit over %d points: %w", len(times), photon.ErrInsufficientData)
	}

	initial := cfg.Initial
	if initial == nil {
		initial = l.initialGuess(cfg, times)
	}
	if len(initial) != 2*cfg.Exponentials {
		return FitResult{}, &photon.DimensionError{What: "initial parameters", Got: len(initial), Want: 2 * cfg.Exponentials}
	}

	// Search in units of the initial guess so the default simplex size is a
	// relative step in every parameter.
	dim := len(initial)
	scale := make([]float64, dim)
	start := make([]float64, dim)
	for i, p := range initial {
		if p == 0 {
			scale[i] = 0.005
			continue
		}
		scale[i] = math.Abs(p)
		start[i] = p / scale[i]
	}

	params := make([]float64, dim)
	unscale := func(x []float64) []float64 {
		for i := range x {
			params[i] = x[i] * scale[i]
		}
		return params
	}

	cost := func(x []float64) float64 {
		p := unscale(x)
		for i, v := range p {
			if v < 0 {
				return math.Inf(1)
			}
			if i >= 3 && i%2 == 1 && p[i-2] > v {
				return math.Inf(1)
			}
		}

		total := 0.
		for i, t := range times {
			model := 0.
			for j := 0; j < dim; j += 2 {
				model += p[j] * math.Exp(-p[j+1]*t)
			}
			switch cfg.Residual {
			case Percent:
				total += math.Abs((counts[i] - model) / counts[i])
			default:
				total += (counts[i] - model) * (counts[i] - model)
			}
		}
		return total
	}

	settings := &optimize.Settings{
		MajorIterations: 200 * dim,
		FuncEvaluations: 200 * dim,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-4,
			Relative:   1e-4,
			Iterations: 20 * dim,
		},
	}

	result, err := optimize.Minimize(optimize.Problem{Func: cost}, start, settings, &optimize.NelderMead{})
	if result == nil {
		return FitResult{}, fmt.Errorf("exponential fit: %w", err)
	}

	best := make([]float64, dim)
	copy(best, unscale(result.X))
	model, _ := exponential.New(best...)
	fit := FitResult{Model: model, Cost: result.F}

	if err != nil || result.Status == optimize.IterationLimit || result.Status == optimize.FunctionEvaluationLimit {
		fit.Warning = &photon.ConvergenceWarning{
			Status:      result.Status.String(),
			Iterations:  result.Stats.MajorIterations,
			Evaluations: result.Stats.FuncEvaluations,
			Cost:        result.F,
		}
		fields := []zap.Field{
			zap.String("status", fit.Warning.Status),
			zap.Int("iterations", fit.Warning.Iterations),
			zap.Float64("cost", fit.Cost),
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
		}
		cfg.logger().Warn("exponential fit did not converge", fields...)
	}
	return fit, nil
}

// BiexponentialFit is ExponentialFit with two terms.
func (l *Lifetime) BiexponentialFit(cfg FitConfig) (FitResult, error) {
	cfg.Exponentials = 2
	return l.ExponentialFit(cfg)
}
