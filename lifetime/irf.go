package lifetime

import (
	"fmt"
	"math"
	"slices"

	"github.com/maorshutman/lm"
	"go.uber.org/zap"

	photon "github.com/HamletTheHamster/photon-correlation"
	"github.com/HamletTheHamster/photon-correlation/exponential"
)

// IRFFit is a decay convolved with a Gaussian instrument response. Offset
// is where the response is centered, relative to the center of the peak
// bin.
type IRFFit struct {
	Offset float64
	Model  exponential.GaussianExponential
}

// Eval evaluates the fitted curve at absolute time t, given the curve it
// was fit to.
func (f IRFFit) Eval(l *Lifetime, t float64) float64 {
	origin := l.Origin()
	if origin < 0 {
		return 0
	}
	return f.Model.Eval(t - l.times[origin].Center() - f.Offset)
}

// GaussianExponentialFit fits cfg.Exponentials decays convolved with a
// Gaussian response of starting width sigma to the whole curve, rise
// included, by Levenberg-Marquardt. Times are measured from the peak bin.
func (l *Lifetime) GaussianExponentialFit(
	cfg FitConfig,
	sigma float64,
) (
	IRFFit, error,
) {

	if cfg.Exponentials < 1 {
		return IRFFit{}, &photon.DimensionError{What: "number of exponentials", Got: cfg.Exponentials, Want: 1}
	}
	origin := l.Origin()
	if origin < 0 || l.Total() == 0 {
		return IRFFit{}, fmt.Errorf("irf fit: %w", photon.ErrInsufficientData)
	}

	if sigma <= 0 {
		sigma = 2 * l.Resolution()
	}

	// Start from the tail: for a narrow response the convolution decays as
	// m*k*exp(-k*t), so magnitudes are amplitudes over rates.
	decay := l.initialGuess(cfg, l.Centers())
	if cfg.Initial != nil {
		decay = slices.Clone(cfg.Initial)
	}
	if len(decay) != 2*cfg.Exponentials {
		return IRFFit{}, &photon.DimensionError{What: "initial parameters", Got: len(decay), Want: 2 * cfg.Exponentials}
	}
	zero := l.times[origin].Center()
	for i := 0; i < len(decay); i += 2 {
		decay[i] = l.counts[origin] / float64(cfg.Exponentials) / decay[i+1]
	}

	taus := make([]float64, l.Len())
	for i, b := range l.times {
		taus[i] = b.Center() - zero
	}

	// Parameters: offset, sigma, then magnitude, rate pairs
	model := func(x []float64) IRFFit {
		terms := make(exponential.MultiExponential, 0, cfg.Exponentials)
		for i := 2; i+1 < len(x); i += 2 {
			terms = append(terms, exponential.Exponential{Magnitude: x[i], Rate: math.Abs(x[i+1])})
		}
		return IRFFit{
			Offset: x[0],
			Model: exponential.GaussianExponential{
				GaussianMagnitude: 1,
				Sigma:             math.Abs(x[1]),
				Decay:             terms,
			},
		}
	}

	resFunc := func(dst, x []float64) {
		fit := model(x)
		for i, tau := range taus {
			dst[i] = l.counts[i] - fit.Model.Eval(tau-fit.Offset)
		}
	}

	dim := 2 + len(decay)
	if l.Len() < dim {
		return IRFFit{}, fmt.Errorf("irf fit over %d points with %d parameters: %w", l.Len(), dim, photon.ErrInsufficientData)
	}

	nj := &lm.NumJac{Func: resFunc}

	problem := lm.LMProblem{
		Dim:        dim,
		Size:       l.Len(),
		Func:       resFunc,
		Jac:        nj.Jac,
		InitParams: append([]float64{0, sigma}, decay...),
		Tau:        1e-6,
		Eps1:       1e-8,
		Eps2:       1e-8,
	}

	settings := &lm.Settings{Iterations: 1000, ObjectiveTol: 1e-16}

	result, err := lm.LM(problem, settings)
	if err != nil {
		cfg.logger().Warn("irf fit failed", zap.Error(err))
		return IRFFit{}, fmt.Errorf("irf fit: %w", err)
	}

	fit := model(result.X)
	fit.Model.Decay = fit.Model.Decay.SortedByRate()
	return fit, nil
}
