package exponential

import (
	"fmt"
	"math"
)

// Gaussian is a normal peak whose Magnitude is the peak height.
type Gaussian struct {
	Magnitude float64
	Sigma     float64
	Mu        float64
}

// NewGaussian builds a Gaussian that integrates to area.
func NewGaussian(area, sigma, mu float64) Gaussian {
	return Gaussian{
		Magnitude: area / math.Sqrt(2*math.Pi*sigma*sigma),
		Sigma:     sigma,
		Mu:        mu,
	}
}

// Eval evaluates the peak at x.
func (g Gaussian) Eval(x float64) float64 {
	d := x - g.Mu
	return g.Magnitude * math.Exp(-d*d/(2*g.Sigma*g.Sigma))
}

func (g Gaussian) String() string {
	return fmt.Sprintf("%.2e*exp(-(t-%.2e)^2/(2*%.2e^2))", g.Magnitude, g.Mu, g.Sigma)
}

// GaussianExponential is a multiexponential decay that switches on at the
// origin, convolved with a Gaussian instrument response centered there.
type GaussianExponential struct {
	GaussianMagnitude float64
	Sigma             float64
	Decay             MultiExponential
}

// Eval evaluates the convolution at tau. Each term contributes
//
//	g*m*k/2 * (1 + erf((tau - k*sigma^2)/(sigma*sqrt2))) * exp(k^2*sigma^2/2 - k*tau)
func (g GaussianExponential) Eval(tau float64) float64 {
	s2 := g.Sigma * g.Sigma
	total := 0.
	for _, e := range g.Decay {
		k := e.Rate
		edge := 1 + math.Erf((tau-k*s2)/(g.Sigma*math.Sqrt2))
		total += g.GaussianMagnitude * e.Magnitude * k / 2 * edge * math.Exp(k*k*s2/2-k*tau)
	}
	return total
}

func (g GaussianExponential) String() string {
	return fmt.Sprintf("gauss(%.2e, sigma=%.2e) * [%s]", g.GaussianMagnitude, g.Sigma, g.Decay)
}
