// Package exponential holds the closed-form decay models used as fit
// targets for photon arrival histograms.
package exponential

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"

	"gonum.org/v1/gonum/floats"

	photon "github.com/HamletTheHamster/photon-correlation"
)

// Exponential is Magnitude*exp(-Rate*x).
type Exponential struct {
	Magnitude float64
	Rate      float64
}

// Eval evaluates the decay at x.
func (e Exponential) Eval(x float64) float64 {
	return e.Magnitude * math.Exp(-e.Rate*x)
}

// Area is the integral from zero to infinity, Magnitude/Rate.
func (e Exponential) Area() float64 {
	return e.Magnitude / e.Rate
}

// Lifetime is the time constant 1/Rate.
func (e Exponential) Lifetime() float64 {
	return 1 / e.Rate
}

func (e Exponential) String() string {
	return fmt.Sprintf("%.2e*exp(-%.2e*t)", e.Magnitude, e.Rate)
}

// MultiExponential is a sum of decay terms.
type MultiExponential []Exponential

// New builds a model from alternating magnitude, rate parameters.
func New(params ...float64) (MultiExponential, error) {
	if len(params)%2 != 0 {
		return nil, &photon.DimensionError{What: "exponential parameters", Got: len(params), Want: len(params) + 1}
	}

	m := make(MultiExponential, 0, len(params)/2)
	for i := 0; i < len(params); i += 2 {
		m = append(m, Exponential{Magnitude: params[i], Rate: params[i+1]})
	}
	return m, nil
}

// Eval sums the terms at x.
func (m MultiExponential) Eval(x float64) float64 {
	total := 0.
	for _, e := range m {
		total += e.Eval(x)
	}
	return total
}

// EvalAll evaluates the model at every x.
func (m MultiExponential) EvalAll(xs []float64) []float64 {
	ys := make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = m.Eval(x)
	}
	return ys
}

// Params flattens the model back to magnitude, rate pairs.
func (m MultiExponential) Params() []float64 {
	params := make([]float64, 0, 2*len(m))
	for _, e := range m {
		params = append(params, e.Magnitude, e.Rate)
	}
	return params
}

// SortedByArea returns a copy ordered by increasing area.
func (m MultiExponential) SortedByArea() MultiExponential {
	sorted := slices.Clone(m)
	slices.SortStableFunc(sorted, func(a, b Exponential) int {
		return cmp.Compare(a.Area(), b.Area())
	})
	return sorted
}

// SortedByRate returns a copy ordered by increasing rate.
func (m MultiExponential) SortedByRate() MultiExponential {
	sorted := slices.Clone(m)
	slices.SortStableFunc(sorted, func(a, b Exponential) int {
		return cmp.Compare(a.Rate, b.Rate)
	})
	return sorted
}

// Areas lists the area of each term.
func (m MultiExponential) Areas() []float64 {
	areas := make([]float64, len(m))
	for i, e := range m {
		areas[i] = e.Area()
	}
	return areas
}

// Rates lists the rate of each term.
func (m MultiExponential) Rates() []float64 {
	rates := make([]float64, len(m))
	for i, e := range m {
		rates[i] = e.Rate
	}
	return rates
}

// RelativeAreas is the fraction of the total area carried by each term when
// integrating from origin onward. A zero total yields all zeros.
func (m MultiExponential) RelativeAreas(origin float64) []float64 {
	areas := make([]float64, len(m))
	for i, e := range m {
		areas[i] = e.Magnitude * math.Exp(-e.Rate*origin) / e.Rate
	}

	total := floats.Sum(areas)
	if total == 0 {
		return make([]float64, len(m))
	}
	floats.Scale(1/total, areas)
	return areas
}

func (m MultiExponential) String() string {
	terms := make([]string, len(m))
	for i, e := range m {
		terms[i] = e.String()
	}
	return strings.Join(terms, " + ")
}
