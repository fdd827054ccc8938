package exponential

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	photon "github.com/HamletTheHamster/photon-correlation"
)

func TestExponentialEval(t *testing.T) {
	e := Exponential{Magnitude: 10, Rate: 2}
	assert.Equal(t, 10.0, e.Eval(0))
	assert.InDelta(t, 10*math.Exp(-2), e.Eval(1), 1e-12)
	assert.Equal(t, 5.0, e.Area())
	assert.Equal(t, 0.5, e.Lifetime())
	assert.Equal(t, "1.00e+01*exp(-2.00e+00*t)", e.String())
}

func TestMultiExponentialEval(t *testing.T) {
	m, err := New(10, 2, 5, 1)
	require.NoError(t, err)
	require.Len(t, m, 2)
	assert.Equal(t, 15.0, m.Eval(0))
	assert.Equal(t, []float64{15, m.Eval(1)}, m.EvalAll([]float64{0, 1}))
	assert.Equal(t, []float64{10, 2, 5, 1}, m.Params())
	assert.Equal(t, "1.00e+01*exp(-2.00e+00*t) + 5.00e+00*exp(-1.00e+00*t)", m.String())
}

func TestNewOddParams(t *testing.T) {
	_, err := New(1, 2, 3)
	var dimErr *photon.DimensionError
	assert.True(t, errors.As(err, &dimErr))
}

func TestSorting(t *testing.T) {
	m := MultiExponential{{Magnitude: 10, Rate: 2}, {Magnitude: 1, Rate: 1}}

	byArea := m.SortedByArea()
	assert.Equal(t, []float64{1, 5}, byArea.Areas())
	byRate := m.SortedByRate()
	assert.Equal(t, []float64{1, 2}, byRate.Rates())
	// the receiver is left alone
	assert.Equal(t, 2.0, m[0].Rate)
}

func TestRelativeAreas(t *testing.T) {
	m := MultiExponential{{Magnitude: 3, Rate: 1}, {Magnitude: 1, Rate: 1}}
	assert.InDeltaSlice(t, []float64{0.75, 0.25}, m.RelativeAreas(0), 1e-12)

	// a later origin favors the slower term
	slowFast := MultiExponential{{Magnitude: 1, Rate: 0.1}, {Magnitude: 10, Rate: 1}}
	early := slowFast.RelativeAreas(0)
	late := slowFast.RelativeAreas(10)
	assert.Greater(t, late[0], early[0])
	assert.InDelta(t, 1, late[0]+late[1], 1e-12)

	zero := MultiExponential{{Magnitude: 0, Rate: 1}}
	assert.Equal(t, []float64{0}, zero.RelativeAreas(0))
}

func TestGaussian(t *testing.T) {
	g := NewGaussian(1, 2, 5)
	assert.InDelta(t, 1/math.Sqrt(8*math.Pi), g.Eval(5), 1e-12)
	assert.InDelta(t, g.Eval(3), g.Eval(7), 1e-12)
}

func TestGaussianExponentialApproachesDecay(t *testing.T) {
	decay := MultiExponential{{Magnitude: 2, Rate: 0.5}}
	g := GaussianExponential{GaussianMagnitude: 1, Sigma: 1e-3, Decay: decay}

	// with a narrow response, well after the origin the convolution is
	// k*m*exp(-k*t)
	for _, tau := range []float64{1, 2, 5} {
		assert.InDelta(t, 0.5*decay.Eval(tau), g.Eval(tau), 1e-6)
	}
	assert.InDelta(t, 0, g.Eval(-1), 1e-9)
}
