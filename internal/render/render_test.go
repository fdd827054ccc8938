package render

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	photon "github.com/HamletTheHamster/photon-correlation"
	"github.com/HamletTheHamster/photon-correlation/correlation"
	"github.com/HamletTheHamster/photon-correlation/exponential"
	"github.com/HamletTheHamster/photon-correlation/intensity"
	"github.com/HamletTheHamster/photon-correlation/lifetime"
	"github.com/HamletTheHamster/photon-correlation/timebin"
)

func assertFiles(t *testing.T, paths []string) {
	t.Helper()
	for _, path := range paths {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Positive(t, info.Size(), path)
	}
}

func TestLifetimeWithFit(t *testing.T) {
	counts := make([]float64, 64)
	for i := range counts {
		counts[i] = math.Round(1000 * math.Exp(-float64(i)/10))
	}
	l := lifetime.FromResolution(counts, 16)
	fit := exponential.MultiExponential{{Magnitude: 1000, Rate: 1.0 / 160}}

	p, err := Lifetime(l, fit)
	require.NoError(t, err)

	base := filepath.Join(t.TempDir(), "figures", "lifetime")
	paths, err := Save(p, base, []string{"png", "svg"}, 4, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{base + ".png", base + ".svg"}, paths)
	assertFiles(t, paths)
}

func TestAddIRF(t *testing.T) {
	counts := make([]float64, 64)
	for i := range counts {
		counts[i] = math.Round(1000 * math.Exp(-float64(i)/10))
	}
	l := lifetime.FromResolution(counts, 16)
	irf := lifetime.IRFFit{Model: exponential.GaussianExponential{
		GaussianMagnitude: 1,
		Sigma:             16,
		Decay:             exponential.MultiExponential{{Magnitude: 1000 * 160, Rate: 1.0 / 160}},
	}}

	p, err := Lifetime(l, nil)
	require.NoError(t, err)
	require.NoError(t, AddIRF(p, l, irf))

	paths, err := Save(p, filepath.Join(t.TempDir(), "irf"), []string{"svg"}, 4, 3)
	require.NoError(t, err)
	assertFiles(t, paths)

	err = AddIRF(p, l, lifetime.IRFFit{})
	assert.ErrorIs(t, err, photon.ErrInsufficientData)
}

func TestLifetimeWithoutCounts(t *testing.T) {
	_, err := Lifetime(lifetime.FromResolution([]float64{0, 0}, 16), nil)
	assert.ErrorIs(t, err, photon.ErrInsufficientData)
}

func TestAutocorrelation(t *testing.T) {
	h := correlation.TimeHistogram{
		timebin.New(-20, -10): 4,
		timebin.New(-10, 0):   1,
		timebin.New(0, 10):    1,
		timebin.New(10, 20):   5,
	}
	p, err := Autocorrelation(h)
	require.NoError(t, err)

	paths, err := Save(p, filepath.Join(t.TempDir(), "g2"), []string{"pdf"}, 4, 3)
	require.NoError(t, err)
	assertFiles(t, paths)

	_, err = Autocorrelation(correlation.TimeHistogram{})
	assert.ErrorIs(t, err, photon.ErrInsufficientData)
}

func TestIntensity(t *testing.T) {
	trace, err := intensity.New(photon.T3, timebin.Uniform(4, 100), [][]float64{{1, 5, 9, 2}, {2, 2, 2, 2}})
	require.NoError(t, err)

	p, err := Intensity(trace)
	require.NoError(t, err)
	assert.Equal(t, "Time (pulse)", p.X.Label.Text)

	paths, err := Save(p, filepath.Join(t.TempDir(), "intensity"), []string{"png"}, 4, 3)
	require.NoError(t, err)
	assertFiles(t, paths)
}

func TestSaveRejectsUnknownFormat(t *testing.T) {
	p, err := Autocorrelation(correlation.TimeHistogram{timebin.New(0, 10): 1, timebin.New(10, 20): 2})
	require.NoError(t, err)

	_, err = Save(p, filepath.Join(t.TempDir(), "g2"), []string{"bmp"}, 4, 3)
	assert.Error(t, err)
}

func TestPaletteWraps(t *testing.T) {
	assert.Equal(t, palette(0), palette(8))
	assert.NotEqual(t, palette(0), palette(1))
}
