package correlation

import (
	"io"

	photon "github.com/HamletTheHamster/photon-correlation"
)

// G3T3 is a third order correlation of t3 data.
type G3T3 struct {
	*GN
}

// NewG3T3 views g as a t3 g(3).
func NewG3T3(g *GN) (*G3T3, error) {
	if err := view(g, Layout{Order: 3, Mode: photon.T3}); err != nil {
		return nil, err
	}
	return &G3T3{g}, nil
}

// ReadG3T3 loads twelve column g(3) rows: channel_0, then channel, pulse
// and time bins for each of the two offset channels, then counts.
func ReadG3T3(r io.Reader) (*G3T3, error) {
	g, err := ReadGN(r, Layout{Order: 3, Mode: photon.T3})
	if err != nil {
		return nil, err
	}
	return &G3T3{g}, nil
}

// Correlation returns the nested histogram of one channel triple.
func (g *G3T3) Correlation(k Key) G3Histogram {
	return g3Histogram(g.data[k])
}

// UniquePeaks reports the center, diagonal and off-diagonal counts summed
// over the cross-correlations.
func (g *G3T3) UniquePeaks() map[string]float64 {
	peaks, _ := g.GN.UniquePeaks()
	return peaks
}

// Autocorrelation sums the cross-correlations.
func (g *G3T3) Autocorrelation() (G3Histogram, error) {
	h, err := g.GN.Autocorrelation()
	if err != nil {
		return nil, err
	}
	return g3Histogram(h), nil
}

// Combine projects every triple onto its first channel pair, summing over
// the second offset channel and its bins.
func (g *G3T3) Combine() map[Key]PulseHistogram {
	out := make(map[Key]PulseHistogram)
	for k, h := range g.data {
		pair := MustKey(k.Channel(0), k.Channel(1))
		ph, ok := out[pair]
		if !ok {
			ph = make(PulseHistogram)
			out[pair] = ph
		}
		for p, c := range h {
			addPulse(ph, p.At(pulseDim(1)), p.At(timeDim(1)), c)
		}
	}
	return out
}
