package correlation

import (
	"io"
	"math"

	photon "github.com/HamletTheHamster/photon-correlation"
	"github.com/HamletTheHamster/photon-correlation/timebin"
)

var (
	// CenterPulse is the pulse bin holding photons from the same excitation.
	CenterPulse = timebin.New(-0.5, 0.5)
	// SidePulse is the pulse bin holding photons from adjacent excitations.
	SidePulse = timebin.New(0.5, 1.5)
	// SecondSidePulse is two excitations apart.
	SecondSidePulse = timebin.New(1.5, 2.5)
)

func view(g *GN, want Layout) error {
	if g.layout.Mode != want.Mode {
		return &photon.ModeError{Mode: g.layout.Mode.String(), Op: want.String()}
	}
	if g.layout.Order != want.Order {
		return &photon.DimensionError{What: "correlation order", Got: g.layout.Order, Want: want.Order}
	}
	return nil
}

// G2T2 is a second order correlation of t2 data: time histograms per
// channel pair.
type G2T2 struct {
	*GN
}

// NewG2T2 views g as a t2 g(2).
func NewG2T2(g *GN) (*G2T2, error) {
	if err := view(g, Layout{Order: 2, Mode: photon.T2}); err != nil {
		return nil, err
	}
	return &G2T2{g}, nil
}

// ReadG2T2 loads channel_0, channel_1, bin_left, bin_right, counts rows.
func ReadG2T2(r io.Reader) (*G2T2, error) {
	g, err := ReadGN(r, Layout{Order: 2, Mode: photon.T2})
	if err != nil {
		return nil, err
	}
	return &G2T2{g}, nil
}

// Correlation returns the time histogram of one channel pair.
func (g *G2T2) Correlation(k Key) TimeHistogram {
	return timeHistogram(g.data[k])
}

// Autocorrelation sums the cross-correlations.
func (g *G2T2) Autocorrelation() (TimeHistogram, error) {
	h, err := g.GN.Autocorrelation()
	if err != nil {
		return nil, err
	}
	return timeHistogram(h), nil
}

// ToResolution rebins the time axis by floor(resolution/width) of the
// narrowest leading bin. It is a no-op below a factor of 2.
func (g *G2T2) ToResolution(resolution float64) (*G2T2, error) {
	width := 0.
	for _, k := range g.Keys() {
		if bins := g.data[k].Bins(0); len(bins) > 0 {
			if w := bins[0].Width(); width == 0 || w < width {
				width = w
			}
		}
	}
	if width <= 0 {
		return g, nil
	}

	n := int(math.Floor(resolution / width))
	if n < 2 {
		return g, nil
	}
	rebinned, err := g.Rebin(0, n)
	if err != nil {
		return nil, err
	}
	return &G2T2{rebinned}, nil
}

// CenterSide is the photon count in the center and first side peak of a
// pulsed g(2).
type CenterSide struct {
	Center float64
	Side   float64
}

// Ratio is Center/Side, or 0 without side counts.
func (cs CenterSide) Ratio() float64 {
	if cs.Side == 0 {
		return 0
	}
	return cs.Center / cs.Side
}

// G2T3 is a second order correlation of t3 data: pulse then time
// histograms per channel pair.
type G2T3 struct {
	*GN
}

// NewG2T3 views g as a t3 g(2).
func NewG2T3(g *GN) (*G2T3, error) {
	if err := view(g, Layout{Order: 2, Mode: photon.T3}); err != nil {
		return nil, err
	}
	return &G2T3{g}, nil
}

// ReadG2T3 loads channel_0, channel_1, pulse_left, pulse_right, time_left,
// time_right, counts rows.
func ReadG2T3(r io.Reader) (*G2T3, error) {
	g, err := ReadGN(r, Layout{Order: 2, Mode: photon.T3})
	if err != nil {
		return nil, err
	}
	return &G2T3{g}, nil
}

// Correlation returns the pulse histogram of one channel pair.
func (g *G2T3) Correlation(k Key) PulseHistogram {
	return pulseHistogram(g.data[k], 0)
}

// PulseBinCounts sums one pulse bin of a channel pair over time.
func (g *G2T3) PulseBinCounts(k Key, pulse timebin.Bin) float64 {
	total := 0.
	for p, c := range g.data[k] {
		if p.At(0) == pulse {
			total += c
		}
	}
	return total
}

// CenterSideRatios reports the center and side counts of every channel
// pair.
func (g *G2T3) CenterSideRatios() map[Key]CenterSide {
	out := make(map[Key]CenterSide, len(g.data))
	for k := range g.data {
		out[k] = CenterSide{
			Center: g.PulseBinCounts(k, CenterPulse),
			Side:   g.PulseBinCounts(k, SidePulse),
		}
	}
	return out
}

// CenterSideRatio is the center/side ratio summed over the
// cross-correlations, or 0 without side counts.
func (g *G2T3) CenterSideRatio() float64 {
	var total CenterSide
	for k := range g.CrossCorrelations() {
		total.Center += g.PulseBinCounts(k, CenterPulse)
		total.Side += g.PulseBinCounts(k, SidePulse)
	}
	return total.Ratio()
}

// UniquePeaks reports the center and side counts summed over the
// cross-correlations.
func (g *G2T3) UniquePeaks() map[string]float64 {
	peaks, _ := g.GN.UniquePeaks()
	return peaks
}

// Autocorrelation sums the cross-correlations.
func (g *G2T3) Autocorrelation() (PulseHistogram, error) {
	h, err := g.GN.Autocorrelation()
	if err != nil {
		return nil, err
	}
	return pulseHistogram(h, 0), nil
}

// UniquePeaks sums the counts of the distinct pulse configurations over all
// cross-correlations and time bins. For g(2) these are "center" and "side";
// for g(3) "center", "diagonal" and "off-diagonal". Only t3 correlations
// have pulses.
func (g *GN) UniquePeaks() (map[string]float64, error) {
	if g.layout.Mode != photon.T3 {
		return nil, &photon.ModeError{Mode: g.layout.Mode.String(), Op: "unique peaks"}
	}

	type peak struct {
		name   string
		pulses []timebin.Bin
	}
	var peaks []peak
	switch g.layout.Order {
	case 2:
		peaks = []peak{
			{"center", []timebin.Bin{CenterPulse}},
			{"side", []timebin.Bin{SidePulse}},
		}
	case 3:
		peaks = []peak{
			{"center", []timebin.Bin{CenterPulse, CenterPulse}},
			{"diagonal", []timebin.Bin{CenterPulse, SidePulse}},
			{"off-diagonal", []timebin.Bin{SidePulse, SecondSidePulse}},
		}
	default:
		return nil, &photon.DimensionError{What: "unique peaks order", Got: g.layout.Order, Want: 3}
	}

	out := make(map[string]float64, len(peaks))
	for _, pk := range peaks {
		out[pk.name] = 0
	}
	for k := range g.CrossCorrelations() {
		for p, c := range g.data[k] {
			for _, pk := range peaks {
				if matchPulses(p, pk.pulses) {
					out[pk.name] += c
				}
			}
		}
	}
	return out, nil
}

func matchPulses(p Point, pulses []timebin.Bin) bool {
	for i, pulse := range pulses {
		if p.At(pulseDim(i+1)) != pulse {
			return false
		}
	}
	return true
}
