// Package timebin models the half-open intervals that discretize the time
// and pulse axes of a photon counting histogram.
package timebin

import (
	"cmp"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Bin is the half-open interval [Lower, Upper).
type Bin struct {
	Lower float64
	Upper float64
}

// New returns the bin [lower, upper).
func New(lower, upper float64) Bin {
	return Bin{Lower: lower, Upper: upper}
}

// Width is Upper - Lower.
func (b Bin) Width() float64 {
	return b.Upper - b.Lower
}

// Center is the midpoint of the bin.
func (b Bin) Center() float64 {
	return (b.Lower + b.Upper) / 2
}

// Span is the number of resolution steps the bin touches. A non-positive
// resolution has no steps and yields 0.
func (b Bin) Span(resolution float64) int {
	if resolution <= 0 {
		return 0
	}
	return int(math.Ceil(b.Upper/resolution) - math.Floor(b.Lower/resolution))
}

// Contains reports whether x lies in [Lower, Upper).
func (b Bin) Contains(x float64) bool {
	return x >= b.Lower && x < b.Upper
}

// Union is the smallest bin covering both b and o.
func (b Bin) Union(o Bin) Bin {
	return Bin{Lower: math.Min(b.Lower, o.Lower), Upper: math.Max(b.Upper, o.Upper)}
}

// Less orders bins by lower bound, then upper bound.
func (b Bin) Less(o Bin) bool {
	return Compare(b, o) < 0
}

func (b Bin) String() string {
	return fmt.Sprintf("[%g, %g)", b.Lower, b.Upper)
}

// Compare orders bins by lower bound, then upper bound. It is suitable for
// slices.SortFunc.
func Compare(a, b Bin) int {
	if c := cmp.Compare(a.Lower, b.Lower); c != 0 {
		return c
	}
	return cmp.Compare(a.Upper, b.Upper)
}

// Limits is the lower,bins,upper triple the histogramming tools take on
// their command line.
type Limits struct {
	Lower float64
	Bins  int
	Upper float64
}

// ParseLimits reads the "lower,bins,upper" form.
func ParseLimits(s string) (Limits, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return Limits{}, fmt.Errorf("limits %q: want lower,bins,upper", s)
	}

	lower, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Limits{}, fmt.Errorf("limits %q: lower: %w", s, err)
	}
	bins, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return Limits{}, fmt.Errorf("limits %q: bins: %w", s, err)
	}
	upper, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
	if err != nil {
		return Limits{}, fmt.Errorf("limits %q: upper: %w", s, err)
	}

	l := Limits{Lower: lower, Bins: bins, Upper: upper}
	if err := l.Validate(); err != nil {
		return Limits{}, err
	}
	return l, nil
}

// Validate checks that the limits describe at least one non-empty bin.
func (l Limits) Validate() error {
	if l.Bins < 1 {
		return fmt.Errorf("limits %v: need at least one bin", l)
	}
	if l.Upper <= l.Lower {
		return fmt.Errorf("limits %v: upper must exceed lower", l)
	}
	return nil
}

func (l Limits) String() string {
	return fmt.Sprintf("%s,%d,%s",
		strconv.FormatFloat(l.Lower, 'f', -1, 64),
		l.Bins,
		strconv.FormatFloat(l.Upper, 'f', -1, 64))
}

// Edges splits the limits into Bins equal-width bins.
func (l Limits) Edges() []Bin {
	if l.Bins < 1 {
		return nil
	}
	width := (l.Upper - l.Lower) / float64(l.Bins)
	edges := make([]Bin, l.Bins)
	for i := range edges {
		edges[i] = Bin{
			Lower: l.Lower + float64(i)*width,
			Upper: l.Lower + float64(i+1)*width,
		}
	}
	// Pin the last edge so float error never leaves a gap at Upper.
	edges[len(edges)-1].Upper = l.Upper
	return edges
}

// Uniform returns n bins of the given width starting at zero.
func Uniform(n int, width float64) []Bin {
	if n < 1 {
		return nil
	}
	bins := make([]Bin, n)
	for i := range bins {
		bins[i] = Bin{Lower: float64(i) * width, Upper: float64(i+1) * width}
	}
	return bins
}

// Centers returns the center of each bin.
func Centers(bins []Bin) []float64 {
	centers := make([]float64, len(bins))
	for i, b := range bins {
		centers[i] = b.Center()
	}
	return centers
}
