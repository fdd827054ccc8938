// Package lifetime analyzes one-dimensional photon arrival histograms:
// decay curves over time bins, with rebinning, background subtraction and
// exponential fitting.
package lifetime

import (
	"fmt"
	"io"
	"iter"
	"math"
	"slices"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	photon "github.com/HamletTheHamster/photon-correlation"
	"github.com/HamletTheHamster/photon-correlation/csvstream"
	"github.com/HamletTheHamster/photon-correlation/timebin"
)

const (
	// DefaultMinVal is the fraction of the peak below which the tail is not fit.
	DefaultMinVal = 0.1
	// DefaultMaxVal is the fraction of the peak above which the rise is not fit.
	DefaultMaxVal = 0.95
)

// Lifetime is a decay curve: counts over sorted, non-overlapping time bins.
type Lifetime struct {
	times  []timebin.Bin
	counts []float64
}

// New builds a curve from parallel counts and times.
func New(counts []float64, times []timebin.Bin) (*Lifetime, error) {
	if len(counts) != len(times) {
		return nil, &photon.DimensionError{What: "lifetime counts vs times", Got: len(counts), Want: len(times)}
	}
	return &Lifetime{times: slices.Clone(times), counts: slices.Clone(counts)}, nil
}

// FromResolution builds a curve whose i-th bin is [i*resolution, (i+1)*resolution).
func FromResolution(counts []float64, resolution float64) *Lifetime {
	return &Lifetime{
		times:  timebin.Uniform(len(counts), resolution),
		counts: slices.Clone(counts),
	}
}

// ReadCurve loads bin_left, bin_right, counts rows of a single curve in bin
// order.
func ReadCurve(r io.Reader) (*Lifetime, error) {
	l := &Lifetime{}

	s := csvstream.NewScanner(r)
	for s.Scan() {
		if err := s.Columns(3); err != nil {
			return nil, err
		}
		lower, err := s.Float(0)
		if err != nil {
			return nil, err
		}
		upper, err := s.Float(1)
		if err != nil {
			return nil, err
		}
		count, err := s.Count(2)
		if err != nil {
			return nil, err
		}
		l.times = append(l.times, timebin.New(lower, upper))
		l.counts = append(l.counts, count)
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return l, nil
}

// Len is the number of bins.
func (l *Lifetime) Len() int { return len(l.counts) }

// Times returns a copy of the bins.
func (l *Lifetime) Times() []timebin.Bin { return slices.Clone(l.times) }

// Counts returns a copy of the counts.
func (l *Lifetime) Counts() []float64 { return slices.Clone(l.counts) }

// Centers returns the center time of every bin.
func (l *Lifetime) Centers() []float64 { return timebin.Centers(l.times) }

// Total is the sum of all counts.
func (l *Lifetime) Total() float64 { return floats.Sum(l.counts) }

// Resolution is the width of the first bin, or 0 for an empty curve.
func (l *Lifetime) Resolution() float64 {
	if len(l.times) == 0 {
		return 0
	}
	return l.times[0].Width()
}

// Equal reports whether both curves have the same bins and counts.
func (l *Lifetime) Equal(o *Lifetime) bool {
	return slices.Equal(l.times, o.times) && slices.Equal(l.counts, o.counts)
}

// Add sums two curves over identical bins.
func (l *Lifetime) Add(o *Lifetime) (*Lifetime, error) {
	if len(l.counts) != len(o.counts) {
		return nil, &photon.DimensionError{What: "lifetime addition", Got: len(o.counts), Want: len(l.counts)}
	}
	if !slices.Equal(l.times, o.times) {
		return nil, fmt.Errorf("adding lifetimes: %w", photon.ErrIncompatibleBins)
	}

	counts := slices.Clone(l.counts)
	floats.Add(counts, o.counts)
	return &Lifetime{times: slices.Clone(l.times), counts: counts}, nil
}

// Normalized scales the curve so its peak is 1. An all-zero curve is
// returned unscaled.
func (l *Lifetime) Normalized() *Lifetime {
	counts := slices.Clone(l.counts)
	if len(counts) > 0 {
		if peak := floats.Max(counts); peak != 0 {
			floats.Scale(1/peak, counts)
		}
	}
	return &Lifetime{times: slices.Clone(l.times), counts: counts}
}

// Rebin sums every n consecutive bins into one bin spanning their union.
// Trailing bins that do not fill a group are dropped.
func (l *Lifetime) Rebin(n int) (*Lifetime, error) {
	if n < 1 {
		return nil, &photon.DimensionError{What: "rebin width", Got: n, Want: 1}
	}

	m := len(l.counts) / n
	times := make([]timebin.Bin, m)
	counts := make([]float64, m)
	for i := 0; i < m; i++ {
		counts[i] = floats.Sum(l.counts[i*n : (i+1)*n])
		times[i] = timebin.New(l.times[i*n].Lower, l.times[(i+1)*n-1].Upper)
	}
	return &Lifetime{times: times, counts: counts}, nil
}

// ToResolution rebins to the coarsest whole multiple of the current
// resolution not exceeding target. Nothing changes when that multiple is
// below 2.
func (l *Lifetime) ToResolution(target float64) *Lifetime {
	res := l.Resolution()
	if res <= 0 {
		return l
	}
	n := int(math.Floor(target / res))
	if n < 2 {
		return l
	}
	rebinned, _ := l.Rebin(n)
	return rebinned
}

// index is the first bin whose center is not below t.
func (l *Lifetime) index(t float64) int {
	return sort.Search(len(l.times), func(i int) bool {
		return l.times[i].Center() >= t
	})
}

// Range returns the bins whose centers fall in [lower, upper).
func (l *Lifetime) Range(lower, upper float64) *Lifetime {
	i, j := l.index(lower), l.index(upper)
	if j < i {
		j = i
	}
	return &Lifetime{times: slices.Clone(l.times[i:j]), counts: slices.Clone(l.counts[i:j])}
}

// Origin is the index of the largest count, the first on ties, or -1 for
// an empty curve.
func (l *Lifetime) Origin() int {
	if len(l.counts) == 0 {
		return -1
	}
	return floats.MaxIdx(l.counts)
}

// FitData restricts the curve to its decay tail. The tail starts at the
// first bin from the peak on whose count is nearest maxVal*peak and stops
// before the last bin from the peak on whose count is nearest minVal*peak.
func (l *Lifetime) FitData(minVal, maxVal float64) *Lifetime {
	origin := l.Origin()
	if origin < 0 {
		return &Lifetime{}
	}
	peak := l.counts[origin]

	left, right := origin, origin
	bestLeft, bestRight := math.Inf(1), math.Inf(1)
	for i := origin; i < len(l.counts); i++ {
		if d := math.Abs(l.counts[i] - peak*maxVal); d < bestLeft {
			bestLeft, left = d, i
		}
		if d := math.Abs(l.counts[i] - peak*minVal); d <= bestRight {
			bestRight, right = d, i
		}
	}

	return l.Range(l.times[left].Center(), l.times[right].Center())
}

// MeanArrivalTime is the count-weighted mean bin center, or 0 without counts.
func (l *Lifetime) MeanArrivalTime() float64 {
	total := l.Total()
	if total == 0 {
		return 0
	}
	return floats.Dot(l.counts, l.Centers()) / total
}

// SubtractBackground estimates a flat background from the bins before the
// rise and removes it, clamping at zero. The rise begins at the last bin,
// scanning back from the peak, whose count is below threshold*peak; the
// background is the mean of everything before that bin.
func (l *Lifetime) SubtractBackground(threshold float64) *Lifetime {
	origin := l.Origin()
	if origin <= 0 {
		return &Lifetime{times: slices.Clone(l.times), counts: slices.Clone(l.counts)}
	}
	limit := threshold * l.counts[origin]

	index := origin - 1
	for ; index >= 0; index-- {
		if l.counts[index] < limit {
			break
		}
	}

	background := 0.
	if index > 0 {
		background = stat.Mean(l.counts[:index], nil)
	}

	counts := make([]float64, len(l.counts))
	for i, c := range l.counts {
		counts[i] = math.Max(c-background, 0)
	}
	return &Lifetime{times: slices.Clone(l.times), counts: counts}
}

// FirstSecondEmission splits the curve into the arrival distributions of
// the first and second photon of an emission cascade from an ensemble.
// With before the counts strictly earlier than bin i and after the counts
// from bin i on:
//
//	first[i]  = counts[i] * after
//	second[i] = before * counts[i]
func (l *Lifetime) FirstSecondEmission() (first, second *Lifetime) {
	before := 0.
	after := l.Total()

	firstCounts := make([]float64, len(l.counts))
	secondCounts := make([]float64, len(l.counts))
	for i, c := range l.counts {
		firstCounts[i] = c * after
		secondCounts[i] = before * c

		before += c
		after -= c
	}

	return &Lifetime{times: slices.Clone(l.times), counts: firstCounts},
		&Lifetime{times: slices.Clone(l.times), counts: secondCounts}
}

// Rows yields curve, bin_left, bin_right, counts records.
func (l *Lifetime) Rows(curve int) iter.Seq[[]string] {
	return func(yield func([]string) bool) {
		c := strconv.Itoa(curve)
		for i, b := range l.times {
			row := []string{c, csvstream.FormatFloat(b.Lower), csvstream.FormatFloat(b.Upper), csvstream.FormatFloat(l.counts[i])}
			if !yield(row) {
				return
			}
		}
	}
}
