// Package intensity analyzes binned photon count traces over one or more
// detector channels.
package intensity

import (
	"io"
	"iter"
	"math"
	"slices"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	photon "github.com/HamletTheHamster/photon-correlation"
	"github.com/HamletTheHamster/photon-correlation/csvstream"
	"github.com/HamletTheHamster/photon-correlation/timebin"
)

// picosecondsPerSecond converts t2 rates to counts per second.
const picosecondsPerSecond = 1e12

// Intensity is a photon count trace: counts per time bin for each channel.
type Intensity struct {
	mode   photon.Mode
	unit   string
	scale  float64
	times  []timebin.Bin
	counts [][]float64
}

// New builds a trace from bins and per-channel counts. Every channel must
// have one count per bin.
func New(
	mode photon.Mode,
	times []timebin.Bin,
	counts [][]float64,
) (
	*Intensity, error,
) {

	if !mode.Valid() {
		return nil, &photon.ModeError{Mode: mode.String(), Op: "intensity"}
	}
	for _, c := range counts {
		if len(c) != len(times) {
			return nil, &photon.DimensionError{What: "intensity counts vs times", Got: len(c), Want: len(times)}
		}
	}

	i := &Intensity{mode: mode, unit: mode.TimeUnit(), scale: 1, times: slices.Clone(times)}
	if mode == photon.T2 {
		i.scale = picosecondsPerSecond
	}
	for _, c := range counts {
		i.counts = append(i.counts, slices.Clone(c))
	}
	return i, nil
}

// Read loads bin_left, bin_right, c0, c1, ... rows. Every row must carry
// the same number of channels.
func Read(r io.Reader, mode photon.Mode) (*Intensity, error) {
	var (
		times  []timebin.Bin
		counts [][]float64
	)

	s := csvstream.NewScanner(r)
	for s.Scan() {
		rec := s.Record()
		if counts == nil {
			if len(rec) < 3 {
				return nil, s.Fail("got %d columns, want at least 3", len(rec))
			}
			counts = make([][]float64, len(rec)-2)
		}
		if err := s.Columns(len(counts) + 2); err != nil {
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
		times = append(times, timebin.New(lower, upper))

		for ch := range counts {
			c, err := s.Count(ch + 2)
			if err != nil {
				return nil, err
			}
			counts[ch] = append(counts[ch], c)
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return New(mode, times, counts)
}

// derive returns a trace over new data with the receiver's mode and units.
func (i *Intensity) derive(times []timebin.Bin, counts [][]float64) *Intensity {
	return &Intensity{mode: i.mode, unit: i.unit, scale: i.scale, times: times, counts: counts}
}

// Mode is the acquisition mode the trace was recorded in.
func (i *Intensity) Mode() photon.Mode { return i.mode }

// TimeUnit is "s" for t2 traces and converted traces, "pulse" for t3.
func (i *Intensity) TimeUnit() string { return i.unit }

// Len is the number of bins.
func (i *Intensity) Len() int { return len(i.times) }

// Channels is the number of channels.
func (i *Intensity) Channels() int { return len(i.counts) }

// Times returns a copy of the bins.
func (i *Intensity) Times() []timebin.Bin { return slices.Clone(i.times) }

// Counts returns a copy of one channel's counts.
func (i *Intensity) Counts(ch int) []float64 { return slices.Clone(i.counts[ch]) }

// Dt is the width of the first bin, or 0 for an empty trace.
func (i *Intensity) Dt() float64 {
	if len(i.times) == 0 {
		return 0
	}
	return i.times[0].Width()
}

// Normalized converts counts to rates: counts per pulse in t3, counts per
// second in t2. Empty bins give a rate of 0.
func (i *Intensity) Normalized() *Intensity {
	counts := make([][]float64, len(i.counts))
	for ch, cs := range i.counts {
		rates := make([]float64, len(cs))
		for j, c := range cs {
			if w := i.times[j].Width(); w > 0 {
				rates[j] = c / w * i.scale
			}
		}
		counts[ch] = rates
	}
	return i.derive(slices.Clone(i.times), counts)
}

func (i *Intensity) sum() []float64 {
	total := make([]float64, len(i.times))
	for _, cs := range i.counts {
		floats.Add(total, cs)
	}
	return total
}

// Summed adds every channel into a single channel.
func (i *Intensity) Summed() *Intensity {
	return i.derive(slices.Clone(i.times), [][]float64{i.sum()})
}

// Mean is the per-bin average over channels.
func (i *Intensity) Mean() []float64 {
	mean := i.sum()
	if len(i.counts) > 0 {
		floats.Scale(1/float64(len(i.counts)), mean)
	}
	return mean
}

// Max is the largest count of any channel, or 0 for an empty trace.
func (i *Intensity) Max() float64 {
	peak := 0.
	for _, cs := range i.counts {
		if len(cs) > 0 {
			peak = math.Max(peak, floats.Max(cs))
		}
	}
	return peak
}

// Threshold keeps the bins whose summed count is at least frac of the
// largest summed count. All channels keep the same bins.
func (i *Intensity) Threshold(frac float64) *Intensity {
	total := i.sum()
	if len(total) == 0 {
		return i.derive(nil, make([][]float64, len(i.counts)))
	}
	limit := frac * floats.Max(total)

	var times []timebin.Bin
	counts := make([][]float64, len(i.counts))
	for j, t := range total {
		if t < limit {
			continue
		}
		times = append(times, i.times[j])
		for ch := range i.counts {
			counts[ch] = append(counts[ch], i.counts[ch][j])
		}
	}
	return i.derive(times, counts)
}

// Range keeps the bins whose lower bound lies in [start, stop).
func (i *Intensity) Range(start, stop float64) *Intensity {
	index := func(t float64) int {
		return sort.Search(len(i.times), func(j int) bool { return i.times[j].Lower >= t })
	}
	lo, hi := index(start), index(stop)
	if hi < lo {
		hi = lo
	}

	counts := make([][]float64, len(i.counts))
	for ch, cs := range i.counts {
		counts[ch] = slices.Clone(cs[lo:hi])
	}
	return i.derive(slices.Clone(i.times[lo:hi]), counts)
}

// ZeroOrigin shifts the bins so the first starts at 0.
func (i *Intensity) ZeroOrigin() *Intensity {
	times := slices.Clone(i.times)
	if len(times) > 0 {
		start := times[0].Lower
		for j := range times {
			times[j] = timebin.New(times[j].Lower-start, times[j].Upper-start)
		}
	}
	return i.derive(times, i.cloneCounts())
}

// PulsesToSeconds converts a pulse-indexed trace to seconds given the
// excitation repetition rate in Hz. Counts become counts per second.
func (i *Intensity) PulsesToSeconds(repetitionRate float64) *Intensity {
	times := make([]timebin.Bin, len(i.times))
	for j, t := range i.times {
		times[j] = timebin.New(t.Lower/repetitionRate, t.Upper/repetitionRate)
	}

	norm := i.Normalized()
	for _, cs := range norm.counts {
		floats.Scale(repetitionRate, cs)
	}
	return &Intensity{mode: i.mode, unit: "s", scale: 1, times: times, counts: norm.counts}
}

// Histogram bins the summed counts into n equal-width intervals spanning
// their range. It returns the occurrences and the n+1 dividers.
func (i *Intensity) Histogram(n int) (occurrences, dividers []float64, err error) {
	if n < 1 {
		return nil, nil, &photon.DimensionError{What: "histogram bins", Got: n, Want: 1}
	}

	x := i.sum()
	if len(x) == 0 {
		return make([]float64, n), make([]float64, n+1), nil
	}
	slices.Sort(x)

	lo, hi := x[0], x[len(x)-1]
	if hi == lo {
		hi = lo + 1
	}
	dividers = make([]float64, n+1)
	floats.Span(dividers, lo, hi)
	// stat.Histogram wants every value strictly below the last divider.
	dividers[n] = math.Nextafter(hi, math.Inf(1))

	occurrences = stat.Histogram(nil, dividers, x, nil)
	return occurrences, dividers, nil
}

// Rows yields bin_left, bin_right, c0, c1, ... records.
func (i *Intensity) Rows() iter.Seq[[]string] {
	return func(yield func([]string) bool) {
		for j, t := range i.times {
			row := []string{csvstream.FormatFloat(t.Lower), csvstream.FormatFloat(t.Upper)}
			for _, cs := range i.counts {
				row = append(row, csvstream.FormatFloat(cs[j]))
			}
			if !yield(row) {
				return
			}
		}
	}
}

// Blinking returns the on/off analysis of the summed, normalized trace.
func (i *Intensity) Blinking() *Blinking {
	return NewBlinking(i.Summed().Normalized())
}

func (i *Intensity) cloneCounts() [][]float64 {
	counts := make([][]float64, len(i.counts))
	for ch, cs := range i.counts {
		counts[ch] = slices.Clone(cs)
	}
	return counts
}
