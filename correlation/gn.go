// Package correlation holds photon correlation histograms of any order,
// keyed by the channels they correlate, and the order-specific views used
// to analyze g(1), g(2) and g(3) measurements.
package correlation

import (
	"fmt"
	"io"
	"iter"
	"maps"
	"slices"

	photon "github.com/HamletTheHamster/photon-correlation"
	"github.com/HamletTheHamster/photon-correlation/csvstream"
	"github.com/HamletTheHamster/photon-correlation/timebin"
)

// Histogram maps points to counts.
type Histogram map[Point]float64

// Points returns the points in sorted order.
func (h Histogram) Points() []Point {
	return slices.SortedFunc(maps.Keys(h), Point.Compare)
}

// Total is the sum of all counts.
func (h Histogram) Total() float64 {
	total := 0.
	for _, c := range h {
		total += c
	}
	return total
}

// Bins returns the distinct bins along dimension d, sorted.
func (h Histogram) Bins(d int) []timebin.Bin {
	seen := make(map[timebin.Bin]bool)
	for p := range h {
		seen[p.At(d)] = true
	}
	return slices.SortedFunc(maps.Keys(seen), timebin.Compare)
}

// Marginal projects the histogram onto the listed dimensions, summing the
// counts of the dimensions left out.
func (h Histogram) Marginal(dims ...int) (Histogram, error) {
	n := 0
	for p := range h {
		n = p.Len()
		break
	}
	for _, d := range dims {
		if d < 0 || (n > 0 && d >= n) {
			return nil, &photon.DimensionError{What: "marginal dimension", Got: d, Want: n}
		}
	}

	out := make(Histogram, len(h))
	for p, c := range h {
		out[p.project(dims)] += c
	}
	return out, nil
}

func (h Histogram) samePoints(o Histogram) bool {
	if len(h) != len(o) {
		return false
	}
	for p := range h {
		if _, ok := o[p]; !ok {
			return false
		}
	}
	return true
}

// GN is a correlation of arbitrary order: one histogram per channel key.
// A GN is not modified after construction; derived operations return new
// values.
type GN struct {
	layout Layout
	data   map[Key]Histogram
}

// ReadGN loads a correlation of the given layout from CSV.
func ReadGN(
	r io.Reader,
	layout Layout,
) (
	*GN, error,
) {

	return scan(csvstream.NewScanner(r), layout)
}

// FromRows builds a correlation from rows already split into fields.
func FromRows(layout Layout, rows [][]string) (*GN, error) {
	return scan(csvstream.Records(rows), layout)
}

func scan(s *csvstream.Scanner, layout Layout) (*GN, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}

	g := &GN{layout: layout, data: make(map[Key]Histogram)}
	for s.Scan() {
		k, p, count, err := layout.ParseRow(s)
		if err != nil {
			return nil, err
		}
		h, ok := g.data[k]
		if !ok {
			h = make(Histogram)
			g.data[k] = h
		}
		h[p] = count
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return g, nil
}

// Layout is the order and mode of the correlation.
func (g *GN) Layout() Layout { return g.layout }

// Len is the number of keys.
func (g *GN) Len() int { return len(g.data) }

// Keys returns every key in sorted order.
func (g *GN) Keys() []Key {
	return slices.SortedFunc(maps.Keys(g.data), Key.Compare)
}

// Histogram returns a copy of the histogram for k, empty when k is absent.
func (g *GN) Histogram(k Key) Histogram {
	h := maps.Clone(g.data[k])
	if h == nil {
		h = make(Histogram)
	}
	return h
}

// CrossCorrelations yields the keys whose channels are pairwise distinct,
// in sorted order.
func (g *GN) CrossCorrelations() iter.Seq[Key] {
	return func(yield func(Key) bool) {
		for _, k := range g.Keys() {
			if k.IsCrossCorrelation() && !yield(k) {
				return
			}
		}
	}
}

// Autocorrelation sums the cross-correlations point by point. They must all
// cover the same points.
func (g *GN) Autocorrelation() (Histogram, error) {
	var (
		sum   = make(Histogram)
		first Histogram
	)

	for k := range g.CrossCorrelations() {
		h := g.data[k]
		if first == nil {
			first = h
		} else if !first.samePoints(h) {
			return nil, fmt.Errorf("autocorrelation over %s: %w", k, photon.ErrIncompatibleBins)
		}
		for p, c := range h {
			sum[p] += c
		}
	}
	return sum, nil
}

// Equal reports whether both correlations have the same layout and counts.
func (g *GN) Equal(o *GN) bool {
	if g.layout != o.layout || len(g.data) != len(o.data) {
		return false
	}
	for k, h := range g.data {
		oh, ok := o.data[k]
		if !ok || !maps.Equal(h, oh) {
			return false
		}
	}
	return true
}

// Rows yields the CSV records of the correlation, keys and points sorted.
// Each call starts over.
func (g *GN) Rows() iter.Seq[[]string] {
	return func(yield func([]string) bool) {
		for _, k := range g.Keys() {
			h := g.data[k]
			for _, p := range h.Points() {
				if !yield(g.layout.FormatRow(k, p, h[p])) {
					return
				}
			}
		}
	}
}

// WriteTo writes the correlation as CSV.
func (g *GN) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	err := csvstream.Write(cw, g.Rows())
	return cw.n, err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func (g *GN) compatible(o *GN) error {
	if g.layout.Mode != o.layout.Mode {
		return &photon.ModeError{Mode: o.layout.Mode.String(), Op: "combining " + g.layout.Mode.String() + " correlations"}
	}
	if g.layout.Order != o.layout.Order {
		return &photon.DimensionError{What: "correlation order", Got: o.layout.Order, Want: g.layout.Order}
	}
	return nil
}

func (g *GN) combine(o *GN, sign float64) (*GN, error) {
	if err := g.compatible(o); err != nil {
		return nil, err
	}

	out := g.clone()
	for k, h := range o.data {
		dst, ok := out.data[k]
		if !ok {
			dst = make(Histogram, len(h))
			out.data[k] = dst
		}
		for p, c := range h {
			dst[p] += sign * c
		}
	}
	return out, nil
}

// Add sums two correlations of the same layout. A point missing from one
// side counts as zero.
func (g *GN) Add(o *GN) (*GN, error) {
	return g.combine(o, 1)
}

// Subtract removes o's counts from g. A point missing from one side counts
// as zero.
func (g *GN) Subtract(o *GN) (*GN, error) {
	return g.combine(o, -1)
}

// Rebin merges every n consecutive distinct bins along dimension d into
// their union, summing counts. The grouping is shared by all keys; bins
// left over after the last full group are dropped.
func (g *GN) Rebin(d, n int) (*GN, error) {
	if n < 1 {
		return nil, &photon.DimensionError{What: "rebin width", Got: n, Want: 1}
	}
	if d < 0 || d >= g.layout.Dims() {
		return nil, &photon.DimensionError{What: "rebin dimension", Got: d, Want: g.layout.Dims()}
	}

	seen := make(map[timebin.Bin]bool)
	for _, h := range g.data {
		for p := range h {
			seen[p.At(d)] = true
		}
	}
	bins := slices.SortedFunc(maps.Keys(seen), timebin.Compare)

	groups := make(map[timebin.Bin]timebin.Bin, len(bins))
	for i := 0; i+n <= len(bins); i += n {
		union := bins[i]
		for _, b := range bins[i+1 : i+n] {
			union = union.Union(b)
		}
		for _, b := range bins[i : i+n] {
			groups[b] = union
		}
	}

	out := &GN{layout: g.layout, data: make(map[Key]Histogram, len(g.data))}
	for k, h := range g.data {
		dst := make(Histogram)
		for p, c := range h {
			if b, ok := groups[p.At(d)]; ok {
				dst[p.with(d, b)] += c
			}
		}
		out.data[k] = dst
	}
	return out, nil
}

func (g *GN) clone() *GN {
	out := &GN{layout: g.layout, data: make(map[Key]Histogram, len(g.data))}
	for k, h := range g.data {
		out.data[k] = maps.Clone(h)
	}
	return out
}
