package correlation

import (
	"fmt"
	"io"
	"iter"
	"maps"
	"slices"

	"github.com/HamletTheHamster/photon-correlation/csvstream"
	"github.com/HamletTheHamster/photon-correlation/lifetime"
	"github.com/HamletTheHamster/photon-correlation/timebin"
)

// G1 holds one decay curve per detector channel.
type G1 struct {
	curves map[int]*lifetime.Lifetime
}

// ReadG1 loads curve, bin_left, bin_right, counts rows. Rows of a curve may
// come in any order.
func ReadG1(r io.Reader) (*G1, error) {
	type point struct {
		bin   timebin.Bin
		count float64
	}
	points := make(map[int][]point)

	s := csvstream.NewScanner(r)
	for s.Scan() {
		if err := s.Columns(4); err != nil {
			return nil, err
		}
		curve, err := s.Int(0)
		if err != nil {
			return nil, err
		}
		lower, err := s.Float(1)
		if err != nil {
			return nil, err
		}
		upper, err := s.Float(2)
		if err != nil {
			return nil, err
		}
		count, err := s.Count(3)
		if err != nil {
			return nil, err
		}
		points[curve] = append(points[curve], point{timebin.New(lower, upper), count})
	}
	if err := s.Err(); err != nil {
		return nil, err
	}

	g := &G1{curves: make(map[int]*lifetime.Lifetime, len(points))}
	for curve, ps := range points {
		slices.SortStableFunc(ps, func(a, b point) int { return timebin.Compare(a.bin, b.bin) })

		times := make([]timebin.Bin, len(ps))
		counts := make([]float64, len(ps))
		for i, p := range ps {
			times[i], counts[i] = p.bin, p.count
		}
		l, err := lifetime.New(counts, times)
		if err != nil {
			return nil, err
		}
		g.curves[curve] = l
	}
	return g, nil
}

// NewG1 builds a G1 from curves already in memory.
func NewG1(curves map[int]*lifetime.Lifetime) *G1 {
	return &G1{curves: maps.Clone(curves)}
}

// Curves returns the curve indices in sorted order.
func (g *G1) Curves() []int {
	return slices.Sorted(maps.Keys(g.curves))
}

// Curve returns the decay curve of one channel.
func (g *G1) Curve(i int) (*lifetime.Lifetime, bool) {
	l, ok := g.curves[i]
	return l, ok
}

// Combine sums every curve into one. The curves must share bins.
func (g *G1) Combine() (*lifetime.Lifetime, error) {
	curves := g.Curves()
	if len(curves) == 0 {
		return lifetime.FromResolution(nil, 0), nil
	}

	sum := g.curves[curves[0]]
	for _, i := range curves[1:] {
		var err error
		if sum, err = sum.Add(g.curves[i]); err != nil {
			return nil, fmt.Errorf("combining curve %d: %w", i, err)
		}
	}
	return sum, nil
}

// Rows yields the curves as CSV records, curves in order.
func (g *G1) Rows() iter.Seq[[]string] {
	return func(yield func([]string) bool) {
		for _, i := range g.Curves() {
			for row := range g.curves[i].Rows(i) {
				if !yield(row) {
					return
				}
			}
		}
	}
}
