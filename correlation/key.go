package correlation

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"

	photon "github.com/HamletTheHamster/photon-correlation"
	"github.com/HamletTheHamster/photon-correlation/timebin"
)

const (
	// MaxOrder is the highest correlation order a Key can hold.
	MaxOrder = 4
	// MaxDims is the most histogram dimensions a Point can hold: two per
	// offset channel at MaxOrder.
	MaxDims = (MaxOrder - 1) * 2
)

// Key is the ordered tuple of channels a histogram was correlated over.
// Keys are comparable and may be used as map keys.
type Key struct {
	n  int
	ch [MaxOrder]int
}

// NewKey builds a key from 1 to MaxOrder channels.
func NewKey(channels ...int) (Key, error) {
	if len(channels) < 1 || len(channels) > MaxOrder {
		return Key{}, &photon.DimensionError{What: "correlation key", Got: len(channels), Want: MaxOrder}
	}
	k := Key{n: len(channels)}
	copy(k.ch[:], channels)
	return k, nil
}

// MustKey is NewKey for literal channel lists; it panics on a bad length.
func MustKey(channels ...int) Key {
	k, err := NewKey(channels...)
	if err != nil {
		panic(err)
	}
	return k
}

// Order is the number of channels.
func (k Key) Order() int { return k.n }

// Channel returns the i-th channel.
func (k Key) Channel(i int) int { return k.ch[i] }

// Channels returns the channels as a slice.
func (k Key) Channels() []int {
	return append([]int(nil), k.ch[:k.n]...)
}

// IsCrossCorrelation reports whether the channels are pairwise distinct.
func (k Key) IsCrossCorrelation() bool {
	return IsCrossCorrelation(k.ch[:k.n])
}

// IsCrossCorrelation reports whether no channel appears twice.
func IsCrossCorrelation(channels []int) bool {
	seen := make(map[int]bool, len(channels))
	for _, c := range channels {
		if seen[c] {
			return false
		}
		seen[c] = true
	}
	return true
}

// Compare orders keys lexicographically by channel, shorter first on a
// common prefix.
func (k Key) Compare(o Key) int {
	for i := 0; i < min(k.n, o.n); i++ {
		if c := cmp.Compare(k.ch[i], o.ch[i]); c != 0 {
			return c
		}
	}
	return cmp.Compare(k.n, o.n)
}

func (k Key) String() string {
	parts := make([]string, k.n)
	for i, c := range k.ch[:k.n] {
		parts[i] = strconv.Itoa(c)
	}
	return "(" + strings.Join(parts, ",") + ")"
}

// Point locates one histogram cell: one bin per dimension. Points are
// comparable and may be used as map keys.
type Point struct {
	n    int
	bins [MaxDims]timebin.Bin
}

// NewPoint builds a point from up to MaxDims bins. It panics beyond that,
// as indexing past an array would.
func NewPoint(bins ...timebin.Bin) Point {
	if len(bins) > MaxDims {
		panic(fmt.Sprintf("correlation: point with %d dimensions exceeds %d", len(bins), MaxDims))
	}
	p := Point{n: len(bins)}
	copy(p.bins[:], bins)
	return p
}

// Len is the number of dimensions.
func (p Point) Len() int { return p.n }

// At returns the bin along dimension i.
func (p Point) At(i int) timebin.Bin { return p.bins[i] }

// Bins returns the bins as a slice.
func (p Point) Bins() []timebin.Bin {
	return append([]timebin.Bin(nil), p.bins[:p.n]...)
}

// Compare orders points bin by bin.
func (p Point) Compare(o Point) int {
	for i := 0; i < min(p.n, o.n); i++ {
		if c := timebin.Compare(p.bins[i], o.bins[i]); c != 0 {
			return c
		}
	}
	return cmp.Compare(p.n, o.n)
}

func (p Point) String() string {
	parts := make([]string, p.n)
	for i, b := range p.bins[:p.n] {
		parts[i] = b.String()
	}
	return strings.Join(parts, " ")
}

// project keeps the listed dimensions, in that order.
func (p Point) project(dims []int) Point {
	q := Point{n: len(dims)}
	for i, d := range dims {
		q.bins[i] = p.bins[d]
	}
	return q
}

// with replaces the bin along dimension d.
func (p Point) with(d int, b timebin.Bin) Point {
	p.bins[d] = b
	return p
}
