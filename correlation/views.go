package correlation

import (
	"maps"
	"slices"

	"github.com/HamletTheHamster/photon-correlation/timebin"
)

// TimeHistogram maps time bins to counts.
type TimeHistogram map[timebin.Bin]float64

// Bins returns the time bins in sorted order.
func (h TimeHistogram) Bins() []timebin.Bin {
	return slices.SortedFunc(maps.Keys(h), timebin.Compare)
}

// Total is the sum of all counts.
func (h TimeHistogram) Total() float64 {
	total := 0.
	for _, c := range h {
		total += c
	}
	return total
}

// PulseHistogram maps pulse bins to the time histogram within them.
type PulseHistogram map[timebin.Bin]TimeHistogram

// Bins returns the pulse bins in sorted order.
func (h PulseHistogram) Bins() []timebin.Bin {
	return slices.SortedFunc(maps.Keys(h), timebin.Compare)
}

// Total is the sum of all counts.
func (h PulseHistogram) Total() float64 {
	total := 0.
	for _, th := range h {
		total += th.Total()
	}
	return total
}

// G3Histogram maps the first offset channel's pulse and time bins to the
// second offset channel's PulseHistogram.
type G3Histogram map[timebin.Bin]map[timebin.Bin]PulseHistogram

// Total is the sum of all counts.
func (h G3Histogram) Total() float64 {
	total := 0.
	for _, times := range h {
		for _, ph := range times {
			total += ph.Total()
		}
	}
	return total
}

func timeHistogram(h Histogram) TimeHistogram {
	out := make(TimeHistogram, len(h))
	for p, c := range h {
		out[p.At(0)] += c
	}
	return out
}

// pulseHistogram nests the pulse and time axes at dimensions d and d+1.
func pulseHistogram(h Histogram, d int) PulseHistogram {
	out := make(PulseHistogram)
	for p, c := range h {
		addPulse(out, p.At(d), p.At(d+1), c)
	}
	return out
}

func addPulse(h PulseHistogram, pulse, time timebin.Bin, c float64) {
	th, ok := h[pulse]
	if !ok {
		th = make(TimeHistogram)
		h[pulse] = th
	}
	th[time] += c
}

func g3Histogram(h Histogram) G3Histogram {
	out := make(G3Histogram)
	for p, c := range h {
		times, ok := out[p.At(pulseDim(1))]
		if !ok {
			times = make(map[timebin.Bin]PulseHistogram)
			out[p.At(pulseDim(1))] = times
		}
		ph, ok := times[p.At(timeDim(1))]
		if !ok {
			ph = make(PulseHistogram)
			times[p.At(timeDim(1))] = ph
		}
		addPulse(ph, p.At(pulseDim(2)), p.At(timeDim(2)), c)
	}
	return out
}
