package intensity

// Blinking extracts on and off periods from the first channel of a trace.
type Blinking struct {
	trace *Intensity
}

// NewBlinking analyzes the first channel of trace, usually a summed,
// normalized one.
func NewBlinking(trace *Intensity) *Blinking {
	return &Blinking{trace: trace}
}

// Dt is the bin width of the underlying trace.
func (b *Blinking) Dt() float64 { return b.trace.Dt() }

// OnOffTimes measures how long the emitter stays above (on) or at or below
// (off) threshold. A period runs from one state switch to the next, so the
// partial periods before the first switch and after the last are dropped.
func (b *Blinking) OnOffTimes(threshold float64) (on, off []float64) {
	if b.trace.Channels() == 0 || b.trace.Len() == 0 {
		return nil, nil
	}
	counts := b.trace.counts[0]
	times := b.trace.times

	last := counts[0] > threshold
	lastSwitch := -1
	for i, c := range counts {
		status := c > threshold
		if status == last {
			continue
		}

		if lastSwitch >= 0 {
			dt := times[i].Lower - times[lastSwitch].Lower
			if last {
				on = append(on, dt)
			} else {
				off = append(off, dt)
			}
		}
		lastSwitch = i
		last = status
	}
	return on, off
}
