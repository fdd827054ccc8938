package correlation

import (
	"fmt"
	"strconv"

	photon "github.com/HamletTheHamster/photon-correlation"
	"github.com/HamletTheHamster/photon-correlation/csvstream"
	"github.com/HamletTheHamster/photon-correlation/timebin"
)

// Layout fixes the shape of a correlation file: its order and the mode the
// photons were recorded in. Each row is
//
//	channel_0, {channel_i, bins_i...} for i = 1..order-1, counts
//
// where bins_i is time_left,time_right in t2 and
// pulse_left,pulse_right,time_left,time_right in t3.
type Layout struct {
	Order int
	Mode  photon.Mode
}

// Validate checks the order is between 2 and MaxOrder and the mode is known.
func (l Layout) Validate() error {
	if !l.Mode.Valid() {
		return &photon.ModeError{Mode: l.Mode.String(), Op: "correlation layout"}
	}
	if l.Order < 2 || l.Order > MaxOrder {
		return &photon.DimensionError{What: "correlation order", Got: l.Order, Want: 2}
	}
	return nil
}

// Dims is the number of bins in a point.
func (l Layout) Dims() int {
	return (l.Order - 1) * l.Mode.Axes()
}

// Columns is the number of fields in a row.
func (l Layout) Columns() int {
	return 2 + (l.Order-1)*(1+2*l.Mode.Axes())
}

func (l Layout) String() string {
	return fmt.Sprintf("g%d %s", l.Order, l.Mode)
}

// stride is the number of columns per offset channel.
func (l Layout) stride() int {
	return 1 + 2*l.Mode.Axes()
}

// ParseRow parses the scanner's current row.
func (l Layout) ParseRow(s *csvstream.Scanner) (Key, Point, float64, error) {
	if err := s.Columns(l.Columns()); err != nil {
		return Key{}, Point{}, 0, err
	}

	k := Key{n: l.Order}
	p := Point{n: l.Dims()}
	axes := l.Mode.Axes()

	var err error
	if k.ch[0], err = s.Int(0); err != nil {
		return Key{}, Point{}, 0, err
	}
	for i := 1; i < l.Order; i++ {
		col := 1 + (i-1)*l.stride()
		if k.ch[i], err = s.Int(col); err != nil {
			return Key{}, Point{}, 0, err
		}
		for j := 0; j < axes; j++ {
			lower, err := s.Float(col + 1 + 2*j)
			if err != nil {
				return Key{}, Point{}, 0, err
			}
			upper, err := s.Float(col + 2 + 2*j)
			if err != nil {
				return Key{}, Point{}, 0, err
			}
			p.bins[(i-1)*axes+j] = timebin.New(lower, upper)
		}
	}

	count, err := s.Count(l.Columns() - 1)
	if err != nil {
		return Key{}, Point{}, 0, err
	}
	return k, p, count, nil
}

// FormatRow is the inverse of ParseRow.
func (l Layout) FormatRow(k Key, p Point, count float64) []string {
	row := make([]string, 0, l.Columns())
	row = append(row, strconv.Itoa(k.ch[0]))

	axes := l.Mode.Axes()
	for i := 1; i < l.Order; i++ {
		row = append(row, strconv.Itoa(k.ch[i]))
		for j := 0; j < axes; j++ {
			b := p.bins[(i-1)*axes+j]
			row = append(row, csvstream.FormatFloat(b.Lower), csvstream.FormatFloat(b.Upper))
		}
	}
	return append(row, csvstream.FormatFloat(count))
}

// pulseDim and timeDim index the axes of offset channel i (1-based) in t3.
func pulseDim(i int) int { return 2 * (i - 1) }
func timeDim(i int) int { return 2*(i-1) + 1 }
