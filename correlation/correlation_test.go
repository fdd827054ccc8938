package correlation

import (
	"bytes"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	photon "github.com/HamletTheHamster/photon-correlation"
	"github.com/HamletTheHamster/photon-correlation/timebin"
)

const g3Data = `0,1,-0.5,0.5,0,10,2,-0.5,0.5,0,10,4
0,1,-0.5,0.5,0,10,2,0.5,1.5,0,10,3
0,1,0.5,1.5,0,10,2,1.5,2.5,0,10,1
0,1,0.5,1.5,0,10,2,1.5,2.5,10,20,2
1,1,-0.5,0.5,0,10,2,-0.5,0.5,0,10,100
`

const g2t2Data = `0,1,0,10,1
0,1,10,20,2
0,1,20,30,3
0,1,30,40,4
0,1,40,50,5
`

func TestIsCrossCorrelation(t *testing.T) {
	tests := []struct {
		channels []int
		want     bool
	}{
		{[]int{0, 1}, true},
		{[]int{0, 0}, false},
		{[]int{0, 1, 2}, true},
		{[]int{0, 1, 1}, false},
		{[]int{2, 0, 2}, false},
		{[]int{3}, true},
	}
	for _, tt := range tests {
		t.Run(MustKey(tt.channels...).String(), func(t *testing.T) {
			assert.Equal(t, tt.want, IsCrossCorrelation(tt.channels))
			assert.Equal(t, tt.want, MustKey(tt.channels...).IsCrossCorrelation())
		})
	}
}

func TestKey(t *testing.T) {
	_, err := NewKey()
	var dimErr *photon.DimensionError
	assert.True(t, errors.As(err, &dimErr))
	_, err = NewKey(0, 1, 2, 3, 4)
	assert.True(t, errors.As(err, &dimErr))

	k := MustKey(1, 0, 2)
	assert.Equal(t, 3, k.Order())
	assert.Equal(t, []int{1, 0, 2}, k.Channels())
	assert.Equal(t, "(1,0,2)", k.String())

	keys := []Key{MustKey(1, 0), MustKey(0, 1, 2), MustKey(0, 1)}
	slices.SortFunc(keys, Key.Compare)
	assert.Equal(t, []Key{MustKey(0, 1), MustKey(0, 1, 2), MustKey(1, 0)}, keys)
}

func TestLayout(t *testing.T) {
	tests := []struct {
		layout  Layout
		columns int
		dims    int
	}{
		{Layout{2, photon.T2}, 5, 1},
		{Layout{2, photon.T3}, 7, 2},
		{Layout{3, photon.T3}, 12, 4},
		{Layout{3, photon.T2}, 8, 2},
	}
	for _, tt := range tests {
		t.Run(tt.layout.String(), func(t *testing.T) {
			require.NoError(t, tt.layout.Validate())
			assert.Equal(t, tt.columns, tt.layout.Columns())
			assert.Equal(t, tt.dims, tt.layout.Dims())
		})
	}

	var dimErr *photon.DimensionError
	assert.True(t, errors.As(Layout{1, photon.T2}.Validate(), &dimErr))
	assert.True(t, errors.As(Layout{MaxOrder + 1, photon.T3}.Validate(), &dimErr))
	var modeErr *photon.ModeError
	assert.True(t, errors.As(Layout{2, 0}.Validate(), &modeErr))
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		layout Layout
		data   string
	}{
		{"g2 t2", Layout{2, photon.T2}, g2t2Data},
		{"g2 t3", Layout{2, photon.T3}, "0,1,-0.5,0.5,-10,10,3\n0,1,0.5,1.5,-10,10,0\n1,0,-0.5,0.5,-10,10,2.25\n"},
		{"g3 t3", Layout{3, photon.T3}, g3Data},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := ReadGN(strings.NewReader(tt.data), tt.layout)
			require.NoError(t, err)

			var buf bytes.Buffer
			n, err := g.WriteTo(&buf)
			require.NoError(t, err)
			assert.Equal(t, int64(buf.Len()), n)
			assert.Equal(t, tt.data, buf.String())

			back, err := ReadGN(&buf, tt.layout)
			require.NoError(t, err)
			assert.True(t, g.Equal(back))
			if diff := cmp.Diff(slices.Collect(g.Rows()), slices.Collect(back.Rows())); diff != "" {
				t.Errorf("rows differ (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRowsRestart(t *testing.T) {
	g, err := ReadGN(strings.NewReader(g2t2Data), Layout{2, photon.T2})
	require.NoError(t, err)

	first := slices.Collect(g.Rows())
	assert.Len(t, first, 5)
	assert.Equal(t, first, slices.Collect(g.Rows()))

	// stopping early is honored
	n := 0
	for range g.Rows() {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestFromRows(t *testing.T) {
	rows := [][]string{
		{"0", "1", "0", "10", "4"},
		{"1", "0", "0", "10", "5"},
	}
	g, err := FromRows(Layout{2, photon.T2}, rows)
	require.NoError(t, err)
	assert.Equal(t, []Key{MustKey(0, 1), MustKey(1, 0)}, g.Keys())

	_, err = FromRows(Layout{2, photon.T2}, [][]string{rows[0], {"0", "1", "x", "10", "4"}})
	var formatErr *photon.FormatError
	require.True(t, errors.As(err, &formatErr))
	assert.Equal(t, 2, formatErr.Line)
	assert.Equal(t, 3, formatErr.Column)
}

func TestReadGNErrors(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		line   int
		column int
	}{
		{"short row", "0,1,0,10,1\n0,1,10,20\n", 2, 0},
		{"long row", "0,1,0,10,1,7\n", 1, 0},
		{"bad channel", "a,1,0,10,1\n", 1, 1},
		{"bad bound", "0,1,0,ten,1\n", 1, 4},
		{"negative count", "0,1,0,10,-1\n", 1, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := ReadGN(strings.NewReader(tt.data), Layout{2, photon.T2})
			assert.Nil(t, g)
			var formatErr *photon.FormatError
			require.True(t, errors.As(err, &formatErr), "got %v", err)
			assert.Equal(t, tt.line, formatErr.Line)
			assert.Equal(t, tt.column, formatErr.Column)
		})
	}
}

func TestAutocorrelationScenario(t *testing.T) {
	data := "0,0,-0.5,0.5,-10,10,50\n0,1,-0.5,0.5,-10,10,3\n1,0,-0.5,0.5,-10,10,3\n"
	g, err := ReadG2T3(strings.NewReader(data))
	require.NoError(t, err)

	auto, err := g.Autocorrelation()
	require.NoError(t, err)
	assert.Equal(t, 6.0, auto[CenterPulse][timebin.New(-10, 10)])
	assert.Equal(t, 6.0, auto.Total())
}

func TestAutocorrelationIncompatibleBins(t *testing.T) {
	data := "0,1,0,10,3\n1,0,10,20,3\n"
	g, err := ReadG2T2(strings.NewReader(data))
	require.NoError(t, err)

	_, err = g.Autocorrelation()
	assert.ErrorIs(t, err, photon.ErrIncompatibleBins)
}

func TestAutocorrelationWithoutCrossCorrelations(t *testing.T) {
	g, err := ReadG2T2(strings.NewReader("0,0,0,10,3\n"))
	require.NoError(t, err)

	auto, err := g.Autocorrelation()
	require.NoError(t, err)
	assert.Empty(t, auto)
}

func TestUniquePeaksG2(t *testing.T) {
	data := "0,1,-0.5,0.5,-10,10,5\n0,1,0.5,1.5,-10,10,2\n0,0,-0.5,0.5,-10,10,40\n"
	g, err := ReadG2T3(strings.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{"center": 5, "side": 2}, g.UniquePeaks())
	assert.Equal(t, 2.5, g.CenterSideRatio())
	assert.Equal(t, 2.0, g.PulseBinCounts(MustKey(0, 1), SidePulse))

	ratios := g.CenterSideRatios()
	assert.Equal(t, CenterSide{Center: 40}, ratios[MustKey(0, 0)])
	assert.Equal(t, 0.0, ratios[MustKey(0, 0)].Ratio())
}

func TestUniquePeaksG3(t *testing.T) {
	g, err := ReadG3T3(strings.NewReader(g3Data))
	require.NoError(t, err)

	want := map[string]float64{"center": 4, "diagonal": 3, "off-diagonal": 3}
	if diff := cmp.Diff(want, g.UniquePeaks()); diff != "" {
		t.Errorf("unique peaks (-want +got):\n%s", diff)
	}
}

func TestUniquePeaksNeedsT3(t *testing.T) {
	g, err := ReadGN(strings.NewReader(g2t2Data), Layout{2, photon.T2})
	require.NoError(t, err)

	_, err = g.UniquePeaks()
	var modeErr *photon.ModeError
	assert.True(t, errors.As(err, &modeErr))
}

func TestCenterSideRatioWithoutSide(t *testing.T) {
	g, err := ReadG2T3(strings.NewReader("0,1,-0.5,0.5,0,10,5\n"))
	require.NoError(t, err)
	assert.Equal(t, 0.0, g.CenterSideRatio())
}

func TestG2T2ToResolution(t *testing.T) {
	g, err := ReadG2T2(strings.NewReader(g2t2Data))
	require.NoError(t, err)

	same, err := g.ToResolution(15)
	require.NoError(t, err)
	assert.Same(t, g, same)

	coarse, err := g.ToResolution(20)
	require.NoError(t, err)
	want := TimeHistogram{timebin.New(0, 20): 3, timebin.New(20, 40): 7}
	if diff := cmp.Diff(want, coarse.Correlation(MustKey(0, 1))); diff != "" {
		t.Errorf("rebinned (-want +got):\n%s", diff)
	}
	// the source correlation is untouched
	assert.Len(t, g.Correlation(MustKey(0, 1)), 5)
}

func TestG2T2ToResolutionUsesNarrowestBin(t *testing.T) {
	data := "0,1,0,10,1\n0,1,10,20,2\n0,1,20,30,3\n0,1,30,40,4\n1,0,0,40,9\n"
	g, err := ReadG2T2(strings.NewReader(data))
	require.NoError(t, err)

	want, err := g.Rebin(0, 2)
	require.NoError(t, err)

	for range 10 {
		coarse, err := g.ToResolution(20)
		require.NoError(t, err)
		require.NotSame(t, g, coarse)
		assert.True(t, want.Equal(coarse.GN))
	}
}

func TestRebinErrors(t *testing.T) {
	g, err := ReadGN(strings.NewReader(g2t2Data), Layout{2, photon.T2})
	require.NoError(t, err)

	var dimErr *photon.DimensionError
	_, err = g.Rebin(0, 0)
	assert.True(t, errors.As(err, &dimErr))
	_, err = g.Rebin(1, 2)
	assert.True(t, errors.As(err, &dimErr))

	one, err := g.Rebin(0, 1)
	require.NoError(t, err)
	assert.True(t, g.Equal(one))
}

func TestAddSubtract(t *testing.T) {
	a, err := ReadGN(strings.NewReader("0,1,0,10,4\n"), Layout{2, photon.T2})
	require.NoError(t, err)
	b, err := ReadGN(strings.NewReader("0,1,0,10,1\n0,1,10,20,2\n"), Layout{2, photon.T2})
	require.NoError(t, err)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"0", "1", "0", "10", "5"}, {"0", "1", "10", "20", "2"}}, slices.Collect(sum.Rows()))

	diff, err := a.Subtract(b)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"0", "1", "0", "10", "3"}, {"0", "1", "10", "20", "-2"}}, slices.Collect(diff.Rows()))

	t3, err := ReadGN(strings.NewReader("0,1,-0.5,0.5,0,10,1\n"), Layout{2, photon.T3})
	require.NoError(t, err)
	_, err = a.Add(t3)
	var modeErr *photon.ModeError
	assert.True(t, errors.As(err, &modeErr))

	g3t2, err := ReadGN(strings.NewReader("0,1,0,10,2,0,10,1\n"), Layout{3, photon.T2})
	require.NoError(t, err)
	_, err = a.Add(g3t2)
	var dimErr *photon.DimensionError
	assert.True(t, errors.As(err, &dimErr))
}

func TestMarginal(t *testing.T) {
	g, err := ReadGN(strings.NewReader(g3Data), Layout{3, photon.T3})
	require.NoError(t, err)

	pulses, err := g.Histogram(MustKey(0, 1, 2)).Marginal(pulseDim(1), pulseDim(2))
	require.NoError(t, err)
	want := Histogram{
		NewPoint(CenterPulse, CenterPulse):   4,
		NewPoint(CenterPulse, SidePulse):     3,
		NewPoint(SidePulse, SecondSidePulse): 3,
	}
	assert.Equal(t, want, pulses)

	_, err = g.Histogram(MustKey(0, 1, 2)).Marginal(4)
	var dimErr *photon.DimensionError
	assert.True(t, errors.As(err, &dimErr))
}

func TestG3Views(t *testing.T) {
	g, err := ReadG3T3(strings.NewReader(g3Data))
	require.NoError(t, err)

	h := g.Correlation(MustKey(0, 1, 2))
	assert.Equal(t, 10.0, h.Total())
	assert.Equal(t, 3.0, h[SidePulse][timebin.New(0, 10)][SecondSidePulse].Total())

	auto, err := g.Autocorrelation()
	require.NoError(t, err)
	assert.Equal(t, 10.0, auto.Total())

	combined := g.Combine()
	require.Len(t, combined, 2)
	assert.Equal(t, 7.0, combined[MustKey(0, 1)][CenterPulse].Total())
	assert.Equal(t, 3.0, combined[MustKey(0, 1)][SidePulse].Total())
	assert.Equal(t, 100.0, combined[MustKey(1, 1)].Total())
}

func TestViewChecksLayout(t *testing.T) {
	g, err := ReadGN(strings.NewReader(g2t2Data), Layout{2, photon.T2})
	require.NoError(t, err)

	_, err = NewG2T3(g)
	var modeErr *photon.ModeError
	assert.True(t, errors.As(err, &modeErr))

	_, err = NewG3T3(g)
	assert.Error(t, err)

	view, err := NewG2T2(g)
	require.NoError(t, err)
	assert.Equal(t, []timebin.Bin{
		timebin.New(0, 10), timebin.New(10, 20), timebin.New(20, 30), timebin.New(30, 40), timebin.New(40, 50),
	}, view.Correlation(MustKey(0, 1)).Bins())
}

func TestHistogramIsACopy(t *testing.T) {
	g, err := ReadGN(strings.NewReader(g2t2Data), Layout{2, photon.T2})
	require.NoError(t, err)

	h := g.Histogram(MustKey(0, 1))
	for p := range h {
		h[p] = 0
	}
	assert.Equal(t, 15.0, g.Histogram(MustKey(0, 1)).Total())
	assert.Empty(t, g.Histogram(MustKey(5, 6)))
}

func TestG1(t *testing.T) {
	data := "1,0,10,5\n0,10,20,3\n0,0,10,4\n1,10,20,1\n"
	g, err := ReadG1(strings.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1}, g.Curves())
	c0, ok := g.Curve(0)
	require.True(t, ok)
	assert.Equal(t, []float64{4, 3}, c0.Counts())

	sum, err := g.Combine()
	require.NoError(t, err)
	assert.Equal(t, []float64{9, 4}, sum.Counts())

	assert.Equal(t, [][]string{
		{"0", "0", "10", "4"},
		{"0", "10", "20", "3"},
		{"1", "0", "10", "5"},
		{"1", "10", "20", "1"},
	}, slices.Collect(g.Rows()))
}

func TestG1CombineUnlikeBins(t *testing.T) {
	g, err := ReadG1(strings.NewReader("0,0,10,4\n1,0,10,5\n1,10,20,1\n"))
	require.NoError(t, err)

	_, err = g.Combine()
	var dimErr *photon.DimensionError
	assert.True(t, errors.As(err, &dimErr))
}

func TestG1Errors(t *testing.T) {
	_, err := ReadG1(strings.NewReader("0,0,10\n"))
	var formatErr *photon.FormatError
	assert.True(t, errors.As(err, &formatErr))
}
