// Package render draws lifetimes, correlations and intensity traces with
// gonum/plot and saves them in one or more image formats.
package render

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	photon "github.com/HamletTheHamster/photon-correlation"
	"github.com/HamletTheHamster/photon-correlation/correlation"
	"github.com/HamletTheHamster/photon-correlation/exponential"
	"github.com/HamletTheHamster/photon-correlation/intensity"
	"github.com/HamletTheHamster/photon-correlation/lifetime"
)

// nsPerPs converts picosecond bin edges to the nanoseconds on the axes.
const nsPerPs = 1e-3

func prepPlot(
	title, xlabel, ylabel string,
	logY bool,
) (
	*plot.Plot,
) {

	p := plot.New()
	p.BackgroundColor = color.RGBA{A: 0}
	p.Title.Text = title
	p.Title.TextStyle.Font.Variant = "Sans"
	p.Title.TextStyle.Font.Size = 20
	p.Title.Padding = font.Length(12)

	p.X.Label.Text = xlabel
	p.X.Label.TextStyle.Font.Variant = "Sans"
	p.X.Label.TextStyle.Font.Size = 16
	p.X.Label.Padding = font.Length(8)
	p.X.LineStyle.Width = vg.Points(1.5)
	p.X.Tick.LineStyle.Width = vg.Points(1.5)
	p.X.Tick.Label.Font.Size = 14
	p.X.Tick.Label.Font.Variant = "Sans"

	p.Y.Label.Text = ylabel
	p.Y.Label.TextStyle.Font.Variant = "Sans"
	p.Y.Label.TextStyle.Font.Size = 16
	p.Y.Label.Padding = font.Length(8)
	p.Y.LineStyle.Width = vg.Points(1.5)
	p.Y.Tick.LineStyle.Width = vg.Points(1.5)
	p.Y.Tick.Label.Font.Size = 14
	p.Y.Tick.Label.Font.Variant = "Sans"

	if logY {
		p.Y.Scale = plot.LogScale{}
		p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	}

	p.Legend.TextStyle.Font.Size = 14
	p.Legend.TextStyle.Font.Variant = "Sans"
	p.Legend.Top = true
	p.Legend.Padding = vg.Points(6)
	p.Legend.ThumbnailWidth = vg.Points(30)

	return p
}

func palette(
	brush int,
) (
	color.RGBA,
) {

	col := []color.RGBA{
		{R: 31, G: 211, B: 172, A: 255},
		{R: 255, G: 122, B: 180, A: 255},
		{R: 122, G: 156, B: 255, A: 255},
		{R: 255, G: 193, B: 122, A: 255},
		{R: 188, G: 117, B: 255, A: 255},
		{R: 46, G: 140, B: 60, A: 255},
		{R: 140, G: 46, B: 49, A: 255},
		{R: 1, G: 56, B: 84, A: 255},
	}

	return col[brush%len(col)]
}

// Lifetime plots counts on a log scale against time in ns. Empty bins are
// left out. A non-empty fit is drawn over the decay from the peak on.
func Lifetime(
	l *lifetime.Lifetime,
	fit exponential.MultiExponential,
) (
	*plot.Plot, error,
) {

	times, counts := l.Times(), l.Counts()
	pts := plotter.XYs{}
	last := -1
	for i, c := range counts {
		if c > 0 {
			pts = append(pts, plotter.XY{X: times[i].Center() * nsPerPs, Y: c})
			last = i
		}
	}
	if len(pts) == 0 {
		return nil, fmt.Errorf("plotting lifetime: %w", photon.ErrInsufficientData)
	}

	p := prepPlot("Lifetime", "Time (ns)", "Counts", true)

	data, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, err
	}
	data.GlyphStyle.Color = palette(0)
	data.GlyphStyle.Radius = vg.Points(2)
	data.Shape = draw.CircleGlyph{}
	p.Add(data)
	p.Legend.Add("data", data)

	if len(fit) > 0 {
		curve := plotter.XYs{}
		for i := l.Origin(); i <= last; i++ {
			if y := fit.Eval(times[i].Center()); y > 0 {
				curve = append(curve, plotter.XY{X: times[i].Center() * nsPerPs, Y: y})
			}
		}
		if len(curve) > 1 {
			line, err := plotter.NewLine(curve)
			if err != nil {
				return nil, err
			}
			line.LineStyle.Color = palette(1)
			line.LineStyle.Width = vg.Points(2)
			p.Add(line)
			p.Legend.Add(fit.String(), line)
		}
	}

	return p, nil
}

// AddIRF overlays a response-convolved fit on a lifetime plot, rise
// included.
func AddIRF(
	p *plot.Plot,
	l *lifetime.Lifetime,
	fit lifetime.IRFFit,
) error {

	curve := plotter.XYs{}
	for _, b := range l.Times() {
		if y := fit.Eval(l, b.Center()); y > 0 {
			curve = append(curve, plotter.XY{X: b.Center() * nsPerPs, Y: y})
		}
	}
	if len(curve) < 2 {
		return fmt.Errorf("plotting irf fit: %w", photon.ErrInsufficientData)
	}

	line, err := plotter.NewLine(curve)
	if err != nil {
		return err
	}
	line.LineStyle.Color = palette(3)
	line.LineStyle.Width = vg.Points(2)
	line.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(3)}
	p.Add(line)
	p.Legend.Add("irf fit", line)

	return nil
}

// Autocorrelation plots a t2 g(2) against delay in ns.
func Autocorrelation(
	h correlation.TimeHistogram,
) (
	*plot.Plot, error,
) {

	pts := plotter.XYs{}
	for _, b := range h.Bins() {
		pts = append(pts, plotter.XY{X: b.Center() * nsPerPs, Y: h[b]})
	}
	if len(pts) == 0 {
		return nil, fmt.Errorf("plotting autocorrelation: %w", photon.ErrInsufficientData)
	}

	p := prepPlot("Autocorrelation", "Time (ns)", "Counts", false)
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.LineStyle.Color = palette(2)
	line.LineStyle.Width = vg.Points(1.5)
	p.Add(line)

	return p, nil
}

// Intensity plots every channel of a trace against bin start.
func Intensity(
	trace *intensity.Intensity,
) (
	*plot.Plot, error,
) {

	if trace.Len() == 0 || trace.Channels() == 0 {
		return nil, fmt.Errorf("plotting intensity: %w", photon.ErrInsufficientData)
	}

	unit := trace.TimeUnit()
	p := prepPlot("Intensity", "Time ("+unit+")", "Intensity (counts/"+unit+")", false)

	times := trace.Times()
	for ch := 0; ch < trace.Channels(); ch++ {
		pts := make(plotter.XYs, len(times))
		for i, c := range trace.Counts(ch) {
			pts[i] = plotter.XY{X: times[i].Lower, Y: c}
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		line.LineStyle.Color = palette(ch)
		line.LineStyle.Width = vg.Points(1)
		p.Add(line)
		if trace.Channels() > 1 {
			p.Legend.Add(strconv.Itoa(ch), line)
		}
	}

	return p, nil
}

// Save writes p to base.<format> for each format, width and height in
// inches, and returns the files written.
func Save(
	p *plot.Plot,
	base string,
	formats []string,
	width, height float64,
) (
	[]string, error,
) {

	if dir := filepath.Dir(base); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	var paths []string
	for _, format := range formats {
		path := base + "." + format
		if err := p.Save(vg.Length(width)*vg.Inch, vg.Length(height)*vg.Inch, path); err != nil {
			return paths, fmt.Errorf("saving %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
