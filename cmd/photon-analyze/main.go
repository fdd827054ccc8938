package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"go.uber.org/zap"
	"gonum.org/v1/plot"

	photon "github.com/HamletTheHamster/photon-correlation"
	"github.com/HamletTheHamster/photon-correlation/correlation"
	"github.com/HamletTheHamster/photon-correlation/csvstream"
	"github.com/HamletTheHamster/photon-correlation/intensity"
	"github.com/HamletTheHamster/photon-correlation/internal/config"
	"github.com/HamletTheHamster/photon-correlation/internal/render"
	"github.com/HamletTheHamster/photon-correlation/internal/runner"
	"github.com/HamletTheHamster/photon-correlation/lifetime"
)

// Version is the version number. Typically injected via ldflags.
var Version = "0.1.0"

func root() {
	str := `photon-analyze post-processes the CSV output of the photon counting tools.

Usage:
	photon-analyze <command> [flags] <file>

Commands:
	lifetime   fit the decay of a g1 (or a Picoquant file with -picoquant;
	           -irf adds a fit convolved with the instrument response)
	g2         center/side ratio (t3) or autocorrelation (t2) of a g2
	g3         unique peaks of a t3 g3
	intensity  threshold an intensity trace and report blinking
	conf       print the active configuration
	mkconf     write the active configuration to ` + config.FileName + `
	version    print the version

Settings come from ` + config.FileName + ` and ` + config.EnvPrefix + `* environment variables.`
	fmt.Println(str)
}

type app struct {
	cfg config.Config
	log *zap.Logger
	out io.Writer
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}

	cfg, err := config.Load(config.FileName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := strings.ToLower(args[1])
	switch cmd {
	case "help", "-h", "--help":
		root()
	case "conf":
		err = config.Encode(os.Stdout, cfg)
	case "mkconf":
		err = mkconf(cfg)
	case "version":
		fmt.Printf("photon-analyze version %v\n", Version)
	case "lifetime", "g2", "g3", "intensity":
		err = run(ctx, cfg, cmd, args[2:])
	default:
		err = fmt.Errorf("unknown command %q", cmd)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func mkconf(cfg config.Config) error {
	f, err := os.Create(config.FileName)
	if err != nil {
		return err
	}
	if err := config.Encode(f, cfg); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func run(ctx context.Context, cfg config.Config, cmd string, args []string) error {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	verbose := fs.Bool("v", false, "verbose logging")
	plotBase := fs.String("plot", "", "export figures to `base`.<format>")
	mode := fs.String("mode", "t3", "acquisition mode, t2 or t3")
	picoquant := fs.Bool("picoquant", false, "read a Picoquant file through the picoquant tool (lifetime)")
	exponentials := fs.Int("n", cfg.Fit.Exponentials, "number of exponentials to fit (lifetime)")
	irf := fs.Bool("irf", false, "also fit the decay convolved with a Gaussian response (lifetime)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%s: want exactly one input file", cmd)
	}
	file := fs.Arg(0)

	logger, err := newLogger(*verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()
	logger = logger.With(zap.String("command", cmd), zap.String("file", file))

	a := &app{cfg: cfg, log: logger, out: os.Stdout}
	a.cfg.Fit.Exponentials = *exponentials

	m, err := photon.ParseMode(*mode)
	if err != nil {
		return err
	}

	switch cmd {
	case "lifetime":
		return a.lifetime(ctx, file, *picoquant, *irf, *plotBase)
	case "g2":
		return a.g2(file, m, *plotBase)
	case "g3":
		return a.g3(file)
	default:
		return a.intensity(file, m, *plotBase)
	}
}

// open reads file, or the records picoquant decodes from it.
func (a *app) open(ctx context.Context, file string, picoquant bool) (io.ReadCloser, error) {
	if picoquant {
		return runner.New(a.cfg.Tools, a.log).Records(ctx, file)
	}
	return csvstream.Open(file)
}

func (a *app) lifetime(ctx context.Context, file string, picoquant, irf bool, plotBase string) error {
	in, err := a.open(ctx, file, picoquant)
	if err != nil {
		return err
	}
	g1, err := correlation.ReadG1(in)
	if closeErr := in.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}

	l, err := g1.Combine()
	if err != nil {
		return err
	}
	if a.cfg.Resolution > 0 {
		l = l.ToResolution(a.cfg.Resolution)
	}

	fitCfg, err := a.cfg.Fit.FitConfig(a.log)
	if err != nil {
		return err
	}

	tau, sigma, err := l.LifetimeWithError(fitCfg.MinVal, fitCfg.MaxVal)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "lifetime: %g +/- %g ps\n", tau, sigma)
	fmt.Fprintf(a.out, "mean arrival time: %g ps\n", l.MeanArrivalTime())

	if l.Total() == 0 {
		fmt.Fprintln(a.out, "no counts to fit")
		return nil
	}

	fit, err := l.ExponentialFit(fitCfg)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "fit: %s (cost %g)\n", fit.Model, fit.Cost)
	if fit.Warning != nil {
		fmt.Fprintf(a.out, "warning: %v\n", fit.Warning)
	}
	for i, area := range fit.Model.RelativeAreas(l.Times()[l.Origin()].Center()) {
		fmt.Fprintf(a.out, "term %d: lifetime %g ps, relative area %.3f\n", i, fit.Model[i].Lifetime(), area)
	}

	var irfFit *lifetime.IRFFit
	if irf {
		f, err := l.GaussianExponentialFit(fitCfg, 0)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "irf fit: %s (offset %g ps)\n", f.Model, f.Offset)
		irfFit = &f
	}

	if plotBase == "" {
		return nil
	}
	p, err := render.Lifetime(l, fit.Model)
	if err != nil {
		return err
	}
	if irfFit != nil {
		if err := render.AddIRF(p, l, *irfFit); err != nil {
			return err
		}
	}
	return a.export(p, plotBase)
}

func (a *app) g2(file string, mode photon.Mode, plotBase string) error {
	in, err := csvstream.Open(file)
	if err != nil {
		return err
	}
	defer in.Close()

	if mode == photon.T3 {
		g, err := correlation.ReadG2T3(in)
		if err != nil {
			return err
		}
		ratios := g.CenterSideRatios()
		for _, k := range g.Keys() {
			cs := ratios[k]
			fmt.Fprintf(a.out, "%s: center %g, side %g, ratio %g\n", k, cs.Center, cs.Side, cs.Ratio())
		}
		fmt.Fprintf(a.out, "center/side: %g\n", g.CenterSideRatio())
		return nil
	}

	g, err := correlation.ReadG2T2(in)
	if err != nil {
		return err
	}
	if a.cfg.Resolution > 0 {
		if g, err = g.ToResolution(a.cfg.Resolution); err != nil {
			return err
		}
	}
	auto, err := g.Autocorrelation()
	if err != nil {
		return err
	}

	err = csvstream.Write(a.out, func(yield func([]string) bool) {
		for _, b := range auto.Bins() {
			row := []string{csvstream.FormatFloat(b.Lower), csvstream.FormatFloat(b.Upper), csvstream.FormatFloat(auto[b])}
			if !yield(row) {
				return
			}
		}
	})
	if err != nil || plotBase == "" {
		return err
	}

	p, err := render.Autocorrelation(auto)
	if err != nil {
		return err
	}
	return a.export(p, plotBase)
}

func (a *app) g3(file string) error {
	in, err := csvstream.Open(file)
	if err != nil {
		return err
	}
	defer in.Close()

	g, err := correlation.ReadG3T3(in)
	if err != nil {
		return err
	}
	peaks := g.UniquePeaks()
	for _, name := range []string{"center", "diagonal", "off-diagonal"} {
		fmt.Fprintf(a.out, "%s: %g\n", name, peaks[name])
	}
	return nil
}

func (a *app) intensity(file string, mode photon.Mode, plotBase string) error {
	in, err := csvstream.Open(file)
	if err != nil {
		return err
	}
	defer in.Close()

	trace, err := intensity.Read(in, mode)
	if err != nil {
		return err
	}

	summed := trace.Summed().Normalized()
	threshold := a.cfg.Threshold * summed.Max()
	on, off := trace.Blinking().OnOffTimes(threshold)
	a.log.Info("blinking",
		zap.Float64("threshold", threshold),
		zap.Int("on", len(on)),
		zap.Int("off", len(off)))

	kept := trace.Threshold(a.cfg.Threshold)
	a.log.Info("thresholded", zap.Int("bins", trace.Len()), zap.Int("kept", kept.Len()))
	if err := csvstream.Write(a.out, kept.Rows()); err != nil {
		return err
	}

	if plotBase == "" {
		return nil
	}
	p, err := render.Intensity(trace)
	if err != nil {
		return err
	}
	return a.export(p, plotBase)
}

func (a *app) export(p *plot.Plot, base string) error {
	paths, err := render.Save(p, base, a.cfg.Plot.Formats, a.cfg.Plot.Width, a.cfg.Plot.Height)
	if err != nil {
		return err
	}
	a.log.Info("saved figures", zap.Strings("files", paths))
	return nil
}
