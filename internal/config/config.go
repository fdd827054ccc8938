// Package config loads photon-analyze settings: built-in defaults, then an
// optional YAML file, then PHOTON_ environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"go.uber.org/zap"
	yml "gopkg.in/yaml.v2"

	"github.com/HamletTheHamster/photon-correlation/lifetime"
)

const (
	// FileName is the config file read from the working directory.
	FileName = "photon.yml"

	// EnvPrefix marks environment overrides, e.g. PHOTON_FIT_MINVAL=0.05.
	EnvPrefix = "PHOTON_"
)

// Config is the complete configuration.
type Config struct {
	Tools Tools `koanf:"tools" yaml:"tools"`
	Fit   Fit   `koanf:"fit" yaml:"fit"`

	// Resolution rebins lifetimes and g2s to this width in ps; 0 keeps the
	// native resolution
	Resolution float64 `koanf:"resolution" yaml:"resolution"`

	// Threshold is the fraction of peak intensity kept by intensity filtering
	Threshold float64 `koanf:"threshold" yaml:"threshold"`

	Plot Plot `koanf:"plot" yaml:"plot"`
}

// Tools holds the executables of the external photon tools. Bare names are
// looked up on PATH.
type Tools struct {
	Picoquant string `koanf:"picoquant" yaml:"picoquant"`
	Correlate string `koanf:"correlate" yaml:"correlate"`
	Histogram string `koanf:"histogram" yaml:"histogram"`
	Intensity string `koanf:"intensity" yaml:"intensity"`
	GN        string `koanf:"gn" yaml:"gn"`
}

// Path returns the configured executable for a tool name.
func (t Tools) Path(name string) (string, error) {
	var path string
	switch name {
	case "picoquant":
		path = t.Picoquant
	case "correlate":
		path = t.Correlate
	case "histogram":
		path = t.Histogram
	case "intensity":
		path = t.Intensity
	case "gn":
		path = t.GN
	default:
		return "", fmt.Errorf("unknown tool %q", name)
	}
	if path == "" {
		return "", fmt.Errorf("no executable configured for %s", name)
	}
	return path, nil
}

// Fit holds the lifetime fitting defaults.
type Fit struct {
	MinVal       float64 `koanf:"minval" yaml:"minval"`
	MaxVal       float64 `koanf:"maxval" yaml:"maxval"`
	Exponentials int     `koanf:"exponentials" yaml:"exponentials"`
	Residual     string  `koanf:"residual" yaml:"residual"`
}

// FitConfig converts the settings for the lifetime package.
func (f Fit) FitConfig(logger *zap.Logger) (lifetime.FitConfig, error) {
	residual, err := lifetime.ParseResidual(f.Residual)
	if err != nil {
		return lifetime.FitConfig{}, err
	}
	return lifetime.FitConfig{
		MinVal:       f.MinVal,
		MaxVal:       f.MaxVal,
		Exponentials: f.Exponentials,
		Residual:     residual,
		Logger:       logger,
	}, nil
}

// Plot holds figure export settings.
type Plot struct {
	Width   float64  `koanf:"width" yaml:"width"`
	Height  float64  `koanf:"height" yaml:"height"`
	Formats []string `koanf:"formats" yaml:"formats"`
}

// Default is the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Tools: Tools{
			Picoquant: "picoquant",
			Correlate: "correlate",
			Histogram: "histogram",
			Intensity: "intensity",
			GN:        "gn",
		},
		Fit: Fit{
			MinVal:       lifetime.DefaultMinVal,
			MaxVal:       lifetime.DefaultMaxVal,
			Exponentials: 1,
			Residual:     lifetime.SquareDifference.String(),
		},
		Threshold: 0.7,
		Plot: Plot{
			Width:   8,
			Height:  6,
			Formats: []string{"png", "svg", "pdf"},
		},
	}
}

// Load layers the defaults, the YAML file at path and the environment. A
// missing file is not an error.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("loading defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("loading %s: %w", path, err)
		}
	}

	envKey := func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("loading environment: %w", err)
	}

	var c Config
	if err := k.Unmarshal("", &c); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	return c, nil
}

// Encode writes c as YAML.
func Encode(w io.Writer, c Config) error {
	return yml.NewEncoder(w).Encode(c)
}
