package runner

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	photon "github.com/HamletTheHamster/photon-correlation"
	"github.com/HamletTheHamster/photon-correlation/csvstream"
)

// Records streams the photon records of a Picoquant file as CSV.
func (r *Runner) Records(ctx context.Context, file string) (io.ReadCloser, error) {
	return r.Stream(ctx, "picoquant", "--file-in", file)
}

// Mode asks picoquant which mode file was recorded in.
func (r *Runner) Mode(ctx context.Context, file string) (photon.Mode, error) {
	out, err := r.Output(ctx, "picoquant", "--file-in", file, "--mode-only")
	if err != nil {
		return 0, err
	}

	s := strings.TrimSpace(string(out))
	mode, err := photon.ParseMode(s)
	if err != nil {
		return 0, &photon.ModeError{Mode: s, Op: "picoquant " + file}
	}
	return mode, nil
}

// Resolution is the time resolution of a Picoquant file in ps. Histogram
// files carry one resolution per curve instead.
type Resolution struct {
	Value  float64
	Curves map[int]float64
}

// Resolution asks picoquant for the resolution of file.
func (r *Runner) Resolution(ctx context.Context, file string) (Resolution, error) {
	out, err := r.Output(ctx, "picoquant", "--file-in", file, "--resolution-only")
	if err != nil {
		return Resolution{}, err
	}

	if !bytes.Contains(out, []byte(",")) {
		v, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
		if err != nil {
			return Resolution{}, &photon.FormatError{Line: 1, Msg: "resolution", Err: err}
		}
		return Resolution{Value: v}, nil
	}

	res := Resolution{Curves: make(map[int]float64)}
	s := csvstream.NewScanner(bytes.NewReader(out))
	for s.Scan() {
		if err := s.Columns(2); err != nil {
			return Resolution{}, err
		}
		curve, err := s.Int(0)
		if err != nil {
			return Resolution{}, err
		}
		v, err := s.Float(1)
		if err != nil {
			return Resolution{}, err
		}
		res.Curves[curve] = v
	}
	return res, s.Err()
}

// Header is the key = value header of a Picoquant file, keys lower case.
type Header map[string]string

// Header asks picoquant for the header of file.
func (r *Runner) Header(ctx context.Context, file string) (Header, error) {
	out, err := r.Output(ctx, "picoquant", "--file-in", file, "--header-only")
	if err != nil {
		return nil, err
	}
	return ParseHeader(bytes.NewReader(out))
}

// ParseHeader reads key = value lines. Blank lines and lines starting with
// # or ; are skipped.
func ParseHeader(r io.Reader) (Header, error) {
	h := make(Header)
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") || strings.HasPrefix(text, ";") {
			continue
		}
		key, value, ok := strings.Cut(text, "=")
		if !ok {
			return nil, &photon.FormatError{Line: line, Msg: fmt.Sprintf("header line %q has no '='", text)}
		}
		h[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}
	return h, sc.Err()
}

// Float parses the value of key.
func (h Header) Float(key string) (float64, error) {
	v, ok := h[key]
	if !ok {
		return 0, fmt.Errorf("header has no %s", key)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("header %s: %w", key, err)
	}
	return f, nil
}

// RepetitionRate is the sync rate in Hz, or the rate on input 0 when the
// device has no sync channel.
func (h Header) RepetitionRate() (float64, error) {
	if _, ok := h["syncrate"]; ok {
		return h.Float("syncrate")
	}
	return h.Float("inprate[0]")
}

// Channels is the number of signal inputs present.
func (h Header) Channels() (int, error) {
	v, err := h.Float("inputchannelspresent")
	return int(v), err
}

// IntegrationTime is the acquisition time in ms.
func (h Header) IntegrationTime() (float64, error) {
	return h.Float("stopafter")
}
