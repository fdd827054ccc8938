// Package runner starts the external photon tools and hands their CSV
// output to the analysis packages.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/HamletTheHamster/photon-correlation/internal/config"
)

// Runner runs tools from a configured set of executables.
type Runner struct {
	Tools  config.Tools
	Logger *zap.Logger
}

// New returns a Runner. A nil logger discards output.
func New(tools config.Tools, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{Tools: tools, Logger: logger}
}

func (r *Runner) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

// stream is a running tool's stdout. Close drains it and waits for the tool
// to exit.
type stream struct {
	io.Reader
	tool   string
	cmd    *exec.Cmd
	stderr *bytes.Buffer
	log    *zap.Logger
	closed bool
}

func (s *stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	io.Copy(io.Discard, s.Reader)
	if err := s.cmd.Wait(); err != nil {
		msg := strings.TrimSpace(s.stderr.String())
		s.log.Warn("tool failed", zap.String("tool", s.tool), zap.String("stderr", msg), zap.Error(err))
		if msg != "" {
			return fmt.Errorf("%s: %w: %s", s.tool, err, msg)
		}
		return fmt.Errorf("%s: %w", s.tool, err)
	}
	s.log.Debug("tool finished", zap.String("tool", s.tool))
	return nil
}

// Stream starts tool with args and returns its standard output. The caller
// must Close it; Close reports a failed exit. Cancelling ctx kills the tool.
func (r *Runner) Stream(
	ctx context.Context,
	tool string,
	args ...string,
) (
	io.ReadCloser, error,
) {

	path, err := r.Tools.Path(tool)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, path, args...)
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", tool, err)
	}

	r.logger().Debug("starting tool", zap.String("tool", tool), zap.String("path", path), zap.Strings("args", args))
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", tool, err)
	}
	return &stream{Reader: stdout, tool: tool, cmd: cmd, stderr: stderr, log: r.logger()}, nil
}

// Output runs tool to completion and returns everything it printed.
func (r *Runner) Output(ctx context.Context, tool string, args ...string) ([]byte, error) {
	out, err := r.Stream(ctx, tool, args...)
	if err != nil {
		return nil, err
	}

	b, readErr := io.ReadAll(out)
	if err := out.Close(); err != nil {
		return nil, err
	}
	if readErr != nil {
		return nil, fmt.Errorf("reading %s output: %w", tool, readErr)
	}
	return b, nil
}
