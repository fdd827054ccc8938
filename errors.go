package photon

import (
	"errors"
	"fmt"
)

var (
	// ErrIncompatibleBins is returned when histograms that must share bin
	// edges do not.
	ErrIncompatibleBins = errors.New("histograms do not share bin edges")

	// ErrInsufficientData is returned when a fit has too few usable points.
	ErrInsufficientData = errors.New("not enough nonzero points to fit")
)

// FormatError reports a malformed CSV row. Line and Column are 1-based;
// Column is 0 when the whole row is at fault.
type FormatError struct {
	Line   int
	Column int
	Msg    string
	Err    error
}

func (e *FormatError) Error() string {
	where := fmt.Sprintf("line %d", e.Line)
	if e.Column > 0 {
		where = fmt.Sprintf("line %d, column %d", e.Line, e.Column)
	}
	if e.Err != nil {
		return fmt.Sprintf("format error at %s: %s: %v", where, e.Msg, e.Err)
	}
	return fmt.Sprintf("format error at %s: %s", where, e.Msg)
}

func (e *FormatError) Unwrap() error { return e.Err }

// DimensionError reports parallel data whose lengths disagree.
type DimensionError struct {
	What string
	Got  int
	Want int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("dimension mismatch in %s: got %d, want %d", e.What, e.Got, e.Want)
}

// ModeError reports an unknown or unsupported acquisition mode.
type ModeError struct {
	Mode string
	Op   string
}

func (e *ModeError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: unsupported mode %q", e.Op, e.Mode)
	}
	return fmt.Sprintf("unknown mode %q", e.Mode)
}

// ConvergenceWarning is attached to a fit whose minimizer stopped on its
// iteration or evaluation budget. The parameters it accompanies are still the
// best found.
type ConvergenceWarning struct {
	Status      string
	Iterations  int
	Evaluations int
	Cost        float64
}

func (w *ConvergenceWarning) Error() string {
	return fmt.Sprintf("fit did not converge (%s after %d iterations, %d evaluations, cost %g)",
		w.Status, w.Iterations, w.Evaluations, w.Cost)
}
