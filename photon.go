// Package photon holds the pieces shared by every analysis package: the
// acquisition mode of a measurement and the error kinds reported while
// loading and analyzing the CSV output of the photon counting tools.
package photon

import (
	"strings"
)

// Mode is the timestamp format a measurement was taken in.
type Mode int

const (
	// T2 records arrival times against a free-running clock, in picoseconds.
	T2 Mode = iota + 1
	// T3 records (pulse, time-within-pulse) against a periodic sync.
	T3
)

// ParseMode maps "t2"/"t3" (any case, surrounding space ignored) to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "t2":
		return T2, nil
	case "t3":
		return T3, nil
	}
	return 0, &ModeError{Mode: s}
}

func (m Mode) String() string {
	switch m {
	case T2:
		return "t2"
	case T3:
		return "t3"
	}
	return "unknown"
}

// Axes is the number of histogram axes each offset channel carries:
// time for t2, pulse and time for t3.
func (m Mode) Axes() int {
	switch m {
	case T2:
		return 1
	case T3:
		return 2
	}
	return 0
}

// TimeUnit is the unit of the primary time axis.
func (m Mode) TimeUnit() string {
	if m == T2 {
		return "s"
	}
	return "pulse"
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == T2 || m == T3
}
