// Package csvstream reads and writes the comma separated streams the photon
// counting tools produce, reporting malformed fields as photon.FormatError.
package csvstream

import (
	"compress/bzip2"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"strconv"
	"strings"

	photon "github.com/HamletTheHamster/photon-correlation"
)

const bz2Suffix = ".bz2"

type bz2File struct {
	io.Reader
	f *os.File
}

func (b *bz2File) Close() error { return b.f.Close() }

// Open opens a CSV input for reading. Paths ending in .bz2 are decompressed
// on the fly, and when path itself does not exist path+".bz2" is tried.
func Open(
	path string,
) (
	io.ReadCloser, error,
) {

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) && !strings.HasSuffix(path, bz2Suffix) {
		f, err = os.Open(path + bz2Suffix)
		if err == nil {
			return &bz2File{Reader: bzip2.NewReader(f), f: f}, nil
		}
		return nil, fmt.Errorf("open %s: %w", path, fs.ErrNotExist)
	}
	if err != nil {
		return nil, err
	}

	if strings.HasSuffix(path, bz2Suffix) {
		return &bz2File{Reader: bzip2.NewReader(f), f: f}, nil
	}
	return f, nil
}

// NewReader returns a csv.Reader that tolerates ragged rows and leading
// spaces, leaving column count checks to the caller.
func NewReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return cr
}

// Scanner steps through CSV records and parses their fields, producing
// FormatErrors that carry the line and column at fault.
type Scanner struct {
	r    *csv.Reader
	rows [][]string
	rec  []string
	line int
	err  error
}

// NewScanner wraps r.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{r: NewReader(r)}
}

// Records scans rows already split into fields. Row i is reported as line
// i+1.
func Records(rows [][]string) *Scanner {
	return &Scanner{rows: rows}
}

// Scan advances to the next record. It returns false at end of input or on
// a read error, which Err reports.
func (s *Scanner) Scan() bool {
	if s.err != nil {
		return false
	}
	if s.r == nil {
		if s.line >= len(s.rows) {
			return false
		}
		s.rec = s.rows[s.line]
		s.line++
		return true
	}

	rec, err := s.r.Read()
	if err == io.EOF {
		return false
	}
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			s.err = &photon.FormatError{Line: parseErr.Line, Column: parseErr.Column, Msg: "malformed csv", Err: parseErr.Err}
		} else {
			s.err = err
		}
		return false
	}

	s.rec = rec
	s.line, _ = s.r.FieldPos(0)
	return true
}

// Record is the current row.
func (s *Scanner) Record() []string { return s.rec }

// Line is the 1-based input line of the current row.
func (s *Scanner) Line() int { return s.line }

// Err is the first read error, if any.
func (s *Scanner) Err() error { return s.err }

// Fail builds a FormatError for the whole current row.
func (s *Scanner) Fail(format string, args ...any) error {
	return &photon.FormatError{Line: s.line, Msg: fmt.Sprintf(format, args...)}
}

// Columns fails unless the current row has exactly n fields.
func (s *Scanner) Columns(n int) error {
	if len(s.rec) != n {
		return s.Fail("got %d columns, want %d", len(s.rec), n)
	}
	return nil
}

// Int parses column col (0-based) as an integer.
func (s *Scanner) Int(col int) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s.field(col)))
	if err != nil {
		return 0, s.fieldErr(col, "integer", err)
	}
	return v, nil
}

// Float parses column col (0-based) as a float.
func (s *Scanner) Float(col int) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s.field(col)), 64)
	if err != nil {
		return 0, s.fieldErr(col, "number", err)
	}
	return v, nil
}

// Count parses column col (0-based) as a non-negative count. Integer and
// fractional counts are both accepted.
func (s *Scanner) Count(col int) (float64, error) {
	v, err := s.Float(col)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, &photon.FormatError{Line: s.line, Column: col + 1, Msg: fmt.Sprintf("negative count %g", v)}
	}
	return v, nil
}

func (s *Scanner) field(col int) string {
	if col < 0 || col >= len(s.rec) {
		return ""
	}
	return s.rec[col]
}

func (s *Scanner) fieldErr(col int, kind string, err error) error {
	return &photon.FormatError{
		Line:   s.line,
		Column: col + 1,
		Msg:    fmt.Sprintf("%s expected, got %q", kind, s.field(col)),
		Err:    err,
	}
}

// FormatFloat renders v in the shortest form that parses back exactly.
// Integer values carry no decimal part, so integer counts round-trip as
// integers.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Write writes every row of rows to w as CSV.
func Write(
	w io.Writer,
	rows iter.Seq[[]string],
) (
	error,
) {

	cw := csv.NewWriter(w)
	for row := range rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes rows to a new file at path.
func WriteFile(path string, rows iter.Seq[[]string]) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := Write(f, rows); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
