package pointio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/mawngo/kcluster/internal/kmeans"
)

var (
	// ErrNoPoints is returned when the input holds no point.
	ErrNoPoints = errors.New("no points")
	// ErrNonFinite is returned for NaN or infinite coordinates.
	ErrNonFinite = errors.New("non-finite coordinate")
)

// maxLineSize bounds a single input line, so rows of very high dimension still fit.
const maxLineSize = 64 << 20

// ParseError reports a malformed input line.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Read parses one point per line. Coordinates are separated by whitespace or
// commas; blank lines and lines starting with # are skipped. Every point
// must have the same number of coordinates.
func Read(r io.Reader) (kmeans.Dataset, error) {
	var d kmeans.Dataset
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.FieldsFunc(text, func(c rune) bool {
			return c == ',' || c == ' ' || c == '\t'
		})
		coords := make([]float64, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, &ParseError{Line: line, Err: err}
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, &ParseError{Line: line, Err: fmt.Errorf("%w: %q", ErrNonFinite, f)}
			}
			coords[i] = v
		}
		if len(d) > 0 && len(coords) != len(d[0]) {
			return nil, &ParseError{
				Line: line,
				Err:  fmt.Errorf("%w: got %d coordinates, expected %d", kmeans.ErrDimensionMismatch, len(coords), len(d[0])),
			}
		}
		d = append(d, coords)
	}
	if err := scanner.Err(); err != nil {
		return nil, &ParseError{Line: line + 1, Err: err}
	}
	if len(d) == 0 {
		return nil, ErrNoPoints
	}
	return d, nil
}

// ReadFile reads points from path, or from stdin when path is "-".
func ReadFile(path string) (kmeans.Dataset, error) {
	if path == "-" {
		return Read(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// WriteAssignments writes one cluster index per line. Only the first limit
// indices are written when limit > 0.
func WriteAssignments(w io.Writer, assignments []int, limit int) error {
	if limit > 0 && limit < len(assignments) {
		assignments = assignments[:limit]
	}
	bw := bufio.NewWriter(w)
	for _, a := range assignments {
		bw.WriteString(strconv.Itoa(a))
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
