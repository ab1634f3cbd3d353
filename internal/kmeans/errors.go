package kmeans

import (
	"errors"
	"fmt"
)

var (
	// ErrDimensionMismatch is matched by every error caused by points of differing dimension.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrEmptyCluster is returned when a center is computed from zero points.
	ErrEmptyCluster = errors.New("empty cluster")
	// ErrInvalidClusterCount is matched when k < 2 or k exceeds the number of points.
	ErrInvalidClusterCount = errors.New("invalid cluster count")
	// ErrEmptyCenterSet is returned by nearest center lookups without centers.
	ErrEmptyCenterSet = errors.New("empty center set")
	// ErrNilRandomSource is returned when Fit is called without a random source.
	ErrNilRandomSource = errors.New("nil random source")
)

// DimensionMismatchError describes two points of differing dimension.
//
// Index is the position of the offending point in the input set, or -1
// when the mismatch was found outside input validation.
type DimensionMismatchError struct {
	Expected int
	Actual   int
	Index    int
}

func (e *DimensionMismatchError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("dimension mismatch: point %d has dimension %d, expected %d", e.Index, e.Actual, e.Expected)
	}
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrDimensionMismatch
}

func mismatch(expected, actual int) error {
	return &DimensionMismatchError{Expected: expected, Actual: actual, Index: -1}
}

// ClusterCountError describes a cluster count outside [2, points].
type ClusterCountError struct {
	K      int
	Points int
}

func (e *ClusterCountError) Error() string {
	if e.K < 2 {
		return fmt.Sprintf("invalid cluster count: k=%d, must be at least 2", e.K)
	}
	return fmt.Sprintf("invalid cluster count: k=%d exceeds number of points %d", e.K, e.Points)
}

func (e *ClusterCountError) Is(target error) bool {
	return target == ErrInvalidClusterCount
}
