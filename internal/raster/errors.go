package raster

import (
	"errors"
	"fmt"
)

var (
	// ErrDimensionMismatch is returned when two rasters that must share a shape do not.
	ErrDimensionMismatch = errors.New("raster dimensions differ")
	// ErrNotSingleChannel is returned when a decoded image carries color information.
	ErrNotSingleChannel = errors.New("image is not single-channel")
	// ErrUnsupportedFormat is returned for file extensions without a codec.
	ErrUnsupportedFormat = errors.New("unsupported raster format")
)

// IOError represents a failure while loading or storing a raster file.
type IOError struct {
	Operation string
	Path      string
	Err       error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("raster %s: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("raster %s %s: %v", e.Operation, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
