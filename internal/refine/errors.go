package refine

import (
	"errors"
	"fmt"
)

// ErrNegativeArea is returned when the area threshold is below zero.
var ErrNegativeArea = errors.New("area threshold must be >= 0")

// Kind classifies a refinement failure.
type Kind int

const (
	// KindInput marks unreadable, undecodable, color or mismatched inputs.
	KindInput Kind = iota + 1
	// KindPrecondition marks invalid thresholds or mismatched intermediate shapes.
	KindPrecondition
	// KindOutput marks failures while writing results.
	KindOutput
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindPrecondition:
		return "precondition"
	case KindOutput:
		return "output"
	default:
		return "unknown"
	}
}

// Error is returned by pipeline operations. Stage names the step that failed.
type Error struct {
	Kind  Kind
	Stage string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s error: %v", e.Stage, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind carried by err, or 0 when err is not a refine error.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return 0
}

func inputErr(stage string, err error) error {
	return &Error{Kind: KindInput, Stage: stage, Err: err}
}

func preconditionErr(stage string, err error) error {
	return &Error{Kind: KindPrecondition, Stage: stage, Err: err}
}

func outputErr(stage string, err error) error {
	return &Error{Kind: KindOutput, Stage: stage, Err: err}
}
