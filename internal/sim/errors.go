package sim

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidParameters indicates a parameter set outside its valid range.
	// It is reported before any random draw.
	ErrInvalidParameters = errors.New("sim: invalid parameters")

	// ErrEmptySelection indicates the threshold selected nobody, so the
	// selected means are undefined.
	ErrEmptySelection = errors.New("sim: empty selection")
)

// ParamError names the field that failed validation.
type ParamError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("%s: %s = %g %s", ErrInvalidParameters, e.Field, e.Value, e.Reason)
}

func (e *ParamError) Unwrap() error {
	return ErrInvalidParameters
}
