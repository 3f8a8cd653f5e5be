package assist

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput is returned before any model call when the input text is
	// blank.
	ErrEmptyInput = errors.New("input is empty")

	// ErrEmptyOutput is returned when the model produced no usable content.
	ErrEmptyOutput = errors.New("model returned no output")

	// ErrSchemaMismatch is returned when the model output does not match the
	// expected response shape.
	ErrSchemaMismatch = errors.New("model output does not match schema")

	// ErrNoModel is returned when a flow was built without a Model.
	ErrNoModel = errors.New("no model configured")
)

// GenerationError reports a failed flow. Nothing partial is returned with
// it.
type GenerationError struct {
	Flow string
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Flow, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

func schemaError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSchemaMismatch, fmt.Sprintf(format, args...))
}
