package framework

import (
	"errors"
	"strings"
)

// AggregatedError collects errors from parallel work.
type AggregatedError struct {
	Errors []error
}

// Error implements error.
func (e *AggregatedError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Add collects errs, skipping nil.
func (e *AggregatedError) Add(errs ...error) *AggregatedError {
	for _, err := range errs {
		if err != nil {
			e.Errors = append(e.Errors, err)
		}
	}
	return e
}

// Aggregate returns nil, the only error, or e.
func (e *AggregatedError) Aggregate() error {
	switch len(e.Errors) {
	case 0:
		return nil
	case 1:
		return e.Errors[0]
	}
	return e
}

// Unwrap supports errors.Is and errors.As on any collected error.
func (e *AggregatedError) Unwrap() []error {
	return e.Errors
}

// HaltError stops the loop when returned by a Controller.
type HaltError struct {
	Err error
}

func (e *HaltError) Error() string {
	return "halt: " + e.Err.Error()
}

func (e *HaltError) Unwrap() error {
	return e.Err
}

// Halt wraps err so the loop stops after the current controller.
func Halt(err error) error {
	if err == nil {
		return nil
	}
	return &HaltError{Err: err}
}

// IsHalt tells if err stops the loop.
func IsHalt(err error) bool {
	var halt *HaltError
	return errors.As(err, &halt)
}
