package agent

import (
	"errors"
	"fmt"
)

// ErrEmptyResponse is returned when the backend answers without any choice.
var ErrEmptyResponse = errors.New("no choices in response")

// GenerationError wraps any failure to produce a reply.
type GenerationError struct {
	Model string
	Err   error
}

func (e *GenerationError) Error() string {
	if e.Model == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Model, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
