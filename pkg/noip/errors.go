package noip

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument indicates a required input was absent or malformed.
var ErrInvalidArgument = errors.New("invalid argument")

// ArgumentError names the argument that failed validation.
type ArgumentError struct {
	Name    string
	Message string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidArgument, e.Name, e.Message)
}

// Unwrap allows errors.Is(err, ErrInvalidArgument).
func (e *ArgumentError) Unwrap() error {
	return ErrInvalidArgument
}

func argumentMissing(name string) error {
	return &ArgumentError{Name: name, Message: "required but not set"}
}

func argumentInvalid(name, message string) error {
	return &ArgumentError{Name: name, Message: message}
}
