package model

import (
	"errors"
	"fmt"
)

var (
	// ErrObjectUnknown is matched by every ObjectUnknownError.
	ErrObjectUnknown = errors.New("object unknown")
	// ErrInvalidArgument signals a violated construction invariant.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrObjectExists is returned when creating an object whose name is taken.
	ErrObjectExists = errors.New("object exists")
)

// ObjectUnknownError is returned by object services for missing objects.
type ObjectUnknownError struct {
	Kind string
	Name string
}

func (e *ObjectUnknownError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Kind, e.Name, ErrObjectUnknown)
}

func (e *ObjectUnknownError) Unwrap() error { return ErrObjectUnknown }

// Unknown returns an ObjectUnknownError for the given kind and name.
func Unknown(kind, name string) error {
	return &ObjectUnknownError{Kind: kind, Name: name}
}
