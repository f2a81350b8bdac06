package xface

import (
	"errors"
	"fmt"
	"strings"
)

// ErrStateClosed is returned by every operation invoked after cleanup.
var ErrStateClosed = errors.New("face state closed")

// MissingEnvError is returned when required configuration is missing.
type MissingEnvError struct {
	Provider  string
	Variables []string
}

func (e MissingEnvError) Error() string {
	if len(e.Variables) == 0 {
		return fmt.Sprintf("%s credentials not configured", e.Provider)
	}
	return fmt.Sprintf("%s credentials not configured (missing %s)", e.Provider, strings.Join(e.Variables, ", "))
}

// ValidationError reports a post that breaks the content rules of its post type.
type ValidationError struct {
	PostType string
	Reason   string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s validation failed: %s", e.PostType, e.Reason)
}

// NotFoundError is returned when a referenced message does not exist.
type NotFoundError struct {
	Provider string
	ID       string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s: message %s not found", e.Provider, e.ID)
}

// TransportError wraps a failed call at the platform boundary.
type TransportError struct {
	Provider string
	Op       string
	Err      error
}

func (e TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e TransportError) Unwrap() error { return e.Err }

// ConversionError reports a platform message that could not be turned into
// a post.
type ConversionError struct {
	MessageID uint64
	Err       error
}

func (e ConversionError) Error() string {
	return fmt.Sprintf("convert message %d: %v", e.MessageID, e.Err)
}

func (e ConversionError) Unwrap() error { return e.Err }
