// Package command carries control requests into the render loop and their
// responses back out.
package command

import (
	"errors"
	"fmt"
	"math"

	"github.com/coreman2200/funtimes-ledstrip/internal/ledcolor"
)

var (
	// ErrInvalid is matched by every ConfigError.
	ErrInvalid = errors.New("invalid parameter")
	ErrClosed  = errors.New("command channel closed")
	ErrBusy    = errors.New("command queue full")
)

// ConfigError rejects a request before it touches any state.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string { return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason) }

func (e *ConfigError) Is(target error) bool { return target == ErrInvalid }

type Kind string

const (
	KindSelectPattern        Kind = "select_pattern"
	KindSetColor             Kind = "set_color"
	KindSetBrightness        Kind = "set_brightness"
	KindSetProgressIncrement Kind = "set_increment"
	KindGetBrightness        Kind = "get_brightness"
	KindGetIncrement         Kind = "get_increment"
	KindListPatterns         Kind = "list_patterns"
	KindGetStatus            Kind = "get_status"
)

// Request is one of the request types below.
type Request interface {
	Kind() Kind
	// Validate checks parameters that do not depend on controller state.
	Validate() error
}

type SelectPattern struct{ Name string }

type SetColor struct{ Color ledcolor.Color }

// SetBrightness takes an int so out-of-range values can be reported.
type SetBrightness struct{ Value int }

type SetProgressIncrement struct{ Value float64 }

type GetBrightness struct{}
type GetIncrement struct{}
type ListPatterns struct{}
type GetStatus struct{}

func (SelectPattern) Kind() Kind        { return KindSelectPattern }
func (SetColor) Kind() Kind             { return KindSetColor }
func (SetBrightness) Kind() Kind        { return KindSetBrightness }
func (SetProgressIncrement) Kind() Kind { return KindSetProgressIncrement }
func (GetBrightness) Kind() Kind        { return KindGetBrightness }
func (GetIncrement) Kind() Kind         { return KindGetIncrement }
func (ListPatterns) Kind() Kind         { return KindListPatterns }
func (GetStatus) Kind() Kind            { return KindGetStatus }

func (r SelectPattern) Validate() error {
	if r.Name == "" {
		return &ConfigError{Field: "pattern", Reason: "empty name"}
	}
	return nil
}

func (SetColor) Validate() error { return nil }

func (r SetBrightness) Validate() error {
	if r.Value < 0 || r.Value > 255 {
		return &ConfigError{Field: "brightness", Reason: fmt.Sprintf("%d outside 0..255", r.Value)}
	}
	return nil
}

func (r SetProgressIncrement) Validate() error { return ValidateIncrement(r.Value) }

func (GetBrightness) Validate() error { return nil }
func (GetIncrement) Validate() error  { return nil }
func (ListPatterns) Validate() error  { return nil }
func (GetStatus) Validate() error     { return nil }

// ValidateIncrement accepts finite values in (0,1). Anything else breaks wrap
// detection.
func ValidateIncrement(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 || v >= 1 {
		return &ConfigError{Field: "increment", Reason: fmt.Sprintf("%v outside (0,1)", v)}
	}
	return nil
}
