// Package led turns pixel colors into bytes on an output sink.
package led

import "errors"

var ErrClosed = errors.New("strip closed")

// Sink abstracts an LED output.
type Sink interface {
	// Write pushes an RGB frame. len(rgb) must be 3*N.
	Write(rgb []byte) error
	// Close releases resources.
	Close() error
}
