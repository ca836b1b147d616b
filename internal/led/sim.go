package led

import (
	"errors"
	"fmt"
	"sync"
)

var ErrInjected = errors.New("injected write failure")

// Sim keeps frames in memory. Useful for headless runs and tests.
type Sim struct {
	mu     sync.Mutex
	frames int
	last   []byte
	fail   int
	closed bool
}

func (s *Sim) Write(rgb []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.fail > 0 {
		s.fail--
		return ErrInjected
	}
	s.frames++
	s.last = append(s.last[:0], rgb...)
	return nil
}

// FailNext makes the next n writes fail.
func (s *Sim) FailNext(n int) {
	s.mu.Lock()
	s.fail = n
	s.mu.Unlock()
}

func (s *Sim) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Last returns a copy of the last frame written.
func (s *Sim) Last() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.last...)
}

// Summary is the frame count, the average and the first pixel of the last frame.
func (s *Sim) Summary() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var r, g, b float64
	n := len(s.last) / 3
	for i := 0; i < n; i++ {
		r += float64(s.last[3*i])
		g += float64(s.last[3*i+1])
		b += float64(s.last[3*i+2])
	}
	if n == 0 {
		return fmt.Sprintf("[frame %04d] empty", s.frames)
	}
	d := float64(n)
	return fmt.Sprintf("[frame %04d] avg=(%.1f,%.1f,%.1f) first=(%d,%d,%d)",
		s.frames, r/d, g/d, b/d, s.last[0], s.last[1], s.last[2])
}

func (s *Sim) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *Sim) String() string { return "sim" }
