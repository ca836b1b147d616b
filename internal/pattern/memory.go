package pattern

import (
	"sort"

	"github.com/coreman2200/funtimes-ledstrip/internal/ledcolor"
)

type mutation struct {
	index int
	color ledcolor.Color
}

// Memory is a per-pixel color buffer with staged writes. Reads always see the
// last committed state.
type Memory struct {
	colors  []ledcolor.Color
	staged  []mutation
	reserve int
}

// ColorAt returns the committed color at i, or black when i was never written.
func (m *Memory) ColorAt(i int) ledcolor.Color {
	if i < 0 || i >= len(m.colors) {
		return ledcolor.Black
	}
	return m.colors[i]
}

// Len is the committed buffer length. It never shrinks.
func (m *Memory) Len() int { return len(m.colors) }

// Reserve asks for the buffer to hold at least n pixels after the next commit.
func (m *Memory) Reserve(n int) {
	if n > m.reserve {
		m.reserve = n
	}
}

// Stage queues a write for the next commit. Negative indices are dropped.
func (m *Memory) Stage(i int, c ledcolor.Color) {
	if i < 0 {
		return
	}
	m.staged = append(m.staged, mutation{index: i, color: c})
}

// Commit grows the buffer as needed and applies staged writes in pixel order.
func (m *Memory) Commit() {
	n := m.reserve
	for _, s := range m.staged {
		if s.index+1 > n {
			n = s.index + 1
		}
	}
	if n > len(m.colors) {
		grown := make([]ledcolor.Color, n)
		copy(grown, m.colors)
		m.colors = grown
	}
	sort.SliceStable(m.staged, func(i, j int) bool { return m.staged[i].index < m.staged[j].index })
	for _, s := range m.staged {
		m.colors[s.index] = s.color
	}
	m.staged = m.staged[:0]
}
