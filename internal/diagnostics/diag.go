// Package diagnostics describes events worth surfacing to an operator.
package diagnostics

import "time"

type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warning"
	Err  Severity = "error"
)

type Diagnostic struct {
	Severity       Severity       `json:"severity"`
	Code           string         `json:"code"`
	Summary        string         `json:"summary"`
	Detail         string         `json:"detail,omitempty"`
	LikelyCauses   []string       `json:"likely_causes,omitempty"`
	SuggestedFixes []string       `json:"suggested_fixes,omitempty"`
	Evidence       map[string]any `json:"evidence,omitempty"`
	Time           time.Time      `json:"time"`
}

// Ring keeps the most recent diagnostics. Not safe for concurrent use.
type Ring struct {
	buf  []Diagnostic
	next int
	full bool
}

func NewRing(n int) *Ring {
	if n < 1 {
		n = 1
	}
	return &Ring{buf: make([]Diagnostic, n)}
}

func (r *Ring) Add(d Diagnostic) {
	if d.Time.IsZero() {
		d.Time = time.Now()
	}
	r.buf[r.next] = d
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
}

// Recent returns the stored diagnostics, oldest first.
func (r *Ring) Recent() []Diagnostic {
	if !r.full {
		return append([]Diagnostic(nil), r.buf[:r.next]...)
	}
	out := make([]Diagnostic, 0, len(r.buf))
	out = append(out, r.buf[r.next:]...)
	return append(out, r.buf[:r.next]...)
}
