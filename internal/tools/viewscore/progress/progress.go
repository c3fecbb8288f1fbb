// Package progress renders a single-line text progress bar for batch runs.
package progress

import (
	"io"
	"strconv"
	"strings"
)

// DefaultWidth is the bar width used when a non-positive width is requested.
const DefaultWidth = 50

// State is the lifecycle state of a Bar.
type State int

const (
	// InProgress bars render an overwriting line ending in a carriage return.
	InProgress State = iota
	// Done bars render the final "100 % Done!" line ending in a newline.
	Done
)

// Bar is a discrete progress meter over a known number of steps.
//
// Progress is steps/total, so after exactly total calls to Advance the bar
// is Done without floating-point drift. A bar built for zero steps is Done
// from the start.
type Bar struct {
	width     int
	total     int
	steps     int
	increment float64
	finalized bool
}

// New returns a bar of width cells over total steps.
func New(width, total int) *Bar {
	if width <= 0 {
		width = DefaultWidth
	}
	b := &Bar{width: width, total: max(total, 0)}
	if b.total > 0 {
		b.increment = 1 / float64(b.total)
	}
	return b
}

// Advance records one completed step. It produces no output.
func (b *Bar) Advance() {
	b.steps++
}

// Increment returns the fraction added by one Advance, or 0 for a bar over
// zero steps.
func (b *Bar) Increment() float64 {
	return b.increment
}

// Fraction returns the completed fraction. It may exceed 1 when Advance is
// called more than total times.
func (b *Bar) Fraction() float64 {
	if b.total == 0 {
		return 1
	}
	return float64(b.steps) / float64(b.total)
}

// State reports whether the bar has reached completion.
func (b *Bar) State() State {
	if b.Fraction() >= 1 {
		return Done
	}
	return InProgress
}

// Line renders the current state.
//
// In progress: "[====>     ] 42 %\r". Done: "[==========] 100 % Done!\n".
func (b *Bar) Line() string {
	var sb strings.Builder
	sb.Grow(b.width + 20)
	sb.WriteByte('[')

	if b.State() == Done {
		sb.WriteString(strings.Repeat("=", b.width))
		sb.WriteString("] 100 % Done!\n")
		return sb.String()
	}

	fraction := b.Fraction()
	pos := int(float64(b.width) * fraction)
	for i := 0; i < b.width; i++ {
		switch {
		case i < pos:
			sb.WriteByte('=')
		case i == pos:
			sb.WriteByte('>')
		default:
			sb.WriteByte(' ')
		}
	}
	sb.WriteString("] ")
	sb.WriteString(strconv.Itoa(int(fraction * 100)))
	sb.WriteString(" %\r")
	return sb.String()
}

// Render writes the current line to w.
func (b *Bar) Render(w io.Writer) error {
	_, err := io.WriteString(w, b.Line())
	return err
}

// Tick returns the current line, or "", false when the Done line was already
// returned by an earlier Tick.
func (b *Bar) Tick() (string, bool) {
	if b.finalized {
		return "", false
	}
	line := b.Line()
	if b.State() == Done {
		b.finalized = true
	}
	return line, true
}
