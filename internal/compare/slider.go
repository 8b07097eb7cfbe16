// Package compare models the before/after comparison control: a single
// split position driven by pointer or touch drags over a bounded container.
package compare

import "math"

const (
	DefaultPosition = 50.0
	minPosition     = 0.0
	maxPosition     = 100.0

	DefaultBeforeLabel = "Before"
	DefaultAfterLabel  = "After"
)

// Bounds is the horizontal extent of the control's container.
type Bounds struct {
	Left  float64
	Width float64
}

type Source int

const (
	SourcePointer Source = iota
	SourceTouch
)

// DragInput is a drag event projected onto the horizontal axis. Mouse and
// touch events both reduce to one of these before reaching the slider.
type DragInput struct {
	X      float64
	Source Source
}

func FromPointer(clientX float64) DragInput {
	return DragInput{X: clientX, Source: SourcePointer}
}

// FromTouches uses the first active touch point. It reports false when
// the event carries no touches.
func FromTouches(clientXs ...float64) (DragInput, bool) {
	if len(clientXs) == 0 {
		return DragInput{}, false
	}
	return DragInput{X: clientXs[0], Source: SourceTouch}, true
}

// SplitPosition maps x to a percentage of the container width. A
// degenerate container keeps prev.
func SplitPosition(x float64, b Bounds, prev float64) float64 {
	if b.Width <= 0 || math.IsNaN(x) || math.IsNaN(b.Width) || math.IsInf(b.Width, 0) {
		return prev
	}
	offset := math.Max(0, math.Min(x-b.Left, b.Width))
	return clampPosition(offset / b.Width * 100)
}

func clampPosition(p float64) float64 {
	return math.Max(minPosition, math.Min(p, maxPosition))
}

type Slider struct {
	Before      string
	After       string
	BeforeLabel string
	AfterLabel  string

	bounds   Bounds
	position float64
	dragging bool
}

// New creates a slider over the given image references. Empty labels fall
// back to "Before" and "After".
func New(before, after, beforeLabel, afterLabel string) *Slider {
	if beforeLabel == "" {
		beforeLabel = DefaultBeforeLabel
	}
	if afterLabel == "" {
		afterLabel = DefaultAfterLabel
	}
	return &Slider{
		Before:      before,
		After:       after,
		BeforeLabel: beforeLabel,
		AfterLabel:  afterLabel,
		position:    DefaultPosition,
	}
}

func (s *Slider) SetBounds(b Bounds) {
	s.bounds = b
}

func (s *Slider) Bounds() Bounds {
	return s.bounds
}

func (s *Slider) Position() float64 {
	return s.position
}

func (s *Slider) Dragging() bool {
	return s.dragging
}

func (s *Slider) BeginDrag(in DragInput) {
	s.dragging = true
	s.move(in)
}

func (s *Slider) UpdateDrag(in DragInput) {
	if !s.dragging {
		return
	}
	s.move(in)
}

// EndDrag stops tracking. Releasing outside the container ends the drag
// the same way.
func (s *Slider) EndDrag() {
	s.dragging = false
}

// BeforeClipInset is the right-hand inset, in percent, applied to the
// "before" image.
func (s *Slider) BeforeClipInset() float64 {
	return maxPosition - s.position
}

func (s *Slider) move(in DragInput) {
	s.position = SplitPosition(in.X, s.bounds, s.position)
}
