package audio

import (
	"fmt"

	"github.com/teranos/medkit/core"
	"github.com/teranos/medkit/errors"
)

// KindSegment is the store kind of *Segment
const KindSegment = "audio.segment"

// Span is a time range [Start, End) in seconds
type Span struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Length returns the duration of the span
func (s Span) Length() float64 { return s.End - s.Start }

func (s Span) String() string { return fmt.Sprintf("Span(%.3f, %.3f)", s.Start, s.End) }

// Segment is a portion of audio with its time span in the original signal
type Segment struct {
	core.AnnotationBase
	span  Span
	audio Buffer
}

// NewSegment creates an audio segment
func NewSegment(label string, audio Buffer, span Span, opts ...core.AnnotationOption) (*Segment, error) {
	if audio == nil {
		return nil, errors.NewInvalidRequestError("audio segment %q needs a buffer", label)
	}
	if span.Start < 0 || span.End < span.Start {
		return nil, errors.NewInvalidRequestError("invalid audio span %s", span)
	}
	return &Segment{
		AnnotationBase: core.NewAnnotationBase(label, opts...),
		span:           span,
		audio:          audio,
	}, nil
}

func (s *Segment) Kind() string  { return KindSegment }
func (s *Segment) Span() Span    { return s.span }
func (s *Segment) Audio() Buffer { return s.audio }
