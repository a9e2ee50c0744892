// Package text implements the text modality: spans and the span-tracking
// text edit utilities, text annotations (segments, entities, relations),
// their container and the text document.
//
// All positions are expressed in characters (runes), not bytes.
package text

import (
	"encoding/json"
	"fmt"

	"github.com/teranos/medkit/errors"
)

// AnySpan is either a Span or a ModifiedSpan.
type AnySpan interface {
	// Len is the number of characters of the current text described by the span
	Len() int
	isAnySpan()
}

// Span is a half-open range [Start, End) of the original text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (s Span) Len() int { return s.End - s.Start }
func (Span) isAnySpan() {}

// Overlaps reports whether s and other share at least one character
func (s Span) Overlaps(other Span) bool {
	return s.Start < other.End && other.Start < s.End
}

func (s Span) String() string { return fmt.Sprintf("Span(%d, %d)", s.Start, s.End) }

// ModifiedSpan describes Length characters produced by an edit, together with
// the original spans they replaced. Inserted text has no ReplacedSpans.
type ModifiedSpan struct {
	Length        int
	ReplacedSpans []Span
}

func (m ModifiedSpan) Len() int { return m.Length }
func (ModifiedSpan) isAnySpan() {}

func (m ModifiedSpan) String() string {
	return fmt.Sprintf("ModifiedSpan(%d, %v)", m.Length, m.ReplacedSpans)
}

// TotalLength sums the lengths of spans
func TotalLength(spans []AnySpan) int {
	n := 0
	for _, s := range spans {
		n += s.Len()
	}
	return n
}

type spanJSON struct {
	Type          string `json:"type"`
	Start         int    `json:"start,omitempty"`
	End           int    `json:"end,omitempty"`
	Length        int    `json:"length,omitempty"`
	ReplacedSpans []Span `json:"replaced_spans,omitempty"`
}

const (
	spanTypeSpan     = "span"
	spanTypeModified = "modified"
)

// MarshalSpans encodes a span list with a type tag per element
func MarshalSpans(spans []AnySpan) ([]byte, error) {
	out := make([]spanJSON, 0, len(spans))
	for _, s := range spans {
		switch v := s.(type) {
		case Span:
			out = append(out, spanJSON{Type: spanTypeSpan, Start: v.Start, End: v.End})
		case ModifiedSpan:
			out = append(out, spanJSON{Type: spanTypeModified, Length: v.Length, ReplacedSpans: v.ReplacedSpans})
		default:
			return nil, errors.AssertionFailedf("unexpected span type %T", s)
		}
	}
	return json.Marshal(out)
}

// UnmarshalSpans decodes the output of MarshalSpans
func UnmarshalSpans(data []byte) ([]AnySpan, error) {
	var raw []spanJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "decode spans")
	}
	spans := make([]AnySpan, 0, len(raw))
	for _, r := range raw {
		switch r.Type {
		case spanTypeSpan:
			spans = append(spans, Span{Start: r.Start, End: r.End})
		case spanTypeModified:
			spans = append(spans, ModifiedSpan{Length: r.Length, ReplacedSpans: r.ReplacedSpans})
		default:
			return nil, errors.NewInvalidRequestError("unknown span type %q", r.Type)
		}
	}
	return spans, nil
}
