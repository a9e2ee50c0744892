package text

import (
	"encoding/json"

	"github.com/teranos/medkit/core"
	"github.com/teranos/medkit/errors"
)

// Store kinds of the text annotations
const (
	KindSegment  = "text.segment"
	KindEntity   = "text.entity"
	KindRelation = "text.relation"
)

// Annotation is implemented by *Segment, *Entity and *Relation
type Annotation interface {
	core.Annotation
	isTextAnnotation()
}

// Spanned annotations locate their text in the raw text of the document
type Spanned interface {
	Annotation
	Text() string
	Spans() []AnySpan
}

// Segment is a piece of text with the spans locating it in the original text.
// Text and spans never change after construction.
type Segment struct {
	core.AnnotationBase
	text  string
	spans []AnySpan
}

// NewSegment creates a segment. The length of text must be the total length
// of spans.
func NewSegment(label, text string, spans []AnySpan, opts ...core.AnnotationOption) (*Segment, error) {
	if total, n := TotalLength(spans), len([]rune(text)); total != n {
		return nil, errors.NewInvalidRequestError("segment %q: text length (%d) does not match total span length (%d)", label, n, total)
	}
	s := make([]AnySpan, len(spans))
	copy(s, spans)
	return &Segment{
		AnnotationBase: core.NewAnnotationBase(label, opts...),
		text:           text,
		spans:          s,
	}, nil
}

func (s *Segment) Kind() string { return KindSegment }
func (s *Segment) Text() string { return s.text }

// Spans returns a copy of the spans
func (s *Segment) Spans() []AnySpan {
	out := make([]AnySpan, len(s.spans))
	copy(out, s.spans)
	return out
}

func (*Segment) isTextAnnotation() {}

// Snippet returns the text of the segment in the raw text of doc, extended
// with up to maxExtendLength characters of context split around it.
func (s *Segment) Snippet(doc *Document, maxExtendLength int) string {
	return GetSnippet(doc.Text(), NormalizeSpans(s.spans), maxExtendLength)
}

// GetSnippet extracts the portion of raw covered by spans, extended with
// context. Half of maxExtendLength goes before the segment, the remainder
// after it.
func GetSnippet(raw string, spans []Span, maxExtendLength int) string {
	runes := []rune(raw)
	if len(spans) == 0 {
		return ""
	}
	start, end := spans[0].Start, spans[len(spans)-1].End

	startExt := max(start-maxExtendLength/2, 0)
	remaining := maxExtendLength - (start - startExt)
	endExt := min(end+remaining, len(runes))
	return string(runes[startExt:endExt])
}

// Entity is a segment recognized as a named concept
type Entity struct {
	Segment
}

// NewEntity creates an entity, with the same invariants as NewSegment
func NewEntity(label, text string, spans []AnySpan, opts ...core.AnnotationOption) (*Entity, error) {
	seg, err := NewSegment(label, text, spans, opts...)
	if err != nil {
		return nil, err
	}
	return &Entity{Segment: *seg}, nil
}

func (e *Entity) Kind() string { return KindEntity }

// Normalization labels attributes linking an entity to a knowledge base
const NormalizationLabel = "NORMALIZATION"

// Normalization is the value of a normalization attribute
type Normalization struct {
	KBName      string  `json:"kb_name"`
	KBID        string  `json:"kb_id"`
	TermVariant string  `json:"term_variant,omitempty"`
	Score       float64 `json:"score,omitempty"`
}

// AddNorm attaches a normalization attribute and returns it
func (e *Entity) AddNorm(norm Normalization) (*core.Attribute, error) {
	attr := core.NewAttribute(NormalizationLabel, norm)
	if err := e.Attrs().Add(attr); err != nil {
		return nil, err
	}
	return attr, nil
}

// Norms returns the normalizations attached to the entity. Values loaded
// from a persistent store come back as generic maps and are converted.
func (e *Entity) Norms() []Normalization {
	var out []Normalization
	for _, a := range e.Attrs().Get(NormalizationLabel) {
		switch v := a.Value.(type) {
		case Normalization:
			out = append(out, v)
		case map[string]any:
			raw, err := json.Marshal(v)
			if err != nil {
				continue
			}
			var n Normalization
			if json.Unmarshal(raw, &n) == nil {
				out = append(out, n)
			}
		}
	}
	return out
}

// Relation links a source annotation to a target annotation
type Relation struct {
	core.AnnotationBase
	SourceID string
	TargetID string
}

// NewRelation creates a relation between two annotation ids
func NewRelation(label, sourceID, targetID string, opts ...core.AnnotationOption) (*Relation, error) {
	if sourceID == "" || targetID == "" {
		return nil, errors.NewInvalidRequestError("relation %q needs a source and a target", label)
	}
	return &Relation{
		AnnotationBase: core.NewAnnotationBase(label, opts...),
		SourceID:       sourceID,
		TargetID:       targetID,
	}, nil
}

func (r *Relation) Kind() string { return KindRelation }
func (*Relation) isTextAnnotation() {}
