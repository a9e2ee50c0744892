package text

import (
	"github.com/teranos/medkit/core"
	"github.com/teranos/medkit/core/store"
	"github.com/teranos/medkit/errors"
)

// RawLabel is the reserved label of the raw segment of a document
const RawLabel = "RAW_TEXT"

// Document is a text document with its annotations
type Document struct {
	id       string
	store    core.Store
	shared   bool
	anns     *AnnotationContainer
	Metadata map[string]any
}

// DocumentOption customizes NewDocument
type DocumentOption func(*Document)

// WithDocumentID sets the document id instead of generating one
func WithDocumentID(id string) DocumentOption {
	return func(d *Document) {
		if id != "" {
			d.id = id
		}
	}
}

// WithStore makes the document keep its annotations in a shared store.
// Without it each document gets its own in-memory store.
func WithStore(s core.Store) DocumentOption {
	return func(d *Document) {
		if s != nil {
			d.store = s
			d.shared = true
		}
	}
}

// WithDocumentMetadata sets document metadata
func WithDocumentMetadata(metadata map[string]any) DocumentOption {
	return func(d *Document) {
		d.Metadata = metadata
	}
}

// NewDocument creates a document holding text. Its raw segment covers the
// whole text and has an id derived from the document id, so that the same
// document id always yields the same raw segment id.
func NewDocument(text string, opts ...DocumentOption) (*Document, error) {
	d := &Document{id: core.GenerateID()}
	for _, opt := range opts {
		opt(d)
	}
	if d.store == nil {
		d.store = store.NewMemoryStore()
	}

	raw, err := NewSegment(RawLabel, text,
		[]AnySpan{Span{Start: 0, End: len([]rune(text))}},
		core.WithID(core.DeterministicID(d.id)))
	if err != nil {
		return nil, err
	}
	if err := d.store.Set(raw, d.id); err != nil {
		return nil, errors.Wrapf(err, "store raw segment of document %s", d.id)
	}
	if err := raw.Attrs().Bind(d.store); err != nil {
		return nil, err
	}

	d.anns = NewAnnotationContainer(d.id, raw, d.store)
	return d, nil
}

func (d *Document) ID() string { return d.id }

// Text returns the raw text
func (d *Document) Text() string { return d.anns.raw.Text() }

// Anns returns the annotation container
func (d *Document) Anns() *AnnotationContainer { return d.anns }

// Store returns the store holding the annotations
func (d *Document) Store() core.Store { return d.store }

// HasSharedStore reports whether the store was provided by the caller
func (d *Document) HasSharedStore() bool { return d.shared }

// RawAnnotation returns the raw segment
func (d *Document) RawAnnotation() core.Annotation { return d.anns.raw }

// AnnotationsByLabel returns the annotations with label, the raw segment
// included when label is RawLabel.
func (d *Document) AnnotationsByLabel(label string) ([]core.Annotation, error) {
	anns, err := d.anns.Get(label, "")
	if err != nil {
		return nil, err
	}
	out := make([]core.Annotation, len(anns))
	for i, a := range anns {
		out[i] = a
	}
	return out, nil
}

// AddAnnotation adds a text annotation
func (d *Document) AddAnnotation(ann core.Annotation) error {
	t, ok := ann.(Annotation)
	if !ok {
		return errors.NewInvalidRequestError("text document %s cannot hold annotation of type %T", d.id, ann)
	}
	return d.anns.Add(t)
}
