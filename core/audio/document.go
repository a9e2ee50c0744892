package audio

import (
	"github.com/teranos/medkit/core"
	"github.com/teranos/medkit/core/store"
	"github.com/teranos/medkit/errors"
)

// RawLabel is the reserved label of the raw segment of an audio document
const RawLabel = "RAW_AUDIO"

// AnnotationContainer holds the segments of an audio document and injects
// its raw segment.
type AnnotationContainer struct {
	*core.AnnotationContainer[*Segment]
	raw *Segment
}

// RawSegment returns the segment holding the whole signal
func (c *AnnotationContainer) RawSegment() *Segment { return c.raw }

// Add attaches seg. The raw audio label is reserved.
func (c *AnnotationContainer) Add(seg *Segment) error {
	if seg.Label() == RawLabel {
		return errors.NewConflictError("cannot add annotation with reserved label %s", RawLabel)
	}
	return c.AnnotationContainer.Add(seg)
}

// Get returns the segments matching label and key ("" means no filter)
func (c *AnnotationContainer) Get(label, key string) ([]*Segment, error) {
	if label == RawLabel && key == "" {
		return []*Segment{c.raw}, nil
	}
	return c.AnnotationContainer.Get(label, key)
}

// GetByID also resolves the id of the raw segment
func (c *AnnotationContainer) GetByID(id string) (*Segment, error) {
	if id == c.raw.ID() {
		return c.raw, nil
	}
	return c.AnnotationContainer.GetByID(id)
}

// Document is an audio document
type Document struct {
	id       string
	store    core.Store
	anns     *AnnotationContainer
	Metadata map[string]any
}

// NewDocument creates a document for audio. An empty id generates one; a
// nil store gives the document its own in-memory store.
func NewDocument(audio Buffer, id string, s core.Store) (*Document, error) {
	if id == "" {
		id = core.GenerateID()
	}
	if s == nil {
		s = store.NewMemoryStore()
	}
	raw, err := NewSegment(RawLabel, audio, Span{Start: 0, End: Duration(audio)}, core.WithID(core.DeterministicID(id)))
	if err != nil {
		return nil, err
	}
	if err := s.Set(raw, id); err != nil {
		return nil, errors.Wrapf(err, "store raw segment of document %s", id)
	}
	return &Document{
		id:    id,
		store: s,
		anns: &AnnotationContainer{
			AnnotationContainer: core.NewAnnotationContainer[*Segment](id, s),
			raw:                 raw,
		},
	}, nil
}

func (d *Document) ID() string                 { return d.id }
func (d *Document) Audio() Buffer              { return d.anns.raw.Audio() }
func (d *Document) Anns() *AnnotationContainer { return d.anns }
func (d *Document) Store() core.Store          { return d.store }

// RawAnnotation returns the raw segment
func (d *Document) RawAnnotation() core.Annotation { return d.anns.raw }

// AnnotationsByLabel returns the segments with label
func (d *Document) AnnotationsByLabel(label string) ([]core.Annotation, error) {
	segs, err := d.anns.Get(label, "")
	if err != nil {
		return nil, err
	}
	out := make([]core.Annotation, len(segs))
	for i, s := range segs {
		out[i] = s
	}
	return out, nil
}

// AddAnnotation adds an audio segment
func (d *Document) AddAnnotation(ann core.Annotation) error {
	seg, ok := ann.(*Segment)
	if !ok {
		return errors.NewInvalidRequestError("audio document %s cannot hold annotation of type %T", d.id, ann)
	}
	return d.anns.Add(seg)
}
