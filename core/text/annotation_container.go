package text

import (
	"github.com/teranos/medkit/core"
	"github.com/teranos/medkit/errors"
)

// AnnotationContainer holds the annotations of a text document. On top of
// the generic container it keeps segment, entity and relation indexes and
// injects the raw segment of the document, which is never added to the
// container itself.
type AnnotationContainer struct {
	*core.AnnotationContainer[Annotation]
	raw         *Segment
	segmentIDs  map[string]struct{}
	entityIDs   map[string]struct{}
	relationIDs map[string]struct{}
	bySource    map[string][]string
}

// NewAnnotationContainer creates the container of document docID
func NewAnnotationContainer(docID string, raw *Segment, store core.Store) *AnnotationContainer {
	return &AnnotationContainer{
		AnnotationContainer: core.NewAnnotationContainer[Annotation](docID, store),
		raw:                 raw,
		segmentIDs:          make(map[string]struct{}),
		entityIDs:           make(map[string]struct{}),
		relationIDs:         make(map[string]struct{}),
		bySource:            make(map[string][]string),
	}
}

// RawSegment returns the segment holding the whole raw text
func (c *AnnotationContainer) RawSegment() *Segment { return c.raw }

// Add attaches ann. The raw text label is reserved.
func (c *AnnotationContainer) Add(ann Annotation) error {
	if ann.Label() == c.raw.Label() {
		return errors.NewConflictError("cannot add annotation with reserved label %s", c.raw.Label())
	}
	if ann.ID() == c.raw.ID() {
		return errors.NewConflictError("impossible to add annotation: id %s is the raw segment of document %s", ann.ID(), c.DocID())
	}
	if err := c.AnnotationContainer.Add(ann); err != nil {
		return err
	}

	switch a := ann.(type) {
	case *Entity:
		c.entityIDs[a.ID()] = struct{}{}
	case *Segment:
		c.segmentIDs[a.ID()] = struct{}{}
	case *Relation:
		c.relationIDs[a.ID()] = struct{}{}
		c.bySource[a.SourceID] = append(c.bySource[a.SourceID], a.ID())
	}
	return nil
}

// Get returns the annotations matching label and key ("" means no filter).
// Asking for the raw text label without a key returns the raw segment.
func (c *AnnotationContainer) Get(label, key string) ([]Annotation, error) {
	if label == c.raw.Label() && key == "" {
		return []Annotation{c.raw}, nil
	}
	return c.AnnotationContainer.Get(label, key)
}

// GetByID also resolves the id of the raw segment
func (c *AnnotationContainer) GetByID(id string) (Annotation, error) {
	if id == c.raw.ID() {
		return c.raw, nil
	}
	return c.AnnotationContainer.GetByID(id)
}

// Segments returns the segments, not including entities nor the raw segment
func (c *AnnotationContainer) Segments(label, key string) ([]*Segment, error) {
	return resolveAs[*Segment](c, c.filter(label, key, c.segmentIDs))
}

// Entities returns the entities
func (c *AnnotationContainer) Entities(label, key string) ([]*Entity, error) {
	return resolveAs[*Entity](c, c.filter(label, key, c.entityIDs))
}

// Relations returns the relations, restricted to those starting from
// sourceID when it is not empty.
func (c *AnnotationContainer) Relations(label, key, sourceID string) ([]*Relation, error) {
	allowed := c.relationIDs
	if sourceID != "" {
		allowed = make(map[string]struct{}, len(c.bySource[sourceID]))
		for _, id := range c.bySource[sourceID] {
			allowed[id] = struct{}{}
		}
	}
	return resolveAs[*Relation](c, c.filter(label, key, allowed))
}

func (c *AnnotationContainer) filter(label, key string, allowed map[string]struct{}) []string {
	var out []string
	for _, id := range c.IDs(label, key) {
		if _, ok := allowed[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

func resolveAs[T Annotation](c *AnnotationContainer, ids []string) ([]T, error) {
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		ann, err := c.GetByID(id)
		if err != nil {
			return nil, err
		}
		t, ok := ann.(T)
		if !ok {
			return nil, errors.AssertionFailedf("annotation %s has type %T", id, ann)
		}
		out = append(out, t)
	}
	return out, nil
}
