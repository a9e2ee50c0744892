package core

import (
	"github.com/teranos/medkit/errors"
)

// AnnotationContainer keeps the annotations of one document. Ids are held in
// insertion order with label and key indexes; the annotations themselves
// are resolved through the store, so the container behaves the same with an
// in-memory or a persistent store.
//
// A container is exclusively owned by its document and is not safe for
// concurrent use.
type AnnotationContainer[T Annotation] struct {
	docID   string
	store   Store
	ids     []string
	known   map[string]struct{}
	byLabel map[string][]string
	byKey   map[string][]string
}

// NewAnnotationContainer creates an empty container for docID backed by store.
func NewAnnotationContainer[T Annotation](docID string, store Store) *AnnotationContainer[T] {
	return &AnnotationContainer[T]{
		docID:   docID,
		store:   store,
		known:   make(map[string]struct{}),
		byLabel: make(map[string][]string),
		byKey:   make(map[string][]string),
	}
}

// DocID returns the id of the owning document
func (c *AnnotationContainer[T]) DocID() string { return c.docID }

// Store returns the backing store
func (c *AnnotationContainer[T]) Store() Store { return c.store }

// Add attaches ann to the document. Adding an id that is already present
// is an error wrapping ErrConflict.
func (c *AnnotationContainer[T]) Add(ann T) error {
	id := ann.ID()
	if _, exists := c.known[id]; exists {
		return errors.NewConflictError("impossible to add annotation: id %s already exists in document %s", id, c.docID)
	}
	if err := c.store.Set(ann, c.docID); err != nil {
		return errors.Wrapf(err, "store annotation %s", id)
	}
	if err := ann.Attrs().Bind(c.store); err != nil {
		return err
	}

	c.ids = append(c.ids, id)
	c.known[id] = struct{}{}
	c.byLabel[ann.Label()] = append(c.byLabel[ann.Label()], id)
	for _, key := range ann.Keys() {
		c.byKey[key] = append(c.byKey[key], id)
	}
	return nil
}

// Has reports whether an annotation with id was added
func (c *AnnotationContainer[T]) Has(id string) bool {
	_, ok := c.known[id]
	return ok
}

// Len returns the number of annotations
func (c *AnnotationContainer[T]) Len() int { return len(c.ids) }

// IDs returns the ids matching the optional label and key filters ("" means
// no filter), in insertion order.
func (c *AnnotationContainer[T]) IDs(label, key string) []string {
	var allowLabel, allowKey map[string]struct{}
	if label != "" {
		allowLabel = toSet(c.byLabel[label])
	}
	if key != "" {
		allowKey = toSet(c.byKey[key])
	}

	out := make([]string, 0, len(c.ids))
	for _, id := range c.ids {
		if allowLabel != nil {
			if _, ok := allowLabel[id]; !ok {
				continue
			}
		}
		if allowKey != nil {
			if _, ok := allowKey[id]; !ok {
				continue
			}
		}
		out = append(out, id)
	}
	return out
}

// All returns every annotation in insertion order
func (c *AnnotationContainer[T]) All() ([]T, error) {
	return c.resolve(c.ids)
}

// Get returns the annotations matching the label and key filters ("" means
// no filter). An empty result is not an error.
func (c *AnnotationContainer[T]) Get(label, key string) ([]T, error) {
	return c.resolve(c.IDs(label, key))
}

// GetByID returns the annotation with id, or an error wrapping ErrNotFound
// when it does not belong to this document.
func (c *AnnotationContainer[T]) GetByID(id string) (T, error) {
	var zero T
	if !c.Has(id) {
		return zero, errors.NewNotFoundError("no annotation with id %s in document %s", id, c.docID)
	}
	item, err := c.store.Get(id)
	if err != nil {
		return zero, errors.Wrapf(err, "load annotation %s", id)
	}
	ann, ok := item.(T)
	if !ok {
		return zero, errors.AssertionFailedf("data item %s has type %T", id, item)
	}
	return ann, nil
}

func (c *AnnotationContainer[T]) resolve(ids []string) ([]T, error) {
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		ann, err := c.GetByID(id)
		if err != nil {
			return nil, err
		}
		out = append(out, ann)
	}
	return out, nil
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
