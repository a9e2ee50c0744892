package core

// Store is the id-addressed persistence collaborator used by annotation
// containers and the provenance tracer.
//
// Get returns an error wrapping errors.ErrNotFound for unknown ids. Set
// upserts item; parentID names the owning data item (the document of an
// annotation, the annotation of an attribute) and may be empty.
//
// Implementations shared between goroutines must be safe for concurrent use.
type Store interface {
	Get(id string) (DataItem, error)
	Set(item DataItem, parentID string) error
}
