// Package core holds the modality-independent data model: data items,
// attributes, annotations, documents, annotation containers and the store
// contract they are persisted through.
//
// Annotations are immutable once created with one exception: attributes may
// be appended to them. Operations use this to pass information between
// pipeline steps (a detector attaches a "negated" attribute that a later
// matcher reads), so it is kept explicit in AttributeContainer instead of
// making annotations generally mutable.
package core
