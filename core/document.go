package core

// Document is the modality-independent view of a document used by
// document-level pipelines: it exposes its raw annotation (the untouched
// original content), label lookup and annotation attachment.
type Document interface {
	DataItem
	RawAnnotation() Annotation
	AnnotationsByLabel(label string) ([]Annotation, error)
	AddAnnotation(ann Annotation) error
}

// Collection groups documents of possibly different modalities that belong
// together, such as the transcription and the recording of a consultation.
type Collection struct {
	id        string
	documents []Document
}

// NewCollection returns a collection holding docs
func NewCollection(docs ...Document) *Collection {
	return &Collection{id: GenerateID(), documents: docs}
}

func (c *Collection) ID() string { return c.id }

// Documents returns the documents in insertion order
func (c *Collection) Documents() []Document {
	out := make([]Document, len(c.documents))
	copy(out, c.documents)
	return out
}

// Add appends a document
func (c *Collection) Add(doc Document) {
	c.documents = append(c.documents, doc)
}
