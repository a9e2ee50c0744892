package core

// Annotation is a unit of information attached to a document: a segment,
// an entity, a relation. Identity and label never change after
// construction; attributes may be appended and keys may be added.
type Annotation interface {
	DataItem
	Label() string
	Attrs() *AttributeContainer
	// Keys are free-form tags such as the pipeline output key that
	// produced the annotation.
	Keys() []string
	AddKey(key string)
}

// AnnotationBase implements the modality-independent part of Annotation and
// is embedded by concrete annotation types.
type AnnotationBase struct {
	id       string
	label    string
	attrs    *AttributeContainer
	keys     []string
	Metadata map[string]any
}

// AnnotationOption customizes annotation construction
type AnnotationOption func(*AnnotationBase)

// WithID sets an explicit id instead of generating one.
func WithID(id string) AnnotationOption {
	return func(b *AnnotationBase) {
		if id != "" {
			b.id = id
			b.attrs.ownerID = id
		}
	}
}

// WithAttrs attaches attributes at construction. Duplicates are skipped.
func WithAttrs(attrs ...*Attribute) AnnotationOption {
	return func(b *AnnotationBase) {
		for _, a := range attrs {
			_ = b.attrs.Add(a)
		}
	}
}

// WithKeys tags the annotation with keys at construction.
func WithKeys(keys ...string) AnnotationOption {
	return func(b *AnnotationBase) {
		for _, k := range keys {
			b.AddKey(k)
		}
	}
}

// WithMetadata sets free-form metadata
func WithMetadata(metadata map[string]any) AnnotationOption {
	return func(b *AnnotationBase) {
		b.Metadata = metadata
	}
}

// NewAnnotationBase builds the common annotation state. WithID must come
// before WithAttrs for the attributes to be owned by the final id.
func NewAnnotationBase(label string, opts ...AnnotationOption) AnnotationBase {
	id := GenerateID()
	b := AnnotationBase{
		id:    id,
		label: label,
		attrs: NewAttributeContainer(id),
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

func (b *AnnotationBase) ID() string                 { return b.id }
func (b *AnnotationBase) Label() string              { return b.label }
func (b *AnnotationBase) Attrs() *AttributeContainer { return b.attrs }

func (b *AnnotationBase) Keys() []string {
	out := make([]string, len(b.keys))
	copy(out, b.keys)
	return out
}

func (b *AnnotationBase) AddKey(key string) {
	for _, k := range b.keys {
		if k == key {
			return
		}
	}
	b.keys = append(b.keys, key)
}

// HasKey reports whether the annotation carries key
func (b *AnnotationBase) HasKey(key string) bool {
	for _, k := range b.keys {
		if k == key {
			return true
		}
	}
	return false
}
