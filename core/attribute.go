package core

// KindAttribute is the store kind of *Attribute
const KindAttribute = "attribute"

// Attribute is a labeled value attached to an annotation, such as a negation
// flag or a normalization code. The value is opaque to the core.
type Attribute struct {
	id       string
	Label    string
	Value    any
	Metadata map[string]any
}

// NewAttribute creates an attribute with a fresh id.
func NewAttribute(label string, value any) *Attribute {
	return &Attribute{id: GenerateID(), Label: label, Value: value}
}

// NewAttributeWithID creates an attribute with a caller-provided id.
// Used when rehydrating attributes from a store.
func NewAttributeWithID(id, label string, value any) *Attribute {
	return &Attribute{id: id, Label: label, Value: value}
}

func (a *Attribute) ID() string   { return a.id }
func (a *Attribute) Kind() string { return KindAttribute }

// Copy returns a copy of the attribute with a new id, suitable for attaching
// to another annotation.
func (a *Attribute) Copy() *Attribute {
	c := &Attribute{id: GenerateID(), Label: a.Label, Value: a.Value}
	if a.Metadata != nil {
		c.Metadata = make(map[string]any, len(a.Metadata))
		for k, v := range a.Metadata {
			c.Metadata[k] = v
		}
	}
	return c
}
