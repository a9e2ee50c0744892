package core

// DataItem is anything with a stable identifier that can be stored and
// whose provenance can be traced: annotations, attributes and operation
// descriptions.
type DataItem interface {
	ID() string
}

// Kinded data items advertise a kind name used to select a serialization
// codec by persistent stores (e.g. "attribute", "text.segment").
type Kinded interface {
	DataItem
	Kind() string
}

// AttributeHolder is implemented by data items carrying attributes.
type AttributeHolder interface {
	DataItem
	Attrs() *AttributeContainer
}
