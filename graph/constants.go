package graph

// FormatVersion is the version of the JSON layout written by this package
const FormatVersion = "1.0.0"

// Node types
const (
	NodeTypeDataItem  = "data_item"
	NodeTypeAttribute = "attribute"
	NodeTypeStub      = "stub" // data item without known producer, such as a raw segment
)

// Link types
const (
	LinkTypeDerived   = "derived"
	LinkTypeAttribute = "attribute"
)

const (
	defaultLinkWeight = 1.0

	// Default color/label for unknown node types
	defaultUntypedColor = "rgba(149, 165, 166, 0.3)" // Transparent gray
)
