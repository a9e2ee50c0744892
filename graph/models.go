package graph

import (
	"time"
)

// Graph is the JSON projection of a provenance graph, shaped for force
// directed visualization
type Graph struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
	Meta  Meta   `json:"meta"`
}

// Node is a traced data item
type Node struct {
	ID       string                 `json:"id"`
	Type     string                 `json:"type"`            // data_item, attribute or stub
	Label    string                 `json:"label"`           // Display label
	Visible  bool                   `json:"visible"`         // Backend controls visibility
	Group    int                    `json:"group,omitempty"` // For coloring/clustering (from type definitions)
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Link is a derivation from a source item, or the link from an annotation
// to one of its attributes
type Link struct {
	Source string  `json:"source"` // Node ID
	Target string  `json:"target"` // Node ID
	Type   string  `json:"type"`   // derived or attribute
	Weight float64 `json:"value"`  // Link strength/weight (D3 uses "value")
	Label  string  `json:"label,omitempty"`
	Hidden bool    `json:"hidden,omitempty"`
}

// Meta contains metadata about the graph
type Meta struct {
	FormatVersion     string                 `json:"format_version"`
	GeneratedAt       time.Time              `json:"generated_at"`
	Stats             Stats                  `json:"stats"`
	Config            map[string]string      `json:"config"`
	NodeTypes         []NodeTypeInfo         `json:"node_types"`         // Node types present in this graph
	RelationshipTypes []RelationshipTypeInfo `json:"relationship_types"` // Link types with physics
}

// NodeTypeInfo describes a node type and its visual configuration
type NodeTypeInfo struct {
	Type  string `json:"type"`
	Label string `json:"label"`           // Human-readable display name
	Color string `json:"color,omitempty"` // Hex color code
	Count int    `json:"count,omitempty"` // Number of nodes of this type
}

// RelationshipTypeInfo describes a link type with physics and visual configuration
type RelationshipTypeInfo struct {
	Type         string   `json:"type"`
	Label        string   `json:"label"`                   // Human-readable display name
	Color        string   `json:"color,omitempty"`         // Optional link color override
	LinkDistance *float64 `json:"link_distance,omitempty"` // D3 force distance override (nil = use default)
	LinkStrength *float64 `json:"link_strength,omitempty"` // D3 force strength override (nil = use default)
	Count        int      `json:"count,omitempty"`         // Number of links of this type
}

// Stats provides graph statistics
type Stats struct {
	TotalNodes int `json:"total_nodes,omitempty"`
	TotalEdges int `json:"total_edges,omitempty"`
	Operations int `json:"operations,omitempty"` // Distinct producing operations
	SubGraphs  int `json:"sub_graphs,omitempty"` // Sub graphs of the unflattened graph
}
