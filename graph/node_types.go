package graph

import (
	"sort"
)

// TypeDefinition holds display metadata for a node type
type TypeDefinition struct {
	TypeName     string
	DisplayColor string // Hex color or rgba() string
	DisplayLabel string
	Group        int
}

var typeDefinitions = map[string]TypeDefinition{
	NodeTypeDataItem:  {TypeName: NodeTypeDataItem, DisplayColor: "#3498db", DisplayLabel: "Annotation", Group: 1},
	NodeTypeAttribute: {TypeName: NodeTypeAttribute, DisplayColor: "#e67e22", DisplayLabel: "Attribute", Group: 2},
	NodeTypeStub:      {TypeName: NodeTypeStub, DisplayColor: "#95a5a6", DisplayLabel: "Source", Group: 3},
}

// collectNodeTypeInfo counts the nodes of each type present in the graph,
// most common first.
func collectNodeTypeInfo(nodes []Node) []NodeTypeInfo {
	typeCounts := make(map[string]int)
	for _, node := range nodes {
		typeCounts[node.Type]++
	}

	nodeTypes := []NodeTypeInfo{}
	for nodeType, count := range typeCounts {
		color, label := defaultUntypedColor, nodeType
		if def, ok := typeDefinitions[nodeType]; ok {
			color = def.DisplayColor
			label = def.DisplayLabel
		}
		nodeTypes = append(nodeTypes, NodeTypeInfo{
			Type:  nodeType,
			Label: label,
			Color: color,
			Count: count,
		})
	}

	// ties broken by type for stable output
	sort.Slice(nodeTypes, func(i, j int) bool {
		if nodeTypes[i].Count != nodeTypes[j].Count {
			return nodeTypes[i].Count > nodeTypes[j].Count
		}
		return nodeTypes[i].Type < nodeTypes[j].Type
	})
	return nodeTypes
}
