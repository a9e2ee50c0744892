package graph

import (
	"sort"
)

// RelationshipDefinition holds physics and display metadata for a link type
type RelationshipDefinition struct {
	DisplayLabel string
	Color        string
	LinkDistance *float64 // D3 force distance (nil = use default)
	LinkStrength *float64 // D3 force strength (nil = use default)
}

func float(v float64) *float64 { return &v }

// attribute links stay short so attributes cluster around their annotation
var relationshipDefinitions = map[string]RelationshipDefinition{
	LinkTypeDerived:   {DisplayLabel: "Derived from"},
	LinkTypeAttribute: {DisplayLabel: "Has attribute", Color: "#bdc3c7", LinkDistance: float(20), LinkStrength: float(0.8)},
}

// collectRelationshipTypeInfo counts the links of each type present in the
// graph, most common first.
func collectRelationshipTypeInfo(links []Link) []RelationshipTypeInfo {
	typeCounts := make(map[string]int)
	for _, link := range links {
		typeCounts[link.Type]++
	}

	relationshipTypes := []RelationshipTypeInfo{}
	for linkType, count := range typeCounts {
		info := RelationshipTypeInfo{
			Type:  linkType,
			Label: linkType,
			Count: count,
		}
		if def, ok := relationshipDefinitions[linkType]; ok {
			info.Label = def.DisplayLabel
			info.Color = def.Color
			info.LinkDistance = def.LinkDistance
			info.LinkStrength = def.LinkStrength
		}
		relationshipTypes = append(relationshipTypes, info)
	}

	sort.Slice(relationshipTypes, func(i, j int) bool {
		if relationshipTypes[i].Count != relationshipTypes[j].Count {
			return relationshipTypes[i].Count > relationshipTypes[j].Count
		}
		return relationshipTypes[i].Type < relationshipTypes[j].Type
	})
	return relationshipTypes
}
