package graph

import (
	"strconv"
	"time"

	"github.com/teranos/medkit/core"
	"github.com/teranos/medkit/errors"
	"github.com/teranos/medkit/logger"
)

// Build flattens the provenance graph up to the configured depth and
// converts it. Nodes keep the order in which they were traced; each node
// is followed by the links to its sources.
func (b *Builder) Build() (*Graph, error) {
	if b.tracer == nil {
		return nil, errors.NewInvalidRequestError("graph needs a provenance tracer")
	}

	source := b.tracer.Graph()
	flat := source.FlattenDepth(b.opts.MaxSubGraphDepth)
	if err := flat.CheckSanity(); err != nil {
		return nil, errors.Wrap(err, "flattened provenance graph")
	}

	depth := "unlimited"
	if b.opts.MaxSubGraphDepth != nil {
		depth = strconv.Itoa(*b.opts.MaxSubGraphDepth)
	}
	graph := &Graph{
		Nodes: []Node{},
		Links: []Link{},
		Meta: Meta{
			FormatVersion: FormatVersion,
			GeneratedAt:   time.Now(),
			Config: map[string]string{
				"max_sub_graph_depth": depth,
				"show_attr_links":     strconv.FormatBool(b.opts.ShowAttrLinks),
			},
		},
	}

	operations := make(map[string]struct{})
	for _, n := range flat.Nodes() {
		item, err := b.tracer.Store().Get(n.DataItemID)
		if err != nil && !errors.IsNotFoundError(err) {
			return nil, errors.Wrapf(err, "load data item %s", n.DataItemID)
		}

		node := Node{
			ID:       n.DataItemID,
			Type:     nodeType(item, n.IsStub()),
			Label:    n.DataItemID,
			Visible:  true,
			Metadata: map[string]interface{}{},
		}
		node.Group = typeDefinitions[node.Type].Group
		if item != nil {
			node.Label = b.opts.DataItemFormatter(item)
			if k, ok := item.(core.Kinded); ok {
				node.Metadata["kind"] = k.Kind()
			}
		} else {
			b.logger.Debugw("Data item missing from store", logger.FieldItemID, n.DataItemID)
		}

		opName := ""
		if !n.IsStub() {
			operations[n.OperationID] = struct{}{}
			node.Metadata["operation_id"] = n.OperationID
			if op, err := b.tracer.Store().Get(n.OperationID); err == nil {
				if desc, ok := op.(*core.OperationDescription); ok {
					opName = desc.Name
					node.Metadata["operation"] = desc.Name
				}
			}
		}
		graph.Nodes = append(graph.Nodes, node)

		for _, src := range n.SourceIDs {
			graph.Links = append(graph.Links, Link{
				Source: src,
				Target: n.DataItemID,
				Type:   LinkTypeDerived,
				Weight: defaultLinkWeight,
				Label:  opName,
			})
		}

		if holder, ok := item.(core.AttributeHolder); ok && b.opts.ShowAttrLinks {
			for _, attr := range holder.Attrs().All() {
				if !flat.HasNode(attr.ID()) {
					continue
				}
				graph.Links = append(graph.Links, Link{
					Source: n.DataItemID,
					Target: attr.ID(),
					Type:   LinkTypeAttribute,
					Weight: defaultLinkWeight,
				})
			}
		}
	}

	graph.Meta.Stats = Stats{
		TotalNodes: len(graph.Nodes),
		TotalEdges: len(graph.Links),
		Operations: len(operations),
		SubGraphs:  len(source.SubGraphs()),
	}
	graph.Meta.NodeTypes = collectNodeTypeInfo(graph.Nodes)
	graph.Meta.RelationshipTypes = collectRelationshipTypeInfo(graph.Links)

	b.logger.Debugw("Built provenance graph",
		logger.FieldCount, len(graph.Nodes),
		logger.FieldDepth, depth,
	)
	return graph, nil
}

func nodeType(item core.DataItem, stub bool) string {
	if _, ok := item.(*core.Attribute); ok {
		return NodeTypeAttribute
	}
	if stub {
		return NodeTypeStub
	}
	return NodeTypeDataItem
}
