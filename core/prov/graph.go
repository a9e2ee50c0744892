// Package prov records how data items were derived from each other.
//
// A Graph holds one node per traced data item with the operation that
// created it and the items it was created from. Composite operations such as
// pipelines record the provenance of their inner operations in a sub graph
// attached to the composite operation id, giving a tree of graphs that can
// be flattened to any depth.
package prov

import (
	"sort"
	"sync"

	"github.com/teranos/medkit/errors"
)

// Node describes how one data item was created. A stub node has no
// operation and no sources: the item was used as a source but its own
// provenance is unknown.
type Node struct {
	DataItemID  string   `json:"data_item_id"`
	OperationID string   `json:"operation_id,omitempty"`
	SourceIDs   []string `json:"source_ids"`
	DerivedIDs  []string `json:"derived_ids"`
}

// IsStub reports whether the node has no known producer
func (n Node) IsStub() bool { return n.OperationID == "" }

func (n *Node) clone() *Node {
	return &Node{
		DataItemID:  n.DataItemID,
		OperationID: n.OperationID,
		SourceIDs:   append([]string{}, n.SourceIDs...),
		DerivedIDs:  append([]string{}, n.DerivedIDs...),
	}
}

// Graph is a provenance graph with its sub graphs. It is safe for
// concurrent use. A graph lock is never held while locking another graph,
// except a parent locking one of its sub graphs.
type Graph struct {
	mu        sync.RWMutex
	nodes     map[string]*Node
	order     []string
	subGraphs map[string]*Graph
	subOrder  []string
}

// NewGraph returns an empty graph
func NewGraph() *Graph {
	return &Graph{
		nodes:     make(map[string]*Node),
		subGraphs: make(map[string]*Graph),
	}
}

// AddNode records that dataItemID was created by operationID from
// sourceIDs. Unknown sources get stub nodes. A stub node for dataItemID is
// promoted; any other existing node is a conflict.
func (g *Graph) AddNode(dataItemID, operationID string, sourceIDs []string) error {
	if dataItemID == "" || operationID == "" {
		return errors.NewInvalidRequestError("provenance node needs a data item id and an operation id")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	node, exists := g.nodes[dataItemID]
	if exists {
		if !node.IsStub() {
			return errors.NewConflictError("node with id %s already added to graph", dataItemID)
		}
		if len(node.SourceIDs) > 0 {
			return errors.AssertionFailedf("stub node %s has source ids", dataItemID)
		}
		node.OperationID = operationID
		node.SourceIDs = append([]string{}, sourceIDs...)
	} else {
		g.insertLocked(&Node{
			DataItemID:  dataItemID,
			OperationID: operationID,
			SourceIDs:   append([]string{}, sourceIDs...),
			DerivedIDs:  []string{},
		})
	}

	for _, sourceID := range sourceIDs {
		source, ok := g.nodes[sourceID]
		if !ok {
			source = &Node{DataItemID: sourceID, SourceIDs: []string{}, DerivedIDs: []string{}}
			g.insertLocked(source)
		}
		source.DerivedIDs = append(source.DerivedIDs, dataItemID)
	}
	return nil
}

func (g *Graph) insertLocked(n *Node) {
	g.nodes[n.DataItemID] = n
	g.order = append(g.order, n.DataItemID)
}

// HasNode reports whether the graph has a node (stub or not) for id
func (g *Graph) HasNode(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[id]
	return ok
}

// Node returns a copy of the node for id
func (g *Graph) Node(id string) (Node, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, errors.NewNotFoundError("no provenance node for data item %s", id)
	}
	return *n.clone(), nil
}

// Nodes returns copies of the nodes in insertion order
func (g *Graph) Nodes() []Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, *g.nodes[id].clone())
	}
	return out
}

// Len returns the number of nodes, stubs included
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.order)
}

// AddSubGraph attaches sub as the sub graph of operationID. Attaching a
// different graph for an operation that already has one merges it into the
// existing sub graph.
func (g *Graph) AddSubGraph(operationID string, sub *Graph) error {
	if sub == nil {
		return errors.NewInvalidRequestError("nil sub graph for operation %s", operationID)
	}
	if sub == g {
		return errors.NewInvalidRequestError("graph cannot be its own sub graph")
	}

	g.mu.Lock()
	existing, ok := g.subGraphs[operationID]
	if !ok {
		g.subGraphs[operationID] = sub
		g.subOrder = append(g.subOrder, operationID)
		g.mu.Unlock()
		return nil
	}
	g.mu.Unlock()

	if existing == sub {
		return nil
	}
	existing.merge(sub.snapshot())
	return nil
}

// HasSubGraph reports whether operationID has a direct sub graph
func (g *Graph) HasSubGraph(operationID string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.subGraphs[operationID]
	return ok
}

// SubGraph returns the direct sub graph of operationID
func (g *Graph) SubGraph(operationID string) (*Graph, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	sub, ok := g.subGraphs[operationID]
	if !ok {
		return nil, errors.NewNotFoundError("no sub graph for operation %s", operationID)
	}
	return sub, nil
}

// SubGraphOperationIDs returns the operation ids having a direct sub graph
func (g *Graph) SubGraphOperationIDs() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string{}, g.subOrder...)
}

// SubGraphs returns the direct sub graphs in insertion order
func (g *Graph) SubGraphs() []*Graph {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Graph, 0, len(g.subOrder))
	for _, id := range g.subOrder {
		out = append(out, g.subGraphs[id])
	}
	return out
}

type graphSnapshot struct {
	nodes     []*Node
	subOrder  []string
	subGraphs map[string]*Graph
}

func (g *Graph) snapshot() graphSnapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s := graphSnapshot{subOrder: append([]string{}, g.subOrder...), subGraphs: make(map[string]*Graph, len(g.subGraphs))}
	for _, id := range g.order {
		s.nodes = append(s.nodes, g.nodes[id].clone())
	}
	for id, sub := range g.subGraphs {
		s.subGraphs[id] = sub
	}
	return s
}

// merge folds other into g. Nodes of other replace nodes of g with the
// same id, except that a stub never replaces a known node.
func (g *Graph) merge(other graphSnapshot) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, n := range other.nodes {
		g.putLocked(n)
	}
	for _, id := range other.subOrder {
		if _, ok := g.subGraphs[id]; !ok {
			g.subOrder = append(g.subOrder, id)
		}
		g.subGraphs[id] = other.subGraphs[id]
	}
}

// putLocked inserts n, combining it with an existing node for the same id
func (g *Graph) putLocked(n *Node) {
	existing, ok := g.nodes[n.DataItemID]
	if !ok {
		g.insertLocked(n)
		return
	}
	if n.IsStub() && !existing.IsStub() {
		existing.DerivedIDs = unionIDs(existing.DerivedIDs, n.DerivedIDs)
		return
	}
	n.DerivedIDs = unionIDs(existing.DerivedIDs, n.DerivedIDs)
	g.nodes[n.DataItemID] = n
}

func unionIDs(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, ids := range [][]string{a, b} {
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// Flatten returns a graph without sub graphs where every node created by a
// composite operation is replaced by the nodes of its sub graph,
// recursively.
func (g *Graph) Flatten() *Graph {
	return g.FlattenDepth(nil)
}

// FlattenDepth flattens at most maxDepth levels of sub graphs; nil means no
// limit and 0 keeps only the nodes of g. Nodes created by composite
// operations whose sub graph is beyond the depth limit are kept as is.
func (g *Graph) FlattenDepth(maxDepth *int) *Graph {
	out := NewGraph()
	g.flattenInto(out, 0, maxDepth)
	return out
}

func (g *Graph) flattenInto(out *Graph, depth int, maxDepth *int) {
	s := g.snapshot()
	expand := maxDepth == nil || depth < *maxDepth

	// items created by an expanded composite operation take their node from
	// the sub graph; links to them at this level are composite shortcuts
	composite := make(map[string]struct{})
	if expand {
		for _, n := range s.nodes {
			if _, ok := s.subGraphs[n.OperationID]; ok && !n.IsStub() {
				composite[n.DataItemID] = struct{}{}
			}
		}
	}

	out.mu.Lock()
	for _, n := range s.nodes {
		if len(composite) > 0 {
			kept := n.DerivedIDs[:0]
			for _, id := range n.DerivedIDs {
				if _, skip := composite[id]; !skip {
					kept = append(kept, id)
				}
			}
			n.DerivedIDs = kept
		}
		if _, ok := composite[n.DataItemID]; ok {
			n.OperationID = ""
			n.SourceIDs = []string{}
		}
		out.putLocked(n)
	}
	out.mu.Unlock()

	if !expand {
		return
	}
	for _, id := range s.subOrder {
		s.subGraphs[id].flattenInto(out, depth+1, maxDepth)
	}
}

// CheckSanity verifies that source and derived links are reciprocal and
// point to existing nodes, in g and in every sub graph.
func (g *Graph) CheckSanity() error {
	s := g.snapshot()
	byID := make(map[string]*Node, len(s.nodes))
	for _, n := range s.nodes {
		byID[n.DataItemID] = n
	}

	for _, n := range s.nodes {
		if len(n.SourceIDs) > 0 && n.IsStub() {
			return errors.AssertionFailedf("node with id %s has source ids but no operation", n.DataItemID)
		}
		for _, sourceID := range n.SourceIDs {
			source, ok := byID[sourceID]
			if !ok {
				return errors.AssertionFailedf("source id %s in node with id %s has no corresponding node", sourceID, n.DataItemID)
			}
			if !contains(source.DerivedIDs, n.DataItemID) {
				return errors.AssertionFailedf("node with id %s has source item with id %s but reciprocate derivation link does not exist", n.DataItemID, sourceID)
			}
		}
		for _, derivedID := range n.DerivedIDs {
			derived, ok := byID[derivedID]
			if !ok {
				return errors.AssertionFailedf("derived id %s in node with id %s has no corresponding node", derivedID, n.DataItemID)
			}
			if !contains(derived.SourceIDs, n.DataItemID) {
				return errors.AssertionFailedf("node with id %s has derived item with id %s but reciprocate source link does not exist", n.DataItemID, derivedID)
			}
		}
	}

	ids := make([]string, 0, len(s.subGraphs))
	for id := range s.subGraphs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if err := s.subGraphs[id].CheckSanity(); err != nil {
			return errors.Wrapf(err, "sub graph of operation %s", id)
		}
	}
	return nil
}

func contains(ids []string, id string) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
