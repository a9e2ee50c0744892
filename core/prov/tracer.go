package prov

import (
	"go.uber.org/zap"

	"github.com/teranos/medkit/config"
	"github.com/teranos/medkit/core"
	"github.com/teranos/medkit/core/store"
	"github.com/teranos/medkit/errors"
	"github.com/teranos/medkit/logger"
	"github.com/teranos/medkit/metric"
)

// Prov is the provenance of one data item, resolved through the store
type Prov struct {
	DataItem core.DataItem
	// OpDesc is nil for items whose producer is unknown
	OpDesc           *core.OperationDescription
	SourceDataItems  []core.DataItem
	DerivedDataItems []core.DataItem
}

// Tracer gathers provenance information: for each traced data item, the
// operation that created it and the items it was created from.
//
// Operations call AddProv for each item they create. Composite operations
// give their inner operations a sub tracer from NewSubTracer and then call
// AddProvFromSubTracer on the outer tracer with their outputs. A tracer is
// safe for concurrent use.
type Tracer struct {
	store   core.Store
	graph   *Graph
	policy  string
	logger  *zap.SugaredLogger
	metrics *metric.Metrics
}

// TracerOption customizes a Tracer
type TracerOption func(*Tracer)

// WithConflictPolicy selects what happens when provenance is added twice for
// the same item with a different producer: config.ConflictPolicyError (the
// default) fails, config.ConflictPolicyIgnore keeps the first record.
func WithConflictPolicy(policy string) TracerOption {
	return func(t *Tracer) {
		if policy != "" {
			t.policy = policy
		}
	}
}

// WithLogger sets the tracer logger
func WithLogger(l *zap.SugaredLogger) TracerOption {
	return func(t *Tracer) { t.logger = l }
}

// WithMetrics counts provenance records
func WithMetrics(m *metric.Metrics) TracerOption {
	return func(t *Tracer) { t.metrics = m }
}

// NewTracer creates a tracer storing traced items in s. A nil store gives
// the tracer its own in-memory store.
func NewTracer(s core.Store, opts ...TracerOption) *Tracer {
	if s == nil {
		s = store.NewMemoryStore()
	}
	t := &Tracer{
		store:  s,
		graph:  NewGraph(),
		policy: config.ConflictPolicyError,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = logger.ComponentLogger("prov")
	}
	return t
}

// NewTracerFromConfig creates a tracer with the conflict policy of cfg
func NewTracerFromConfig(s core.Store, cfg config.ProvenanceConfig, opts ...TracerOption) *Tracer {
	return NewTracer(s, append([]TracerOption{WithConflictPolicy(cfg.ConflictPolicy)}, opts...)...)
}

// NewSubTracer returns a tracer sharing the store and settings of t with an
// empty graph, for the inner operations of a composite operation.
func (t *Tracer) NewSubTracer() *Tracer {
	return t.withGraph(NewGraph())
}

func (t *Tracer) withGraph(g *Graph) *Tracer {
	return &Tracer{
		store:   t.store,
		graph:   g,
		policy:  t.policy,
		logger:  t.logger,
		metrics: t.metrics,
	}
}

// Store returns the store holding traced items
func (t *Tracer) Store() core.Store { return t.store }

// Graph returns the provenance graph
func (t *Tracer) Graph() *Graph { return t.graph }

// AddProv records that item was created by op from sources. Recording the
// same item again with the same operation and sources does nothing; any
// other record for a known item is handled by the conflict policy.
func (t *Tracer) AddProv(item core.DataItem, op *core.OperationDescription, sources []core.DataItem) error {
	if item == nil || op == nil {
		return errors.NewInvalidRequestError("provenance needs a data item and an operation description")
	}
	sourceIDs := make([]string, len(sources))
	for i, s := range sources {
		sourceIDs[i] = s.ID()
	}

	if existing, err := t.graph.Node(item.ID()); err == nil && !existing.IsStub() {
		if existing.OperationID == op.ID() && sameIDs(existing.SourceIDs, sourceIDs) {
			t.metrics.ObserveProvRecord(metric.ProvDuplicate)
			return nil
		}
		return t.conflict(errors.NewConflictError(
			"provenance of data item with id %s was already added by operation %s", item.ID(), existing.OperationID))
	}

	if err := t.store.Set(op, ""); err != nil {
		return errors.Wrapf(err, "store operation description %s", op.ID())
	}
	if err := t.store.Set(item, ""); err != nil {
		return errors.Wrapf(err, "store data item %s", item.ID())
	}
	for _, s := range sources {
		if err := t.store.Set(s, ""); err != nil {
			return errors.Wrapf(err, "store source data item %s", s.ID())
		}
	}

	if err := t.graph.AddNode(item.ID(), op.ID(), sourceIDs); err != nil {
		// lost a race with another writer for the same item
		return t.conflict(err)
	}
	t.metrics.ObserveProvRecord(metric.ProvAdded)
	t.logger.Debugw("Added provenance",
		logger.FieldItemID, item.ID(),
		logger.FieldOpID, op.ID(),
		logger.FieldOpName, op.Name,
		logger.FieldCount, len(sources),
	)
	return nil
}

// AddProvFromSubTracer records the outputs items of the composite operation
// op, whose inner operations were traced by sub. Each item gets a node
// whose sources are the items of the sub graph it derives from and whose
// producer is unknown there, i.e. the inputs of the composite operation.
// The sub graph is attached to op.
func (t *Tracer) AddProvFromSubTracer(items []core.DataItem, op *core.OperationDescription, sub *Tracer) error {
	if op == nil || sub == nil {
		return errors.NewInvalidRequestError("provenance from sub tracer needs an operation description and a sub tracer")
	}
	if sub.store != t.store {
		return errors.WithHint(
			errors.NewInvalidRequestError("sub tracer of operation %s does not share the store of its parent", op.ID()),
			"create sub tracers with Tracer.NewSubTracer")
	}

	if err := t.store.Set(op, ""); err != nil {
		return errors.Wrapf(err, "store operation description %s", op.ID())
	}
	if err := t.graph.AddSubGraph(op.ID(), sub.graph); err != nil {
		return err
	}

	for _, item := range items {
		// items already known, such as attributes copied from an input
		if existing, err := t.graph.Node(item.ID()); err == nil && !existing.IsStub() {
			if existing.OperationID != op.ID() {
				if err := t.conflict(errors.NewConflictError(
					"data item with id %s already has provenance from operation %s, not %s",
					item.ID(), existing.OperationID, op.ID())); err != nil {
					return err
				}
				continue
			}
			t.metrics.ObserveProvRecord(metric.ProvDuplicate)
			continue
		}

		sourceIDs, err := stubAncestors(sub.graph, item.ID())
		if err != nil {
			return err
		}
		if err := t.graph.AddNode(item.ID(), op.ID(), sourceIDs); err != nil {
			if err := t.conflict(err); err != nil {
				return err
			}
			continue
		}
		t.metrics.ObserveProvRecord(metric.ProvAdded)
	}

	t.logger.Debugw("Added provenance from sub tracer",
		logger.FieldOpID, op.ID(),
		logger.FieldOpName, op.Name,
		logger.FieldCount, len(items),
	)
	return nil
}

// stubAncestors walks the sources of id breadth first and returns the stub
// nodes reached, in discovery order.
func stubAncestors(g *Graph, id string) ([]string, error) {
	if !g.HasNode(id) {
		return nil, errors.NewNotFoundError("sub graph has no provenance for data item %s", id)
	}

	sourceIDs := []string{}
	seen := map[string]struct{}{id: {}}
	queue := []string{id}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		node, err := g.Node(current)
		if err != nil {
			return nil, err
		}
		if node.IsStub() {
			sourceIDs = append(sourceIDs, current)
			continue
		}
		for _, src := range node.SourceIDs {
			if _, ok := seen[src]; ok {
				continue
			}
			seen[src] = struct{}{}
			queue = append(queue, src)
		}
	}
	return sourceIDs, nil
}

func (t *Tracer) conflict(err error) error {
	if t.policy == config.ConflictPolicyIgnore {
		t.metrics.ObserveProvRecord(metric.ProvIgnored)
		t.logger.Warnw("Ignoring provenance conflict", logger.FieldError, err.Error())
		return nil
	}
	return err
}

// HasProv reports whether t has provenance for id. Provenance only known
// to a sub tracer does not count.
func (t *Tracer) HasProv(id string) bool {
	return t.graph.HasNode(id)
}

// GetProv returns the provenance of id
func (t *Tracer) GetProv(id string) (*Prov, error) {
	node, err := t.graph.Node(id)
	if err != nil {
		return nil, err
	}
	return t.buildProv(node)
}

// GetProvs returns the provenance of the given ids, or of every item known
// to t (sub tracers excluded) when no id is given.
func (t *Tracer) GetProvs(ids ...string) ([]*Prov, error) {
	var nodes []Node
	if len(ids) == 0 {
		nodes = t.graph.Nodes()
	} else {
		for _, id := range ids {
			n, err := t.graph.Node(id)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, n)
		}
	}

	out := make([]*Prov, 0, len(nodes))
	for _, n := range nodes {
		p, err := t.buildProv(n)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// HasSubProvTracer reports whether operationID has a direct sub tracer
func (t *Tracer) HasSubProvTracer(operationID string) bool {
	return t.graph.HasSubGraph(operationID)
}

// GetSubProvTracer returns the sub tracer of the composite operation
// operationID, a direct child of t.
func (t *Tracer) GetSubProvTracer(operationID string) (*Tracer, error) {
	sub, err := t.graph.SubGraph(operationID)
	if err != nil {
		return nil, err
	}
	return t.withGraph(sub), nil
}

// GetSubProvTracers returns the direct sub tracers of t
func (t *Tracer) GetSubProvTracers() []*Tracer {
	subs := t.graph.SubGraphs()
	out := make([]*Tracer, len(subs))
	for i, g := range subs {
		out[i] = t.withGraph(g)
	}
	return out
}

func (t *Tracer) buildProv(node Node) (*Prov, error) {
	item, err := t.store.Get(node.DataItemID)
	if err != nil {
		return nil, errors.Wrapf(err, "load traced item %s", node.DataItemID)
	}

	p := &Prov{DataItem: item}
	if !node.IsStub() {
		if p.OpDesc, err = t.operation(node.OperationID); err != nil {
			return nil, err
		}
	}
	if p.SourceDataItems, err = t.items(node.SourceIDs); err != nil {
		return nil, err
	}
	if p.DerivedDataItems, err = t.items(node.DerivedIDs); err != nil {
		return nil, err
	}
	return p, nil
}

func (t *Tracer) operation(id string) (*core.OperationDescription, error) {
	item, err := t.store.Get(id)
	if err != nil {
		return nil, errors.Wrapf(err, "load operation description %s", id)
	}
	desc, ok := item.(*core.OperationDescription)
	if !ok {
		return nil, errors.AssertionFailedf("data item %s is a %T, not an operation description", id, item)
	}
	return desc, nil
}

func (t *Tracer) items(ids []string) ([]core.DataItem, error) {
	out := make([]core.DataItem, 0, len(ids))
	for _, id := range ids {
		item, err := t.store.Get(id)
		if err != nil {
			return nil, errors.Wrapf(err, "load traced item %s", id)
		}
		out = append(out, item)
	}
	return out, nil
}

func sameIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
