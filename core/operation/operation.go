// Package operation defines the contract of annotation-processing
// operations and a registry to build them by name.
package operation

import (
	"context"
	"sync"

	"github.com/teranos/medkit/core"
	"github.com/teranos/medkit/core/prov"
)

// Operation processes lists of annotations. inputs holds one list per input
// key of the step running the operation; the result holds one list per
// output key. Operations never modify the text or spans of their inputs
// but may append attributes to them.
type Operation interface {
	Description() *core.OperationDescription
	Run(ctx context.Context, inputs [][]core.Annotation) ([][]core.Annotation, error)
}

// Traceable operations record the provenance of what they create
type Traceable interface {
	SetProvTracer(tracer *prov.Tracer)
}

// DocOperation processes whole documents, adding annotations to them
type DocOperation interface {
	Description() *core.OperationDescription
	RunDocs(ctx context.Context, docs []core.Document) error
}

// Base carries the description and the provenance tracer of an operation.
// Concrete operations embed it.
type Base struct {
	desc *core.OperationDescription

	mu     sync.RWMutex
	tracer *prov.Tracer
}

// NewBase describes an operation. An empty id generates one; an empty name
// defaults to className.
func NewBase(className, name, id string, config map[string]any) *Base {
	if id == "" {
		id = core.GenerateID()
	}
	return &Base{desc: core.NewOperationDescription(id, className, name, config)}
}

// Description returns the description of the operation
func (b *Base) Description() *core.OperationDescription { return b.desc }

// SetProvTracer enables provenance tracing; nil disables it
func (b *Base) SetProvTracer(tracer *prov.Tracer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tracer = tracer
}

// ProvTracer returns the tracer, nil when tracing is disabled
func (b *Base) ProvTracer() *prov.Tracer {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.tracer
}

// Trace records that item was created by this operation from sources. It
// does nothing when tracing is disabled.
func (b *Base) Trace(item core.DataItem, sources ...core.DataItem) error {
	tracer := b.ProvTracer()
	if tracer == nil {
		return nil
	}
	return tracer.AddProv(item, b.desc, sources)
}
