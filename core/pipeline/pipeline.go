// Package pipeline composes operations into keyed dataflow graphs.
//
// A Pipeline is an ordered list of steps. Each step reads the annotations
// stored under its input keys and stores its results under its output keys.
// Pipelines are operations themselves, so they nest.
package pipeline

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/medkit/core"
	"github.com/teranos/medkit/core/operation"
	"github.com/teranos/medkit/core/prov"
	"github.com/teranos/medkit/errors"
	"github.com/teranos/medkit/logger"
	"github.com/teranos/medkit/metric"
)

const className = "Pipeline"

// Step binds an operation to the keys it reads and writes
type Step struct {
	Operation  operation.Operation
	InputKeys  []string
	OutputKeys []string
}

// Pipeline runs steps in declaration order
type Pipeline struct {
	*operation.Base
	steps      []Step
	inputKeys  []string
	outputKeys []string

	logger  *zap.SugaredLogger
	metrics *metric.Metrics

	mu        sync.RWMutex
	subTracer *prov.Tracer
}

type options struct {
	name    string
	id      string
	logger  *zap.SugaredLogger
	metrics *metric.Metrics
}

// Option customizes New
type Option func(*options)

// WithName sets the pipeline name shown in provenance and metrics
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithID sets the operation id of the pipeline
func WithID(id string) Option {
	return func(o *options) { o.id = id }
}

// WithLogger sets the pipeline logger
func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records step runs and produced annotations
func WithMetrics(m *metric.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// New creates a pipeline. Each key is produced once: by the caller when it
// is an input key, otherwise by a single step. Every output key must be
// produced by a step. Whether step inputs are available is only known when
// running.
func New(steps []Step, inputKeys, outputKeys []string, opts ...Option) (*Pipeline, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	producers := make(map[string]int, len(inputKeys))
	for _, key := range inputKeys {
		if _, dup := producers[key]; dup {
			return nil, errors.NewInvalidRequestError("pipeline input key %q is declared twice", key)
		}
		producers[key] = -1
	}
	for i, step := range steps {
		if step.Operation == nil {
			return nil, errors.NewInvalidRequestError("step %d has no operation", i)
		}
		for _, key := range step.OutputKeys {
			if prev, dup := producers[key]; dup {
				if prev < 0 {
					return nil, errors.NewInvalidRequestError("step %d outputs %q, which is a pipeline input key", i, key)
				}
				return nil, errors.WithHint(
					errors.NewInvalidRequestError("key %q is produced by steps %d and %d", key, prev, i),
					"combine the annotations with a dedicated step instead of writing a key twice")
			}
			producers[key] = i
		}
	}
	for _, key := range outputKeys {
		if i, ok := producers[key]; !ok || i < 0 {
			return nil, errors.NewInvalidRequestError("pipeline output key %q is not produced by any step", key)
		}
	}

	config := map[string]any{
		"input_keys":  inputKeys,
		"output_keys": outputKeys,
		"steps":       len(steps),
	}
	return &Pipeline{
		Base:       operation.NewBase(className, o.name, o.id, config),
		steps:      steps,
		inputKeys:  inputKeys,
		outputKeys: outputKeys,
		logger:     logger.OrGlobal(o.logger).Named("pipeline"),
		metrics:    o.metrics,
	}, nil
}

// InputKeys returns the keys of the annotations given to Run
func (p *Pipeline) InputKeys() []string { return append([]string(nil), p.inputKeys...) }

// OutputKeys returns the keys of the annotations returned by Run
func (p *Pipeline) OutputKeys() []string { return append([]string(nil), p.outputKeys...) }

// Steps returns the steps in execution order
func (p *Pipeline) Steps() []Step { return append([]Step(nil), p.steps...) }

// SetProvTracer enables provenance tracing. The steps record into a sub
// tracer, and the outer tracer sees the pipeline as the producer of its
// outputs. nil disables tracing.
func (p *Pipeline) SetProvTracer(tracer *prov.Tracer) {
	p.Base.SetProvTracer(tracer)

	var sub *prov.Tracer
	if tracer != nil {
		sub = tracer.NewSubTracer()
	}
	p.mu.Lock()
	p.subTracer = sub
	p.mu.Unlock()

	for _, step := range p.steps {
		if t, ok := step.Operation.(operation.Traceable); ok {
			t.SetProvTracer(sub)
		}
	}
}

// Run executes the steps on inputs, one list per input key, and returns one
// list per output key.
func (p *Pipeline) Run(ctx context.Context, inputs [][]core.Annotation) ([][]core.Annotation, error) {
	desc := p.Description()
	if len(inputs) != len(p.inputKeys) {
		return nil, errors.NewInvalidRequestError(
			"pipeline %s takes %d inputs (%v), got %d", desc.Name, len(p.inputKeys), p.inputKeys, len(inputs))
	}

	ctx = logger.WithPipelineID(ctx, desc.ID())
	log := logger.LoggerFromContext(ctx, p.logger)

	data := make(map[string][]core.Annotation, len(p.inputKeys))
	for i, key := range p.inputKeys {
		data[key] = inputs[i]
	}

	for i, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := p.runStep(logger.WithStep(ctx, i), i, step, data); err != nil {
			return nil, err
		}
	}

	outputs := make([][]core.Annotation, len(p.outputKeys))
	for i, key := range p.outputKeys {
		outputs[i] = data[key]
	}

	if err := p.addProvenance(inputs, outputs); err != nil {
		return nil, errors.Wrapf(err, "record provenance of pipeline %s", desc.Name)
	}

	log.Debugw("Pipeline finished",
		logger.FieldOpName, desc.Name,
		logger.FieldCount, len(p.steps),
	)
	return outputs, nil
}

func (p *Pipeline) runStep(ctx context.Context, i int, step Step, data map[string][]core.Annotation) error {
	opDesc := step.Operation.Description()

	stepInputs := make([][]core.Annotation, len(step.InputKeys))
	for j, key := range step.InputKeys {
		anns, ok := data[key]
		if !ok {
			return p.unresolvedKey(i, key)
		}
		stepInputs[j] = anns
	}

	start := time.Now()
	stepOutputs, err := step.Operation.Run(ctx, stepInputs)
	p.metrics.ObserveStep(p.Description().Name, opDesc.Name, time.Since(start), err)
	if err != nil {
		return errors.Wrapf(err, "step %d (%s)", i, opDesc.Name)
	}

	if len(stepOutputs) != len(step.OutputKeys) {
		return errors.NewInvalidRequestError(
			"step %d (%s) returned %d outputs for output keys %v", i, opDesc.Name, len(stepOutputs), step.OutputKeys)
	}

	produced := 0
	for j, key := range step.OutputKeys {
		data[key] = stepOutputs[j]
		produced += len(stepOutputs[j])
	}
	p.metrics.AddAnnotations(opDesc.Name, produced)

	logger.LoggerFromContext(ctx, p.logger).Debugw("Step done",
		logger.FieldOpName, opDesc.Name,
		logger.FieldInputs, len(step.InputKeys),
		logger.FieldCount, produced,
		logger.FieldDurationMS, time.Since(start).Milliseconds(),
	)
	return nil
}

func (p *Pipeline) unresolvedKey(i int, key string) error {
	err := errors.NewInvalidRequestError("no annotations for key %q needed by step %d", key, i)
	for j := i; j < len(p.steps); j++ {
		for _, out := range p.steps[j].OutputKeys {
			if out == key {
				return errors.WithHint(err, "did you add the steps in the correct order?")
			}
		}
	}
	return errors.WithHintf(err, "add %q to the pipeline input keys or to the output keys of a step", key)
}

// addProvenance records the pipeline as the producer of the items created
// by its steps: the outputs, their attributes and the attributes steps
// attached to the inputs.
func (p *Pipeline) addProvenance(inputs, outputs [][]core.Annotation) error {
	tracer := p.ProvTracer()
	p.mu.RLock()
	sub := p.subTracer
	p.mu.RUnlock()
	if tracer == nil || sub == nil {
		return nil
	}

	var candidates []core.DataItem
	for _, anns := range outputs {
		for _, ann := range anns {
			candidates = append(candidates, ann)
			for _, attr := range ann.Attrs().All() {
				candidates = append(candidates, attr)
			}
		}
	}
	for _, anns := range inputs {
		for _, ann := range anns {
			for _, attr := range ann.Attrs().All() {
				candidates = append(candidates, attr)
			}
		}
	}

	subGraph := sub.Graph()
	seen := make(map[string]struct{}, len(candidates))
	items := make([]core.DataItem, 0, len(candidates))
	for _, item := range candidates {
		if _, ok := seen[item.ID()]; ok {
			continue
		}
		seen[item.ID()] = struct{}{}
		node, err := subGraph.Node(item.ID())
		if err != nil || node.IsStub() {
			// not created inside this pipeline
			continue
		}
		items = append(items, item)
	}

	return tracer.AddProvFromSubTracer(items, p.Description(), sub)
}
