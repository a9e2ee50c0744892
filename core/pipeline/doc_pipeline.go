package pipeline

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/teranos/medkit/config"
	"github.com/teranos/medkit/core"
	"github.com/teranos/medkit/core/operation"
	"github.com/teranos/medkit/core/prov"
	"github.com/teranos/medkit/errors"
	"github.com/teranos/medkit/logger"
	"github.com/teranos/medkit/metric"
)

// DocPipeline runs a pipeline on documents. The inputs of the pipeline are
// the annotations of each document with the labels mapped to its input
// keys, and its outputs are added back to the document, tagged with their
// output key.
type DocPipeline struct {
	*operation.Base
	pipeline         *Pipeline
	labelsByInputKey map[string][]string
	workers          int
	logger           *zap.SugaredLogger
	metrics          *metric.Metrics
}

// DocOption customizes NewDocPipeline
type DocOption func(*DocPipeline)

// WithWorkers sets how many documents are processed concurrently. Values
// below 1 mean 1.
func WithWorkers(n int) DocOption {
	return func(d *DocPipeline) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithDocLogger sets the logger
func WithDocLogger(l *zap.SugaredLogger) DocOption {
	return func(d *DocPipeline) { d.logger = l }
}

// WithDocMetrics counts processed documents
func WithDocMetrics(m *metric.Metrics) DocOption {
	return func(d *DocPipeline) { d.metrics = m }
}

// WithPipelineConfig applies the [pipeline] section of the configuration
func WithPipelineConfig(cfg config.PipelineConfig) DocOption {
	return WithWorkers(cfg.Workers)
}

// NewDocPipeline wraps p. labelsByInputKey needs an entry for every input
// key of p; several labels may feed the same key.
func NewDocPipeline(p *Pipeline, labelsByInputKey map[string][]string, opts ...DocOption) (*DocPipeline, error) {
	if p == nil {
		return nil, errors.NewInvalidRequestError("document pipeline needs a pipeline")
	}
	for _, key := range p.InputKeys() {
		if len(labelsByInputKey[key]) == 0 {
			return nil, errors.WithHintf(
				errors.NewInvalidRequestError("no labels for input key %q of pipeline %s", key, p.Description().Name),
				"map %q to the label of existing annotations, such as the raw segment label", key)
		}
	}

	d := &DocPipeline{
		Base: operation.NewBase("DocPipeline", p.Description().Name, "", map[string]any{
			"pipeline":            p.Description().ID(),
			"labels_by_input_key": labelsByInputKey,
		}),
		pipeline:         p,
		labelsByInputKey: labelsByInputKey,
		workers:          1,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = logger.OrGlobal(d.logger).Named("doc_pipeline")
	return d, nil
}

// Pipeline returns the wrapped pipeline
func (d *DocPipeline) Pipeline() *Pipeline { return d.pipeline }

// SetProvTracer enables provenance tracing of the wrapped pipeline
func (d *DocPipeline) SetProvTracer(tracer *prov.Tracer) {
	d.Base.SetProvTracer(tracer)
	d.pipeline.SetProvTracer(tracer)
}

// RunDocs processes docs and stops at the first failing document. With
// several workers, documents are processed concurrently and annotations may
// already have been added to documents other than the failing one.
func (d *DocPipeline) RunDocs(ctx context.Context, docs []core.Document) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)

	for _, doc := range docs {
		doc := doc
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			err := d.processDoc(gctx, doc)
			d.metrics.ObserveDocument(d.pipeline.Description().Name, err)
			return err
		})
	}
	return g.Wait()
}

func (d *DocPipeline) processDoc(ctx context.Context, doc core.Document) error {
	ctx = logger.WithDocID(ctx, doc.ID())

	inputs := make([][]core.Annotation, 0, len(d.pipeline.inputKeys))
	for _, key := range d.pipeline.inputKeys {
		var anns []core.Annotation
		for _, label := range d.labelsByInputKey[key] {
			found, err := doc.AnnotationsByLabel(label)
			if err != nil {
				return errors.Wrapf(err, "get %s annotations of document %s", label, doc.ID())
			}
			anns = append(anns, found...)
		}
		inputs = append(inputs, anns)
	}

	outputs, err := d.pipeline.Run(ctx, inputs)
	if err != nil {
		return errors.Wrapf(err, "document %s", doc.ID())
	}

	added := 0
	for i, anns := range outputs {
		key := d.pipeline.outputKeys[i]
		for _, ann := range anns {
			ann.AddKey(key)
			if err := doc.AddAnnotation(ann); err != nil {
				return errors.Wrapf(err, "add output %s of document %s", key, doc.ID())
			}
			added++
		}
	}

	logger.LoggerFromContext(ctx, d.logger).Debugw("Document processed",
		logger.FieldOpName, d.pipeline.Description().Name,
		logger.FieldCount, added,
	)
	return nil
}
