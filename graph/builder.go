// Package graph projects provenance graphs into JSON documents for
// visualization and later inspection.
package graph

import (
	"go.uber.org/zap"

	"github.com/teranos/medkit/config"
	"github.com/teranos/medkit/core"
	"github.com/teranos/medkit/core/prov"
	"github.com/teranos/medkit/logger"
)

// Options controls the projection
type Options struct {
	// MaxSubGraphDepth limits how many levels of sub graphs are expanded;
	// nil expands all of them.
	MaxSubGraphDepth *int
	// ShowAttrLinks adds links from annotations to their attributes
	ShowAttrLinks bool
	// DataItemFormatter labels nodes, prov.DefaultDataItemFormatter when nil
	DataItemFormatter func(core.DataItem) string
}

// OptionsFromConfig maps the provenance configuration to Options
func OptionsFromConfig(cfg config.ProvenanceConfig) Options {
	return Options{
		MaxSubGraphDepth: cfg.MaxDepth(),
		ShowAttrLinks:    cfg.ShowAttrLinks,
	}
}

// Builder builds graphs from a provenance tracer
type Builder struct {
	tracer *prov.Tracer
	opts   Options
	logger *zap.SugaredLogger
}

// NewBuilder creates a builder for tracer. A nil logger uses the global one.
func NewBuilder(tracer *prov.Tracer, opts Options, log *zap.SugaredLogger) *Builder {
	if opts.DataItemFormatter == nil {
		opts.DataItemFormatter = prov.DefaultDataItemFormatter
	}
	return &Builder{
		tracer: tracer,
		opts:   opts,
		logger: logger.OrGlobal(log).Named("graph.builder"),
	}
}

// FromTracer builds the graph of tracer
func FromTracer(tracer *prov.Tracer, opts Options) (*Graph, error) {
	return NewBuilder(tracer, opts, nil).Build()
}
