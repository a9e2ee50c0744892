package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for structured logging across medkit.
const (
	// Identity
	FieldDocID      = "doc_id"
	FieldItemID     = "item_id"
	FieldOpID       = "op_id"
	FieldOpName     = "op_name"
	FieldPipelineID = "pipeline_id"
	FieldStep       = "step"
	FieldKey        = "key"
	FieldLabel      = "label"
	FieldKind       = "kind"

	// Components
	FieldComponent = "component"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError = "error"

	// Counts and sizes
	FieldCount   = "count"
	FieldInputs  = "inputs"
	FieldOutputs = "outputs"
	FieldWorkers = "workers"
	FieldDepth   = "depth"

	// Files and paths
	FieldFile = "file"
	FieldPath = "path"
)

// Context keys for propagating logging context
type contextKey string

const (
	pipelineIDKey contextKey = "logger_pipeline_id"
	docIDKey      contextKey = "logger_doc_id"
	stepKey       contextKey = "logger_step"
	componentKey  contextKey = "logger_component"
)

// WithPipelineID adds the id of the running pipeline to the context
func WithPipelineID(ctx context.Context, pipelineID string) context.Context {
	return context.WithValue(ctx, pipelineIDKey, pipelineID)
}

// WithDocID adds the id of the document being processed to the context
func WithDocID(ctx context.Context, docID string) context.Context {
	return context.WithValue(ctx, docIDKey, docID)
}

// WithStep adds the current step index to the context
func WithStep(ctx context.Context, step int) context.Context {
	return context.WithValue(ctx, stepKey, step)
}

// WithComponent adds a component name to the context for logging
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// FieldsFromContext extracts logging fields from context.
// Returns key-value pairs suitable for use with Infow/Errorw/etc.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}
	if ctx == nil {
		return fields
	}

	if pipelineID, ok := ctx.Value(pipelineIDKey).(string); ok && pipelineID != "" {
		fields = append(fields, FieldPipelineID, pipelineID)
	}
	if docID, ok := ctx.Value(docIDKey).(string); ok && docID != "" {
		fields = append(fields, FieldDocID, docID)
	}
	if step, ok := ctx.Value(stepKey).(int); ok {
		fields = append(fields, FieldStep, step)
	}
	if component, ok := ctx.Value(componentKey).(string); ok && component != "" {
		fields = append(fields, FieldComponent, component)
	}

	return fields
}

// LoggerFromContext returns base (or the global logger when nil) enriched with
// the fields carried by ctx.
func LoggerFromContext(ctx context.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	l := OrGlobal(base)
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}

// ComponentLogger returns a named logger for a specific component.
//
//	type SQLStore struct {
//	    logger *zap.SugaredLogger
//	}
//
//	func NewSQLStore(db *sql.DB) *SQLStore {
//	    return &SQLStore{db: db, logger: logger.ComponentLogger("store.sql")}
//	}
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}
