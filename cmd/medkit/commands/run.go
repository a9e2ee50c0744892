package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/teranos/medkit/config"
	"github.com/teranos/medkit/core"
	"github.com/teranos/medkit/core/pipeline"
	"github.com/teranos/medkit/core/prov"
	"github.com/teranos/medkit/core/store"
	"github.com/teranos/medkit/core/text"
	"github.com/teranos/medkit/display"
	"github.com/teranos/medkit/errors"
	"github.com/teranos/medkit/graph"
	"github.com/teranos/medkit/logger"
	"github.com/teranos/medkit/metric"
)

// RunCmd runs a pipeline definition over text files
var RunCmd = &cobra.Command{
	Use:   "run --pipeline <definition> FILE...",
	Short: "Run a pipeline definition over text files",
	Long: `Run a pipeline definition over text files.

Each file becomes a text document. Input keys of the pipeline read the
annotations whose labels are listed under "labels" in the definition, or
the raw text of the document (label RAW_TEXT, see --label).

Examples:
  medkit run --pipeline cleanup.yaml note.txt
  medkit run --pipeline cleanup.yaml --prov-out prov.dot --depth 1 *.txt
  medkit run --pipeline cleanup.yaml --prov-out prov.json --format json note.txt`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := runOpts
		opts.files = args
		opts.depthSet = cmd.Flags().Changed("depth")
		opts.json = display.ShouldOutputJSON(cmd)

		verbosity, _ := cmd.Flags().GetCount("verbose")
		var emitter display.ProgressEmitter = display.NewCLIEmitter(cmd.ErrOrStderr(), verbosity)
		if opts.json {
			emitter = display.NewJSONEmitter(cmd.ErrOrStderr())
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		return runPipeline(ctx, currentConfig(), opts, cmd.OutOrStdout(), emitter)
	},
}

type runOptions struct {
	pipeline   string
	rawLabel   string
	provOut    string
	format     string
	depth      int
	depthSet   bool
	metricsOut string
	json       bool
	files      []string
}

var runOpts runOptions

func init() {
	RunCmd.Flags().StringVarP(&runOpts.pipeline, "pipeline", "p", "", "Pipeline definition (.yaml, .yml or .toml)")
	RunCmd.Flags().StringVar(&runOpts.rawLabel, "label", text.RawLabel, "Label of the raw text fed to input keys without labels")
	RunCmd.Flags().StringVar(&runOpts.provOut, "prov-out", "", "Write the provenance graph to this file")
	RunCmd.Flags().StringVar(&runOpts.format, "format", "", "Provenance format: dot or json (default from config)")
	RunCmd.Flags().IntVar(&runOpts.depth, "depth", -1, "Levels of nested pipelines to expand in the provenance graph (-1: all)")
	RunCmd.Flags().StringVar(&runOpts.metricsOut, "metrics-out", "", "Write Prometheus metrics to this file")
	_ = RunCmd.MarkFlagRequired("pipeline")
}

func runPipeline(ctx context.Context, c *config.Config, opts runOptions, out io.Writer, emitter display.ProgressEmitter) error {
	log := logger.ComponentLogger("cmd.run")

	provCfg := c.Provenance
	if opts.format != "" {
		provCfg.Format = opts.format
	}
	if opts.depthSet {
		provCfg.MaxSubGraphDepth = opts.depth
	}
	if provCfg.Format != config.FormatDOT && provCfg.Format != config.FormatJSON {
		return errors.NewInvalidRequestError("unsupported provenance format %q (supported: dot, json)", provCfg.Format)
	}
	traceProv := provCfg.Enabled || opts.provOut != ""

	emitter.EmitStage("load", opts.pipeline)
	def, err := pipeline.LoadDefinition(opts.pipeline)
	if err != nil {
		return err
	}

	var registry *metric.Registry
	var metrics *metric.Metrics
	if c.Metrics.Enabled || opts.metricsOut != "" {
		registry = metric.NewRegistry(false)
		metrics = registry.Metrics
	}

	p, err := def.Build(nil, pipeline.WithLogger(logger.Logger), pipeline.WithMetrics(metrics))
	if err != nil {
		return errors.Wrapf(err, "build pipeline %s", opts.pipeline)
	}

	st, closeStore, err := store.Open(c.Store, logger.Logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Warnw("failed to close store", logger.FieldError, err)
		}
	}()

	docs, err := loadDocuments(opts.files, st)
	if err != nil {
		return err
	}
	emitter.EmitInfo(fmt.Sprintf("%d documents loaded", len(docs)))

	dp, err := pipeline.NewDocPipeline(p, def.LabelsByInputKey(opts.rawLabel),
		pipeline.WithPipelineConfig(c.Pipeline),
		pipeline.WithDocLogger(logger.Logger),
		pipeline.WithDocMetrics(metrics))
	if err != nil {
		return err
	}

	var tracer *prov.Tracer
	if traceProv {
		tracer = prov.NewTracerFromConfig(st, provCfg, prov.WithLogger(logger.Logger), prov.WithMetrics(metrics))
		dp.SetProvTracer(tracer)
	}

	emitter.EmitStage("run", p.Description().Name)
	coreDocs := make([]core.Document, len(docs))
	for i, doc := range docs {
		coreDocs[i] = doc
	}
	if err := dp.RunDocs(ctx, coreDocs); err != nil {
		emitter.EmitError("run", err)
		return err
	}
	emitter.EmitProgress(len(docs), "documents")

	summaries, err := summarize(docs)
	if err != nil {
		return err
	}
	if opts.json {
		if err := display.OutputJSON(out, summaries); err != nil {
			return err
		}
	} else if err := display.RenderSummary(out, summaries); err != nil {
		return err
	}

	if opts.provOut != "" {
		if err := writeProvenance(opts.provOut, tracer, provCfg); err != nil {
			return err
		}
		log.Infow("provenance written", logger.FieldPath, opts.provOut, "format", provCfg.Format)
	}

	if opts.metricsOut != "" {
		if err := writeMetrics(opts.metricsOut, registry); err != nil {
			return err
		}
	}

	total := 0
	for _, s := range summaries {
		total += s.Total()
	}
	emitter.EmitComplete(map[string]interface{}{
		"documents":   len(docs),
		"annotations": total,
		"pipeline":    p.Description().Name,
	})
	return nil
}

// loadDocuments creates one text document per file, all sharing s
func loadDocuments(files []string, s core.Store) ([]*text.Document, error) {
	docs := make([]*text.Document, 0, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, errors.Wrapf(err, "read %s", file)
		}
		doc, err := text.NewDocument(string(data),
			text.WithStore(s),
			text.WithDocumentMetadata(map[string]any{"file": file}))
		if err != nil {
			return nil, errors.Wrapf(err, "create document for %s", file)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func summarize(docs []*text.Document) ([]display.DocSummary, error) {
	summaries := make([]display.DocSummary, 0, len(docs))
	for _, doc := range docs {
		anns, err := doc.Anns().All()
		if err != nil {
			return nil, errors.Wrapf(err, "read annotations of document %s", doc.ID())
		}
		counts := make(map[string]int)
		for _, ann := range anns {
			counts[ann.Label()]++
		}
		file, _ := doc.Metadata["file"].(string)
		summaries = append(summaries, display.DocSummary{
			DocID:       doc.ID(),
			File:        filepath.Base(file),
			Annotations: counts,
		})
	}
	return summaries, nil
}

func writeProvenance(path string, tracer *prov.Tracer, provCfg config.ProvenanceConfig) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer f.Close()

	switch provCfg.Format {
	case config.FormatJSON:
		g, err := graph.NewBuilder(tracer, graph.OptionsFromConfig(provCfg), logger.Logger).Build()
		if err != nil {
			return err
		}
		if err := graph.WriteJSON(f, g); err != nil {
			return err
		}
	default:
		if err := prov.WriteDot(f, tracer, prov.DotOptionsFromConfig(provCfg)); err != nil {
			return err
		}
	}
	return f.Close()
}

func writeMetrics(path string, registry *metric.Registry) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer f.Close()

	if err := registry.WriteText(f); err != nil {
		return err
	}
	return f.Close()
}
