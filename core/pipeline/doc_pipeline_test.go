package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/medkit/config"
	"github.com/teranos/medkit/core"
	"github.com/teranos/medkit/core/operation"
	"github.com/teranos/medkit/core/prov"
	"github.com/teranos/medkit/core/store"
	"github.com/teranos/medkit/core/text"
	"github.com/teranos/medkit/errors"
	"github.com/teranos/medkit/metric"
)

func newDocs(t *testing.T, s core.Store, n int) []core.Document {
	t.Helper()
	docs := make([]core.Document, n)
	for i := range docs {
		doc, err := text.NewDocument(fmt.Sprintf("patient %d has fever", i), text.WithStore(s))
		require.NoError(t, err)
		docs[i] = doc
	}
	return docs
}

func TestDocPipeline(t *testing.T) {
	reg := metric.NewRegistry(false)
	p, _, _ := chain(t)
	dp, err := NewDocPipeline(p, map[string][]string{"x": {text.RawLabel}},
		WithWorkers(4), WithDocMetrics(reg.Metrics), WithDocLogger(zaptest.NewLogger(t).Sugar()))
	require.NoError(t, err)

	s := store.NewMemoryStore()
	tracer := prov.NewTracer(s)
	dp.SetProvTracer(tracer)
	assert.Same(t, tracer, p.ProvTracer())

	docs := newDocs(t, s, 10)
	require.NoError(t, dp.RunDocs(context.Background(), docs))

	for i, d := range docs {
		doc := d.(*text.Document)
		anns, err := doc.Anns().Get("z", "z")
		require.NoError(t, err)
		require.Len(t, anns, 1)

		seg := anns[0].(*text.Segment)
		assert.Equal(t, strings.ToUpper(doc.Text()), seg.Text())
		assert.Equal(t, fmt.Sprintf("PATIENT %d HAS FEVER", i), seg.Text())

		// intermediate results stay out of the document
		ys, err := doc.Anns().Get("y", "")
		require.NoError(t, err)
		assert.Empty(t, ys)

		zProv, err := tracer.GetProv(seg.ID())
		require.NoError(t, err)
		assert.Equal(t, []core.DataItem{doc.RawAnnotation()}, zProv.SourceDataItems)
	}

	assert.Equal(t, 10.0, testutil.ToFloat64(reg.Metrics.DocumentsProcessed.WithLabelValues("chain", metric.StatusOK)))
	require.NoError(t, tracer.Graph().Flatten().CheckSanity())
}

func TestDocPipelineSeveralLabels(t *testing.T) {
	collect := operation.NewExtractOneToN("collect", func(a core.Annotation) ([]core.Annotation, error) {
		return []core.Annotation{a}, nil
	})
	p, err := New([]Step{
		{Operation: deriveOp("copy", "finding", identity), InputKeys: []string{"in"}, OutputKeys: []string{"found"}},
		{Operation: collect, InputKeys: []string{"found"}, OutputKeys: []string{"out"}},
	}, []string{"in"}, []string{"out"})
	require.NoError(t, err)

	dp, err := NewDocPipeline(p, map[string][]string{"in": {"problem", "treatment"}})
	require.NoError(t, err)

	doc, err := text.NewDocument("fever treated with paracetamol")
	require.NoError(t, err)
	problem, err := text.NewSegment("problem", "fever", []text.AnySpan{text.Span{Start: 0, End: 5}})
	require.NoError(t, err)
	treatment, err := text.NewSegment("treatment", "paracetamol", []text.AnySpan{text.Span{Start: 19, End: 30}})
	require.NoError(t, err)
	require.NoError(t, doc.AddAnnotation(problem))
	require.NoError(t, doc.AddAnnotation(treatment))

	require.NoError(t, dp.RunDocs(context.Background(), []core.Document{doc}))

	findings, err := doc.Anns().Segments("finding", "out")
	require.NoError(t, err)
	require.Len(t, findings, 2)
	assert.Equal(t, "fever", findings[0].Text())
	assert.Equal(t, "paracetamol", findings[1].Text())
}

func TestDocPipelineErrors(t *testing.T) {
	p, _, _ := chain(t)

	_, err := NewDocPipeline(p, map[string][]string{"other": {text.RawLabel}})
	assert.True(t, errors.IsInvalidRequestError(err))

	_, err = NewDocPipeline(nil, nil)
	assert.True(t, errors.IsInvalidRequestError(err))

	failing := operation.NewCreateOneToN("failing", func(core.Annotation) ([]core.Annotation, error) {
		return nil, errors.New("boom")
	})
	broken, err := New([]Step{
		{Operation: failing, InputKeys: []string{"x"}, OutputKeys: []string{"y"}},
	}, []string{"x"}, []string{"y"}, WithName("broken"))
	require.NoError(t, err)

	reg := metric.NewRegistry(false)
	dp, err := NewDocPipeline(broken, map[string][]string{"x": {text.RawLabel}},
		WithPipelineConfig(config.PipelineConfig{Workers: 2}), WithDocMetrics(reg.Metrics))
	require.NoError(t, err)

	err = dp.RunDocs(context.Background(), newDocs(t, store.NewMemoryStore(), 3))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.GreaterOrEqual(t, testutil.ToFloat64(reg.Metrics.DocumentsProcessed.WithLabelValues("broken", metric.StatusError)), 1.0)
}
