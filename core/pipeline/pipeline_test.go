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

	"github.com/teranos/medkit/core"
	"github.com/teranos/medkit/core/operation"
	"github.com/teranos/medkit/core/prov"
	"github.com/teranos/medkit/core/store"
	"github.com/teranos/medkit/core/text"
	"github.com/teranos/medkit/errors"
	"github.com/teranos/medkit/metric"
)

// deriveOp creates one segment labeled label from each input segment
func deriveOp(name, label string, transform func(string) string) *operation.Custom {
	return operation.NewCreateOneToN(name, func(a core.Annotation) ([]core.Annotation, error) {
		seg := a.(*text.Segment)
		out, err := text.NewSegment(label, transform(seg.Text()), seg.Spans())
		if err != nil {
			return nil, err
		}
		return []core.Annotation{out}, nil
	})
}

func rawSegment(t *testing.T, s string) *text.Segment {
	t.Helper()
	seg, err := text.NewSegment("raw", s, []text.AnySpan{text.Span{Start: 0, End: len([]rune(s))}})
	require.NoError(t, err)
	return seg
}

func identity(s string) string { return s }

// chain builds [A: x->y, B: y->z]
func chain(t *testing.T, opts ...Option) (*Pipeline, *operation.Custom, *operation.Custom) {
	t.Helper()
	a := deriveOp("A", "y", strings.ToUpper)
	b := deriveOp("B", "z", identity)
	p, err := New([]Step{
		{Operation: a, InputKeys: []string{"x"}, OutputKeys: []string{"y"}},
		{Operation: b, InputKeys: []string{"y"}, OutputKeys: []string{"z"}},
	}, []string{"x"}, []string{"z"}, append([]Option{WithName("chain"), WithLogger(zaptest.NewLogger(t).Sugar())}, opts...)...)
	require.NoError(t, err)
	return p, a, b
}

func TestPipelineChain(t *testing.T) {
	p, _, _ := chain(t)
	x := rawSegment(t, "heart failure")

	out, err := p.Run(context.Background(), [][]core.Annotation{{x}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Len(t, out[0], 1)

	z := out[0][0].(*text.Segment)
	assert.Equal(t, "z", z.Label())
	assert.Equal(t, "HEART FAILURE", z.Text())
	assert.Equal(t, x.Spans(), z.Spans())
	assert.Equal(t, "Pipeline", p.Description().ClassName)
	assert.Equal(t, "chain", p.Description().Name)
}

func TestPipelineProvenance(t *testing.T) {
	p, a, b := chain(t)
	tracer := prov.NewTracer(store.NewMemoryStore(), prov.WithLogger(zaptest.NewLogger(t).Sugar()))
	p.SetProvTracer(tracer)

	x := rawSegment(t, "heart failure")
	out, err := p.Run(context.Background(), [][]core.Annotation{{x}})
	require.NoError(t, err)
	z := out[0][0]

	// the outer tracer sees the pipeline as the producer
	zProv, err := tracer.GetProv(z.ID())
	require.NoError(t, err)
	assert.Equal(t, p.Description().ID(), zProv.OpDesc.ID())
	assert.Equal(t, []core.DataItem{x}, zProv.SourceDataItems)
	assert.Len(t, tracer.Graph().Nodes(), 2)

	// the steps are recorded in the sub tracer
	require.True(t, tracer.HasSubProvTracer(p.Description().ID()))
	sub, err := tracer.GetSubProvTracer(p.Description().ID())
	require.NoError(t, err)

	zSub, err := sub.GetProv(z.ID())
	require.NoError(t, err)
	assert.Equal(t, b.Description().ID(), zSub.OpDesc.ID())
	require.Len(t, zSub.SourceDataItems, 1)
	y := zSub.SourceDataItems[0]

	ySub, err := sub.GetProv(y.ID())
	require.NoError(t, err)
	assert.Equal(t, a.Description().ID(), ySub.OpDesc.ID())
	assert.Equal(t, []core.DataItem{x}, ySub.SourceDataItems)

	flat := tracer.Graph().Flatten()
	require.NoError(t, flat.CheckSanity())
	assert.True(t, flat.HasNode(y.ID()))
	node, err := flat.Node(z.ID())
	require.NoError(t, err)
	assert.Equal(t, b.Description().ID(), node.OperationID)
}

func TestNestedPipelineFlattening(t *testing.T) {
	a := deriveOp("A", "mid", strings.ToUpper)
	b := deriveOp("B", "y", identity)
	c := deriveOp("C", "z", strings.ToLower)

	inner, err := New([]Step{
		{Operation: a, InputKeys: []string{"in"}, OutputKeys: []string{"mid"}},
		{Operation: b, InputKeys: []string{"mid"}, OutputKeys: []string{"out"}},
	}, []string{"in"}, []string{"out"}, WithName("inner"))
	require.NoError(t, err)

	outer, err := New([]Step{
		{Operation: inner, InputKeys: []string{"x"}, OutputKeys: []string{"y"}},
		{Operation: c, InputKeys: []string{"y"}, OutputKeys: []string{"z"}},
	}, []string{"x"}, []string{"z"}, WithName("outer"))
	require.NoError(t, err)

	tracer := prov.NewTracer(nil)
	outer.SetProvTracer(tracer)

	x := rawSegment(t, "Fever")
	out, err := outer.Run(context.Background(), [][]core.Annotation{{x}})
	require.NoError(t, err)
	z := out[0][0]
	assert.Equal(t, "fever", z.(*text.Segment).Text())

	producers := func(g *prov.Graph) map[string]int {
		counts := make(map[string]int)
		for _, n := range g.Nodes() {
			if n.IsStub() {
				counts["stub"]++
				continue
			}
			counts[n.OperationID]++
		}
		return counts
	}

	zero, one := 0, 1
	tests := []struct {
		name     string
		maxDepth *int
		want     map[string]int
	}{
		{"depth 0", &zero, map[string]int{"stub": 1, outer.Description().ID(): 1}},
		{"depth 1", &one, map[string]int{"stub": 1, inner.Description().ID(): 1, c.Description().ID(): 1}},
		{"unlimited", nil, map[string]int{"stub": 1, a.Description().ID(): 1, b.Description().ID(): 1, c.Description().ID(): 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flat := tracer.Graph().FlattenDepth(tt.maxDepth)
			require.NoError(t, flat.CheckSanity())
			assert.Equal(t, tt.want, producers(flat))
		})
	}

	// nested sub tracers
	outerSub, err := tracer.GetSubProvTracer(outer.Description().ID())
	require.NoError(t, err)
	assert.True(t, outerSub.HasSubProvTracer(inner.Description().ID()))
	assert.False(t, tracer.HasSubProvTracer(inner.Description().ID()))
}

func TestPipelineAttributesOnInputs(t *testing.T) {
	// a step that only attaches attributes to its inputs
	flag := operation.NewExtractOneToN("flagger", func(a core.Annotation) ([]core.Annotation, error) {
		return nil, nil
	})
	var attrs []*core.Attribute
	tagger := &attrStep{Base: operation.NewBase("Tagger", "tagger", "", nil), added: &attrs}

	p, err := New([]Step{
		{Operation: tagger, InputKeys: []string{"x"}},
		{Operation: flag, InputKeys: []string{"x"}, OutputKeys: []string{"none"}},
	}, []string{"x"}, []string{"none"})
	require.NoError(t, err)

	tracer := prov.NewTracer(nil)
	p.SetProvTracer(tracer)

	x := rawSegment(t, "no fever")
	out, err := p.Run(context.Background(), [][]core.Annotation{{x}})
	require.NoError(t, err)
	assert.Empty(t, out[0])

	require.Len(t, attrs, 1)
	attrProv, err := tracer.GetProv(attrs[0].ID())
	require.NoError(t, err)
	assert.Equal(t, p.Description().ID(), attrProv.OpDesc.ID())
	assert.Equal(t, []core.DataItem{x}, attrProv.SourceDataItems)
}

// attrStep attaches a negation attribute to every input and has no output
type attrStep struct {
	*operation.Base
	added *[]*core.Attribute
}

func (s *attrStep) Run(_ context.Context, inputs [][]core.Annotation) ([][]core.Annotation, error) {
	for _, ann := range inputs[0] {
		attr := core.NewAttribute("negation", true)
		if err := ann.Attrs().Add(attr); err != nil {
			return nil, err
		}
		if err := s.Trace(attr, ann); err != nil {
			return nil, err
		}
		*s.added = append(*s.added, attr)
	}
	return nil, nil
}

func TestNewValidation(t *testing.T) {
	a := deriveOp("A", "y", identity)
	b := deriveOp("B", "z", identity)

	tests := []struct {
		name       string
		steps      []Step
		inputKeys  []string
		outputKeys []string
		hint       string
	}{
		{
			name: "key produced twice",
			steps: []Step{
				{Operation: a, InputKeys: []string{"x"}, OutputKeys: []string{"y"}},
				{Operation: b, InputKeys: []string{"x"}, OutputKeys: []string{"y"}},
			},
			inputKeys:  []string{"x"},
			outputKeys: []string{"y"},
			hint:       "combine the annotations with a dedicated step instead of writing a key twice",
		},
		{
			name:       "step writes an input key",
			steps:      []Step{{Operation: a, InputKeys: []string{"x"}, OutputKeys: []string{"x"}}},
			inputKeys:  []string{"x"},
			outputKeys: []string{"x"},
		},
		{
			name:       "output key not produced",
			steps:      []Step{{Operation: a, InputKeys: []string{"x"}, OutputKeys: []string{"y"}}},
			inputKeys:  []string{"x"},
			outputKeys: []string{"z"},
		},
		{
			name:       "duplicate input key",
			steps:      []Step{{Operation: a, InputKeys: []string{"x"}, OutputKeys: []string{"y"}}},
			inputKeys:  []string{"x", "x"},
			outputKeys: []string{"y"},
		},
		{
			name:       "missing operation",
			steps:      []Step{{InputKeys: []string{"x"}, OutputKeys: []string{"y"}}},
			inputKeys:  []string{"x"},
			outputKeys: []string{"y"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.steps, tt.inputKeys, tt.outputKeys)
			require.Error(t, err)
			assert.True(t, errors.IsInvalidRequestError(err))
			if tt.hint != "" {
				assert.Contains(t, errors.GetAllHints(err), tt.hint)
			}
		})
	}
}

func TestRunErrors(t *testing.T) {
	x := rawSegment(t, "fever")

	t.Run("input count mismatch", func(t *testing.T) {
		p, _, _ := chain(t)
		_, err := p.Run(context.Background(), [][]core.Annotation{{x}, {x}})
		assert.True(t, errors.IsInvalidRequestError(err))
	})

	t.Run("steps in the wrong order", func(t *testing.T) {
		p, err := New([]Step{
			{Operation: deriveOp("B", "z", identity), InputKeys: []string{"y"}, OutputKeys: []string{"z"}},
			{Operation: deriveOp("A", "y", identity), InputKeys: []string{"x"}, OutputKeys: []string{"y"}},
		}, []string{"x"}, []string{"z"})
		require.NoError(t, err)

		_, err = p.Run(context.Background(), [][]core.Annotation{{x}})
		require.Error(t, err)
		assert.True(t, errors.IsInvalidRequestError(err))
		assert.Contains(t, errors.GetAllHints(err), "did you add the steps in the correct order?")
	})

	t.Run("unknown key", func(t *testing.T) {
		p, err := New([]Step{
			{Operation: deriveOp("A", "y", identity), InputKeys: []string{"w"}, OutputKeys: []string{"y"}},
		}, []string{"x"}, []string{"y"})
		require.NoError(t, err)

		_, err = p.Run(context.Background(), [][]core.Annotation{{x}})
		assert.True(t, errors.IsInvalidRequestError(err))
		assert.NotContains(t, errors.GetAllHints(err), "did you add the steps in the correct order?")
	})

	t.Run("output count mismatch", func(t *testing.T) {
		p, err := New([]Step{
			{Operation: deriveOp("A", "y", identity), InputKeys: []string{"x"}, OutputKeys: []string{"y", "extra"}},
		}, []string{"x"}, []string{"y"})
		require.NoError(t, err)

		_, err = p.Run(context.Background(), [][]core.Annotation{{x}})
		assert.True(t, errors.IsInvalidRequestError(err))
	})

	t.Run("operation failure", func(t *testing.T) {
		failing := operation.NewCreateOneToN("failing", func(core.Annotation) ([]core.Annotation, error) {
			return nil, errors.New("boom")
		})
		reg := metric.NewRegistry(false)
		p, err := New([]Step{
			{Operation: failing, InputKeys: []string{"x"}, OutputKeys: []string{"y"}},
		}, []string{"x"}, []string{"y"}, WithName("broken"), WithMetrics(reg.Metrics))
		require.NoError(t, err)

		_, err = p.Run(context.Background(), [][]core.Annotation{{x}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
		assert.Equal(t, 1.0, testutil.ToFloat64(
			reg.Metrics.StepRuns.WithLabelValues("broken", "failing", metric.StatusError)))
	})

	t.Run("cancelled context", func(t *testing.T) {
		p, _, _ := chain(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := p.Run(ctx, [][]core.Annotation{{x}})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestPipelineMetrics(t *testing.T) {
	reg := metric.NewRegistry(false)
	p, _, _ := chain(t, WithMetrics(reg.Metrics))

	_, err := p.Run(context.Background(), [][]core.Annotation{{rawSegment(t, "a"), rawSegment(t, "b")}})
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(reg.Metrics.StepRuns.WithLabelValues("chain", "A", metric.StatusOK)))
	assert.Equal(t, 2.0, testutil.ToFloat64(reg.Metrics.AnnotationsProduced.WithLabelValues("B")))
}

// sequentialIDs makes GenerateID return id-1, id-2, ... until the returned
// function is called.
func sequentialIDs() (restore func()) {
	n := 0
	return core.SetIDGenerator(func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	})
}

type annotationSnapshot struct {
	ID    string
	Label string
	Text  string
	Spans []text.AnySpan
	Keys  []string
}

func TestPipelineDeterminism(t *testing.T) {
	run := func() [][]annotationSnapshot {
		restore := sequentialIDs()
		defer restore()

		p, _, _ := chain(t)
		out, err := p.Run(context.Background(), [][]core.Annotation{{rawSegment(t, "chest pain"), rawSegment(t, "fever")}})
		require.NoError(t, err)

		snapshot := make([][]annotationSnapshot, len(out))
		for i, anns := range out {
			for _, ann := range anns {
				seg := ann.(*text.Segment)
				snapshot[i] = append(snapshot[i], annotationSnapshot{
					ID:    seg.ID(),
					Label: seg.Label(),
					Text:  seg.Text(),
					Spans: seg.Spans(),
					Keys:  seg.Keys(),
				})
			}
		}
		return snapshot
	}

	first := run()
	require.Len(t, first, 1)
	require.Len(t, first[0], 2)
	assert.Equal(t, "CHEST PAIN", first[0][0].Text)
	assert.Equal(t, "z", first[0][1].Label)
	assert.True(t, strings.HasPrefix(first[0][0].ID, "id-"))

	for i := 0; i < 2; i++ {
		assert.Equal(t, first, run())
	}
}
