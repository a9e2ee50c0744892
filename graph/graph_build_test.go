package graph

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/medkit/core"
	"github.com/teranos/medkit/core/prov"
	"github.com/teranos/medkit/errors"
	"github.com/teranos/medkit/internal/util"
)

// tracedChain records raw -> clean (op-a) and attaches a negation
// attribute traced from raw to clean.
func tracedChain(t *testing.T) (*prov.Tracer, *core.Attribute, *core.Attribute, *core.Attribute) {
	t.Helper()
	tracer := prov.NewTracer(nil)
	raw := core.NewAttributeWithID("raw", "RAW_TEXT", "no fever")
	clean := core.NewAttributeWithID("clean", "CLEAN", "no fever")
	opA := core.NewOperationDescription("op-a", "Cleaner", "cleaner", nil)

	require.NoError(t, tracer.AddProv(clean, opA, []core.DataItem{raw}))
	neg := core.NewAttributeWithID("neg", "negation", true)
	require.NoError(t, tracer.AddProv(neg, core.NewOperationDescription("op-n", "Negation", "negation", nil), []core.DataItem{clean}))
	return tracer, raw, clean, neg
}

func TestBuildEmpty(t *testing.T) {
	g, err := FromTracer(prov.NewTracer(nil), Options{})
	require.NoError(t, err)
	assert.Empty(t, g.Nodes)
	assert.Empty(t, g.Links)
	assert.Equal(t, FormatVersion, g.Meta.FormatVersion)
	assert.Equal(t, 0, g.Meta.Stats.TotalNodes)

	_, err = FromTracer(nil, Options{})
	assert.True(t, errors.IsInvalidRequestError(err))
}

func TestBuildChain(t *testing.T) {
	tracer, _, _, _ := tracedChain(t)

	g, err := NewBuilder(tracer, Options{}, zaptest.NewLogger(t).Sugar()).Build()
	require.NoError(t, err)

	require.Len(t, g.Nodes, 3)
	byID := make(map[string]Node)
	for _, n := range g.Nodes {
		byID[n.ID] = n
	}
	assert.Equal(t, NodeTypeAttribute, byID["raw"].Type)
	assert.Equal(t, "RAW_TEXT: no fever", byID["raw"].Label)
	assert.Equal(t, "cleaner", byID["clean"].Metadata["operation"])
	assert.Equal(t, "op-a", byID["clean"].Metadata["operation_id"])
	assert.Equal(t, "attribute", byID["clean"].Metadata["kind"])

	require.Len(t, g.Links, 2)
	assert.Contains(t, g.Links, Link{Source: "raw", Target: "clean", Type: LinkTypeDerived, Weight: 1, Label: "cleaner"})
	assert.Contains(t, g.Links, Link{Source: "clean", Target: "neg", Type: LinkTypeDerived, Weight: 1, Label: "negation"})

	assert.Equal(t, Stats{TotalNodes: 3, TotalEdges: 2, Operations: 2}, g.Meta.Stats)
	require.Len(t, g.Meta.RelationshipTypes, 1)
	assert.Equal(t, "Derived from", g.Meta.RelationshipTypes[0].Label)
	assert.Equal(t, "unlimited", g.Meta.Config["max_sub_graph_depth"])
}

type annotation struct {
	core.AnnotationBase
}

func TestBuildStubsAndAttrLinks(t *testing.T) {
	tracer := prov.NewTracer(nil)
	raw := &annotation{AnnotationBase: core.NewAnnotationBase("RAW_TEXT", core.WithID("raw"))}
	entity := &annotation{AnnotationBase: core.NewAnnotationBase("problem", core.WithID("ent"))}
	neg := core.NewAttributeWithID("neg", "negation", true)
	require.NoError(t, entity.Attrs().Add(neg))

	matcher := core.NewOperationDescription("op-m", "Matcher", "matcher", nil)
	require.NoError(t, tracer.AddProv(entity, matcher, []core.DataItem{raw}))
	require.NoError(t, tracer.AddProv(neg, matcher, []core.DataItem{raw}))

	g, err := FromTracer(tracer, Options{ShowAttrLinks: true})
	require.NoError(t, err)

	types := make(map[string]string)
	for _, n := range g.Nodes {
		types[n.ID] = n.Type
	}
	assert.Equal(t, map[string]string{"raw": NodeTypeStub, "ent": NodeTypeDataItem, "neg": NodeTypeAttribute}, types)
	assert.Contains(t, g.Links, Link{Source: "ent", Target: "neg", Type: LinkTypeAttribute, Weight: 1})
	assert.Len(t, g.Meta.NodeTypes, 3)

	without, err := FromTracer(tracer, Options{})
	require.NoError(t, err)
	assert.Len(t, without.Links, len(g.Links)-1)
}

func TestBuildDepth(t *testing.T) {
	tracer := prov.NewTracer(nil)
	sub := tracer.NewSubTracer()
	x := core.NewAttributeWithID("x", "raw", "a")
	y := core.NewAttributeWithID("y", "mid", "b")
	z := core.NewAttributeWithID("z", "out", "c")
	pipe := core.NewOperationDescription("pipe", "Pipeline", "pipe", nil)

	require.NoError(t, sub.AddProv(y, core.NewOperationDescription("op-a", "A", "a", nil), []core.DataItem{x}))
	require.NoError(t, sub.AddProv(z, core.NewOperationDescription("op-b", "B", "b", nil), []core.DataItem{y}))
	require.NoError(t, tracer.AddProvFromSubTracer([]core.DataItem{z}, pipe, sub))

	shallow, err := FromTracer(tracer, Options{MaxSubGraphDepth: util.Ptr(0)})
	require.NoError(t, err)
	assert.Equal(t, 2, shallow.Meta.Stats.TotalNodes)
	assert.Equal(t, 1, shallow.Meta.Stats.SubGraphs)
	assert.Equal(t, "0", shallow.Meta.Config["max_sub_graph_depth"])

	deep, err := FromTracer(tracer, Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, deep.Meta.Stats.TotalNodes)
	assert.Equal(t, 2, deep.Meta.Stats.Operations)
}

func TestJSONRoundTripAndFormatVersion(t *testing.T) {
	tracer, _, _, _ := tracedChain(t)
	g, err := FromTracer(tracer, Options{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, g))
	assert.Contains(t, buf.String(), `"format_version": "1.0.0"`)

	decoded, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, g.Nodes, decoded.Nodes)
	assert.Equal(t, g.Links, decoded.Links)

	for _, v := range []string{"2.0.0", "", "x"} {
		_, err := Decode(strings.NewReader(`{"nodes": [], "links": [], "meta": {"format_version": "` + v + `"}}`))
		assert.True(t, errors.IsInvalidRequestError(err), v)
	}
	_, err = Decode(strings.NewReader(`{"format_version": "1.2.0"`))
	assert.True(t, errors.IsInvalidRequestError(err))
	_, err = Decode(strings.NewReader(`{"nodes": [], "links": [], "meta": {"format_version": "1.2.0"}}`))
	assert.NoError(t, err)
}
