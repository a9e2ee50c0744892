package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/medkit/core"
	"github.com/teranos/medkit/core/store"
	"github.com/teranos/medkit/errors"
)

type finding struct {
	core.AnnotationBase
}

func newFinding(label string, opts ...core.AnnotationOption) *finding {
	return &finding{AnnotationBase: core.NewAnnotationBase(label, opts...)}
}

func TestIDs(t *testing.T) {
	a, b := core.GenerateID(), core.GenerateID()
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 36)

	assert.Equal(t, core.DeterministicID("doc-1"), core.DeterministicID("doc-1"))
	assert.NotEqual(t, core.DeterministicID("doc-1"), core.DeterministicID("doc-2"))
}

func TestSetIDGenerator(t *testing.T) {
	restore := core.SetIDGenerator(func() string { return "fixed" })
	assert.Equal(t, "fixed", core.GenerateID())
	assert.Equal(t, "fixed", core.NewAttribute("negation", true).ID())

	restore()
	assert.Len(t, core.GenerateID(), 36)
}

func TestAttributeContainer(t *testing.T) {
	c := core.NewAttributeContainer("ann-1")

	neg := core.NewAttribute("negated", true)
	hyp := core.NewAttribute("hypothesis", false)
	neg2 := core.NewAttribute("negated", false)
	require.NoError(t, c.Add(neg))
	require.NoError(t, c.Add(hyp))
	require.NoError(t, c.Add(neg2))

	assert.Equal(t, 3, c.Len())
	assert.Equal(t, []*core.Attribute{neg, hyp, neg2}, c.All())
	assert.Equal(t, []*core.Attribute{neg, neg2}, c.Get("negated"))
	assert.Empty(t, c.Get("family"))

	got, err := c.GetByID(hyp.ID())
	require.NoError(t, err)
	assert.Same(t, hyp, got)

	_, err = c.GetByID("unknown")
	assert.True(t, errors.IsNotFoundError(err))

	err = c.Add(neg)
	assert.True(t, errors.IsConflictError(err))
	assert.Error(t, c.Add(nil))
}

func TestAttributeContainerBind(t *testing.T) {
	s := store.NewMemoryStore()
	c := core.NewAttributeContainer("ann-1")

	before := core.NewAttribute("negated", true)
	require.NoError(t, c.Add(before))
	require.NoError(t, c.Bind(s))

	after := core.NewAttribute("family", true)
	require.NoError(t, c.Add(after))

	for _, a := range []*core.Attribute{before, after} {
		item, err := s.Get(a.ID())
		require.NoError(t, err)
		assert.Same(t, a, item)
		parent, _ := s.ParentID(a.ID())
		assert.Equal(t, "ann-1", parent)
	}
}

func TestAttributeCopy(t *testing.T) {
	a := core.NewAttribute("negated", true)
	a.Metadata = map[string]any{"rule": "pas de"}

	c := a.Copy()
	assert.NotEqual(t, a.ID(), c.ID())
	assert.Equal(t, a.Label, c.Label)
	assert.Equal(t, a.Value, c.Value)

	c.Metadata["rule"] = "changed"
	assert.Equal(t, "pas de", a.Metadata["rule"])
}

func TestAnnotationBaseOptions(t *testing.T) {
	attr := core.NewAttribute("negated", true)
	f := newFinding("disease",
		core.WithID("fixed-id"),
		core.WithAttrs(attr),
		core.WithKeys("entities", "entities"),
	)

	assert.Equal(t, "fixed-id", f.ID())
	assert.Equal(t, "disease", f.Label())
	assert.Equal(t, "fixed-id", f.Attrs().OwnerID())
	assert.Equal(t, []*core.Attribute{attr}, f.Attrs().All())
	assert.Equal(t, []string{"entities"}, f.Keys())
	assert.True(t, f.HasKey("entities"))
}

func TestAnnotationContainer(t *testing.T) {
	s := store.NewMemoryStore()
	c := core.NewAnnotationContainer[*finding]("doc-1", s)

	disease := newFinding("disease", core.WithKeys("umls"))
	drug := newFinding("drug")
	disease2 := newFinding("disease")

	require.NoError(t, c.Add(disease))
	require.NoError(t, c.Add(drug))
	require.NoError(t, c.Add(disease2))

	t.Run("duplicate id is rejected", func(t *testing.T) {
		err := c.Add(disease)
		require.Error(t, err)
		assert.True(t, errors.IsConflictError(err))
		assert.Equal(t, 3, c.Len())
	})

	t.Run("unfiltered get keeps insertion order", func(t *testing.T) {
		all, err := c.All()
		require.NoError(t, err)
		assert.Equal(t, []*finding{disease, drug, disease2}, all)
	})

	t.Run("label and key filters", func(t *testing.T) {
		byLabel, err := c.Get("disease", "")
		require.NoError(t, err)
		assert.Equal(t, []*finding{disease, disease2}, byLabel)

		byKey, err := c.Get("", "umls")
		require.NoError(t, err)
		assert.Equal(t, []*finding{disease}, byKey)

		both, err := c.Get("drug", "umls")
		require.NoError(t, err)
		assert.Empty(t, both)

		none, err := c.Get("procedure", "")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("get by id", func(t *testing.T) {
		got, err := c.GetByID(drug.ID())
		require.NoError(t, err)
		assert.Same(t, drug, got)

		_, err = c.GetByID("unknown")
		assert.True(t, errors.IsNotFoundError(err))
	})

	t.Run("attributes of added annotations are written to the store", func(t *testing.T) {
		attr := core.NewAttribute("negated", false)
		require.NoError(t, drug.Attrs().Add(attr))

		item, err := s.Get(attr.ID())
		require.NoError(t, err)
		assert.Same(t, attr, item)
	})
}

func TestCollection(t *testing.T) {
	c := core.NewCollection()
	assert.NotEmpty(t, c.ID())
	assert.Empty(t, c.Documents())
}
