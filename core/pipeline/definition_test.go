package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/medkit/core"
	"github.com/teranos/medkit/core/operation"
	"github.com/teranos/medkit/core/text"
	"github.com/teranos/medkit/errors"
)

func testRegistry(t *testing.T) *operation.Registry {
	t.Helper()
	reg := operation.NewRegistry()

	caseOp := func(spec operation.Spec) (operation.Operation, error) {
		var params struct {
			Upper bool   `mapstructure:"upper"`
			Label string `mapstructure:"label"`
		}
		if err := operation.DecodeParams(spec.Params, &params); err != nil {
			return nil, err
		}
		transform := strings.ToLower
		if params.Upper {
			transform = strings.ToUpper
		}
		return deriveOp(spec.Name, params.Label, transform), nil
	}
	require.NoError(t, reg.Register(operation.Metadata{Name: "case", Description: "change case"}, caseOp))
	return reg
}

const nestedYAML = `
medkit: ">= 0.1.0"
name: outer
input_keys: [x]
output_keys: [z]
labels:
  x: [RAW_TEXT]
steps:
  - pipeline:
      name: inner
      input_keys: [in]
      output_keys: [out]
      steps:
        - operation: case
          name: shout
          config: {upper: true, label: loud}
          input_keys: [in]
          output_keys: [out]
    input_keys: [x]
    output_keys: [y]
  - operation: case
    config: {label: quiet}
    input_keys: [y]
    output_keys: [z]
`

const nestedTOML = `
medkit = ">= 0.1.0"
name = "outer"
input_keys = ["x"]
output_keys = ["z"]

[[steps]]
input_keys = ["x"]
output_keys = ["y"]

  [steps.pipeline]
  name = "inner"
  input_keys = ["in"]
  output_keys = ["out"]

    [[steps.pipeline.steps]]
    operation = "case"
    name = "shout"
    input_keys = ["in"]
    output_keys = ["out"]
    config = { upper = true, label = "loud" }

[[steps]]
operation = "case"
input_keys = ["y"]
output_keys = ["z"]
config = { label = "quiet" }
`

func TestLoadDefinition(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"def.yaml": nestedYAML,
		"def.toml": nestedTOML,
	}

	for name, content := range files {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, os.WriteFile(path, []byte(content), 0644))

			def, err := LoadDefinition(path)
			require.NoError(t, err)
			assert.Equal(t, "outer", def.Name)
			require.Len(t, def.Steps, 2)
			require.NotNil(t, def.Steps[0].Pipeline)
			assert.Equal(t, "inner", def.Steps[0].Pipeline.Name)
			assert.Equal(t, true, def.Steps[0].Pipeline.Steps[0].Config["upper"])

			p, err := def.Build(testRegistry(t))
			require.NoError(t, err)
			assert.Equal(t, "outer", p.Description().Name)
			require.Len(t, p.Steps(), 2)
			inner, ok := p.Steps()[0].Operation.(*Pipeline)
			require.True(t, ok)
			assert.Equal(t, "inner", inner.Description().Name)
			assert.Equal(t, "shout", inner.Steps()[0].Operation.Description().Name)

			seg, err := text.NewSegment("raw", "Fever", []text.AnySpan{text.Span{Start: 0, End: 5}})
			require.NoError(t, err)
			out, err := p.Run(context.Background(), [][]core.Annotation{{seg}})
			require.NoError(t, err)
			require.Len(t, out[0], 1)
			assert.Equal(t, "quiet", out[0][0].Label())
			assert.Equal(t, "fever", out[0][0].(*text.Segment).Text())
		})
	}
}

func TestDefinitionNestedKeysDefault(t *testing.T) {
	def, err := ParseYAML([]byte(`
name: outer
input_keys: [in]
output_keys: [out]
steps:
  - pipeline:
      name: inner
      input_keys: [in]
      output_keys: [out]
      steps:
        - operation: case
          config: {label: l}
          input_keys: [in]
          output_keys: [out]
`))
	require.NoError(t, err)

	p, err := def.Build(testRegistry(t), WithName("renamed"))
	require.NoError(t, err)
	assert.Equal(t, "renamed", p.Description().Name)
	step := p.Steps()[0]
	assert.Equal(t, []string{"in"}, step.InputKeys)
	assert.Equal(t, []string{"out"}, step.OutputKeys)
	assert.Equal(t, "inner", step.Operation.Description().Name)

	assert.Equal(t, map[string][]string{"in": {text.RawLabel}}, def.LabelsByInputKey(text.RawLabel))
}

func TestDefinitionErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"incompatible version", "medkit: \">= 99.0\"\nname: p\nsteps: [{operation: case}]"},
		{"bad constraint", "medkit: \"not a version\"\nname: p\nsteps: [{operation: case}]"},
		{"no steps", "name: p"},
		{"operation and pipeline", "name: p\nsteps: [{operation: case, pipeline: {name: q}}]"},
		{"neither", "name: p\nsteps: [{input_keys: [x]}]"},
		{"invalid nested", "name: p\nsteps: [{pipeline: {name: q}}]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := ParseYAML([]byte(tt.yaml))
			require.NoError(t, err)
			err = def.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsInvalidRequestError(err))
		})
	}

	t.Run("unknown operation", func(t *testing.T) {
		def, err := ParseYAML([]byte("name: p\ninput_keys: [x]\noutput_keys: [y]\nsteps: [{operation: nope, input_keys: [x], output_keys: [y]}]"))
		require.NoError(t, err)
		_, err = def.Build(testRegistry(t))
		assert.True(t, errors.IsNotFoundError(err))
	})

	t.Run("unknown param", func(t *testing.T) {
		def, err := ParseYAML([]byte("name: p\ninput_keys: [x]\noutput_keys: [y]\nsteps: [{operation: case, config: {colour: red}, input_keys: [x], output_keys: [y]}]"))
		require.NoError(t, err)
		_, err = def.Build(testRegistry(t))
		assert.True(t, errors.IsInvalidRequestError(err))
	})

	t.Run("unsupported extension", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "def.json")
		require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))
		_, err := LoadDefinition(path)
		assert.True(t, errors.IsInvalidRequestError(err))
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := ParseYAML([]byte("steps: [unclosed"))
		assert.True(t, errors.IsInvalidRequestError(err))
	})
}
