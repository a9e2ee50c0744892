package pipeline

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/teranos/medkit/core/operation"
	"github.com/teranos/medkit/errors"
	"github.com/teranos/medkit/version"
)

// Definition describes a pipeline in a YAML or TOML file
//
//	medkit: ">= 0.3.0"
//	name: cleanup
//	input_keys: [raw]
//	output_keys: [sentences]
//	labels:
//	  raw: [RAW_TEXT]
//	steps:
//	  - operation: regexp_replacer
//	    config: {pattern: "\\s+", replacement: " "}
//	    input_keys: [raw]
//	    output_keys: [clean]
//	  - operation: sentence_tokenizer
//	    input_keys: [clean]
//	    output_keys: [sentences]
type Definition struct {
	// Medkit is a semver constraint on the medkit version
	Medkit     string   `yaml:"medkit,omitempty" toml:"medkit"`
	Name       string   `yaml:"name" toml:"name"`
	ID         string   `yaml:"id,omitempty" toml:"id"`
	InputKeys  []string `yaml:"input_keys" toml:"input_keys"`
	OutputKeys []string `yaml:"output_keys" toml:"output_keys"`

	// Labels maps input keys to the labels of the document annotations
	// fed to them when the pipeline runs on documents
	Labels map[string][]string `yaml:"labels,omitempty" toml:"labels"`

	Steps []StepDefinition `yaml:"steps" toml:"steps"`
}

// StepDefinition is either a registered operation or a nested pipeline
type StepDefinition struct {
	Operation string         `yaml:"operation,omitempty" toml:"operation"`
	Name      string         `yaml:"name,omitempty" toml:"name"`
	ID        string         `yaml:"id,omitempty" toml:"id"`
	Config    map[string]any `yaml:"config,omitempty" toml:"config"`
	Pipeline  *Definition    `yaml:"pipeline,omitempty" toml:"pipeline"`

	// InputKeys and OutputKeys default to the keys of a nested pipeline
	InputKeys  []string `yaml:"input_keys,omitempty" toml:"input_keys"`
	OutputKeys []string `yaml:"output_keys,omitempty" toml:"output_keys"`
}

// LoadDefinition reads a definition, YAML or TOML depending on the file
// extension.
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read pipeline definition %s", path)
	}

	var def *Definition
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		def, err = ParseYAML(data)
	case ".toml":
		def, err = ParseTOML(data)
	default:
		return nil, errors.WithHint(
			errors.NewInvalidRequestError("unsupported pipeline definition format: %s", path),
			"use a .yaml, .yml or .toml file")
	}
	if err != nil {
		return nil, errors.Wrapf(err, "pipeline definition %s", path)
	}
	return def, nil
}

// ParseYAML decodes a YAML definition
func ParseYAML(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "failed to parse YAML"), errors.ErrInvalidRequest)
	}
	return &def, nil
}

// ParseTOML decodes a TOML definition
func ParseTOML(data []byte) (*Definition, error) {
	var def Definition
	if _, err := toml.Decode(string(data), &def); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "failed to parse TOML"), errors.ErrInvalidRequest)
	}
	return &def, nil
}

// Validate checks the version constraint and the shape of the steps,
// nested pipelines included. Key wiring is checked by New.
func (d *Definition) Validate() error {
	if err := version.Compatible(d.Medkit); err != nil {
		return errors.Wrapf(err, "pipeline %s", d.Name)
	}
	if len(d.Steps) == 0 {
		return errors.NewInvalidRequestError("pipeline %s has no steps", d.Name)
	}
	for i, step := range d.Steps {
		hasOp, hasPipeline := step.Operation != "", step.Pipeline != nil
		if hasOp == hasPipeline {
			return errors.NewInvalidRequestError(
				"step %d of pipeline %s needs exactly one of operation or pipeline", i, d.Name)
		}
		if hasPipeline {
			if err := step.Pipeline.Validate(); err != nil {
				return errors.Wrapf(err, "step %d", i)
			}
		}
	}
	return nil
}

// Build validates the definition and creates its pipeline, building
// operations from reg. opts apply to nested pipelines too, except for the
// name and id which come from each definition unless overridden at the top
// level.
func (d *Definition) Build(reg *operation.Registry, opts ...Option) (*Pipeline, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if reg == nil {
		reg = operation.DefaultRegistry()
	}
	top := append([]Option{WithName(d.Name), WithID(d.ID)}, opts...)
	return d.build(reg, opts, top)
}

func (d *Definition) build(reg *operation.Registry, shared, own []Option) (*Pipeline, error) {
	steps := make([]Step, 0, len(d.Steps))
	for i, sd := range d.Steps {
		var (
			op  operation.Operation
			err error
		)
		inputKeys, outputKeys := sd.InputKeys, sd.OutputKeys

		if sd.Pipeline != nil {
			nestedOpts := append(append([]Option(nil), shared...), WithName(sd.Pipeline.Name), WithID(sd.Pipeline.ID))
			nested, buildErr := sd.Pipeline.build(reg, shared, nestedOpts)
			if buildErr != nil {
				return nil, errors.Wrapf(buildErr, "nested pipeline at step %d of %s", i, d.Name)
			}
			if len(inputKeys) == 0 {
				inputKeys = nested.InputKeys()
			}
			if len(outputKeys) == 0 {
				outputKeys = nested.OutputKeys()
			}
			op = nested
		} else {
			op, err = reg.New(sd.Operation, operation.Spec{Name: sd.Name, ID: sd.ID, Params: sd.Config})
			if err != nil {
				return nil, errors.Wrapf(err, "step %d of %s", i, d.Name)
			}
		}

		steps = append(steps, Step{Operation: op, InputKeys: inputKeys, OutputKeys: outputKeys})
	}

	p, err := New(steps, d.InputKeys, d.OutputKeys, own...)
	if err != nil {
		return nil, errors.Wrapf(err, "pipeline %s", d.Name)
	}
	return p, nil
}

// LabelsByInputKey returns the document labels of each input key. Input
// keys without labels read the raw annotation of the documents, labeled
// rawLabel.
func (d *Definition) LabelsByInputKey(rawLabel string) map[string][]string {
	out := make(map[string][]string, len(d.InputKeys))
	for _, key := range d.InputKeys {
		if labels := d.Labels[key]; len(labels) > 0 {
			out[key] = labels
		} else {
			out[key] = []string{rawLabel}
		}
	}
	return out
}
