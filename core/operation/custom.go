package operation

import (
	"context"

	"github.com/teranos/medkit/core"
	"github.com/teranos/medkit/errors"
)

// CustomKind is the kind of function wrapped by a custom operation
type CustomKind string

const (
	// CreateOneToN functions create N new annotations from one input
	CreateOneToN CustomKind = "CREATE_ONE_TO_N"
	// ExtractOneToN functions return N existing annotations for one input
	ExtractOneToN CustomKind = "EXTRACT_ONE_TO_N"
	// Filter functions keep or drop each input
	Filter CustomKind = "FILTER"
)

// Custom is an operation built from a Go function. It reads one input key
// and writes one output key. Annotations returned by a CreateOneToN
// function are traced as derived from the input they were created from.
type Custom struct {
	*Base
	kind   CustomKind
	oneToN func(core.Annotation) ([]core.Annotation, error)
	keep   func(core.Annotation) bool
}

// NewCreateOneToN wraps a function creating annotations
func NewCreateOneToN(name string, fn func(core.Annotation) ([]core.Annotation, error)) *Custom {
	return newCustom(name, CreateOneToN, fn, nil)
}

// NewExtractOneToN wraps a function returning existing annotations
func NewExtractOneToN(name string, fn func(core.Annotation) ([]core.Annotation, error)) *Custom {
	return newCustom(name, ExtractOneToN, fn, nil)
}

// NewFilter wraps a predicate
func NewFilter(name string, fn func(core.Annotation) bool) *Custom {
	return newCustom(name, Filter, nil, fn)
}

func newCustom(name string, kind CustomKind, oneToN func(core.Annotation) ([]core.Annotation, error), keep func(core.Annotation) bool) *Custom {
	return &Custom{
		Base:   NewBase("Custom", name, "", map[string]any{"function_type": string(kind)}),
		kind:   kind,
		oneToN: oneToN,
		keep:   keep,
	}
}

// Kind returns the function kind
func (c *Custom) Kind() CustomKind { return c.kind }

func (c *Custom) Run(ctx context.Context, inputs [][]core.Annotation) ([][]core.Annotation, error) {
	if len(inputs) != 1 {
		return nil, errors.NewInvalidRequestError("custom operation %s takes 1 input, got %d", c.Description().Name, len(inputs))
	}

	out := make([]core.Annotation, 0, len(inputs[0]))
	for _, in := range inputs[0] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if c.kind == Filter {
			if c.keep(in) {
				out = append(out, in)
			}
			continue
		}

		produced, err := c.oneToN(in)
		if err != nil {
			return nil, errors.Wrapf(err, "custom operation %s", c.Description().Name)
		}
		out = append(out, produced...)
		if c.kind == CreateOneToN {
			for _, p := range produced {
				if err := c.Trace(p, in); err != nil {
					return nil, err
				}
			}
		}
	}
	return [][]core.Annotation{out}, nil
}
