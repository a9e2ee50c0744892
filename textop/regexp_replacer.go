package textop

import (
	"context"
	"regexp"

	"github.com/teranos/medkit/core"
	"github.com/teranos/medkit/core/operation"
	"github.com/teranos/medkit/core/text"
	"github.com/teranos/medkit/errors"
)

// RegexpReplacerConfig configures a RegexpReplacer
type RegexpReplacerConfig struct {
	Pattern string `mapstructure:"pattern"`
	// Replacement may refer to submatches with $1 or ${name}
	Replacement string `mapstructure:"replacement"`
	OutputLabel string `mapstructure:"output_label"`
}

// RegexpReplacer creates, for each input segment, a segment where every
// match of a pattern is replaced. The spans of the new segment track the
// replaced characters back to the original text.
type RegexpReplacer struct {
	*operation.Base
	re          *regexp.Regexp
	replacement string
	outputLabel string
}

// NewRegexpReplacer compiles cfg.Pattern
func NewRegexpReplacer(name, id string, cfg RegexpReplacerConfig) (*RegexpReplacer, error) {
	re, err := regexp.Compile(cfg.Pattern)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "invalid pattern %q", cfg.Pattern), errors.ErrInvalidRequest)
	}
	if cfg.OutputLabel == "" {
		cfg.OutputLabel = "CLEANED_TEXT"
	}
	return &RegexpReplacer{
		Base: operation.NewBase("RegexpReplacer", name, id, map[string]any{
			"pattern":      cfg.Pattern,
			"replacement":  cfg.Replacement,
			"output_label": cfg.OutputLabel,
		}),
		re:          re,
		replacement: cfg.Replacement,
		outputLabel: cfg.OutputLabel,
	}, nil
}

func (r *RegexpReplacer) Run(ctx context.Context, inputs [][]core.Annotation) ([][]core.Annotation, error) {
	segments, err := spannedInputs(r.Description().Name, inputs)
	if err != nil {
		return nil, err
	}

	out := make([]core.Annotation, 0, len(segments))
	for _, seg := range segments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		replaced, err := r.replace(seg)
		if err != nil {
			return nil, err
		}
		if err := r.Trace(replaced, seg); err != nil {
			return nil, err
		}
		out = append(out, replaced)
	}
	return [][]core.Annotation{out}, nil
}

func (r *RegexpReplacer) replace(seg text.Spanned) (*text.Segment, error) {
	s := seg.Text()
	idx := newRuneIndex(s)

	var (
		ranges       []text.Range
		replacements []string
	)
	for _, m := range r.re.FindAllStringSubmatchIndex(s, -1) {
		if m[0] == m[1] {
			// empty matches would insert at every position
			continue
		}
		ranges = append(ranges, idx.rng(m[0], m[1]))
		replacements = append(replacements, string(r.re.ExpandString(nil, r.replacement, s, m)))
	}

	newText, spans, err := text.Replace(s, seg.Spans(), ranges, replacements)
	if err != nil {
		return nil, errors.Wrapf(err, "replace in segment %s", seg.ID())
	}
	return text.NewSegment(r.outputLabel, newText, spans)
}
