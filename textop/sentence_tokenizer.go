package textop

import (
	"context"
	"regexp"
	"strings"

	"github.com/teranos/medkit/core"
	"github.com/teranos/medkit/core/operation"
	"github.com/teranos/medkit/core/text"
	"github.com/teranos/medkit/errors"
)

// SentenceTokenizerConfig configures a SentenceTokenizer
type SentenceTokenizerConfig struct {
	OutputLabel string   `mapstructure:"output_label"`
	PunctChars  []string `mapstructure:"punct_chars"`
	// KeepPunct includes the end punctuation in the sentences
	KeepPunct bool `mapstructure:"keep_punct"`
}

// DefaultPunctChars end sentences
var DefaultPunctChars = []string{"\r", "\n", ".", ";", "?", "!"}

// SentenceTokenizer splits segments into sentences at end punctuation. A
// trailing sentence without punctuation is kept. Leading blanks are left
// out of sentences.
type SentenceTokenizer struct {
	*operation.Base
	re          *regexp.Regexp
	outputLabel string
	keepPunct   bool
}

// NewSentenceTokenizer builds the sentence pattern from cfg.PunctChars
func NewSentenceTokenizer(name, id string, cfg SentenceTokenizerConfig) (*SentenceTokenizer, error) {
	if cfg.OutputLabel == "" {
		cfg.OutputLabel = "SENTENCE"
	}
	if len(cfg.PunctChars) == 0 {
		cfg.PunctChars = DefaultPunctChars
	}

	var class strings.Builder
	for _, c := range cfg.PunctChars {
		if c == "" {
			return nil, errors.NewInvalidRequestError("empty punctuation character")
		}
		class.WriteString(regexp.QuoteMeta(c))
	}
	re, err := regexp.Compile(`( *)(.+?)([` + class.String() + `]+|$)`)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "invalid punctuation characters"), errors.ErrInvalidRequest)
	}

	return &SentenceTokenizer{
		Base: operation.NewBase("SentenceTokenizer", name, id, map[string]any{
			"output_label": cfg.OutputLabel,
			"punct_chars":  cfg.PunctChars,
			"keep_punct":   cfg.KeepPunct,
		}),
		re:          re,
		outputLabel: cfg.OutputLabel,
		keepPunct:   cfg.KeepPunct,
	}, nil
}

func (s *SentenceTokenizer) Run(ctx context.Context, inputs [][]core.Annotation) ([][]core.Annotation, error) {
	segments, err := spannedInputs(s.Description().Name, inputs)
	if err != nil {
		return nil, err
	}

	var out []core.Annotation
	for _, seg := range segments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sentences, err := s.split(seg)
		if err != nil {
			return nil, err
		}
		for _, sentence := range sentences {
			if err := s.Trace(sentence, seg); err != nil {
				return nil, err
			}
			out = append(out, sentence)
		}
	}
	return [][]core.Annotation{out}, nil
}

func (s *SentenceTokenizer) split(seg text.Spanned) ([]core.Annotation, error) {
	raw := seg.Text()
	idx := newRuneIndex(raw)

	var out []core.Annotation
	for _, m := range s.re.FindAllStringSubmatchIndex(raw, -1) {
		start, end := m[4], m[5]
		if strings.TrimSpace(raw[start:end]) == "" {
			continue
		}
		if s.keepPunct {
			end = m[7]
		}

		sentenceText, spans, err := text.Extract(raw, seg.Spans(), []text.Range{idx.rng(start, end)})
		if err != nil {
			return nil, errors.Wrapf(err, "extract sentence of segment %s", seg.ID())
		}
		sentence, err := text.NewSegment(s.outputLabel, sentenceText, spans)
		if err != nil {
			return nil, err
		}
		out = append(out, sentence)
	}
	return out, nil
}
