package textop

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/teranos/medkit/core"
	"github.com/teranos/medkit/core/operation"
	"github.com/teranos/medkit/core/text"
	"github.com/teranos/medkit/errors"
)

// UnicodeNormalizerConfig configures a UnicodeNormalizer
type UnicodeNormalizerConfig struct {
	// Form is NFC, NFD, NFKC or NFKD
	Form         string `mapstructure:"form"`
	StripAccents bool   `mapstructure:"strip_accents"`
	// Ligatures expands æ and œ, which no normalization form decomposes
	Ligatures   bool   `mapstructure:"ligatures"`
	OutputLabel string `mapstructure:"output_label"`
}

// DefaultUnicodeNormalizerConfig returns the configuration used when a
// pipeline definition gives no config
func DefaultUnicodeNormalizerConfig() UnicodeNormalizerConfig {
	return UnicodeNormalizerConfig{Form: "NFKC", Ligatures: true, OutputLabel: "NORMALIZED_TEXT"}
}

var ligatures = map[rune]string{
	'Æ': "AE",
	'æ': "ae",
	'Œ': "OE",
	'œ': "oe",
}

// UnicodeNormalizer creates, for each input segment, a segment with its
// text normalized. Each base character is normalized together with the
// combining marks following it, and the spans of the new segment record
// every changed character cluster.
type UnicodeNormalizer struct {
	*operation.Base
	form        norm.Form
	strip       bool
	ligatures   bool
	outputLabel string
}

// NewUnicodeNormalizer validates cfg
func NewUnicodeNormalizer(name, id string, cfg UnicodeNormalizerConfig) (*UnicodeNormalizer, error) {
	forms := map[string]norm.Form{"NFC": norm.NFC, "NFD": norm.NFD, "NFKC": norm.NFKC, "NFKD": norm.NFKD}
	if cfg.Form == "" {
		cfg.Form = "NFKC"
	}
	form, ok := forms[strings.ToUpper(cfg.Form)]
	if !ok {
		return nil, errors.NewInvalidRequestError("unknown unicode normalization form %q", cfg.Form)
	}
	if cfg.OutputLabel == "" {
		cfg.OutputLabel = "NORMALIZED_TEXT"
	}
	return &UnicodeNormalizer{
		Base: operation.NewBase("UnicodeNormalizer", name, id, map[string]any{
			"form":          strings.ToUpper(cfg.Form),
			"strip_accents": cfg.StripAccents,
			"ligatures":     cfg.Ligatures,
			"output_label":  cfg.OutputLabel,
		}),
		form:        form,
		strip:       cfg.StripAccents,
		ligatures:   cfg.Ligatures,
		outputLabel: cfg.OutputLabel,
	}, nil
}

func (u *UnicodeNormalizer) Run(ctx context.Context, inputs [][]core.Annotation) ([][]core.Annotation, error) {
	segments, err := spannedInputs(u.Description().Name, inputs)
	if err != nil {
		return nil, err
	}

	out := make([]core.Annotation, 0, len(segments))
	for _, seg := range segments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		normalized, err := u.normalize(seg)
		if err != nil {
			return nil, err
		}
		if err := u.Trace(normalized, seg); err != nil {
			return nil, err
		}
		out = append(out, normalized)
	}
	return [][]core.Annotation{out}, nil
}

// Normalize returns s normalized the way segments are
func (u *UnicodeNormalizer) Normalize(s string) (string, error) {
	var b strings.Builder
	for _, cluster := range clusters(s) {
		n, err := u.normalizeCluster(cluster)
		if err != nil {
			return "", err
		}
		b.WriteString(n)
	}
	return b.String(), nil
}

func (u *UnicodeNormalizer) normalize(seg text.Spanned) (*text.Segment, error) {
	var (
		ranges       []text.Range
		replacements []string
	)
	pos := 0
	for _, cluster := range clusters(seg.Text()) {
		n, err := u.normalizeCluster(cluster)
		if err != nil {
			return nil, errors.Wrapf(err, "normalize segment %s", seg.ID())
		}
		length := utf8.RuneCountInString(cluster)
		if n != cluster {
			ranges = append(ranges, text.Range{Start: pos, End: pos + length})
			replacements = append(replacements, n)
		}
		pos += length
	}

	newText, spans, err := text.Replace(seg.Text(), seg.Spans(), ranges, replacements)
	if err != nil {
		return nil, errors.Wrapf(err, "normalize segment %s", seg.ID())
	}
	return text.NewSegment(u.outputLabel, newText, spans)
}

func (u *UnicodeNormalizer) normalizeCluster(cluster string) (string, error) {
	if u.ligatures {
		if r, _ := utf8.DecodeRuneInString(cluster); ligatures[r] != "" {
			cluster = ligatures[r] + cluster[utf8.RuneLen(r):]
		}
	}
	if !u.strip {
		return u.form.String(cluster), nil
	}
	decompose := norm.NFD
	if u.form == norm.NFKC || u.form == norm.NFKD {
		decompose = norm.NFKD
	}
	t := transform.Chain(decompose, runes.Remove(runes.In(unicode.Mn)), u.form)
	result, _, err := transform.String(t, cluster)
	if err != nil {
		return "", errors.Wrap(err, "strip accents")
	}
	return result, nil
}

// clusters splits s into base characters each followed by its combining
// marks
func clusters(s string) []string {
	var out []string
	start := 0
	for i, r := range s {
		if i > start && !unicode.Is(unicode.Mn, r) {
			out = append(out, s[start:i])
			start = i
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}
