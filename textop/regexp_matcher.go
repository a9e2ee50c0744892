package textop

import (
	"context"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/teranos/medkit/core"
	"github.com/teranos/medkit/core/operation"
	"github.com/teranos/medkit/core/text"
	"github.com/teranos/medkit/errors"
)

// Rule describes the entities found by a RegexpMatcher
type Rule struct {
	ID     string `mapstructure:"id" yaml:"id"`
	Label  string `mapstructure:"label" yaml:"label"`
	Regexp string `mapstructure:"regexp" yaml:"regexp"`
	// RegexpExclude skips segments matching it
	RegexpExclude string `mapstructure:"regexp_exclude" yaml:"regexp_exclude,omitempty"`
	// IndexExtract is the submatch giving the entity, 0 for the whole match
	IndexExtract   int                 `mapstructure:"index_extract" yaml:"index_extract,omitempty"`
	CaseSensitive  bool                `mapstructure:"case_sensitive" yaml:"case_sensitive,omitempty"`
	Version        string              `mapstructure:"version" yaml:"version,omitempty"`
	Normalizations []RuleNormalization `mapstructure:"normalizations" yaml:"normalizations,omitempty"`
}

// RuleNormalization is attached to every entity found by a rule
type RuleNormalization struct {
	KBName string `mapstructure:"kb_name" yaml:"kb_name"`
	KBID   string `mapstructure:"kb_id" yaml:"kb_id"`
}

// RegexpMatcherConfig configures a RegexpMatcher. Rules from RulesFile are
// added after Rules.
type RegexpMatcherConfig struct {
	Rules     []Rule `mapstructure:"rules"`
	RulesFile string `mapstructure:"rules_file"`
	// AttrsToCopy are labels of segment attributes copied to the entities
	// found in the segment, such as negation
	AttrsToCopy []string `mapstructure:"attrs_to_copy"`
}

// LoadRules reads a YAML list of rules
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read rules file %s", path)
	}
	var rules []Rule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "failed to parse rules file %s", path), errors.ErrInvalidRequest)
	}
	return rules, nil
}

type compiledRule struct {
	Rule
	re      *regexp.Regexp
	exclude *regexp.Regexp
}

// RegexpMatcher creates entities from the matches of rules in segments
type RegexpMatcher struct {
	*operation.Base
	rules       []compiledRule
	attrsToCopy []string
}

// NewRegexpMatcher compiles the rules of cfg
func NewRegexpMatcher(name, id string, cfg RegexpMatcherConfig) (*RegexpMatcher, error) {
	rules := cfg.Rules
	if cfg.RulesFile != "" {
		loaded, err := LoadRules(cfg.RulesFile)
		if err != nil {
			return nil, err
		}
		rules = append(append([]Rule(nil), rules...), loaded...)
	}
	if len(rules) == 0 {
		return nil, errors.WithHint(
			errors.NewInvalidRequestError("regexp matcher has no rules"),
			"set rules or rules_file")
	}

	compiled := make([]compiledRule, len(rules))
	ruleIDs := make([]string, len(rules))
	for i, rule := range rules {
		c, err := compileRule(rule)
		if err != nil {
			return nil, errors.Wrapf(err, "rule %d (%s)", i, rule.ID)
		}
		compiled[i] = c
		ruleIDs[i] = rule.ID
	}

	return &RegexpMatcher{
		Base: operation.NewBase("RegexpMatcher", name, id, map[string]any{
			"rules":         ruleIDs,
			"attrs_to_copy": cfg.AttrsToCopy,
		}),
		rules:       compiled,
		attrsToCopy: cfg.AttrsToCopy,
	}, nil
}

func compileRule(rule Rule) (compiledRule, error) {
	if rule.Label == "" || rule.Regexp == "" {
		return compiledRule{}, errors.NewInvalidRequestError("rule needs a label and a regexp")
	}
	flags := ""
	if !rule.CaseSensitive {
		flags = "(?i)"
	}
	re, err := regexp.Compile(flags + rule.Regexp)
	if err != nil {
		return compiledRule{}, errors.Mark(errors.Wrap(err, "invalid regexp"), errors.ErrInvalidRequest)
	}
	if rule.IndexExtract < 0 || rule.IndexExtract > re.NumSubexp() {
		return compiledRule{}, errors.NewInvalidRequestError(
			"index_extract %d but regexp has %d groups", rule.IndexExtract, re.NumSubexp())
	}

	c := compiledRule{Rule: rule, re: re}
	if rule.RegexpExclude != "" {
		c.exclude, err = regexp.Compile(flags + rule.RegexpExclude)
		if err != nil {
			return compiledRule{}, errors.Mark(errors.Wrap(err, "invalid regexp_exclude"), errors.ErrInvalidRequest)
		}
	}
	return c, nil
}

func (m *RegexpMatcher) Run(ctx context.Context, inputs [][]core.Annotation) ([][]core.Annotation, error) {
	segments, err := spannedInputs(m.Description().Name, inputs)
	if err != nil {
		return nil, err
	}

	var out []core.Annotation
	for _, seg := range segments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, rule := range m.rules {
			entities, err := m.match(seg, rule)
			if err != nil {
				return nil, errors.Wrapf(err, "rule %s", rule.ID)
			}
			out = append(out, entities...)
		}
	}
	return [][]core.Annotation{out}, nil
}

func (m *RegexpMatcher) match(seg text.Spanned, rule compiledRule) ([]core.Annotation, error) {
	raw := seg.Text()
	if rule.exclude != nil && rule.exclude.MatchString(raw) {
		return nil, nil
	}
	idx := newRuneIndex(raw)

	var out []core.Annotation
	for _, loc := range rule.re.FindAllStringSubmatchIndex(raw, -1) {
		start, end := loc[2*rule.IndexExtract], loc[2*rule.IndexExtract+1]
		if start < 0 || start == end {
			continue
		}

		entityText, spans, err := text.Extract(raw, seg.Spans(), []text.Range{idx.rng(start, end)})
		if err != nil {
			return nil, err
		}
		entity, err := text.NewEntity(rule.Label, entityText, spans, core.WithMetadata(map[string]any{
			"id_regexp": rule.ID,
			"version":   rule.Version,
		}))
		if err != nil {
			return nil, err
		}
		if err := m.Trace(entity, seg); err != nil {
			return nil, err
		}

		for _, label := range m.attrsToCopy {
			for _, attr := range seg.Attrs().Get(label) {
				copied := attr.Copy()
				if err := entity.Attrs().Add(copied); err != nil {
					return nil, err
				}
				if err := m.Trace(copied, attr); err != nil {
					return nil, err
				}
			}
		}
		for _, n := range rule.Normalizations {
			attr, err := entity.AddNorm(text.Normalization{KBName: n.KBName, KBID: n.KBID, TermVariant: entityText})
			if err != nil {
				return nil, err
			}
			if err := m.Trace(attr, seg); err != nil {
				return nil, err
			}
		}
		out = append(out, entity)
	}
	return out, nil
}
