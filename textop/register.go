package textop

import (
	"github.com/teranos/medkit/core/operation"
)

// Registered operation names
const (
	RegexpReplacerName    = "regexp_replacer"
	UnicodeNormalizerName = "unicode_normalizer"
	SentenceTokenizerName = "sentence_tokenizer"
	RegexpMatcherName     = "regexp_matcher"
)

func init() {
	if err := Register(operation.DefaultRegistry()); err != nil {
		panic(err)
	}
}

// Register adds the text operations to reg
func Register(reg *operation.Registry) error {
	factories := []struct {
		metadata operation.Metadata
		factory  operation.Factory
	}{
		{
			operation.Metadata{Name: RegexpReplacerName, Description: "Replace pattern matches, keeping track of spans"},
			func(spec operation.Spec) (operation.Operation, error) {
				var cfg RegexpReplacerConfig
				if err := operation.DecodeParams(spec.Params, &cfg); err != nil {
					return nil, err
				}
				return NewRegexpReplacer(spec.Name, spec.ID, cfg)
			},
		},
		{
			operation.Metadata{Name: UnicodeNormalizerName, Description: "Normalize unicode text and expand ligatures"},
			func(spec operation.Spec) (operation.Operation, error) {
				cfg := DefaultUnicodeNormalizerConfig()
				if err := operation.DecodeParams(spec.Params, &cfg); err != nil {
					return nil, err
				}
				return NewUnicodeNormalizer(spec.Name, spec.ID, cfg)
			},
		},
		{
			operation.Metadata{Name: SentenceTokenizerName, Description: "Split segments into sentences at end punctuation"},
			func(spec operation.Spec) (operation.Operation, error) {
				var cfg SentenceTokenizerConfig
				if err := operation.DecodeParams(spec.Params, &cfg); err != nil {
					return nil, err
				}
				return NewSentenceTokenizer(spec.Name, spec.ID, cfg)
			},
		},
		{
			operation.Metadata{Name: RegexpMatcherName, Description: "Create entities from regular expression rules"},
			func(spec operation.Spec) (operation.Operation, error) {
				var cfg RegexpMatcherConfig
				if err := operation.DecodeParams(spec.Params, &cfg); err != nil {
					return nil, err
				}
				return NewRegexpMatcher(spec.Name, spec.ID, cfg)
			},
		},
	}

	for _, f := range factories {
		if err := reg.Register(f.metadata, f.factory); err != nil {
			return err
		}
	}
	return nil
}
