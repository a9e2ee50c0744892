// Package textop provides rule-based operations on text segments: cleanup
// with span tracking, sentence splitting and regular expression entity
// matching. The operations register themselves in the default operation
// registry so that pipeline definitions can refer to them by name.
package textop

import (
	"unicode/utf8"

	"github.com/teranos/medkit/core"
	"github.com/teranos/medkit/core/text"
	"github.com/teranos/medkit/errors"
)

// spannedInputs checks that an operation got one input list of text
// segments or entities.
func spannedInputs(name string, inputs [][]core.Annotation) ([]text.Spanned, error) {
	if len(inputs) != 1 {
		return nil, errors.NewInvalidRequestError("%s takes 1 input, got %d", name, len(inputs))
	}
	out := make([]text.Spanned, len(inputs[0]))
	for i, ann := range inputs[0] {
		s, ok := ann.(text.Spanned)
		if !ok {
			return nil, errors.NewInvalidRequestError("%s needs text segments, got %T", name, ann)
		}
		out[i] = s
	}
	return out, nil
}

// runeIndex converts byte offsets of a string, as returned by the regexp
// package, to rune offsets used by spans.
type runeIndex []int

func newRuneIndex(s string) runeIndex {
	idx := make(runeIndex, len(s)+1)
	n := 0
	for b := 0; b < len(s); {
		_, size := utf8.DecodeRuneInString(s[b:])
		for i := 0; i < size; i++ {
			idx[b+i] = n
		}
		b += size
		n++
	}
	idx[len(s)] = n
	return idx
}

func (idx runeIndex) rng(start, end int) text.Range {
	return text.Range{Start: idx[start], End: idx[end]}
}
