package text

import (
	"sort"
	"strings"

	"github.com/teranos/medkit/errors"
)

// Range is a half-open range [Start, End) of the current text, as opposed
// to a Span which refers to the original text.
type Range struct {
	Start int
	End   int
}

// Replace replaces each range of text with the corresponding replacement and
// returns the new text with its spans. Untouched characters keep their
// spans; each replacement becomes a ModifiedSpan referencing the original
// spans it replaced. An empty replacement removes the range.
//
// Ranges must be within the text, sorted and non-overlapping.
func Replace(text string, spans []AnySpan, ranges []Range, replacements []string) (string, []AnySpan, error) {
	runes := []rune(text)
	if err := checkSpans(runes, spans); err != nil {
		return "", nil, err
	}
	if len(ranges) != len(replacements) {
		return "", nil, errors.NewInvalidRequestError("ranges and replacements should have the same dimension, got %d and %d", len(ranges), len(replacements))
	}
	if err := checkRanges(runes, ranges); err != nil {
		return "", nil, err
	}
	if len(ranges) == 0 {
		return text, spans, nil
	}

	lengths := make([]int, len(replacements))
	for i, r := range replacements {
		lengths[i] = len([]rune(r))
	}
	return spliceText(runes, ranges, replacements), replaceInSpans(spans, ranges, lengths), nil
}

// Remove deletes each range of text together with its spans.
func Remove(text string, spans []AnySpan, ranges []Range) (string, []AnySpan, error) {
	runes := []rune(text)
	if err := checkSpans(runes, spans); err != nil {
		return "", nil, err
	}
	if err := checkRanges(runes, ranges); err != nil {
		return "", nil, err
	}
	if len(ranges) == 0 {
		return text, spans, nil
	}
	return spliceText(runes, ranges, make([]string, len(ranges))), removeInSpans(spans, ranges), nil
}

// Extract returns the concatenation of the given ranges of text and the
// corresponding spans, split at the range boundaries.
func Extract(text string, spans []AnySpan, ranges []Range) (string, []AnySpan, error) {
	runes := []rune(text)
	if err := checkSpans(runes, spans); err != nil {
		return "", nil, err
	}
	if err := checkRanges(runes, ranges); err != nil {
		return "", nil, err
	}
	if len(ranges) == 0 {
		return "", []AnySpan{}, nil
	}

	var b strings.Builder
	for _, r := range ranges {
		b.WriteString(string(runes[r.Start:r.End]))
	}
	return b.String(), extractInSpans(spans, ranges), nil
}

// Insert inserts strings at the given positions. Inserted text is described
// by a ModifiedSpan with no replaced spans.
func Insert(text string, spans []AnySpan, positions []int, insertions []string) (string, []AnySpan, error) {
	runes := []rune(text)
	if err := checkSpans(runes, spans); err != nil {
		return "", nil, err
	}
	if len(positions) != len(insertions) {
		return "", nil, errors.NewInvalidRequestError("positions and insertions should have the same dimension, got %d and %d", len(positions), len(insertions))
	}
	ranges := make([]Range, len(positions))
	for i, p := range positions {
		ranges[i] = Range{Start: p, End: p}
	}
	if err := checkRanges(runes, ranges); err != nil {
		return "", nil, err
	}
	if len(ranges) == 0 {
		return text, spans, nil
	}

	lengths := make([]int, len(insertions))
	for i, s := range insertions {
		lengths[i] = len([]rune(s))
	}
	// inserting is replacing zero-length ranges
	return spliceText(runes, ranges, insertions), replaceInSpans(spans, ranges, lengths), nil
}

// Move relocates the characters of rng to destination (expressed in the
// coordinates of the text before the move), keeping their spans.
// destination must not fall strictly inside the moved range.
func Move(text string, spans []AnySpan, rng Range, destination int) (string, []AnySpan, error) {
	runes := []rune(text)
	if err := checkSpans(runes, spans); err != nil {
		return "", nil, err
	}
	if err := checkRanges(runes, []Range{rng}); err != nil {
		return "", nil, err
	}
	if destination < 0 || destination > len(runes) {
		return "", nil, errors.NewInvalidRequestError("destination %d out of text of length %d", destination, len(runes))
	}
	if rng.Start < destination && destination <= rng.End {
		return "", nil, errors.NewInvalidRequestError("destination %d is inside moved range [%d, %d)", destination, rng.Start, rng.End)
	}

	moved := append([]rune(nil), runes[rng.Start:rng.End]...)
	rest := append(append([]rune(nil), runes[:rng.Start]...), runes[rng.End:]...)
	dest := destination
	if dest > rng.End {
		dest -= rng.End - rng.Start
	}
	out := make([]rune, 0, len(runes))
	out = append(out, rest[:dest]...)
	out = append(out, moved...)
	out = append(out, rest[dest:]...)

	return string(out), moveInSpans(spans, rng, destination), nil
}

// Concatenate joins texts and their spans
func Concatenate(texts []string, allSpans [][]AnySpan) (string, []AnySpan, error) {
	if len(texts) != len(allSpans) {
		return "", nil, errors.NewInvalidRequestError("texts and spans should have the same dimension, got %d and %d", len(texts), len(allSpans))
	}
	var b strings.Builder
	spans := make([]AnySpan, 0)
	for i, t := range texts {
		b.WriteString(t)
		spans = append(spans, allSpans[i]...)
	}
	return b.String(), spans, nil
}

// NormalizeSpans replaces every ModifiedSpan with the original spans it
// refers to, sorts the result by start and merges contiguous spans.
// Inserted text, having no original spans, disappears.
func NormalizeSpans(spans []AnySpan) []Span {
	var all []Span
	for _, s := range spans {
		switch v := s.(type) {
		case ModifiedSpan:
			all = append(all, v.ReplacedSpans...)
		case Span:
			all = append(all, v)
		}
	}
	if len(all) == 0 {
		return []Span{}
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Start < all[j].Start })

	merged := []Span{all[0]}
	for _, s := range all[1:] {
		prev := &merged[len(merged)-1]
		if s.Start == prev.End {
			prev.End = s.End
		} else {
			merged = append(merged, s)
		}
	}
	return merged
}

// CleanUpGapsInNormalizedSpans merges consecutive normalized spans separated
// by a gap of at most maxGapLength characters once surrounding whitespace is
// stripped. text is the original text the spans refer to.
//
//	"heart failure", [Span(0, 5), Span(6, 13)] -> [Span(0, 13)]
func CleanUpGapsInNormalizedSpans(spans []Span, text string, maxGapLength int) []Span {
	if len(spans) == 0 {
		return []Span{}
	}
	runes := []rune(text)

	merged := []Span{spans[0]}
	for _, s := range spans[1:] {
		prev := &merged[len(merged)-1]
		gapStart, gapEnd := clamp(prev.End, len(runes)), clamp(s.Start, len(runes))
		gap := ""
		if gapStart < gapEnd {
			gap = string(runes[gapStart:gapEnd])
		}
		if len([]rune(strings.TrimSpace(gap))) <= maxGapLength {
			prev.End = s.End
		} else {
			merged = append(merged, s)
		}
	}
	return merged
}

func clamp(v, limit int) int {
	if v < 0 {
		return 0
	}
	if v > limit {
		return limit
	}
	return v
}

func checkSpans(runes []rune, spans []AnySpan) error {
	if total := TotalLength(spans); total != len(runes) {
		return errors.NewInvalidRequestError("total span length (%d) should be equal to text length (%d)", total, len(runes))
	}
	return nil
}

func checkRanges(runes []rune, ranges []Range) error {
	prevEnd := 0
	for i, r := range ranges {
		if r.Start < 0 || r.End < r.Start || r.End > len(runes) {
			return errors.WithDetailf(
				errors.NewInvalidRequestError("range [%d, %d) is out of text bounds", r.Start, r.End),
				"text length is %d", len(runes))
		}
		if i > 0 && r.Start < prevEnd {
			return errors.NewInvalidRequestError("ranges should be sorted and non-overlapping: [%d, %d) starts before %d", r.Start, r.End, prevEnd)
		}
		prevEnd = r.End
	}
	return nil
}

// spliceText rebuilds the text with each range replaced by its replacement.
func spliceText(runes []rune, ranges []Range, replacements []string) string {
	var b strings.Builder
	prev := 0
	for i, r := range ranges {
		b.WriteString(string(runes[prev:r.Start]))
		b.WriteString(replacements[i])
		prev = r.End
	}
	b.WriteString(string(runes[prev:]))
	return b.String()
}

// replaceInSpans walks spans and ranges together, copying spans outside of
// ranges, splitting spans at range boundaries and gathering the original
// spans overlapped by each range into a ModifiedSpan of the replacement
// length. A zero replacement length drops the range entirely.
func replaceInSpans(spans []AnySpan, ranges []Range, replacementLengths []int) []AnySpan {
	out := make([]AnySpan, 0, len(spans)+len(ranges))

	// current span, with start and end in current text coordinates
	spanIdx := 0
	var span AnySpan
	spanStart, spanEnd := 0, 0
	if len(spans) > 0 {
		span = spans[0]
		spanEnd = span.Len()
	}

	rangeIdx := 0
	rng := ranges[0]
	repLen := replacementLengths[0]
	replaced := []Span{}

	for spanIdx < len(spans) || rangeIdx < len(ranges) {
		// every span overlapping the range has been seen: emit the replacement
		if rangeIdx < len(ranges) && rng.End <= spanStart {
			if repLen > 0 {
				out = append(out, ModifiedSpan{Length: repLen, ReplacedSpans: NormalizeSpans(toAnySpans(replaced))})
			}
			rangeIdx++
			if rangeIdx < len(ranges) {
				rng = ranges[rangeIdx]
				repLen = replacementLengths[rangeIdx]
				replaced = []Span{}
			}
		}

		// span fully handled or entirely before the range: keep it
		if spanEnd == spanStart || rangeIdx == len(ranges) || spanEnd <= rng.Start {
			if spanEnd != spanStart {
				out = append(out, span)
			}
			spanIdx++
			spanStart = spanEnd
			if spanIdx < len(spans) {
				span = spans[spanIdx]
				spanEnd = spanStart + span.Len()
			}
			continue
		}

		lengthBefore := max(rng.Start-spanStart, 0)
		lengthAfter := max(spanEnd-rng.End, 0)

		if repLen > 0 && lengthBefore+lengthAfter < span.Len() {
			switch s := span.(type) {
			case Span:
				replaced = append(replaced, Span{Start: s.Start + lengthBefore, End: s.End - lengthAfter})
			case ModifiedSpan:
				// the part of a modified span overlapping the range cannot be
				// narrowed down, reference all of its replaced spans
				replaced = append(replaced, s.ReplacedSpans...)
			}
		}

		if lengthBefore > 0 {
			switch s := span.(type) {
			case Span:
				out = append(out, Span{Start: s.Start, End: s.Start + lengthBefore})
			case ModifiedSpan:
				out = append(out, ModifiedSpan{Length: lengthBefore, ReplacedSpans: s.ReplacedSpans})
			}
		}

		// the remainder after the range becomes the current span
		if lengthAfter > 0 {
			switch s := span.(type) {
			case Span:
				span = Span{Start: s.End - lengthAfter, End: s.End}
			case ModifiedSpan:
				span = ModifiedSpan{Length: lengthAfter, ReplacedSpans: s.ReplacedSpans}
			}
		}
		spanStart = spanEnd - lengthAfter
	}

	return out
}

func toAnySpans(spans []Span) []AnySpan {
	out := make([]AnySpan, len(spans))
	for i, s := range spans {
		out[i] = s
	}
	return out
}

func removeInSpans(spans []AnySpan, ranges []Range) []AnySpan {
	return replaceInSpans(spans, ranges, make([]int, len(ranges)))
}

// extractInSpans keeps the spans of ranges by removing everything else
func extractInSpans(spans []AnySpan, ranges []Range) []AnySpan {
	toRemove := make([]Range, 0, len(ranges)+1)
	toRemove = append(toRemove, Range{Start: 0, End: ranges[0].Start})
	for i := 1; i < len(ranges); i++ {
		toRemove = append(toRemove, Range{Start: ranges[i-1].End, End: ranges[i].Start})
	}
	toRemove = append(toRemove, Range{Start: ranges[len(ranges)-1].End, End: TotalLength(spans)})
	return removeInSpans(spans, toRemove)
}

func moveInSpans(spans []AnySpan, rng Range, destination int) []AnySpan {
	moved := extractInSpans(spans, []Range{rng})
	rest := removeInSpans(spans, []Range{rng})
	if destination > rng.End {
		destination -= rng.End - rng.Start
	}

	var before, after []AnySpan
	if destination > 0 {
		before = extractInSpans(rest, []Range{{Start: 0, End: destination}})
	}
	if total := TotalLength(rest); destination < total {
		after = extractInSpans(rest, []Range{{Start: destination, End: total}})
	}

	out := make([]AnySpan, 0, len(before)+len(moved)+len(after))
	out = append(out, before...)
	out = append(out, moved...)
	return append(out, after...)
}
