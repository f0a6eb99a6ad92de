package chat

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Delimiter separates individual chat bubbles inside a single model reply.
const Delimiter = "[MSG_SPLIT]"

var statusTagRe = regexp.MustCompile(`\[STATUS:\s*(.*?)\]`)

// sentence terminators for the fallback split, CJK and Western
var sentenceSplitRe = regexp.MustCompile(`([。！？.!?\n])`)

// SegmentResult is the parsed form of one raw model reply.
type SegmentResult struct {
	// Mood is the status extracted from a leading [STATUS: ...] tag,
	// empty when the reply carried none.
	Mood string
	// Fragments are the individual bubbles to deliver, in order. May be
	// empty, which callers treat as a silent turn.
	Fragments []string
}

// Segmenter turns raw completion text into an ordered list of bubbles
// plus an optional mood update.
type Segmenter struct {
	// MinFragments is the threshold below which a single-fragment reply
	// gets re-split on sentence boundaries.
	MinFragments int
}

func NewSegmenter(minFragments int) *Segmenter {
	if minFragments <= 0 {
		minFragments = 5
	}
	return &Segmenter{MinFragments: minFragments}
}

// Segment parses raw reply text. The mood tag is honored only at the very
// start of the (trimmed) reply; stray tags elsewhere are stripped without
// updating the mood.
func (s *Segmenter) Segment(raw string) SegmentResult {
	var result SegmentResult

	text := strings.TrimSpace(raw)
	if loc := statusTagRe.FindStringSubmatchIndex(text); loc != nil && loc[0] == 0 {
		result.Mood = strings.TrimSpace(text[loc[2]:loc[3]])
		text = text[loc[1]:]
	}
	text = statusTagRe.ReplaceAllString(text, "")

	parts := strings.Split(text, Delimiter)
	fragments := keepNonEmpty(parts)

	// A model that ignored the delimiter instruction tends to hand back
	// one long run of prose. Re-split it on sentence boundaries so the
	// drip still reads like separate bubbles.
	if len(fragments) > 0 && len(fragments) < s.MinFragments {
		joined := strings.Join(fragments, " ")
		fragments = keepVisible(splitSentences(joined))
	}

	result.Fragments = fragments
	return result
}

// splitSentences cuts text on terminal punctuation, keeping the
// terminator attached to its sentence.
func splitSentences(text string) []string {
	indexes := sentenceSplitRe.FindAllStringIndex(text, -1)
	if len(indexes) == 0 {
		return []string{text}
	}
	parts := make([]string, 0, len(indexes)+1)
	start := 0
	for _, idx := range indexes {
		parts = append(parts, text[start:idx[1]])
		start = idx[1]
	}
	if start < len(text) {
		parts = append(parts, text[start:])
	}
	return parts
}

// keepNonEmpty trims each part and drops the blank ones. Delimited
// fragments are otherwise kept verbatim, however short: the model chose
// the bubble boundaries.
func keepNonEmpty(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// keepVisible trims each part and drops those with fewer than two
// visible characters. Only the sentence-split fallback uses it, where a
// cut can leave a lone terminator behind.
func keepVisible(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if utf8.RuneCountInString(p) > 1 {
			out = append(out, p)
		}
	}
	return out
}
