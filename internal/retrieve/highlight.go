package retrieve

import (
	"sort"
	"strings"

	"github.com/intelligencedev/clinical-core/internal/model"
)

// SnippetRadius is the number of characters kept on either side of the
// highlighted span before trimming to a sentence boundary.
const SnippetRadius = 200

// FuzzyMaxDistance is the maximum Levenshtein distance for a fuzzy term match.
const FuzzyMaxDistance = 2

// Highlight finds exact, entity, and fuzzy term matches within a candidate's
// chunk content, merges overlapping spans, and builds an HTML-marked
// snippet.
func Highlight(c *model.RetrievalCandidate, sq model.StructuredQuery) {
	terms := queryTerms(sq)
	spans := findSpans(c.Chunk.Content, terms)
	spans = mergeSpans(spans)

	c.TermHighlights = spans
	c.Highlights = spans
	c.Snippet, c.HighlightHTML = buildSnippet(c.Chunk.Content, spans)
}

type termSource struct {
	term string
	kind string
}

func queryTerms(sq model.StructuredQuery) []termSource {
	var terms []termSource
	for _, tok := range tokenize(sq.OriginalQuery) {
		if len(tok) < 3 {
			continue
		}
		terms = append(terms, termSource{term: tok, kind: "exact"})
	}
	for _, e := range sq.Entities {
		terms = append(terms, termSource{term: strings.ToLower(e.Normalized), kind: "entity"})
		terms = append(terms, termSource{term: strings.ToLower(e.Text), kind: "entity"})
	}
	return terms
}

// findSpans locates every occurrence of each term in content: exact
// substring matches first, falling back to a fuzzy Levenshtein<=2 match
// against each whitespace-delimited word for terms with no exact hit.
func findSpans(content string, terms []termSource) []model.TermHighlight {
	lc := strings.ToLower(content)
	var spans []model.TermHighlight
	seenExact := map[string]bool{}

	for _, t := range terms {
		if t.term == "" {
			continue
		}
		start := 0
		found := false
		for {
			idx := strings.Index(lc[start:], t.term)
			if idx < 0 {
				break
			}
			abs := start + idx
			spans = append(spans, model.TermHighlight{Start: abs, End: abs + len(t.term), Term: t.term, Type: t.kind})
			found = true
			start = abs + len(t.term)
		}
		if found {
			seenExact[t.term] = true
		}
	}

	for _, t := range terms {
		if seenExact[t.term] || t.term == "" {
			continue
		}
		for _, w := range wordSpans(content) {
			word := strings.ToLower(content[w.Start:w.End])
			if levenshtein(word, t.term) <= FuzzyMaxDistance {
				spans = append(spans, model.TermHighlight{Start: w.Start, End: w.End, Term: t.term, Type: "fuzzy"})
			}
		}
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })
	return spans
}

type charSpan struct{ Start, End int }

func wordSpans(content string) []charSpan {
	var spans []charSpan
	start := -1
	for i, r := range content {
		if isWordRune(r) {
			if start == -1 {
				start = i
			}
		} else if start != -1 {
			spans = append(spans, charSpan{start, i})
			start = -1
		}
	}
	if start != -1 {
		spans = append(spans, charSpan{start, len(content)})
	}
	return spans
}

func isWordRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// mergeSpans unions overlapping or touching spans, preferring the earliest
// start then the widest span.
func mergeSpans(spans []model.TermHighlight) []model.TermHighlight {
	if len(spans) == 0 {
		return nil
	}
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].Start != spans[j].Start {
			return spans[i].Start < spans[j].Start
		}
		return spans[i].End > spans[j].End
	})
	merged := []model.TermHighlight{spans[0]}
	for _, s := range spans[1:] {
		last := &merged[len(merged)-1]
		if s.Start <= last.End {
			if s.End > last.End {
				last.End = s.End
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

// buildSnippet extracts a ±200-char window around the first highlighted
// span (or the content start if there are none), trims to sentence
// boundaries where possible, and wraps highlighted spans in <mark>.
func buildSnippet(content string, spans []model.TermHighlight) (plain string, html string) {
	if len(content) == 0 {
		return "", ""
	}
	center := 0
	if len(spans) > 0 {
		center = (spans[0].Start + spans[0].End) / 2
	}
	from := center - SnippetRadius
	if from < 0 {
		from = 0
	}
	to := center + SnippetRadius
	if to > len(content) {
		to = len(content)
	}
	from = snapToSentenceStart(content, from)
	to = snapToSentenceEnd(content, to)

	plain = content[from:to]
	html = markSpans(content, from, to, spans)
	return plain, html
}

func snapToSentenceStart(content string, from int) int {
	for i := from; i > 0 && from-i < SnippetRadius/2; i-- {
		if content[i-1] == '.' || content[i-1] == '\n' {
			return i
		}
	}
	return from
}

func snapToSentenceEnd(content string, to int) int {
	for i := to; i < len(content) && i-to < SnippetRadius/2; i++ {
		if content[i] == '.' || content[i] == '\n' {
			return i + 1
		}
	}
	return to
}

func markSpans(content string, from, to int, spans []model.TermHighlight) string {
	var b strings.Builder
	cursor := from
	for _, s := range spans {
		start, end := s.Start, s.End
		if end <= from || start >= to {
			continue
		}
		if start < from {
			start = from
		}
		if end > to {
			end = to
		}
		if start < cursor {
			continue
		}
		b.WriteString(content[cursor:start])
		b.WriteString(`<mark class="` + s.Type + `">`)
		b.WriteString(content[start:end])
		b.WriteString(`</mark>`)
		cursor = end
	}
	b.WriteString(content[cursor:to])
	return b.String()
}

// levenshtein computes edit distance between two ASCII-lowercased strings.
func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	la, lb := len(a), len(b)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}
	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			m := del
			if ins < m {
				m = ins
			}
			if sub < m {
				m = sub
			}
			curr[j] = m
		}
		prev, curr = curr, prev
	}
	return prev[lb]
}
