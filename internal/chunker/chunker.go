// Package chunker splits an Artifact's content into overlapping Chunks at
// sentence boundaries, 200-300 words with a 50-word overlap.
package chunker

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/intelligencedev/clinical-core/internal/model"
)

const (
	minWords       = 200
	maxWords       = 300
	overlapWords   = 50
)

var sentenceBoundary = regexp.MustCompile(`[.!?]\s+`)

// Chunker splits Artifact content into Chunks.
type Chunker struct{}

// Chunk produces chunks for a single Artifact. Offsets are [start,end) into
// a.Content; chunks partition the content up to the configured overlap.
func (Chunker) Chunk(a model.Artifact) []model.Chunk {
	sentences := splitSentences(a.Content)
	if len(sentences) == 0 {
		return nil
	}

	var out []model.Chunk
	startSentence := 0
	for startSentence < len(sentences) {
		endSentence, wordCount := growToWordTarget(sentences, startSentence)
		if wordCount == 0 {
			break
		}
		chunkStart := sentences[startSentence].start
		chunkEnd := sentences[endSentence-1].end
		content := strings.TrimSpace(a.Content[chunkStart:chunkEnd])
		if content != "" {
			out = append(out, model.Chunk{
				ChunkID:      uuid.NewString(),
				ArtifactID:   a.ArtifactID,
				PatientID:    a.PatientID,
				ArtifactType: a.ArtifactType,
				OccurredAt:   a.OccurredAt,
				Author:       a.Author,
				Content:      content,
				CharOffsets:  model.CharOffsets{Start: chunkStart, End: chunkEnd},
				SourceURL:    a.SourceURL,
			})
		}
		if endSentence >= len(sentences) {
			break
		}
		// Step back by ~overlapWords worth of sentences for the next window.
		next := backOffForOverlap(sentences, endSentence)
		if next <= startSentence || next >= endSentence {
			next = endSentence
		}
		startSentence = next
	}
	return out
}

type sentenceSpan struct {
	start, end int
	words      int
}

func splitSentences(text string) []sentenceSpan {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var out []sentenceSpan
	idxs := sentenceBoundary.FindAllStringIndex(text, -1)
	prev := 0
	for _, m := range idxs {
		end := m[1]
		out = append(out, sentenceSpan{start: prev, end: end, words: countWords(text[prev:end])})
		prev = end
	}
	if prev < len(text) {
		out = append(out, sentenceSpan{start: prev, end: len(text), words: countWords(text[prev:])})
	}
	return out
}

func countWords(s string) int {
	return len(strings.Fields(s))
}

// growToWordTarget extends from startSentence until the window holds between
// minWords and maxWords, preferring to stop as soon as minWords is reached;
// a single oversized sentence is still emitted as its own chunk.
func growToWordTarget(sentences []sentenceSpan, startSentence int) (endSentenceExclusive int, words int) {
	total := 0
	for i := startSentence; i < len(sentences); i++ {
		total += sentences[i].words
		if total >= minWords || total >= maxWords {
			return i + 1, total
		}
	}
	return len(sentences), total
}

// backOffForOverlap walks backward from endSentence accumulating words until
// roughly overlapWords have been covered, returning the sentence index to
// resume from.
func backOffForOverlap(sentences []sentenceSpan, endSentence int) int {
	acc := 0
	i := endSentence - 1
	for i > 0 && acc < overlapWords {
		acc += sentences[i].words
		i--
	}
	if i < 0 {
		i = 0
	}
	return i
}
