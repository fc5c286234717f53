package generation

import (
	"strings"
	"testing"

	"github.com/intelligencedev/clinical-core/internal/model"
)

func TestConfigFor_ModeDefaults(t *testing.T) {
	temp, maxTokens := ConfigFor(ModeExtraction)
	if temp != 0 || maxTokens != 2000 {
		t.Fatalf("expected extraction mode 0/2000, got %v/%v", temp, maxTokens)
	}
	temp, maxTokens = ConfigFor(ModeSummarization)
	if temp != 0.3 || maxTokens != 2000 {
		t.Fatalf("expected summarization mode 0.3/2000, got %v/%v", temp, maxTokens)
	}
}

func TestEstimateTokens_CeilDivByFour(t *testing.T) {
	if got := EstimateTokens("abcd"); got != 1 {
		t.Fatalf("expected 1 token for 4 chars, got %d", got)
	}
	if got := EstimateTokens("abcde"); got != 2 {
		t.Fatalf("expected ceil(5/4)=2, got %d", got)
	}
}

func TestBuildUserPrompt_TruncatesFromTailWhenOverBudget(t *testing.T) {
	var candidates []model.RetrievalCandidate
	for i := 0; i < 200; i++ {
		candidates = append(candidates, model.RetrievalCandidate{
			Chunk: model.Chunk{ChunkID: "c", ArtifactID: "a", Content: strings.Repeat("x", 500)},
		})
	}
	out := BuildUserPrompt(candidates, "question")
	if EstimateTokens(SystemPrompt)+EstimateTokens(out) > MaxPromptTokens {
		t.Fatalf("expected truncated prompt to respect token budget, got %d tokens", EstimateTokens(out))
	}
}

func TestBuildUserPrompt_IncludesQuery(t *testing.T) {
	out := BuildUserPrompt(nil, "what medications?")
	if !strings.Contains(out, "what medications?") {
		t.Fatalf("expected query text in prompt, got %q", out)
	}
}
