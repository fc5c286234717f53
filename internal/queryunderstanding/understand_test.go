package queryunderstanding

import (
	"testing"
	"time"

	"github.com/intelligencedev/clinical-core/internal/model"
)

func TestClassifyIntent_TieBreakOrder(t *testing.T) {
	// Contains both medication and care-plan keywords: medications wins.
	got := ClassifyIntent("what medications are part of the care plan?")
	if got != model.IntentRetrieveMedications {
		t.Fatalf("expected RETRIEVE_MEDICATIONS, got %s", got)
	}
}

func TestClassifyIntent_Unknown(t *testing.T) {
	if got := ClassifyIntent("hello there"); got != model.IntentUnknown {
		t.Fatalf("expected UNKNOWN, got %s", got)
	}
}

func TestParseTemporal_LastNMonths(t *testing.T) {
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	tf := ParseTemporal("show notes from the last 3 months", now)
	if tf == nil {
		t.Fatalf("expected a temporal filter")
	}
	want := now.AddDate(0, -3, 0)
	if !tf.DateFrom.Equal(want) {
		t.Fatalf("expected DateFrom %v, got %v", want, *tf.DateFrom)
	}
}

func TestParseTemporal_Yesterday(t *testing.T) {
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	tf := ParseTemporal("what happened yesterday", now)
	if tf == nil || tf.DateFrom.Day() != 29 {
		t.Fatalf("expected yesterday to resolve to day 29, got %+v", tf)
	}
}

func TestExtractEntities_NormalizesAbbreviationAndInflection(t *testing.T) {
	if Normalize("bid") != "twice daily" {
		t.Fatalf("expected abbreviation expansion")
	}
	if Normalize("dosages") != "dosag" {
		t.Fatalf("expected inflection stemming, got %q", Normalize("dosages"))
	}
	if Normalize("is") != "is" {
		t.Fatalf("stem shorter than 3 chars must not strip, got %q", Normalize("is"))
	}
}

func TestExtractEntities_FindsMedication(t *testing.T) {
	ents := ExtractEntities("Patient takes Metformin daily")
	found := false
	for _, e := range ents {
		if e.Type == model.EntityMedication && e.Normalized == "metformin" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected to find metformin entity, got %+v", ents)
	}
}

func TestUnderstand_Deterministic(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := Understand("What medications is the patient on?", "P1", Options{Now: now})
	b := Understand("What medications is the patient on?", "P1", Options{Now: now})
	if a.Intent != b.Intent || a.Filters.ArtifactTypes[0] != b.Filters.ArtifactTypes[0] {
		t.Fatalf("expected deterministic output for identical input and reference time")
	}
}
