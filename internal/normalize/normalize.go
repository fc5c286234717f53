// Package normalize turns a raw PatientRecordBundle (as returned by the
// external PatientRecordSource) into the uniform Artifact model, flattening
// each record's fields into a deterministic, sectioned text form.
package normalize

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/intelligencedev/clinical-core/internal/contracts"
	"github.com/intelligencedev/clinical-core/internal/model"
)

// Normalizer converts raw EMR payloads into Artifacts.
type Normalizer struct{}

// Normalize flattens a bundle's care plans, medications, notes, and any
// other record kinds into Artifacts, filtering client-side by PatientID
// (the PatientRecordSource's documented quirk: the server returns records
// in bulk and does not filter for us).
func (Normalizer) Normalize(bundle contracts.PatientRecordBundle) []model.Artifact {
	var out []model.Artifact
	out = append(out, normalizeKind(bundle.PatientID, model.ArtifactCarePlan, bundle.CarePlans)...)
	out = append(out, normalizeKind(bundle.PatientID, model.ArtifactMedication, bundle.Medications)...)
	out = append(out, normalizeKind(bundle.PatientID, model.ArtifactNote, bundle.Notes)...)

	kinds := make([]string, 0, len(bundle.Other))
	for k := range bundle.Other {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		out = append(out, normalizeKind(bundle.PatientID, model.ArtifactType(k), bundle.Other[k])...)
	}
	return out
}

// normalizeKind flattens one record-kind slice into Artifacts, dropping
// records whose patient_id does not match (client-side filtering, §6).
func normalizeKind(patientID string, kind model.ArtifactType, records []map[string]any) []model.Artifact {
	out := make([]model.Artifact, 0, len(records))
	for _, rec := range records {
		if pid, ok := rec["patient_id"].(string); ok && pid != "" && pid != patientID {
			continue
		}
		out = append(out, normalizeOne(patientID, kind, rec))
	}
	return out
}

func normalizeOne(patientID string, kind model.ArtifactType, rec map[string]any) model.Artifact {
	id := stringField(rec, "id", "artifact_id")
	if id == "" {
		id = uuid.NewString()
	}
	occurred := parseTime(stringField(rec, "occurred_at", "date", "effective_date"))
	created := parseTime(stringField(rec, "created_at"))
	if occurred.IsZero() {
		// Synthesized from created_at when the source omits occurred_at (§3 Invariant).
		occurred = created
	}
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}
	return model.Artifact{
		ArtifactID:   id,
		PatientID:    patientID,
		ArtifactType: kind,
		OccurredAt:   occurred,
		CreatedAt:    created,
		Author:       stringField(rec, "author", "provider", "author_name"),
		Content:      flatten(kind, rec),
		SourceURL:    stringField(rec, "source_url", "url"),
		Raw:          rec,
	}
}

// flatten produces a deterministic-order sectioned text form of a record's
// fields: "Key: value" lines in sorted key order, skipping bookkeeping keys.
func flatten(kind model.ArtifactType, rec map[string]any) string {
	skip := map[string]bool{
		"id": true, "artifact_id": true, "patient_id": true,
		"occurred_at": true, "date": true, "effective_date": true,
		"created_at": true, "source_url": true, "url": true,
	}
	keys := make([]string, 0, len(rec))
	for k := range rec {
		if skip[k] {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "[%s]\n", kind)
	for _, k := range keys {
		v := rec[k]
		if v == nil {
			continue
		}
		if s := fmt.Sprintf("%v", v); s != "" {
			fmt.Fprintf(&b, "%s: %s\n", titleCase(k), s)
		}
	}
	return strings.TrimSpace(b.String())
}

func titleCase(key string) string {
	parts := strings.Split(key, "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}

func stringField(rec map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := rec[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	layouts := []string{time.RFC3339, time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// Idempotent reports that re-normalizing an already-normalized Artifact's
// Raw payload reproduces the same Content, satisfying the Normalizer
// idempotence property.
func Idempotent(a model.Artifact) bool {
	again := normalizeOne(a.PatientID, a.ArtifactType, a.Raw)
	return again.Content == a.Content
}
