package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/intelligencedev/clinical-core/internal/storage/snapshot"
)

func TestVectorIndex_SaveLoadRoundTripsMetadata(t *testing.T) {
	ctx := context.Background()
	idx := NewVectorIndex(4)
	if err := idx.AddVectors(ctx, []string{"c1", "c2"}, [][]float32{{1, 0, 0, 0}, {0, 1, 0, 0}},
		[]map[string]string{{"patient_id": "p1"}, {"patient_id": "p1"}}); err != nil {
		t.Fatalf("AddVectors: %v", err)
	}

	path := t.TempDir() + "/snap.json"
	if err := idx.Save(ctx, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	restored := NewVectorIndex(0)
	if err := restored.Load(ctx, path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if restored.Dimension() != 4 {
		t.Fatalf("expected restored dimension 4, got %d", restored.Dimension())
	}
	if restored.meta["c1"]["patient_id"] != "p1" {
		t.Fatalf("expected restored metadata for c1, got %+v", restored.meta["c1"])
	}
}

func TestVectorIndex_LoadMissingSnapshotIsNotFound(t *testing.T) {
	idx := NewVectorIndex(4)
	err := idx.Load(context.Background(), t.TempDir()+"/missing.json")
	if err != snapshot.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestVectorIndex_WithConfiguredBackendUsesFullKey(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	backend := snapshot.NewFileBackend(root)
	idx := NewVectorIndexWithBackend(4, backend)
	if err := idx.AddVectors(ctx, []string{"c1"}, [][]float32{{1, 0, 0, 0}}, []map[string]string{{"patient_id": "p1"}}); err != nil {
		t.Fatalf("AddVectors: %v", err)
	}
	if err := idx.Save(ctx, "nested/snapshot.json"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "nested", "snapshot.json")); err != nil {
		t.Fatalf("expected snapshot stored under the full key: %v", err)
	}

	restored := NewVectorIndexWithBackend(0, backend)
	if err := restored.Load(ctx, "nested/snapshot.json"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if restored.meta["c1"]["patient_id"] != "p1" {
		t.Fatalf("expected restored metadata for c1 via configured backend")
	}
}
