package retrieve

import (
	"context"
	"sort"
	"sync"

	"github.com/intelligencedev/clinical-core/internal/contracts"
	"github.com/intelligencedev/clinical-core/internal/model"
)

// Criteria narrows candidate chunks before hybrid search.
type Criteria struct {
	PatientID     string
	ArtifactTypes []model.ArtifactType
	DateRange     *model.DateRange
	Author        string
}

// ChunkLoader fetches every indexed chunk for a patient, used to build the
// in-memory inverted indexes on first use. Backed by the MetadataStore.
type ChunkLoader func(ctx context.Context, patientID string) ([]model.Chunk, error)

// patientIndex holds per-patient inverted indexes, sorted by occurred_at.
type patientIndex struct {
	byDate       []model.Chunk // sorted ascending by OccurredAt
	byType       map[model.ArtifactType]map[string]struct{}
	byAuthor     map[string]map[string]struct{}
	chunkByID    map[string]model.Chunk
}

// MetadataFilter pre-filters candidate chunks using per-patient in-memory
// inverted indexes, built lazily on first use and kept for the process
// lifetime.
type MetadataFilter struct {
	mu      sync.RWMutex
	indexes map[string]*patientIndex
	loader  ChunkLoader

	buildMu sync.Mutex
	// building tracks in-flight index builds so a second concurrent writer
	// for the same patient waits for the first rather than duplicating work.
	building map[string]chan struct{}
}

// NewMetadataFilter constructs a filter backed by the given chunk loader.
func NewMetadataFilter(loader ChunkLoader) *MetadataFilter {
	return &MetadataFilter{
		indexes:  make(map[string]*patientIndex),
		loader:   loader,
		building: make(map[string]chan struct{}),
	}
}

// Filter returns the chunk_ids matching criteria; bodies are fetched later
// from the MetadataStore by the caller.
func (f *MetadataFilter) Filter(ctx context.Context, c Criteria) ([]string, error) {
	idx, err := f.indexFor(ctx, c.PatientID)
	if err != nil {
		return nil, err
	}
	if idx == nil {
		return nil, nil
	}

	candidates := idx.byDate
	if c.DateRange != nil {
		candidates = dateRangeSlice(candidates, *c.DateRange)
	}

	var sets []map[string]struct{}
	if len(c.ArtifactTypes) > 0 {
		union := map[string]struct{}{}
		for _, t := range c.ArtifactTypes {
			for id := range idx.byType[t] {
				union[id] = struct{}{}
			}
		}
		sets = append(sets, union)
	}
	if c.Author != "" {
		sets = append(sets, idx.byAuthor[c.Author])
	}

	out := make([]string, 0, len(candidates))
	for _, ch := range candidates {
		if !inAllSets(ch.ChunkID, sets) {
			continue
		}
		out = append(out, ch.ChunkID)
	}
	return out, nil
}

func inAllSets(id string, sets []map[string]struct{}) bool {
	for _, s := range sets {
		if _, ok := s[id]; !ok {
			return false
		}
	}
	return true
}

// dateRangeSlice returns the bounded slice of a date-sorted stripe via
// binary search on [from,to] inclusive bounds.
func dateRangeSlice(sorted []model.Chunk, r model.DateRange) []model.Chunk {
	lo := sort.Search(len(sorted), func(i int) bool {
		return !sorted[i].OccurredAt.Before(r.From)
	})
	hi := sort.Search(len(sorted), func(i int) bool {
		return sorted[i].OccurredAt.After(r.To)
	})
	if lo >= hi {
		return nil
	}
	return sorted[lo:hi]
}

// indexFor returns the cached per-patient index, building it on first use.
// A second concurrent writer for the same patient waits for the first to
// publish, then reuses the cached result.
func (f *MetadataFilter) indexFor(ctx context.Context, patientID string) (*patientIndex, error) {
	f.mu.RLock()
	idx, ok := f.indexes[patientID]
	f.mu.RUnlock()
	if ok {
		return idx, nil
	}

	f.buildMu.Lock()
	if ch, building := f.building[patientID]; building {
		f.buildMu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		f.mu.RLock()
		defer f.mu.RUnlock()
		return f.indexes[patientID], nil
	}
	done := make(chan struct{})
	f.building[patientID] = done
	f.buildMu.Unlock()

	defer func() {
		f.buildMu.Lock()
		delete(f.building, patientID)
		f.buildMu.Unlock()
		close(done)
	}()

	chunks, err := f.loader(ctx, patientID)
	if err != nil {
		return nil, err
	}
	built := buildIndex(chunks)
	f.mu.Lock()
	f.indexes[patientID] = built
	f.mu.Unlock()
	return built, nil
}

// Invalidate drops the cached index for a patient (used after re-indexing
// or patient-level clear).
func (f *MetadataFilter) Invalidate(patientID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.indexes, patientID)
}

func buildIndex(chunks []model.Chunk) *patientIndex {
	idx := &patientIndex{
		byType:    make(map[model.ArtifactType]map[string]struct{}),
		byAuthor:  make(map[string]map[string]struct{}),
		chunkByID: make(map[string]model.Chunk, len(chunks)),
	}
	sorted := make([]model.Chunk, len(chunks))
	copy(sorted, chunks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].OccurredAt.Before(sorted[j].OccurredAt) })
	idx.byDate = sorted
	for _, c := range sorted {
		idx.chunkByID[c.ChunkID] = c
		if idx.byType[c.ArtifactType] == nil {
			idx.byType[c.ArtifactType] = map[string]struct{}{}
		}
		idx.byType[c.ArtifactType][c.ChunkID] = struct{}{}
		if c.Author != "" {
			if idx.byAuthor[c.Author] == nil {
				idx.byAuthor[c.Author] = map[string]struct{}{}
			}
			idx.byAuthor[c.Author][c.ChunkID] = struct{}{}
		}
	}
	return idx
}

// LoaderFromMetadataStore adapts a MetadataStore into a ChunkLoader by
// filtering on patient_id alone and fetching the resulting bodies.
func LoaderFromMetadataStore(store contracts.MetadataStore) ChunkLoader {
	return func(ctx context.Context, patientID string) ([]model.Chunk, error) {
		ids, err := store.FilterChunks(ctx, contracts.MetadataFilterCriteria{PatientID: patientID})
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return nil, nil
		}
		return store.GetChunksByIDs(ctx, ids)
	}
}
