// Package indexing builds the offline patient-indexing pipeline: fetch the
// raw EMR bundle, normalize it into Artifacts, chunk each Artifact, embed
// the chunks, and write chunk bodies plus vectors to the metadata store and
// vector index.
package indexing

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/intelligencedev/clinical-core/internal/chunker"
	"github.com/intelligencedev/clinical-core/internal/contracts"
	"github.com/intelligencedev/clinical-core/internal/model"
	"github.com/intelligencedev/clinical-core/internal/normalize"
)

// Deps are the external collaborators an indexing run needs.
type Deps struct {
	Source   contracts.PatientRecordSource
	Embedder contracts.Embedder
	Vector   contracts.VectorIndex
	Store    contracts.MetadataStore

	// MaxBatchSize bounds embedding fan-out: max in-flight is
	// min(10, MaxBatchSize)).
	MaxBatchSize int
}

// Result summarizes one indexing run.
type Result struct {
	IndexedChunks int
	ElapsedMS     int64
}

// IndexPatient fetches, normalizes, chunks, embeds, and stores every
// artifact for patientID. Metadata store writes are a single batched
// transaction; vector writes follow as a
// single AddVectors call in the same chunk order.
func IndexPatient(ctx context.Context, deps Deps, patientID string) (Result, error) {
	start := time.Now()

	bundle, err := deps.Source.GetAll(ctx, patientID)
	if err != nil {
		return Result{}, fmt.Errorf("indexing: fetch bundle: %w", err)
	}

	artifacts := normalize.Normalizer{}.Normalize(bundle)

	var chunks []model.Chunk
	c := chunker.Chunker{}
	for _, a := range artifacts {
		chunks = append(chunks, c.Chunk(a)...)
	}
	if len(chunks) == 0 {
		return Result{IndexedChunks: 0, ElapsedMS: time.Since(start).Milliseconds()}, nil
	}

	vecs, err := embedConcurrently(ctx, deps.Embedder, chunks, deps.MaxBatchSize)
	if err != nil {
		return Result{}, fmt.Errorf("indexing: embed chunks: %w", err)
	}

	if err := deps.Store.InsertChunks(ctx, chunks); err != nil {
		return Result{}, fmt.Errorf("indexing: insert chunks: %w", err)
	}

	ids := make([]string, len(chunks))
	meta := make([]map[string]string, len(chunks))
	for i, ch := range chunks {
		ids[i] = ch.ChunkID
		meta[i] = map[string]string{"patient_id": ch.PatientID, "artifact_type": string(ch.ArtifactType)}
	}
	if err := deps.Vector.AddVectors(ctx, ids, vecs, meta); err != nil {
		return Result{}, fmt.Errorf("indexing: add vectors: %w", err)
	}

	return Result{IndexedChunks: len(chunks), ElapsedMS: time.Since(start).Milliseconds()}, nil
}

// embedConcurrently embeds each chunk's content with a bounded number of
// in-flight calls, min(10, maxBatchSize), preserving input order in the
// output slice regardless of completion order).
func embedConcurrently(ctx context.Context, embedder contracts.Embedder, chunks []model.Chunk, maxBatchSize int) ([][]float32, error) {
	inFlight := maxBatchSize
	if inFlight <= 0 || inFlight > 10 {
		inFlight = 10
	}
	sem := semaphore.NewWeighted(int64(inFlight))
	group, gctx := errgroup.WithContext(ctx)

	vecs := make([][]float32, len(chunks))
	for i, ch := range chunks {
		i, content := i, ch.Content
		group.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)
			v, err := embedder.Embed(gctx, content)
			if err != nil {
				return err
			}
			vecs[i] = v
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return vecs, nil
}

// DeletePatient clears a patient's chunks from both the metadata store and
// the vector index.
func DeletePatient(ctx context.Context, deps Deps, patientID string) error {
	if err := deps.Store.DeleteChunks(ctx, patientID); err != nil {
		return fmt.Errorf("indexing: delete chunks: %w", err)
	}
	if err := deps.Vector.DeletePatient(ctx, patientID); err != nil {
		return fmt.Errorf("indexing: delete vectors: %w", err)
	}
	return nil
}
