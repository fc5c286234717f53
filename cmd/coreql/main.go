// Command coreql runs a single natural-language query against the
// retrieval-and-generation core using in-memory stand-ins for the vector
// index, metadata store, embedder, and generator. It is a smoke-test
// harness for the pipeline, not a deployment target: cmd/coreqld wires the
// same Core against real qdrant/postgres/model backends.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/intelligencedev/clinical-core/internal/audit"
	"github.com/intelligencedev/clinical-core/internal/model"
	"github.com/intelligencedev/clinical-core/internal/orchestrator"
	"github.com/intelligencedev/clinical-core/internal/retrieve"
	"github.com/intelligencedev/clinical-core/internal/storage/memory"
)

type seedChunk struct {
	ChunkID      string `json:"chunk_id"`
	ArtifactID   string `json:"artifact_id"`
	PatientID    string `json:"patient_id"`
	ArtifactType string `json:"artifact_type"`
	OccurredAt   string `json:"occurred_at"`
	Author       string `json:"author"`
	Content      string `json:"content"`
}

func main() {
	log.SetFlags(0)
	var (
		query     = flag.String("query", "", "natural-language question to ask")
		patientID = flag.String("patient", "", "patient id to scope retrieval to")
		seedPath  = flag.String("seed", "", "path to a JSON array of chunks to load before querying")
		auditPath = flag.String("audit-log", "", "optional path to write a single audit entry to")
	)
	flag.Parse()

	if *query == "" || *patientID == "" {
		log.Fatal("both -query and -patient are required")
	}

	embedder := memory.NewEmbedder(64)
	vector := memory.NewVectorIndex(64)
	store := memory.NewMetadataStore()

	var seeded []model.Chunk
	if *seedPath != "" {
		seeded = mustLoadSeed(*seedPath, store, vector, embedder)
	}

	var gen *memory.Generator
	if len(seeded) > 0 {
		gen = memory.NewGeneratorCiting([]model.RetrievalCandidate{{Chunk: seeded[0]}})
	} else {
		gen = memory.NewGenerator()
	}

	deps := orchestrator.Deps{
		Embedder:        embedder,
		Generator:       gen,
		Vector:          vector,
		Store:           store,
		Filter:          retrieve.NewMetadataFilter(retrieve.LoaderFromMetadataStore(store)),
		PipelineVersion: "coreql-dev",
	}

	if *auditPath != "" {
		logger, err := audit.New(*auditPath, audit.PrivacyFull)
		if err != nil {
			log.Fatalf("open audit log: %v", err)
		}
		defer logger.Close()
		deps.Audit = logger
	}

	core := orchestrator.New(deps)
	resp := core.Process(context.Background(), *query, *patientID, orchestrator.Options{
		AuditEnabled: *auditPath != "",
		Timeout:      orchestrator.DefaultTimeout,
	})

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		log.Fatalf("encode response: %v", err)
	}
}

func mustLoadSeed(path string, store *memory.MetadataStore, vector *memory.VectorIndex, embedder *memory.Embedder) []model.Chunk {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("open seed file: %v", err)
	}
	defer f.Close()

	var raw []seedChunk
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		log.Fatalf("decode seed file: %v", err)
	}

	chunks := make([]model.Chunk, 0, len(raw))
	for _, sc := range raw {
		occurredAt, err := time.Parse(time.RFC3339, sc.OccurredAt)
		if err != nil {
			occurredAt = time.Now().UTC()
		}
		chunks = append(chunks, model.Chunk{
			ChunkID:      sc.ChunkID,
			ArtifactID:   sc.ArtifactID,
			PatientID:    sc.PatientID,
			ArtifactType: model.ArtifactType(sc.ArtifactType),
			OccurredAt:   occurredAt,
			Author:       sc.Author,
			Content:      sc.Content,
			CharOffsets:  model.CharOffsets{Start: 0, End: len(sc.Content)},
		})
	}

	ctx := context.Background()
	if err := store.InsertChunks(ctx, chunks); err != nil {
		log.Fatalf("insert chunks: %v", err)
	}
	for _, c := range chunks {
		vec, err := embedder.Embed(ctx, c.Content)
		if err != nil {
			log.Fatalf("embed chunk %s: %v", c.ChunkID, err)
		}
		if err := vector.AddVectors(ctx, []string{c.ChunkID}, [][]float32{vec}, []map[string]string{{"patient_id": c.PatientID}}); err != nil {
			log.Fatalf("index chunk %s: %v", c.ChunkID, err)
		}
	}
	return chunks
}
