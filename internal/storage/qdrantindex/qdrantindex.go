// Package qdrantindex adapts a Qdrant collection into a contracts.VectorIndex:
// UUID-derived point ids with the original chunk id carried in the payload,
// ensureCollection on connect, and a filtered Query for nearest neighbors.
package qdrantindex

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/intelligencedev/clinical-core/internal/contracts"
)

// originalIDField carries the chunk_id in the payload, since Qdrant point
// ids must be UUIDs or positive integers.
const originalIDField = "_chunk_id"

// Index is a contracts.VectorIndex backed by a single Qdrant collection.
type Index struct {
	client     *qdrant.Client
	collection string
	dim        int
}

// New parses dsn (e.g. "http://localhost:6334?api_key=..."), dials Qdrant's
// gRPC API, and ensures collection exists with a cosine-distance vector
// config sized to dim.
func New(ctx context.Context, dsn, collection string, dim int) (*Index, error) {
	if collection == "" {
		return nil, fmt.Errorf("qdrantindex: collection name is required")
	}
	if dim <= 0 {
		return nil, fmt.Errorf("qdrantindex: dimension must be positive")
	}
	parsed, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("qdrantindex: parse dsn: %w", err)
	}
	host := parsed.Hostname()
	if host == "" {
		host = "localhost"
	}
	portStr := parsed.Port()
	if portStr == "" {
		portStr = "6334"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("qdrantindex: invalid port in dsn: %w", err)
	}

	cfg := &qdrant.Config{Host: host, Port: port}
	if parsed.Scheme == "https" {
		cfg.UseTLS = true
	}
	if apiKey := parsed.Query().Get("api_key"); apiKey != "" {
		cfg.APIKey = apiKey
	}

	client, err := qdrant.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("qdrantindex: create client: %w", err)
	}
	idx := &Index{client: client, collection: collection, dim: dim}
	if err := idx.ensureCollection(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("qdrantindex: ensure collection: %w", err)
	}
	return idx, nil
}

func (i *Index) ensureCollection(ctx context.Context) error {
	exists, err := i.client.CollectionExists(ctx, i.collection)
	if err != nil {
		return fmt.Errorf("check collection exists: %w", err)
	}
	if exists {
		return nil
	}
	return i.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: i.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(i.dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
}

func (i *Index) Dimension() int { return i.dim }

func pointID(chunkID string) (*qdrant.PointId, string) {
	if _, err := uuid.Parse(chunkID); err == nil {
		return qdrant.NewIDUUID(chunkID), chunkID
	}
	derived := uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkID)).String()
	return qdrant.NewIDUUID(derived), derived
}

// AddVectors upserts one point per (id, vector, metadata) triple. The
// chunk_id is always carried in the payload since Qdrant point ids must be
// UUIDs or positive integers, not arbitrary strings.
func (i *Index) AddVectors(ctx context.Context, ids []string, vecs [][]float32, meta []map[string]string) error {
	points := make([]*qdrant.PointStruct, 0, len(ids))
	for idx, chunkID := range ids {
		id, _ := pointID(chunkID)
		metadataAny := make(map[string]any, len(meta)+1)
		if idx < len(meta) {
			for k, v := range meta[idx] {
				metadataAny[k] = v
			}
		}
		// chunk_id is always carried in the payload (not just for non-UUID
		// ids) since Search filters candidates by this field rather than by
		// point id directly.
		metadataAny[originalIDField] = chunkID
		vec := make([]float32, len(vecs[idx]))
		copy(vec, vecs[idx])
		points = append(points, &qdrant.PointStruct{
			Id:      id,
			Vectors: qdrant.NewVectorsDense(vec),
			Payload: qdrant.NewValueMap(metadataAny),
		})
	}
	_, err := i.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: i.collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrantindex: upsert %d points: %w", len(points), err)
	}
	return nil
}

// Search queries the nearest neighbors of queryVec, filtered to the given
// candidate chunk_ids, and returns up to k scored hits.
func (i *Index) Search(ctx context.Context, queryVec []float32, candidateIDs []string, k int) ([]contracts.VectorSearchHit, error) {
	if k <= 0 {
		k = len(candidateIDs)
	}
	limit := uint64(k)
	vec := make([]float32, len(queryVec))
	copy(vec, queryVec)
	points, err := i.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: i.collection,
		Query:          qdrant.NewQueryDense(vec),
		Limit:          &limit,
		Filter:         &qdrant.Filter{Must: []*qdrant.Condition{qdrant.NewMatchKeywords(originalIDField, candidateIDs...)}},
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrantindex: query: %w", err)
	}

	hits := make([]contracts.VectorSearchHit, 0, len(points))
	for _, p := range points {
		chunkID := ""
		if p.Payload != nil {
			if v, ok := p.Payload[originalIDField]; ok {
				chunkID = v.GetStringValue()
			}
		}
		if chunkID == "" {
			chunkID = p.Id.GetUuid()
		}
		hits = append(hits, contracts.VectorSearchHit{ChunkID: chunkID, Score: float64(p.Score)})
	}
	return hits, nil
}

// Save and Load are no-ops: Qdrant persists its own collections directly.
// The chunk_id -> point-id sidecar mapping, when one is needed for disaster
// recovery, lives in internal/storage/snapshot instead.
func (i *Index) Save(ctx context.Context, path string) error { return nil }
func (i *Index) Load(ctx context.Context, path string) error { return nil }

// DeletePatient deletes every point whose patient_id payload field matches.
func (i *Index) DeletePatient(ctx context.Context, patientID string) error {
	filter := &qdrant.Filter{Must: []*qdrant.Condition{qdrant.NewMatch("patient_id", patientID)}}
	_, err := i.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: i.collection,
		Points:         qdrant.NewPointsSelectorFilter(filter),
	})
	if err != nil {
		return fmt.Errorf("qdrantindex: delete patient %s: %w", patientID, err)
	}
	return nil
}

func (i *Index) Close() error { return i.client.Close() }

var _ contracts.VectorIndex = (*Index)(nil)
