// Package pgmetadata adapts a Postgres table into a contracts.MetadataStore:
// pgxpool.ParseConfig with conservative pool limits and a Ping on connect,
// Exec for DDL, QueryRow().Scan() for single-row reads, and Query() plus
// row iteration for multi-row reads.
package pgmetadata

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/intelligencedev/clinical-core/internal/contracts"
	"github.com/intelligencedev/clinical-core/internal/model"
)

// Store is a contracts.MetadataStore backed by a single "chunks" table.
type Store struct {
	pool *pgxpool.Pool
}

// New parses dsn, opens a pool with conservative limits, and ensures the
// backing table and its query indexes exist.
func New(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pgmetadata: parse dsn: %w", err)
	}
	cfg.MaxConns = 8
	cfg.MinConns = 0
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgmetadata: open pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgmetadata: ping: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgmetadata: ensure schema: %w", err)
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS chunks (
			chunk_id      TEXT PRIMARY KEY,
			artifact_id   TEXT NOT NULL,
			patient_id    TEXT NOT NULL,
			artifact_type TEXT NOT NULL,
			occurred_at   TIMESTAMPTZ NOT NULL,
			author        TEXT,
			content       TEXT NOT NULL,
			char_start    INT NOT NULL,
			char_end      INT NOT NULL,
			source_url    TEXT
		);`); err != nil {
		return err
	}
	if _, err := conn.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS chunks_patient_idx
		ON chunks (patient_id, artifact_type, occurred_at DESC);`); err != nil {
		return err
	}
	return nil
}

// InsertChunks upserts each chunk, one statement per chunk in a single
// transaction.
func (s *Store) InsertChunks(ctx context.Context, chunks []model.Chunk) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("pgmetadata: acquire: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pgmetadata: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, c := range chunks {
		_, err := tx.Exec(ctx, `
			INSERT INTO chunks (chunk_id, artifact_id, patient_id, artifact_type, occurred_at, author, content, char_start, char_end, source_url)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (chunk_id) DO UPDATE SET
				artifact_id = EXCLUDED.artifact_id,
				patient_id = EXCLUDED.patient_id,
				artifact_type = EXCLUDED.artifact_type,
				occurred_at = EXCLUDED.occurred_at,
				author = EXCLUDED.author,
				content = EXCLUDED.content,
				char_start = EXCLUDED.char_start,
				char_end = EXCLUDED.char_end,
				source_url = EXCLUDED.source_url;`,
			c.ChunkID, c.ArtifactID, c.PatientID, string(c.ArtifactType), c.OccurredAt, c.Author, c.Content, c.CharOffsets.Start, c.CharOffsets.End, c.SourceURL)
		if err != nil {
			return fmt.Errorf("pgmetadata: insert chunk %s: %w", c.ChunkID, err)
		}
	}
	return tx.Commit(ctx)
}

// FilterChunks returns chunk_ids matching criteria, newest first.
func (s *Store) FilterChunks(ctx context.Context, criteria contracts.MetadataFilterCriteria) ([]string, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("pgmetadata: acquire: %w", err)
	}
	defer conn.Release()

	sql := `SELECT chunk_id FROM chunks WHERE patient_id = $1`
	args := []any{criteria.PatientID}

	if len(criteria.ArtifactTypes) > 0 {
		types := make([]string, len(criteria.ArtifactTypes))
		for i, t := range criteria.ArtifactTypes {
			types[i] = string(t)
		}
		args = append(args, types)
		sql += fmt.Sprintf(" AND artifact_type = ANY($%d)", len(args))
	}
	if criteria.Author != "" {
		args = append(args, criteria.Author)
		sql += fmt.Sprintf(" AND author = $%d", len(args))
	}
	if criteria.DateRange != nil {
		args = append(args, criteria.DateRange.From)
		sql += fmt.Sprintf(" AND occurred_at >= $%d", len(args))
		args = append(args, criteria.DateRange.To)
		sql += fmt.Sprintf(" AND occurred_at <= $%d", len(args))
	}
	sql += " ORDER BY occurred_at DESC"

	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("pgmetadata: filter query: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("pgmetadata: scan chunk_id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetChunksByIDs loads full chunk bodies for a set of ids.
func (s *Store) GetChunksByIDs(ctx context.Context, ids []string) ([]model.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("pgmetadata: acquire: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
		SELECT chunk_id, artifact_id, patient_id, artifact_type, occurred_at, author, content, char_start, char_end, source_url
		FROM chunks WHERE chunk_id = ANY($1);`, ids)
	if err != nil {
		return nil, fmt.Errorf("pgmetadata: get by ids: %w", err)
	}
	defer rows.Close()

	var out []model.Chunk
	for rows.Next() {
		var (
			c           model.Chunk
			artifactTyp string
		)
		if err := rows.Scan(&c.ChunkID, &c.ArtifactID, &c.PatientID, &artifactTyp, &c.OccurredAt, &c.Author, &c.Content, &c.CharOffsets.Start, &c.CharOffsets.End, &c.SourceURL); err != nil {
			return nil, fmt.Errorf("pgmetadata: scan chunk: %w", err)
		}
		c.ArtifactType = model.ArtifactType(artifactTyp)
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteChunks removes every chunk belonging to patientID.
func (s *Store) DeleteChunks(ctx context.Context, patientID string) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("pgmetadata: acquire: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `DELETE FROM chunks WHERE patient_id = $1;`, patientID)
	if err != nil {
		return fmt.Errorf("pgmetadata: delete patient %s: %w", patientID, err)
	}
	return nil
}

func (s *Store) Close() { s.pool.Close() }

var _ contracts.MetadataStore = (*Store)(nil)
