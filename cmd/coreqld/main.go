// Command coreqld is the production daemon: it wires the orchestrator's
// Core against real qdrant/postgres/model backends (falling back to the
// in-memory stand-ins plus a filesystem or S3 snapshot when those backends
// are not configured) and serves the query and indexing HTTP surface.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/intelligencedev/clinical-core/internal/audit"
	"github.com/intelligencedev/clinical-core/internal/breaker"
	"github.com/intelligencedev/clinical-core/internal/cache"
	"github.com/intelligencedev/clinical-core/internal/config"
	"github.com/intelligencedev/clinical-core/internal/contracts"
	"github.com/intelligencedev/clinical-core/internal/embedding"
	"github.com/intelligencedev/clinical-core/internal/generation/anthropicgen"
	"github.com/intelligencedev/clinical-core/internal/generation/openaigen"
	"github.com/intelligencedev/clinical-core/internal/httpapi"
	"github.com/intelligencedev/clinical-core/internal/indexing"
	"github.com/intelligencedev/clinical-core/internal/observability"
	"github.com/intelligencedev/clinical-core/internal/orchestrator"
	"github.com/intelligencedev/clinical-core/internal/recordsource"
	"github.com/intelligencedev/clinical-core/internal/retrieve"
	"github.com/intelligencedev/clinical-core/internal/storage/memory"
	"github.com/intelligencedev/clinical-core/internal/storage/pgmetadata"
	"github.com/intelligencedev/clinical-core/internal/storage/qdrantindex"
	"github.com/intelligencedev/clinical-core/internal/storage/snapshot"
)

const snapshotFile = "vector_index.snapshot.json"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger(cfg.LogPath, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.InitOTel(ctx, cfg.Obs)
	if err != nil {
		log.Fatal().Err(err).Msg("init otel")
	}
	defer func() {
		if err := shutdownOTel(context.Background()); err != nil {
			log.Error().Err(err).Msg("otel shutdown")
		}
	}()

	embedder := embedding.New(cfg.Embedder, cfg.EmbedderModel, cfg.EmbedderDim)

	vector, metadataStore, closeStorage := mustStorage(ctx, cfg, embedder.Dimension())
	defer closeStorage()

	generator := mustGenerator(cfg)
	source := recordsource.New(cfg.RecordSource)

	caches := cache.New()
	go caches.Sweeper.Run(ctx)

	var redisCache *cache.RedisQueryResultCache
	if cfg.RedisAddr != "" {
		redisCache, err = cache.NewRedisQueryResultCache(cfg.RedisAddr)
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis cache unavailable, continuing with in-process cache only")
		} else {
			defer redisCache.Close()
		}
	}

	auditPath := cfg.LogPath
	if auditPath == "" {
		auditPath = "./data/audit.jsonl"
	}
	auditLogger, err := audit.New(auditPath, cfg.PrivacyMode)
	if err != nil {
		log.Fatal().Err(err).Str("path", auditPath).Msg("open audit log")
	}
	defer auditLogger.Close()

	deps := orchestrator.Deps{
		Embedder:        embedder,
		Generator:       generator,
		Vector:          vector,
		Store:           metadataStore,
		Filter:          retrieve.NewMetadataFilter(retrieve.LoaderFromMetadataStore(metadataStore)),
		Breakers:        breaker.NewRegistry(),
		Caches:          caches,
		RedisRetrieval:  redisCache,
		Audit:           auditLogger,
		PipelineVersion: cfg.Obs.ServiceVersion,
	}
	core := orchestrator.New(deps)

	indexingDeps := indexing.Deps{
		Source:       source,
		Embedder:     embedder,
		Vector:       vector,
		Store:        metadataStore,
		MaxBatchSize: 10,
	}

	server := httpapi.NewServer(core, indexingDeps, source)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("coreqld listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown")
	}

	if err := vector.Save(shutdownCtx, snapshotFile); err != nil {
		log.Error().Err(err).Msg("save vector index snapshot")
	}
}

// mustStorage builds the vector index and metadata store, preferring real
// qdrant/postgres backends when configured and falling back to the
// in-memory stand-ins (warm-started from a snapshot) for local runs, with
// the local filesystem as the default snapshot destination.
func mustStorage(ctx context.Context, cfg config.Config, embedDim int) (contracts.VectorIndex, contracts.MetadataStore, func()) {
	var vector contracts.VectorIndex
	var metadataStore contracts.MetadataStore
	closers := make([]func(), 0, 2)

	if cfg.VectorDSN != "" {
		idx, err := qdrantindex.New(ctx, cfg.VectorDSN, cfg.VectorCollection, embedDim)
		if err != nil {
			log.Fatal().Err(err).Msg("connect qdrant")
		}
		vector = idx
		closers = append(closers, func() { _ = idx.Close() })
	} else {
		backend := mustSnapshotBackend(ctx, cfg)
		memIdx := memory.NewVectorIndexWithBackend(embedDim, backend)
		if err := memIdx.Load(ctx, snapshotFile); err != nil && err != snapshot.ErrNotFound {
			log.Warn().Err(err).Msg("restore vector index snapshot")
		} else if err == nil {
			log.Info().Msg("warm-started vector index from snapshot")
		}
		vector = memIdx
	}

	if cfg.MetadataDSN != "" {
		store, err := pgmetadata.New(ctx, cfg.MetadataDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("connect postgres metadata store")
		}
		metadataStore = store
		closers = append(closers, store.Close)
	} else {
		metadataStore = memory.NewMetadataStore()
	}

	return vector, metadataStore, func() {
		for _, c := range closers {
			c()
		}
	}
}

func mustSnapshotBackend(ctx context.Context, cfg config.Config) snapshot.Backend {
	if cfg.S3Bucket != "" {
		backend, err := snapshot.NewS3Backend(ctx, snapshot.Config{Bucket: cfg.S3Bucket, Prefix: "coreqld"})
		if err != nil {
			log.Fatal().Err(err).Msg("connect s3 snapshot backend")
		}
		return backend
	}
	return snapshot.NewFileBackend(cfg.SnapshotDir)
}

func mustGenerator(cfg config.Config) contracts.Generator {
	switch cfg.GeneratorAPI {
	case "openai":
		return openaigen.New(cfg.Generator, cfg.GeneratorModel)
	default:
		return anthropicgen.New(cfg.Generator, cfg.GeneratorModel)
	}
}
