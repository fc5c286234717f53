// Package breaker wraps each external dependency call in a named
// gobreaker circuit breaker, so a failing embedder, generator,
// record source, vector index, or metadata store fails fast instead of
// piling up latency on every request.
package breaker

import (
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/intelligencedev/clinical-core/internal/apperr"
)

const (
	failureThreshold = 5
	// ResetTimeout is how long a breaker stays OPEN before allowing a
	// single HALF_OPEN probe call through.
	ResetTimeout = 30 * time.Second
)

// Name identifies an external dependency a breaker guards.
type Name string

const (
	Embedder      Name = "embedder"
	Generator     Name = "generator"
	RecordSource  Name = "record_source"
	VectorIndex   Name = "vector_index"
	MetadataStore Name = "metadata_store"
)

var kindForName = map[Name]apperr.Kind{
	Embedder:      apperr.KindEmbedderUnavailable,
	Generator:     apperr.KindGeneratorUnavailable,
	RecordSource:  apperr.KindRecordSourceUnavail,
	VectorIndex:   apperr.KindVectorIndexUnavailable,
	MetadataStore: apperr.KindMetadataStoreUnavail,
}

// Registry holds one breaker per dependency name, process-wide.
type Registry struct {
	mu       sync.Mutex
	breakers map[Name]*gobreaker.CircuitBreaker[any]
}

// NewRegistry builds an empty registry; breakers are created lazily on
// first use so callers never need to enumerate dependency names up front.
func NewRegistry() *Registry {
	return &Registry{breakers: make(map[Name]*gobreaker.CircuitBreaker[any])}
}

func (r *Registry) breakerFor(name Name) *gobreaker.CircuitBreaker[any] {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[name]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        string(name),
		MaxRequests: 1,
		Timeout:     ResetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failureThreshold
		},
	})
	r.breakers[name] = cb
	return cb
}

// State returns the current state of the named dependency's breaker.
func (r *Registry) State(name Name) gobreaker.State {
	return r.breakerFor(name).State()
}

// Call executes fn through the named dependency's breaker. When the
// breaker is open, fn is not invoked and a circuit_open error is returned
// immediately with the dependency's specific unavailable kind as context.
func Call[T any](r *Registry, name Name, fn func() (T, error)) (T, error) {
	cb := r.breakerFor(name)
	v, err := cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		var zero T
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			kind := kindForName[name]
			if kind == "" {
				kind = apperr.KindInternal
			}
			return zero, apperr.Wrap(apperr.KindCircuitOpen, string(name)+" circuit open", apperr.New(kind, string(name)+" unavailable"))
		}
		return zero, err
	}
	return v.(T), nil
}
