// Package recordsource implements contracts.PatientRecordSource over HTTP
// against the external EMR record API. The server returns each
// record kind in bulk, unfiltered by patient_id (a documented external
// quirk); normalize.Normalize is responsible for the client-side filter.
package recordsource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/intelligencedev/clinical-core/internal/config"
	"github.com/intelligencedev/clinical-core/internal/contracts"
	"github.com/intelligencedev/clinical-core/internal/observability"
)

// kinds are the known record kinds fetched concurrently per patient (spec
// §5 intra-request parallelism (i)).
var kinds = []string{"care_plans", "medications", "notes"}

// maxInFlight bounds how many of the record-kind requests run at once.
const maxInFlight = 3

// HTTPSource fetches a patient's full record bundle from baseURL + "/{kind}".
type HTTPSource struct {
	client  *http.Client
	baseURL string
}

// New builds an HTTPSource from an EndpointConfig, wiring the API key as a
// static Authorization header via observability.WithHeaders.
func New(cfg config.EndpointConfig) *HTTPSource {
	client := observability.NewHTTPClient(nil)
	if cfg.APIKey != "" {
		client = observability.WithHeaders(client, map[string]string{
			"Authorization": "Bearer " + cfg.APIKey,
		})
	}
	return &HTTPSource{client: client, baseURL: cfg.BaseURL}
}

func (s *HTTPSource) GetAll(ctx context.Context, patientID string) (contracts.PatientRecordBundle, error) {
	fetchers := make([]contracts.RecordKindFetcher, len(kinds))
	for i, kind := range kinds {
		kind := kind
		fetchers[i] = contracts.RecordKindFetcher{
			Kind: kind,
			Fetch: func(ctx context.Context, patientID string) ([]map[string]any, error) {
				return s.fetchKind(ctx, kind, patientID)
			},
		}
	}
	return contracts.FetchConcurrently(ctx, patientID, maxInFlight, fetchers)
}

func (s *HTTPSource) fetchKind(ctx context.Context, kind, patientID string) ([]map[string]any, error) {
	u := fmt.Sprintf("%s/%s?%s", s.baseURL, kind, url.Values{"patient_id": {patientID}}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("recordsource: build request for %s: %w", kind, err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("recordsource: fetch %s: %w", kind, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("recordsource: fetch %s: status %d", kind, resp.StatusCode)
	}

	var payload struct {
		Data []map[string]any `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("recordsource: decode %s: %w", kind, err)
	}
	return payload.Data, nil
}

var _ contracts.PatientRecordSource = (*HTTPSource)(nil)
