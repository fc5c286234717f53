package contracts

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// RecordKindFetcher fetches one record kind (care_plans, medications,
// notes, ...) for a patient from the external source.
type RecordKindFetcher struct {
	Kind  string
	Fetch func(ctx context.Context, patientID string) ([]map[string]any, error)
}

// FetchConcurrently runs each fetcher concurrently, bounded by maxInFlight,
// and assembles the results into a PatientRecordBundle: all fetchers must
// complete before the bundle is usable, and a single fetcher's failure
// fails the whole fetch.
func FetchConcurrently(ctx context.Context, patientID string, maxInFlight int64, fetchers []RecordKindFetcher) (PatientRecordBundle, error) {
	if maxInFlight <= 0 {
		maxInFlight = int64(len(fetchers))
	}
	sem := semaphore.NewWeighted(maxInFlight)
	group, gctx := errgroup.WithContext(ctx)

	results := make([][]map[string]any, len(fetchers))
	for i, f := range fetchers {
		i, f := i, f
		group.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)
			recs, err := f.Fetch(gctx, patientID)
			if err != nil {
				return err
			}
			results[i] = recs
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return PatientRecordBundle{}, err
	}

	bundle := PatientRecordBundle{PatientID: patientID, Other: make(map[string][]map[string]any)}
	for i, f := range fetchers {
		switch f.Kind {
		case "care_plans":
			bundle.CarePlans = results[i]
		case "medications":
			bundle.Medications = results[i]
		case "notes":
			bundle.Notes = results[i]
		default:
			bundle.Other[f.Kind] = results[i]
		}
	}
	return bundle, nil
}
