package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/open-crosspost/scheduler-service/internal/store"
)

// DeliveryLogStore is an in-memory store.DeliveryLogStore, used in tests and
// in a Postgres-less dev mode.
type DeliveryLogStore struct {
	mu      sync.Mutex
	records []store.DeliveryRecord
}

func NewDeliveryLogStore() *DeliveryLogStore {
	return &DeliveryLogStore{}
}

func (s *DeliveryLogStore) Record(ctx context.Context, rec store.DeliveryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *DeliveryLogStore) ListForJob(ctx context.Context, jobID uuid.UUID, limit int) ([]store.DeliveryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 {
		limit = 50
	}

	var matched []store.DeliveryRecord
	for _, r := range s.records {
		if r.JobID == jobID {
			matched = append(matched, r)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].AttemptedAt.After(matched[j].AttemptedAt)
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

var _ store.DeliveryLogStore = (*DeliveryLogStore)(nil)
