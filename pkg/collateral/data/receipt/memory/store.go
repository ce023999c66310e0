package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/code-payments/collateral-server/pkg/collateral/data/receipt"
)

type store struct {
	mu      sync.Mutex
	records []*receipt.Record
}

// New returns a new in memory receipt.Store
func New() receipt.Store {
	return &store{}
}

// Put implements receipt.Store.Put
func (s *store) Put(_ context.Context, data *receipt.Record) error {
	if err := data.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if item := s.findById(data.Id); item != nil {
		return receipt.ErrReceiptExists
	}

	if data.CreatedAt.IsZero() {
		data.CreatedAt = time.Now()
	}
	c := data.Clone()
	s.records = append(s.records, &c)

	return nil
}

// Get implements receipt.Store.Get
func (s *store) Get(_ context.Context, id uuid.UUID) (*receipt.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item := s.findById(id); item != nil {
		cloned := item.Clone()
		return &cloned, nil
	}
	return nil, receipt.ErrReceiptNotFound
}

// GetAllByCollateral implements receipt.Store.GetAllByCollateral
func (s *store) GetAllByCollateral(_ context.Context, collateral string, limit uint64) ([]*receipt.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res []*receipt.Record
	for _, item := range s.records {
		if item.Collateral == collateral {
			cloned := item.Clone()
			res = append(res, &cloned)
		}
	}

	if len(res) == 0 {
		return nil, receipt.ErrReceiptNotFound
	}

	sort.SliceStable(res, func(i, j int) bool {
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})

	if limit > 0 && uint64(len(res)) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (s *store) findById(id uuid.UUID) *receipt.Record {
	for _, item := range s.records {
		if item.Id == id {
			return item
		}
	}
	return nil
}

func (s *store) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
}
