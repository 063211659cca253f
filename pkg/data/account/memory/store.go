package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/code-payments/code-escrow/pkg/data/account"
	"github.com/code-payments/code-escrow/pkg/database/query"
)

type store struct {
	mu      sync.Mutex
	records map[string]*account.Record
	last    uint64
}

type ById []*account.Record

func (a ById) Len() int           { return len(a) }
func (a ById) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a ById) Less(i, j int) bool { return a[i].Id < a[j].Id }

func New() account.Store {
	return &store{
		records: make(map[string]*account.Record),
	}
}

func (s *store) reset() {
	s.mu.Lock()
	s.records = make(map[string]*account.Record)
	s.last = 0
	s.mu.Unlock()
}

func (s *store) findByOwner(owner string) []*account.Record {
	res := make([]*account.Record, 0)
	for _, item := range s.records {
		if item.Owner == owner {
			res = append(res, item)
		}
	}
	sort.Sort(ById(res))
	return res
}

func (s *store) filter(items []*account.Record, cursor query.Cursor, limit uint64, direction query.Ordering) []*account.Record {
	var start uint64

	start = 0
	if direction == query.Descending {
		start = s.last + 1
	}
	if len(cursor) > 0 {
		start = cursor.ToUint64()
	}

	var res []*account.Record
	for _, item := range items {
		if item.Id > start && direction == query.Ascending {
			res = append(res, item)
		}
		if item.Id < start && direction == query.Descending {
			res = append(res, item)
		}
	}

	if direction == query.Descending {
		sort.Sort(sort.Reverse(ById(res)))
	}

	if limit > 0 && len(res) >= int(limit) {
		return res[:limit]
	}

	return res
}

func (s *store) Count(_ context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return uint64(len(s.records)), nil
}

func (s *store) Save(_ context.Context, records ...*account.Record) error {
	for _, record := range records {
		if err := record.Validate(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for _, record := range records {
		if record.IsDeleted() {
			delete(s.records, record.Address)
			continue
		}

		record.LastUpdatedAt = now

		if existing, ok := s.records[record.Address]; ok {
			record.Id = existing.Id
		} else {
			s.last++
			record.Id = s.last
		}

		cloned := record.Clone()
		s.records[record.Address] = &cloned
	}

	return nil
}

func (s *store) Get(_ context.Context, address string) (*account.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.records[address]
	if !ok {
		return nil, account.ErrAccountNotFound
	}

	cloned := item.Clone()
	return &cloned, nil
}

func (s *store) GetMany(_ context.Context, addresses ...string) (map[string]*account.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := make(map[string]*account.Record)
	for _, address := range addresses {
		if item, ok := s.records[address]; ok {
			cloned := item.Clone()
			res[address] = &cloned
		}
	}
	return res, nil
}

func (s *store) GetAllByOwner(_ context.Context, owner string, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*account.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.findByOwner(owner)
	if len(items) == 0 {
		return nil, account.ErrAccountNotFound
	}

	filtered := s.filter(items, cursor, limit, direction)
	if len(filtered) == 0 {
		return nil, account.ErrAccountNotFound
	}

	res := make([]*account.Record, len(filtered))
	for i, item := range filtered {
		cloned := item.Clone()
		res[i] = &cloned
	}
	return res, nil
}
