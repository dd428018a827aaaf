package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sig-0/ratehist/daterange"
	"github.com/sig-0/ratehist/storage/types"
)

type key struct {
	base, target string
	day          int64 // unix seconds, UTC midnight
}

type Storage struct {
	data map[key]types.Rate

	mu sync.RWMutex
}

func NewStorage() *Storage {
	return &Storage{
		data: make(map[key]types.Rate),
	}
}

func (s *Storage) UpsertRate(_ context.Context, r *types.Rate) error {
	k := key{
		base:   r.Base.String(),
		target: r.Target.String(),
		day:    daterange.Normalize(r.Day).Unix(),
	}

	elem := *r
	elem.Day = daterange.Normalize(elem.Day)
	elem.FetchedAt = elem.FetchedAt.UTC()

	s.mu.Lock()
	s.data[k] = elem // key is unique, existing rate is overwritten
	s.mu.Unlock()

	return nil
}

func (s *Storage) RatesInRange(
	_ context.Context,
	base types.Currency,
	targets []types.Currency,
	rng daterange.Range,
) ([]*types.Rate, error) {
	wanted := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		wanted[t.String()] = struct{}{}
	}

	s.mu.RLock()

	out := make([]*types.Rate, 0, rng.Len()*len(targets))

	for _, v := range s.data {
		if v.Base != base {
			continue
		}

		if _, ok := wanted[v.Target.String()]; !ok {
			continue
		}

		if !rng.Contains(v.Day) {
			continue
		}

		cp := v
		out = append(out, &cp)
	}

	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Day.Equal(out[j].Day) {
			return out[i].Day.Before(out[j].Day)
		}

		return out[i].Target.String() < out[j].Target.String()
	})

	return out, nil
}

func (s *Storage) LatestDay(_ context.Context, base types.Currency) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		latest time.Time
		found  bool
	)

	for _, v := range s.data {
		if v.Base != base {
			continue
		}

		if !found || v.Day.After(latest) {
			latest = v.Day
			found = true
		}
	}

	return latest, found, nil
}

func (s *Storage) ListCurrencies(_ context.Context) ([]types.Currency, error) {
	s.mu.RLock()

	seen := make(map[string]struct{})

	for k := range s.data {
		seen[k.base] = struct{}{}
		seen[k.target] = struct{}{}
	}

	s.mu.RUnlock()

	out := make([]types.Currency, 0, len(seen))

	for v := range seen {
		out = append(out, types.Currency(v))
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})

	return out, nil
}
