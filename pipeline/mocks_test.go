package pipeline

import (
	"context"
	"time"

	"github.com/sig-0/ratehist/storage/types"
)

type (
	nameDelegate     func() string
	fetchDayDelegate func(context.Context, time.Time, types.Currency) ([]*types.Rate, error)
)

type mockProvider struct {
	nameFn     nameDelegate
	fetchDayFn fetchDayDelegate
}

func (m *mockProvider) Name() string {
	if m.nameFn != nil {
		return m.nameFn()
	}

	return "mock"
}

func (m *mockProvider) FetchDay(
	ctx context.Context,
	day time.Time,
	base types.Currency,
) ([]*types.Rate, error) {
	if m.fetchDayFn != nil {
		return m.fetchDayFn(ctx, day, base)
	}

	return nil, nil
}
