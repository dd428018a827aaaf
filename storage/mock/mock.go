package mock

import (
	"context"
	"time"

	"github.com/sig-0/ratehist/daterange"
	"github.com/sig-0/ratehist/storage/types"
)

type (
	UpsertRateDelegate     func(context.Context, *types.Rate) error
	RatesInRangeDelegate   func(context.Context, types.Currency, []types.Currency, daterange.Range) ([]*types.Rate, error)
	LatestDayDelegate      func(context.Context, types.Currency) (time.Time, bool, error)
	ListCurrenciesDelegate func(context.Context) ([]types.Currency, error)
)

type Storage struct {
	UpsertRateFn     UpsertRateDelegate
	RatesInRangeFn   RatesInRangeDelegate
	LatestDayFn      LatestDayDelegate
	ListCurrenciesFn ListCurrenciesDelegate
}

func (m *Storage) UpsertRate(ctx context.Context, rate *types.Rate) error {
	if m.UpsertRateFn != nil {
		return m.UpsertRateFn(ctx, rate)
	}

	return nil
}

func (m *Storage) RatesInRange(
	ctx context.Context,
	base types.Currency,
	targets []types.Currency,
	rng daterange.Range,
) ([]*types.Rate, error) {
	if m.RatesInRangeFn != nil {
		return m.RatesInRangeFn(ctx, base, targets, rng)
	}

	return nil, nil
}

func (m *Storage) LatestDay(ctx context.Context, base types.Currency) (time.Time, bool, error) {
	if m.LatestDayFn != nil {
		return m.LatestDayFn(ctx, base)
	}

	return time.Time{}, false, nil
}

func (m *Storage) ListCurrencies(ctx context.Context) ([]types.Currency, error) {
	if m.ListCurrenciesFn != nil {
		return m.ListCurrenciesFn(ctx)
	}

	return nil, nil
}
