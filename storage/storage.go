package storage

import (
	"context"
	"time"

	"github.com/sig-0/ratehist/daterange"
	"github.com/sig-0/ratehist/storage/types"
)

// Storage is an abstraction over daily exchange rate data
type Storage interface {
	// UpsertRate saves the given rate data point, overwriting any
	// existing rate for the same (day, base, target) key
	UpsertRate(context.Context, *types.Rate) error

	// RatesInRange fetches the stored rates for the given base and targets,
	// for every day in the given range, ordered by day ascending
	RatesInRange(context.Context, types.Currency, []types.Currency, daterange.Range) ([]*types.Rate, error)

	// LatestDay returns the most recent stored day for the given base
	// currency. The bool result is false when no rows exist for the base
	LatestDay(context.Context, types.Currency) (time.Time, bool, error)

	// ListCurrencies lists all distinct currencies present
	ListCurrencies(context.Context) ([]types.Currency, error)
}
