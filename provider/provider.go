package provider

import (
	"context"
	"time"

	"github.com/sig-0/ratehist/storage/types"
)

// Provider is a single daily exchange rate provider
type Provider interface {
	// Name returns the human-readable name of the provider
	Name() string

	// FetchDay fetches the exchange rates for the given calendar day
	// and base currency, yielding one data point per target currency.
	// The call covers exactly one day, by design: ranged provider queries
	// silently substitute the prior business day around holidays
	FetchDay(ctx context.Context, day time.Time, base types.Currency) ([]*types.Rate, error)
}
