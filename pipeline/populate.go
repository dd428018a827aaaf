package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/rs/xid"

	"github.com/sig-0/ratehist/daterange"
	"github.com/sig-0/ratehist/provider"
	"github.com/sig-0/ratehist/storage"
	"github.com/sig-0/ratehist/storage/types"
)

// Populator sequentially populates the rate table over a day range,
// one provider fetch per calendar day
type Populator struct {
	storage  storage.Storage
	provider provider.Provider
	logger   *slog.Logger

	base types.Currency
}

// NewPopulator creates a new Populator instance
func NewPopulator(
	storage storage.Storage,
	provider provider.Provider,
	base types.Currency,
	opts ...PopulateOption,
) *Populator {
	p := &Populator{
		storage:  storage,
		provider: provider,
		base:     base,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	// Apply the options
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Run populates the table for every day in the given range, in order.
// Re-runs over an overlapping range are idempotent, since each day's
// rates are upserted. The first fetch or storage error aborts the run
func (p *Populator) Run(ctx context.Context, rng daterange.Range) error {
	runID := xid.New()

	p.logger.Info(
		"population run started",
		"run_id", runID.String(),
		"provider", p.provider.Name(),
		"base", p.base,
		"start", rng.Start().Format(time.DateOnly),
		"end", rng.End().Format(time.DateOnly),
		"days", rng.Len(),
	)

	for day := range rng.Days() {
		if err := ctx.Err(); err != nil {
			return err
		}

		rates, err := p.provider.FetchDay(ctx, day, p.base)
		if err != nil {
			return fmt.Errorf(
				"unable to fetch rates for %s: %w",
				day.Format(time.DateOnly),
				err,
			)
		}

		if err := upsertDay(ctx, p.storage, p.base, day, rates); err != nil {
			return err
		}

		p.logger.Info(
			"populated day",
			"run_id", runID.String(),
			"day", day.Format(time.DateOnly),
			"rates", len(rates),
		)
	}

	p.logger.Info(
		"population run complete",
		"run_id", runID.String(),
	)

	return nil
}

// upsertDay saves a single day's worth of rates, together with the base
// self-rate (1.0), so the base currency reads from the table like any
// other series
func upsertDay(
	ctx context.Context,
	store storage.Storage,
	base types.Currency,
	day time.Time,
	rates []*types.Rate,
) error {
	selfRate := &types.Rate{
		Day:       daterange.Normalize(day),
		FetchedAt: time.Now().UTC(),
		Base:      base,
		Target:    base,
		Rate:      1.0,
	}

	if err := store.UpsertRate(ctx, selfRate); err != nil {
		return fmt.Errorf(
			"unable to save rate for %s: %w",
			day.Format(time.DateOnly),
			err,
		)
	}

	for _, rate := range rates {
		if err := store.UpsertRate(ctx, rate); err != nil {
			return fmt.Errorf(
				"unable to save rate for %s: %w",
				day.Format(time.DateOnly),
				err,
			)
		}
	}

	return nil
}
