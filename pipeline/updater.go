package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/sig-0/iq"

	"github.com/sig-0/ratehist/daterange"
	"github.com/sig-0/ratehist/provider"
	"github.com/sig-0/ratehist/storage"
	"github.com/sig-0/ratehist/storage/types"
)

// scheduledDay is a single scheduled daily update job
type scheduledDay struct {
	at  time.Time // when the job becomes due
	day time.Time // the calendar day to fetch
}

// Less is utilized to sort scheduled days by their due-time (earliest == first)
func (a scheduledDay) Less(b scheduledDay) bool {
	return a.at.Before(b.at)
}

// Updater runs the indefinite daily update loop: it resumes from the most
// recently stored day and fetches exactly one new day's rates once that
// day has fully elapsed. The loop runs until the context is cancelled
type Updater struct {
	storage  storage.Storage
	provider provider.Provider
	logger   *slog.Logger

	base          types.Currency
	fallbackStart time.Time // first day to fetch when the table is empty

	q    iq.Queue[scheduledDay]
	qMux sync.Mutex

	queryInterval time.Duration
	now           func() time.Time
}

// NewUpdater creates a new Updater instance
func NewUpdater(
	storage storage.Storage,
	provider provider.Provider,
	base types.Currency,
	fallbackStart time.Time,
	opts ...UpdateOption,
) *Updater {
	u := &Updater{
		storage:       storage,
		provider:      provider,
		base:          base,
		fallbackStart: daterange.Normalize(fallbackStart),
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		q:             iq.NewQueue[scheduledDay](),
		queryInterval: time.Minute,
		now:           time.Now,
	}

	// Apply the options
	for _, opt := range opts {
		opt(u)
	}

	return u
}

// Start starts the daily update loop [BLOCKING].
// It returns nil on context cancellation, and the encountered error on
// the first fetch or storage failure
func (u *Updater) Start(ctx context.Context) error {
	// Determine the day to resume from
	firstDay, err := u.resumeDay(ctx)
	if err != nil {
		return err
	}

	u.scheduleDay(firstDay)

	u.logger.Info(
		"updater started",
		"provider", u.provider.Name(),
		"base", u.base,
		"next_day", firstDay.Format(time.DateOnly),
	)

	ticker := time.NewTicker(u.queryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			u.logger.Info("updater shut down")

			return nil
		case <-ticker.C:
			for {
				// Bail out between due days on shutdown, instead of
				// surfacing the cancellation as a fetch failure
				if ctx.Err() != nil {
					u.logger.Info("updater shut down")

					return nil
				}

				next := u.nextDue()
				if next == nil {
					break // nothing is due yet
				}

				if err := u.updateDay(ctx, next.day); err != nil {
					return err
				}

				// Queue up the following day
				u.scheduleDay(next.day.AddDate(0, 0, 1))
			}
		}
	}
}

// resumeDay computes the first day the updater should fetch: the latest
// stored day plus one, or the fallback start when the table is empty
func (u *Updater) resumeDay(ctx context.Context) (time.Time, error) {
	latest, ok, err := u.storage.LatestDay(ctx, u.base)
	if err != nil {
		return time.Time{}, fmt.Errorf("unable to determine resume day: %w", err)
	}

	if !ok {
		return u.fallbackStart, nil
	}

	return daterange.Normalize(latest).AddDate(0, 0, 1), nil
}

// updateDay fetches and upserts exactly one day's rates
func (u *Updater) updateDay(ctx context.Context, day time.Time) error {
	rates, err := u.provider.FetchDay(ctx, day, u.base)
	if err != nil {
		return fmt.Errorf(
			"unable to fetch rates for %s: %w",
			day.Format(time.DateOnly),
			err,
		)
	}

	if err := upsertDay(ctx, u.storage, u.base, day, rates); err != nil {
		return err
	}

	u.logger.Info(
		"daily update saved",
		"day", day.Format(time.DateOnly),
		"rates", len(rates),
	)

	return nil
}

// scheduleDay queues the given day, due once it has fully elapsed in UTC,
// so the provider's end-of-day value is authoritative
func (u *Updater) scheduleDay(day time.Time) {
	u.qMux.Lock()
	defer u.qMux.Unlock()

	d := daterange.Normalize(day)

	u.q.Push(scheduledDay{
		at:  d.AddDate(0, 0, 1),
		day: d,
	})
}

// nextDue fetches the next due update job, as of the moment of calling
func (u *Updater) nextDue() *scheduledDay {
	u.qMux.Lock()
	defer u.qMux.Unlock()

	if u.q.Len() == 0 {
		return nil // nothing scheduled
	}

	// Check if the top element is due
	if u.q.Index(0).at.After(u.now().UTC()) {
		return nil // next job is in the future
	}

	return u.q.PopFront()
}
