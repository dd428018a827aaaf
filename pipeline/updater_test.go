package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sig-0/ratehist/storage/memory"
	"github.com/sig-0/ratehist/storage/mock"
	"github.com/sig-0/ratehist/storage/types"
)

func TestUpdater_New(t *testing.T) {
	t.Parallel()

	u := NewUpdater(
		memory.NewStorage(),
		&mockProvider{},
		types.CurrencyUSD,
		day(2019, time.May, 1),
	)

	require.NotNil(t, u)

	assert.NotNil(t, u.storage)
	assert.NotNil(t, u.logger)
	assert.Equal(t, time.Minute, u.queryInterval)
	assert.Equal(t, day(2019, time.May, 1), u.fallbackStart)
}

func TestUpdater_Start(t *testing.T) {
	t.Parallel()

	t.Run("ctx canceled", func(t *testing.T) {
		t.Parallel()

		var (
			u = NewUpdater(
				memory.NewStorage(),
				&mockProvider{},
				types.CurrencyUSD,
				day(2019, time.May, 1),
				WithQueryInterval(time.Millisecond*10),
				// No day is ever due
				WithClock(func() time.Time {
					return day(2019, time.April, 1)
				}),
			)

			errCh = make(chan error, 1)
		)

		ctx, cancel := context.WithCancel(context.Background())

		go func() {
			errCh <- u.Start(ctx)
		}()

		cancel()

		select {
		case err := <-errCh:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("updater did not shut down in time")
		}
	})

	t.Run("fetches only fully elapsed days", func(t *testing.T) {
		t.Parallel()

		var (
			mu          sync.Mutex
			fetchedDays []time.Time

			bothFetched = make(chan struct{})

			start = day(2019, time.May, 1)

			provider = &mockProvider{
				fetchDayFn: func(
					_ context.Context,
					d time.Time,
					base types.Currency,
				) ([]*types.Rate, error) {
					mu.Lock()
					fetchedDays = append(fetchedDays, d)

					if len(fetchedDays) == 2 {
						close(bothFetched)
					}
					mu.Unlock()

					return []*types.Rate{
						{
							Day:    d,
							Base:   base,
							Target: types.CurrencyEUR,
							Rate:   0.9,
						},
					}, nil
				},
			}

			// Two full days have elapsed past the start date
			u = NewUpdater(
				memory.NewStorage(),
				provider,
				types.CurrencyUSD,
				start,
				WithQueryInterval(time.Millisecond*10),
				WithClock(func() time.Time {
					return start.AddDate(0, 0, 2)
				}),
			)

			errCh = make(chan error, 1)
		)

		ctx, cancel := context.WithCancel(context.Background())

		go func() {
			errCh <- u.Start(ctx)
		}()

		select {
		case <-bothFetched:
			// Success
		case <-time.After(5 * time.Second):
			t.Fatal("timeout waiting for daily updates")
		}

		// Give the loop a moment to (incorrectly) fetch a third day
		time.Sleep(time.Millisecond * 50)

		cancel()
		require.NoError(t, <-errCh)

		mu.Lock()
		defer mu.Unlock()

		// The start day and the day after are fetched; the third day has
		// not elapsed yet
		require.Len(t, fetchedDays, 2)
		assert.Equal(t, start, fetchedDays[0])
		assert.Equal(t, start.AddDate(0, 0, 1), fetchedDays[1])
	})

	t.Run("shuts down cleanly mid catch-up", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var (
			mu         sync.Mutex
			fetchCount int

			start = day(2019, time.May, 1)

			// Cancel after the first fetched day; plenty of further
			// days are already due
			provider = &mockProvider{
				fetchDayFn: func(
					fetchCtx context.Context,
					d time.Time,
					base types.Currency,
				) ([]*types.Rate, error) {
					if err := fetchCtx.Err(); err != nil {
						return nil, err
					}

					mu.Lock()
					fetchCount++
					mu.Unlock()

					cancel()

					return []*types.Rate{
						{
							Day:    d,
							Base:   base,
							Target: types.CurrencyEUR,
							Rate:   0.9,
						},
					}, nil
				},
			}

			u = NewUpdater(
				memory.NewStorage(),
				provider,
				types.CurrencyUSD,
				start,
				WithQueryInterval(time.Millisecond*10),
				WithClock(func() time.Time {
					return start.AddDate(0, 0, 10)
				}),
			)

			errCh = make(chan error, 1)
		)

		go func() {
			errCh <- u.Start(ctx)
		}()

		select {
		case err := <-errCh:
			// Cancellation between due days is a clean shutdown,
			// not a fetch failure
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("updater did not shut down in time")
		}

		mu.Lock()
		defer mu.Unlock()

		assert.Equal(t, 1, fetchCount)
	})

	t.Run("resumes from the latest stored day", func(t *testing.T) {
		t.Parallel()

		var (
			latest = day(2019, time.June, 10)

			firstFetch = make(chan time.Time, 1)

			store = &mock.Storage{
				LatestDayFn: func(_ context.Context, _ types.Currency) (time.Time, bool, error) {
					return latest, true, nil
				},
			}

			provider = &mockProvider{
				fetchDayFn: func(
					_ context.Context,
					d time.Time,
					_ types.Currency,
				) ([]*types.Rate, error) {
					select {
					case firstFetch <- d:
					default:
					}

					return nil, errors.New("stop here")
				},
			}

			u = NewUpdater(
				store,
				provider,
				types.CurrencyUSD,
				day(2019, time.May, 1),
				WithQueryInterval(time.Millisecond*10),
				WithClock(func() time.Time {
					return latest.AddDate(0, 0, 10)
				}),
			)

			errCh = make(chan error, 1)
		)

		go func() {
			errCh <- u.Start(context.Background())
		}()

		select {
		case d := <-firstFetch:
			assert.Equal(t, latest.AddDate(0, 0, 1), d)
		case <-time.After(5 * time.Second):
			t.Fatal("timeout waiting for first fetch")
		}

		// The fetch error surfaces and stops the loop
		select {
		case err := <-errCh:
			assert.Error(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("updater did not stop on fetch error")
		}
	})

	t.Run("empty table falls back to the start date", func(t *testing.T) {
		t.Parallel()

		var (
			fallback = day(2019, time.May, 1)

			firstFetch = make(chan time.Time, 1)

			provider = &mockProvider{
				fetchDayFn: func(
					_ context.Context,
					d time.Time,
					_ types.Currency,
				) ([]*types.Rate, error) {
					select {
					case firstFetch <- d:
					default:
					}

					return nil, nil
				},
			}

			u = NewUpdater(
				memory.NewStorage(),
				provider,
				types.CurrencyUSD,
				fallback,
				WithQueryInterval(time.Millisecond*10),
				WithClock(func() time.Time {
					return fallback.AddDate(0, 0, 1)
				}),
			)

			errCh = make(chan error, 1)
		)

		ctx, cancel := context.WithCancel(context.Background())

		go func() {
			errCh <- u.Start(ctx)
		}()

		select {
		case d := <-firstFetch:
			assert.Equal(t, fallback, d)
		case <-time.After(5 * time.Second):
			t.Fatal("timeout waiting for first fetch")
		}

		cancel()
		require.NoError(t, <-errCh)
	})

	t.Run("storage error on resume", func(t *testing.T) {
		t.Parallel()

		var (
			storageErr = errors.New("storage error")

			store = &mock.Storage{
				LatestDayFn: func(_ context.Context, _ types.Currency) (time.Time, bool, error) {
					return time.Time{}, false, storageErr
				},
			}

			u = NewUpdater(
				store,
				&mockProvider{},
				types.CurrencyUSD,
				day(2019, time.May, 1),
			)
		)

		assert.ErrorIs(t, u.Start(context.Background()), storageErr)
	})
}
