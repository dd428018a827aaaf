package plot

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sig-0/ratehist/daterange"
	"github.com/sig-0/ratehist/storage/memory"
	"github.com/sig-0/ratehist/storage/mock"
	"github.com/sig-0/ratehist/storage/types"
)

func day(d int) time.Time {
	return time.Date(2019, time.January, d, 0, 0, 0, 0, time.UTC)
}

// populatedStorage fills a memory store with a full (day, target) grid
func populatedStorage(
	t *testing.T,
	base types.Currency,
	targets []types.Currency,
	rng daterange.Range,
) *memory.Storage {
	t.Helper()

	store := memory.NewStorage()

	for d := range rng.Days() {
		for i, target := range targets {
			require.NoError(t, store.UpsertRate(context.Background(), &types.Rate{
				Day:       d,
				FetchedAt: time.Now().UTC(),
				Base:      base,
				Target:    target,
				Rate:      1.0 + float64(i)/10,
			}))
		}
	}

	return store
}

func TestPlotter_Render(t *testing.T) {
	t.Parallel()

	t.Run("two series over a covered range", func(t *testing.T) {
		t.Parallel()

		rng, err := daterange.New(day(1), day(5))
		require.NoError(t, err)

		targets := []types.Currency{
			types.CurrencyCAD,
			types.CurrencyMXN,
			types.CurrencyUSD, // base self-rate
		}

		var (
			store = populatedStorage(t, types.CurrencyUSD, targets, rng)
			p     = NewPlotter(store)

			buf bytes.Buffer
		)

		require.NoError(t, p.Render(
			context.Background(),
			&buf,
			types.CurrencyUSD,
			[]types.Currency{types.CurrencyCAD, types.CurrencyMXN},
			rng,
		))

		out := buf.String()

		require.NotEmpty(t, out)

		// One series per requested currency, plus the base
		assert.Contains(t, out, "CAD")
		assert.Contains(t, out, "MXN")
		assert.Contains(t, out, "USD")

		// One point per date in range
		assert.Contains(t, out, "2019-01-01")
		assert.Contains(t, out, "2019-01-05")
	})

	t.Run("caller target slice is not written to", func(t *testing.T) {
		t.Parallel()

		rng, err := daterange.New(day(1), day(2))
		require.NoError(t, err)

		store := populatedStorage(
			t,
			types.CurrencyUSD,
			[]types.Currency{types.CurrencyCAD, types.CurrencyUSD},
			rng,
		)

		// The target slice has spare capacity behind it
		backing := []types.Currency{types.CurrencyCAD, types.CurrencyMXN}
		targets := backing[:1]

		var buf bytes.Buffer

		require.NoError(t, NewPlotter(store).Render(
			context.Background(),
			&buf,
			types.CurrencyUSD,
			targets,
			rng,
		))

		// Appending the base must not leak into the caller's backing array
		assert.Equal(t, []types.Currency{types.CurrencyCAD}, targets)
		assert.Equal(t, types.CurrencyMXN, backing[1])
	})

	t.Run("missing data produces no output", func(t *testing.T) {
		t.Parallel()

		rng, err := daterange.New(day(1), day(5))
		require.NoError(t, err)

		// Only CAD is stored; MXN was never gathered
		var (
			store = populatedStorage(
				t,
				types.CurrencyUSD,
				[]types.Currency{types.CurrencyCAD, types.CurrencyUSD},
				rng,
			)

			p = NewPlotter(store)

			buf bytes.Buffer
		)

		err = p.Render(
			context.Background(),
			&buf,
			types.CurrencyUSD,
			[]types.Currency{types.CurrencyCAD, types.CurrencyMXN},
			rng,
		)

		assert.ErrorIs(t, err, ErrMissingData)
		assert.Zero(t, buf.Len()) // no partial rendering
	})

	t.Run("missing day produces no output", func(t *testing.T) {
		t.Parallel()

		stored, err := daterange.New(day(1), day(3))
		require.NoError(t, err)

		requested, err := daterange.New(day(1), day(5))
		require.NoError(t, err)

		var (
			store = populatedStorage(
				t,
				types.CurrencyUSD,
				[]types.Currency{types.CurrencyCAD, types.CurrencyUSD},
				stored,
			)

			p = NewPlotter(store)

			buf bytes.Buffer
		)

		err = p.Render(
			context.Background(),
			&buf,
			types.CurrencyUSD,
			[]types.Currency{types.CurrencyCAD},
			requested,
		)

		assert.ErrorIs(t, err, ErrMissingData)
		assert.Zero(t, buf.Len())
	})

	t.Run("storage error", func(t *testing.T) {
		t.Parallel()

		var (
			storageErr = errors.New("storage error")

			store = &mock.Storage{
				RatesInRangeFn: func(
					_ context.Context,
					_ types.Currency,
					_ []types.Currency,
					_ daterange.Range,
				) ([]*types.Rate, error) {
					return nil, storageErr
				},
			}

			p = NewPlotter(store)

			buf bytes.Buffer
		)

		rng, err := daterange.New(day(1), day(2))
		require.NoError(t, err)

		err = p.Render(
			context.Background(),
			&buf,
			types.CurrencyUSD,
			[]types.Currency{types.CurrencyCAD},
			rng,
		)

		assert.ErrorIs(t, err, storageErr)
		assert.Zero(t, buf.Len())
	})
}
