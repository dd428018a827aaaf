package frankfurter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sig-0/ratehist/storage/types"
)

func TestProvider_FetchDay(t *testing.T) {
	t.Parallel()

	t.Run("valid response", func(t *testing.T) {
		t.Parallel()

		var (
			day = time.Date(2019, time.May, 1, 0, 0, 0, 0, time.UTC)

			srv = httptest.NewServer(http.HandlerFunc(
				func(w http.ResponseWriter, r *http.Request) {
					assert.Equal(t, "/2019-05-01", r.URL.Path)
					assert.Equal(t, "USD", r.URL.Query().Get("base"))

					w.Header().Set("Content-Type", "application/json")

					_, _ = w.Write([]byte(
						`{"base":"USD","date":"2019-05-01","rates":{"EUR":0.8914,"CAD":1.3421}}`,
					))
				},
			))
		)

		defer srv.Close()

		p := NewProvider(srv.URL, time.Second*5)

		rates, err := p.FetchDay(context.Background(), day, types.CurrencyUSD)
		require.NoError(t, err)
		require.Len(t, rates, 2)

		byTarget := make(map[types.Currency]*types.Rate, len(rates))

		for _, r := range rates {
			assert.Equal(t, types.CurrencyUSD, r.Base)
			assert.Equal(t, day, r.Day)
			assert.False(t, r.FetchedAt.IsZero())

			byTarget[r.Target] = r
		}

		require.Contains(t, byTarget, types.CurrencyEUR)
		require.Contains(t, byTarget, types.CurrencyCAD)

		assert.Equal(t, 0.8914, byTarget[types.CurrencyEUR].Rate)
		assert.Equal(t, 1.3421, byTarget[types.CurrencyCAD].Rate)
	})

	t.Run("day is normalized in the query", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/2019-05-01", r.URL.Path)

				_, _ = w.Write([]byte(
					`{"base":"USD","date":"2019-05-01","rates":{"EUR":0.9}}`,
				))
			},
		))
		defer srv.Close()

		var (
			p = NewProvider(srv.URL, time.Second*5)

			// Mid-day timestamp, not a clean calendar day
			day = time.Date(2019, time.May, 1, 15, 4, 5, 0, time.UTC)
		)

		rates, err := p.FetchDay(context.Background(), day, types.CurrencyUSD)
		require.NoError(t, err)
		require.Len(t, rates, 1)

		assert.Equal(
			t,
			time.Date(2019, time.May, 1, 0, 0, 0, 0, time.UTC),
			rates[0].Day,
		)
	})

	t.Run("non-success status", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(
			func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
		))
		defer srv.Close()

		p := NewProvider(srv.URL, time.Second*5)

		_, err := p.FetchDay(
			context.Background(),
			time.Date(2019, time.May, 1, 0, 0, 0, 0, time.UTC),
			types.CurrencyUSD,
		)

		assert.ErrorIs(t, err, ErrUnexpectedStatus)
	})

	t.Run("malformed payload", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(
			func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{not-json`))
			},
		))
		defer srv.Close()

		p := NewProvider(srv.URL, time.Second*5)

		_, err := p.FetchDay(
			context.Background(),
			time.Date(2019, time.May, 1, 0, 0, 0, 0, time.UTC),
			types.CurrencyUSD,
		)

		assert.Error(t, err)
	})

	t.Run("empty rates payload", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(
			func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"base":"USD","date":"2019-05-01","rates":{}}`))
			},
		))
		defer srv.Close()

		p := NewProvider(srv.URL, time.Second*5)

		_, err := p.FetchDay(
			context.Background(),
			time.Date(2019, time.May, 1, 0, 0, 0, 0, time.UTC),
			types.CurrencyUSD,
		)

		assert.Error(t, err)
	})
}
