package plot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/sig-0/ratehist/daterange"
	"github.com/sig-0/ratehist/storage"
	"github.com/sig-0/ratehist/storage/types"
)

var ErrMissingData = errors.New("requested rates are not stored")

// Plotter renders comparative exchange rate charts from stored data.
// It never populates the table on its own behalf: plotting a day or
// currency that was not previously gathered is an error
type Plotter struct {
	storage storage.Storage
}

// NewPlotter creates a new Plotter instance
func NewPlotter(storage storage.Storage) *Plotter {
	return &Plotter{
		storage: storage,
	}
}

// Render reads the stored rates for the given base, targets and day range,
// and writes an HTML line chart with one series per target currency.
// The full (day, target) grid is validated before anything is written,
// so a missing data point produces no partial output
func (p *Plotter) Render(
	ctx context.Context,
	w io.Writer,
	base types.Currency,
	targets []types.Currency,
	rng daterange.Range,
) error {
	// The base currency is always part of the comparison
	targets = withBase(targets, base)

	rows, err := p.storage.RatesInRange(ctx, base, targets, rng)
	if err != nil {
		return fmt.Errorf("unable to read stored rates: %w", err)
	}

	// Index the rows by (day, target)
	byCell := make(map[string]float64, len(rows))
	for _, r := range rows {
		byCell[cellKey(r.Day, r.Target)] = r.Rate
	}

	// Validate the full grid before rendering anything
	series := make(map[types.Currency][]opts.LineData, len(targets))
	labels := make([]string, 0, rng.Len())

	for day := range rng.Days() {
		labels = append(labels, day.Format(time.DateOnly))

		for _, target := range targets {
			value, ok := byCell[cellKey(day, target)]
			if !ok {
				return fmt.Errorf(
					"%w: %s/%s on %s",
					ErrMissingData,
					base,
					target,
					day.Format(time.DateOnly),
				)
			}

			series[target] = append(series[target], opts.LineData{Value: value})
		}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: fmt.Sprintf("Exchange rates, base %s", base),
			Subtitle: fmt.Sprintf(
				"%s to %s",
				rng.Start().Format(time.DateOnly),
				rng.End().Format(time.DateOnly),
			),
		}),
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "ratehist",
		}),
	)

	line.SetXAxis(labels)

	for _, target := range targets {
		line.AddSeries(target.String(), series[target])
	}

	// Render to a buffer first, so a render failure leaves w untouched
	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		return fmt.Errorf("unable to render chart: %w", err)
	}

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("unable to write chart: %w", err)
	}

	return nil
}

// withBase appends the base currency to the target list, unless present.
// The result is a fresh slice, so the caller's slice is never written to
func withBase(targets []types.Currency, base types.Currency) []types.Currency {
	for _, t := range targets {
		if t == base {
			return targets
		}
	}

	out := make([]types.Currency, 0, len(targets)+1)
	out = append(out, targets...)

	return append(out, base)
}

func cellKey(day time.Time, target types.Currency) string {
	return day.Format(time.DateOnly) + "/" + target.String()
}
