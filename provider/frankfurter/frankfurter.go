// Package frankfurter implements a per-day rate provider on top of the
// free frankfurter.dev API (no API key required).
package frankfurter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sig-0/ratehist/daterange"
	"github.com/sig-0/ratehist/storage/types"
)

var ErrUnexpectedStatus = errors.New("unexpected response status")

// DefaultURL is the frankfurter.dev API base URL
const DefaultURL = "https://api.frankfurter.dev/v1"

const dayFormat = "2006-01-02"

// ratesResponse is the single-day response from the frankfurter API
type ratesResponse struct {
	Rates map[string]float64 `json:"rates"`
	Base  string             `json:"base"`
	Date  string             `json:"date"`
}

// Provider fetches historical daily rates from frankfurter.dev
type Provider struct {
	client *http.Client
	url    string
}

// NewProvider creates a new instance of the frankfurter provider
func NewProvider(url string, timeout time.Duration) *Provider {
	return &Provider{
		client: &http.Client{
			Timeout: timeout,
		},
		url: url,
	}
}

func (p *Provider) Name() string {
	return "Frankfurter"
}

func (p *Provider) FetchDay(
	ctx context.Context,
	day time.Time,
	base types.Currency,
) ([]*types.Rate, error) {
	var (
		fetchTime = time.Now().UTC()
		queryDay  = daterange.Normalize(day)

		reqURL = fmt.Sprintf(
			"%s/%s?base=%s",
			p.url,
			queryDay.Format(dayFormat),
			base.String(),
		)
	)

	// Prepare the request
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("unable to create new GET request: %w", err)
	}

	// Execute the request
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to execute GET request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var apiResp ratesResponse
	if err = json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("unable to decode response: %w", err)
	}

	if len(apiResp.Rates) == 0 {
		return nil, fmt.Errorf("no rates returned for %s", queryDay.Format(dayFormat))
	}

	// Rates are recorded under the requested day, even when the provider
	// echoes back the nearest prior business day
	rates := make([]*types.Rate, 0, len(apiResp.Rates))

	for code, value := range apiResp.Rates {
		rates = append(rates, &types.Rate{
			Day:       queryDay,
			FetchedAt: fetchTime,
			Base:      base,
			Target:    types.Currency(code),
			Rate:      value,
		})
	}

	return rates, nil
}
