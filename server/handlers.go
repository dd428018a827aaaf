package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sig-0/ratehist/daterange"
	"github.com/sig-0/ratehist/storage/types"
)

// defaultLookback bounds the range when no "from" is given
const defaultLookback = 30 // days

var (
	errUnableToFetchRates      = errors.New("unable to fetch rates")
	errUnableToFetchCurrencies = errors.New("unable to fetch currencies")

	errInvalidDate  = errors.New("invalid date (must be YYYY-MM-DD)")
	errInvalidRange = errors.New("invalid range (from is after to)")
)

func (s *Server) RatesForPair(w http.ResponseWriter, r *http.Request) {
	var (
		baseParam   = chi.URLParam(r, "base")
		targetParam = chi.URLParam(r, "target")

		fromParam = r.URL.Query().Get("from")
		toParam   = r.URL.Query().Get("to")
	)

	// Parse the base currency
	base, err := parseCurrencySymbol(baseParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	// Parse the target currency
	target, err := parseCurrencySymbol(targetParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	// Parse the day range (defaults to the last 30 days)
	rng, err := parseRange(fromParam, toParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	rates, err := s.storage.RatesInRange(
		r.Context(),
		base,
		[]types.Currency{target},
		rng,
	)
	if err != nil {
		s.logger.Debug(
			"unable to fetch rates",
			"err", err,
		)

		writeError(
			w,
			http.StatusInternalServerError,
			errUnableToFetchRates,
		)

		return
	}

	resp := &RatesResponse{
		Results: rates,
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) Currencies(w http.ResponseWriter, r *http.Request) {
	items, err := s.storage.ListCurrencies(r.Context())
	if err != nil {
		s.logger.Debug(
			"unable to fetch currencies",
			"err", err,
		)

		writeError(
			w,
			http.StatusInternalServerError,
			errUnableToFetchCurrencies,
		)

		return
	}

	resp := &CurrenciesResponse{
		Results: items,
	}

	writeJSON(w, http.StatusOK, resp)
}

func parseRange(fromRaw, toRaw string) (daterange.Range, error) {
	to := daterange.Normalize(time.Now())

	if v := strings.TrimSpace(toRaw); v != "" {
		t, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return daterange.Range{}, errInvalidDate
		}

		to = t
	}

	from := to.AddDate(0, 0, -defaultLookback)

	if v := strings.TrimSpace(fromRaw); v != "" {
		t, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return daterange.Range{}, errInvalidDate
		}

		from = t
	}

	rng, err := daterange.New(from, to)
	if err != nil {
		return daterange.Range{}, errInvalidRange
	}

	return rng, nil
}

func parseCurrencySymbol(v string) (types.Currency, error) {
	s := strings.ToUpper(strings.TrimSpace(v))
	if len(s) != 3 {
		return "", errors.New("invalid currency (must be 3 letters)")
	}

	for i := 0; i < 3; i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return "", errors.New("invalid currency (must be A-Z)")
		}
	}

	return types.Currency(s), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // Fine to ignore
}

func writeError(w http.ResponseWriter, status int, err error) {
	resp := &ErrorResponse{
		Error: err.Error(),
	}

	writeJSON(w, status, resp)
}
