package server

import "github.com/sig-0/ratehist/storage/types"

type RatesResponse struct {
	Results []*types.Rate `json:"results"`
}

type CurrenciesResponse struct {
	Results []types.Currency `json:"results"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
