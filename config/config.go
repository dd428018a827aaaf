package config

import (
	"errors"
	"os"
	"regexp"
	"time"

	"github.com/pelletier/go-toml"
)

const (
	DefaultListenAddress = "0.0.0.0:8545"
	DefaultBaseCurrency  = "USD"
	DefaultStartDate     = "2019-05-01"
	DefaultChartOutput   = "rates.html"
	DefaultProviderURL   = "https://api.frankfurter.dev/v1"
)

// DefaultFetchTimeout is the per-request provider timeout
const DefaultFetchTimeout = time.Second * 30

var (
	ErrInvalidListenAddress = errors.New("invalid listen address")
	ErrInvalidBaseCurrency  = errors.New("invalid base currency")
	ErrInvalidStartDate     = errors.New("invalid start date")
)

var (
	listenAddressRegex = regexp.MustCompile(`^\d{1,3}(\.\d{1,3}){3}:\d+$`)
	currencyRegex      = regexp.MustCompile(`^[A-Z]{3}$`)
)

// Config defines the base-level application configuration
type Config struct {
	// The associated CORS config, if any
	CORSConfig *CORS `toml:"cors_config"`

	// The address at which the read API will be served.
	// Format should be: <IP>:<PORT>
	ListenAddress string `toml:"listen_address"`

	// The default base currency (ISO-4217 code)
	BaseCurrency string `toml:"base_currency"`

	// The default population start date, YYYY-MM-DD
	StartDate string `toml:"start_date"`

	// The output path for rendered charts
	ChartOutput string `toml:"chart_output"`

	// The rates provider base URL
	ProviderURL string `toml:"provider_url"`
}

// DefaultConfig returns the default application configuration
func DefaultConfig() *Config {
	return &Config{
		ListenAddress: DefaultListenAddress,
		BaseCurrency:  DefaultBaseCurrency,
		StartDate:     DefaultStartDate,
		ChartOutput:   DefaultChartOutput,
		ProviderURL:   DefaultProviderURL,
		CORSConfig:    DefaultCORSConfig(),
	}
}

// ValidateConfig validates the application configuration
func ValidateConfig(config *Config) error {
	// Validate the listen address
	if !listenAddressRegex.MatchString(config.ListenAddress) {
		return ErrInvalidListenAddress
	}

	// Validate the base currency
	if !currencyRegex.MatchString(config.BaseCurrency) {
		return ErrInvalidBaseCurrency
	}

	// Validate the start date
	if _, err := time.Parse(time.DateOnly, config.StartDate); err != nil {
		return ErrInvalidStartDate
	}

	return nil
}

// Read reads the configuration from the given path
func Read(path string) (*Config, error) {
	// Read the config file
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Parse it
	var cfg Config

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
