// Package provider fetches historical bars from remote market data services.
package provider

import (
	"context"
	"time"

	"github.com/rxtech-lab/argo-harvest/internal/logger"
	"github.com/rxtech-lab/argo-harvest/internal/types"
	"github.com/rxtech-lab/argo-harvest/pkg/errors"
)

// ProviderType defines the type of market data provider.
type ProviderType string

const (
	ProviderYahoo   ProviderType = "yahoo"
	ProviderPolygon ProviderType = "polygon"
	ProviderBinance ProviderType = "binance"
)

// Fetcher retrieves the history of one symbol.
type Fetcher interface {
	// Fetch downloads bars for symbol over period at interval. It never returns a Go
	// error: failures are reported as a Failed outcome and an answer without bars
	// as an Empty outcome.
	Fetch(ctx context.Context, symbol string, period types.Period, interval types.Interval) types.FetchOutcome
	// Name identifies the provider in logs and reports.
	Name() string
}

// Config selects and configures a provider.
type Config struct {
	Name     ProviderType  `yaml:"name" json:"name" validate:"omitempty,oneof=yahoo polygon binance"`
	BaseURL  string        `yaml:"base_url" json:"base_url" validate:"omitempty,url"`
	APIKey   string        `yaml:"api_key" json:"api_key"`
	ProxyURL string        `yaml:"proxy_url" json:"proxy_url" validate:"omitempty,url"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout" validate:"gte=0"`
}

// NewFetcher creates a fetcher based on the provider type. An empty name means Yahoo.
func NewFetcher(cfg Config, log *logger.Logger) (Fetcher, error) {
	switch cfg.Name {
	case "", ProviderYahoo:
		fetcher, err := NewYahooFetcher(YahooConfig{
			BaseURL:   cfg.BaseURL,
			ProxyURL:  cfg.ProxyURL,
			Timeout:   cfg.Timeout,
			UserAgent: "",
		}, log)
		if err != nil {
			return nil, err
		}

		return fetcher, nil
	case ProviderPolygon:
		fetcher, err := NewPolygonFetcher(cfg.APIKey, log)
		if err != nil {
			return nil, err
		}

		return fetcher, nil
	case ProviderBinance:
		return NewBinanceFetcher(cfg.BaseURL, log), nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidProvider, "unsupported market data provider: %s", cfg.Name)
	}
}

// unavailable wraps a transport level failure.
func unavailable(provider string, symbol string, err error) types.FetchOutcome {
	return types.Failed(errors.Wrapf(errors.ErrCodeProviderUnavailable, err, "%s: failed to fetch %s", provider, symbol))
}

// unparseable wraps a malformed provider answer.
func unparseable(provider string, symbol string, err error) types.FetchOutcome {
	return types.Failed(errors.Wrapf(errors.ErrCodeProviderParseFailed, err, "%s: malformed answer for %s", provider, symbol))
}
