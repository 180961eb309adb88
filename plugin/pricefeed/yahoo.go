// Package pricefeed fetches market prices from the Yahoo Finance chart API.
package pricefeed

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// ErrNoData is returned when the feed has no closing price for a ticker.
var ErrNoData = errors.New("no price data")

var (
	// timeout is the timeout for one chart request. Default to 15 seconds.
	timeout = 15 * time.Second

	// The chart endpoint throttles bursts; the monitor fans out across users.
	defaultLimit = rate.Every(250 * time.Millisecond)
	defaultBurst = 4
)

// Yahoo implements finance.PriceFeed.
type Yahoo struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

type Option func(*Yahoo)

func WithHTTPClient(c *http.Client) Option {
	return func(y *Yahoo) { y.client = c }
}

// WithLimiter replaces the request rate limiter.
func WithLimiter(l *rate.Limiter) Option {
	return func(y *Yahoo) { y.limiter = l }
}

// NewYahoo creates a client for the chart API rooted at baseURL.
func NewYahoo(baseURL string, opts ...Option) *Yahoo {
	y := &Yahoo{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(defaultLimit, defaultBurst),
	}
	for _, opt := range opts {
		opt(y)
	}
	return y
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice *float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Closes returns the daily closing prices of ticker over period ("1d", "5d",
// "1mo", ...), oldest first. Missing bars are skipped.
func (y *Yahoo) Closes(ctx context.Context, ticker, period string) ([]decimal.Decimal, error) {
	chart, err := y.fetch(ctx, ticker, period)
	if err != nil {
		return nil, err
	}
	if len(chart.Chart.Result) == 0 {
		return nil, errors.Wrapf(ErrNoData, "ticker %s", ticker)
	}

	result := chart.Chart.Result[0]
	var closes []decimal.Decimal
	for _, q := range result.Indicators.Quote {
		for _, c := range q.Close {
			if c != nil {
				closes = append(closes, decimal.NewFromFloat(*c))
			}
		}
	}
	if len(closes) == 0 && result.Meta.RegularMarketPrice != nil {
		closes = append(closes, decimal.NewFromFloat(*result.Meta.RegularMarketPrice))
	}
	if len(closes) == 0 {
		return nil, errors.Wrapf(ErrNoData, "ticker %s", ticker)
	}
	return closes, nil
}

// PriceOf returns the last close of ticker over period.
func (y *Yahoo) PriceOf(ctx context.Context, ticker, period string) (decimal.Decimal, error) {
	closes, err := y.Closes(ctx, ticker, period)
	if err != nil {
		return decimal.Zero, err
	}
	return closes[len(closes)-1], nil
}

func (y *Yahoo) fetch(ctx context.Context, ticker, period string) (*chartResponse, error) {
	if err := y.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "rate limit wait")
	}

	q := url.Values{}
	q.Set("range", period)
	q.Set("interval", "1d")
	endpoint := y.baseURL + "/v8/finance/chart/" + url.PathEscape(ticker) + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to construct chart request for %s", ticker)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "finsense")

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch chart for %s", ticker)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read chart response for %s", ticker)
	}

	chart := &chartResponse{}
	if err := json.Unmarshal(b, chart); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, errors.Errorf("failed to fetch chart for %s, status code: %d", ticker, resp.StatusCode)
		}
		return nil, errors.Wrapf(err, "failed to unmarshal chart response for %s", ticker)
	}
	if chart.Chart.Error != nil {
		if resp.StatusCode == http.StatusNotFound {
			return nil, errors.Wrapf(ErrNoData, "ticker %s: %s", ticker, chart.Chart.Error.Description)
		}
		return nil, errors.Errorf("chart error for %s: %s %s", ticker, chart.Chart.Error.Code, chart.Chart.Error.Description)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Errorf("failed to fetch chart for %s, status code: %d", ticker, resp.StatusCode)
	}
	return chart, nil
}
