package pricefeed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestFeed(t *testing.T, handler http.HandlerFunc) *Yahoo {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewYahoo(srv.URL, WithHTTPClient(srv.Client()), WithLimiter(rate.NewLimiter(rate.Inf, 1)))
}

func TestYahoo_Closes(t *testing.T) {
	var gotPath, gotRange string
	feed := newTestFeed(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotRange = r.URL.Query().Get("range")
		_, _ = w.Write([]byte(`{"chart":{"result":[{"meta":{"regularMarketPrice":2050.5},
			"indicators":{"quote":[{"close":[2000.0,null,2100.25]}]}}],"error":null}}`))
	})

	closes, err := feed.Closes(context.Background(), "GC=F", "1mo")
	require.NoError(t, err)
	require.Len(t, closes, 2, "null bars are skipped")
	assert.Equal(t, "2000", closes[0].String())
	assert.Equal(t, "2100.25", closes[1].String())

	assert.Equal(t, "/v8/finance/chart/GC=F", gotPath)
	assert.Equal(t, "1mo", gotRange)
}

func TestYahoo_PriceOf(t *testing.T) {
	feed := newTestFeed(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chart":{"result":[{"meta":{},"indicators":{"quote":[{"close":[60000,63000]}]}}]}}`))
	})

	price, err := feed.PriceOf(context.Background(), "BTC-USD", "1d")
	require.NoError(t, err)
	assert.Equal(t, "63000", price.String())
}

func TestYahoo_FallsBackToMarketPrice(t *testing.T) {
	feed := newTestFeed(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chart":{"result":[{"meta":{"regularMarketPrice":1234.5},"indicators":{"quote":[{}]}}]}}`))
	})

	price, err := feed.PriceOf(context.Background(), "^VNI", "1d")
	require.NoError(t, err)
	assert.Equal(t, "1234.5", price.String())
}

func TestYahoo_NoData(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"unknown symbol", http.StatusNotFound, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`},
		{"empty result", http.StatusOK, `{"chart":{"result":[],"error":null}}`},
		{"no closes", http.StatusOK, `{"chart":{"result":[{"meta":{},"indicators":{"quote":[{"close":[null]}]}}]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			feed := newTestFeed(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := feed.PriceOf(context.Background(), "XYZ-USD", "1d")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrNoData), err.Error())
		})
	}
}

func TestYahoo_ServerError(t *testing.T) {
	feed := newTestFeed(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("bad gateway"))
	})

	_, err := feed.PriceOf(context.Background(), "BTC-USD", "1d")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoData))
	assert.Contains(t, err.Error(), "502")
}

func TestYahoo_ContextCancelled(t *testing.T) {
	feed := newTestFeed(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not be sent")
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := feed.PriceOf(ctx, "BTC-USD", "1d")
	require.Error(t, err)
}
