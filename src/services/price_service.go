package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/lotfolio/backend/src/logger"
	"github.com/username/lotfolio/backend/src/store"
	"golang.org/x/net/publicsuffix"
)

const priceUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency           string  `json:"currency"`
				Symbol             string  `json:"symbol"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
		} `json:"result"`
		Error interface{} `json:"error"`
	} `json:"chart"`
}

// priceServiceImpl pulls current prices from the Yahoo Finance chart
// endpoint. Yahoo wants a browser-ish session, so the client carries a
// cookie jar and warms it up once before the first real request.
type priceServiceImpl struct {
	store      store.Store
	httpClient http.Client
	prices     *cache.Cache

	mu            sync.Mutex
	isInitialized bool
}

// NewPriceService creates a Yahoo-backed price service. Prices are
// cached for 15 minutes; callers that need fresher data wait it out.
func NewPriceService(st store.Store) PriceService {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		logger.L.Error("Failed to create cookie jar", "error", err)
	}
	return &priceServiceImpl{
		store:      st,
		httpClient: http.Client{Jar: jar, Timeout: 20 * time.Second},
		prices:     cache.New(15*time.Minute, 30*time.Minute),
	}
}

func (s *priceServiceImpl) ensureSession(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isInitialized {
		return
	}

	for _, url := range []string{"https://fc.yahoo.com", "https://finance.yahoo.com"} {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			continue
		}
		req.Header.Set("User-Agent", priceUserAgent)
		resp, err := s.httpClient.Do(req)
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
	}
	s.isInitialized = true
}

// CurrentPrice returns the latest market price for a symbol, cached for
// 15 minutes.
func (s *priceServiceImpl) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	if price, found := s.prices.Get(symbol); found {
		return price.(float64), nil
	}
	s.ensureSession(ctx)

	url := fmt.Sprintf("https://query1.finance.yahoo.com/v8/finance/chart/%s?interval=1d&range=1d", symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", priceUserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch price for %s: %w", symbol, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("fetch price for %s: status %d", symbol, resp.StatusCode)
	}

	var payload yahooChartResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decode chart response for %s: %w", symbol, err)
	}
	if len(payload.Chart.Result) == 0 {
		return 0, fmt.Errorf("no chart data for %s", symbol)
	}
	price := payload.Chart.Result[0].Meta.RegularMarketPrice
	if price <= 0 {
		return 0, fmt.Errorf("no market price for %s", symbol)
	}

	s.prices.Set(symbol, price, cache.DefaultExpiration)
	return price, nil
}

// RefreshAll fetches a current price for every stock and persists it.
// A failure on one symbol does not stop the rest.
func (s *priceServiceImpl) RefreshAll(ctx context.Context) error {
	stocks, err := s.store.ListStocks(ctx)
	if err != nil {
		return err
	}
	var lastErr error
	for _, stock := range stocks {
		price, err := s.CurrentPrice(ctx, stock.Symbol)
		if err != nil {
			logger.L.Warn("Failed to refresh price", "symbol", stock.Symbol, "error", err)
			lastErr = err
			continue
		}
		if err := s.store.UpdateStockPrice(ctx, stock.ID, price); err != nil {
			logger.L.Warn("Failed to persist price", "symbol", stock.Symbol, "error", err)
			lastErr = err
		}
	}
	return lastErr
}
