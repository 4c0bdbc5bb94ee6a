// Package nbp fetches USD/PLN (and other) mid rates from the NBP API
// with a persistent per-date cache and a previous-business-day fallback.
// The tax engine depends on this contract: the rate for a non-trading
// day is the rate of the closest preceding business day that has one.
package nbp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/lotfolio/backend/src/logger"
	"github.com/username/lotfolio/backend/src/models"
	"github.com/username/lotfolio/backend/src/store"
	"golang.org/x/time/rate"
)

// ErrRateUnavailable is returned when no rate could be resolved after
// the cache, the live fetch, the backward walk, and the last-known
// fallback have all been exhausted.
var ErrRateUnavailable = errors.New("exchange rate unavailable")

// MaxFallbackDays bounds the backward walk over non-trading days.
const MaxFallbackDays = 10

// rateResponse is the NBP exchangerates payload for a single date.
type rateResponse struct {
	Table    string `json:"table"`
	Currency string `json:"currency"`
	Code     string `json:"code"`
	Rates    []struct {
		No            string  `json:"no"`
		EffectiveDate string  `json:"effectiveDate"`
		Mid           float64 `json:"mid"`
	} `json:"rates"`
}

// Client resolves exchange rates against the NBP API. Lookups go through
// an in-process cache, then the persistent cache in the store, then the
// network. Every successful remote fetch is written back to both caches
// before returning.
type Client struct {
	BaseURL string
	Table   string

	httpClient *http.Client
	limiter    *rate.Limiter
	front      *cache.Cache
	store      store.Store
}

// NewClient creates an NBP client backed by the given store for
// persistent caching. baseURL "" uses the public API; table "" uses
// table A (average rates).
func NewClient(st store.Store, baseURL, table string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "https://api.nbp.pl/api"
	}
	if table == "" {
		table = "a"
	}
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL:    baseURL,
		Table:      table,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Every(100*time.Millisecond), 5),
		front:      cache.New(24*time.Hour, 48*time.Hour),
		store:      st,
	}
}

// USDPLNRate resolves the USD/PLN mid rate for a date.
func (c *Client) USDPLNRate(ctx context.Context, date time.Time) (float64, error) {
	return c.RateFor(ctx, "USD", date)
}

// RateFor resolves the mid rate of currency against PLN for a date.
//
// Lookup order: cache for the exact date, live fetch for the exact
// date, backward walk over preceding business days (each step cached
// under its own date, never under the requested one), and finally the
// most recent cached rate at or before the date when the API cannot be
// reached at all. Returns ErrRateUnavailable when everything fails.
func (c *Client) RateFor(ctx context.Context, currency string, date time.Time) (float64, error) {
	pair := currency + "/PLN"
	dateStr := date.Format(models.DateLayout)

	if rate, ok := c.cachedRate(ctx, pair, dateStr); ok {
		return rate, nil
	}

	rate, status, err := c.fetch(ctx, currency, dateStr)
	switch {
	case err != nil:
		// Network failure: the most recent cached rate is better than
		// nothing, but the caller decides whether that is acceptable.
		if cached, err := c.store.LastRateAtOrBefore(ctx, pair, dateStr); err == nil {
			logger.L.Warn("NBP unreachable, using last cached rate",
				"pair", pair, "requestedDate", dateStr, "cachedDate", cached.Date, "rate", cached.Rate)
			return cached.Rate, nil
		}
		return 0, fmt.Errorf("%w: %s on %s", ErrRateUnavailable, pair, dateStr)
	case status == http.StatusOK:
		c.cacheRate(ctx, pair, dateStr, rate)
		return rate, nil
	case status == http.StatusNotFound:
		// Non-trading day. Walk back to the previous business day.
		return c.previousBusinessDayRate(ctx, currency, pair, date)
	default:
		logger.L.Warn("NBP API returned unexpected status", "status", status, "pair", pair, "date", dateStr)
		if cached, err := c.store.LastRateAtOrBefore(ctx, pair, dateStr); err == nil {
			return cached.Rate, nil
		}
		return 0, fmt.Errorf("%w: %s on %s (status %d)", ErrRateUnavailable, pair, dateStr, status)
	}
}

// LastRateAtOrBefore exposes the "most recent rate at or before" cache
// query for callers that need to know which date a fallback rate came
// from (the backward walk never re-caches under the requested date).
func (c *Client) LastRateAtOrBefore(ctx context.Context, pair string, date time.Time) (*models.ExchangeRate, error) {
	entry, err := c.store.LastRateAtOrBefore(ctx, pair, date.Format(models.DateLayout))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrRateUnavailable
	}
	return entry, err
}

// previousBusinessDayRate walks backward one calendar day at a time,
// skipping Saturdays and Sundays, for at most MaxFallbackDays attempts.
// The first hit is cached under its own date and returned.
func (c *Client) previousBusinessDayRate(ctx context.Context, currency, pair string, date time.Time) (float64, error) {
	current := date
	for i := 0; i < MaxFallbackDays; i++ {
		current = current.AddDate(0, 0, -1)
		if wd := current.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		dateStr := current.Format(models.DateLayout)

		if rate, ok := c.cachedRate(ctx, pair, dateStr); ok {
			return rate, nil
		}

		rate, status, err := c.fetch(ctx, currency, dateStr)
		if err != nil || status != http.StatusOK {
			continue
		}
		c.cacheRate(ctx, pair, dateStr, rate)
		logger.L.Debug("Resolved rate from previous business day",
			"pair", pair, "requestedDate", date.Format(models.DateLayout), "usedDate", dateStr, "rate", rate)
		return rate, nil
	}
	return 0, fmt.Errorf("%w: %s on or before %s", ErrRateUnavailable, pair, date.Format(models.DateLayout))
}

// fetch performs one GET against the NBP API for an exact date.
// It returns the mid rate when status is 200.
func (c *Client) fetch(ctx context.Context, currency, dateStr string) (float64, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, 0, err
	}

	url := fmt.Sprintf("%s/exchangerates/rates/%s/%s/%s/",
		c.BaseURL, c.Table, strings.ToLower(currency), dateStr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, resp.StatusCode, nil
	}

	var payload rateResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, 0, fmt.Errorf("decode NBP response: %w", err)
	}
	if len(payload.Rates) == 0 {
		return 0, 0, fmt.Errorf("NBP response for %s has no rates", dateStr)
	}
	return payload.Rates[0].Mid, http.StatusOK, nil
}

// cachedRate checks the in-process cache, then the persistent cache.
func (c *Client) cachedRate(ctx context.Context, pair, dateStr string) (float64, bool) {
	key := frontKey(pair, dateStr)
	if rate, found := c.front.Get(key); found {
		return rate.(float64), true
	}
	entry, err := c.store.GetRate(ctx, pair, dateStr)
	if err != nil {
		return 0, false
	}
	c.front.Set(key, entry.Rate, cache.DefaultExpiration)
	return entry.Rate, true
}

// cacheRate writes a fetched rate to both caches. Persistence failures
// are logged, not propagated: the caller already has the rate.
func (c *Client) cacheRate(ctx context.Context, pair, dateStr string, rateValue float64) {
	c.front.Set(frontKey(pair, dateStr), rateValue, cache.DefaultExpiration)
	err := c.store.UpsertRate(ctx, &models.ExchangeRate{
		CurrencyPair: pair,
		Rate:         rateValue,
		Date:         dateStr,
		Source:       "NBP",
	})
	if err != nil {
		logger.L.Warn("Failed to persist exchange rate", "pair", pair, "date", dateStr, "error", err)
	}
}

func frontKey(pair, dateStr string) string {
	return fmt.Sprintf("rate-%s-%s", pair, dateStr)
}
