package currency

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// ErrRateUnavailable is returned when no rate is cached and the provider
// cannot supply one.
var ErrRateUnavailable = errors.New("exchange rate unavailable")

// Conversion is the result of a currency conversion. Stale is set when the
// rate came from an expired cache entry because the provider was unreachable.
type Conversion struct {
	Amount decimal.Decimal
	Rate   decimal.Decimal
	Stale  bool
}

type entry struct {
	rate      decimal.Decimal
	fetchedAt time.Time
}

// Converter caches exchange rates with a freshness window and converts
// amounts between currencies. A stale entry is kept past expiry as a
// fallback; readers never observe a partially written entry.
type Converter struct {
	provider RateProvider
	ttl      time.Duration
	now      func() time.Time
	log      zerolog.Logger

	mu    sync.RWMutex
	rates map[string]entry // "FROM/TO"

	group singleflight.Group
}

// NewConverter returns a Converter with the given freshness window.
func NewConverter(provider RateProvider, ttl time.Duration, log zerolog.Logger) *Converter {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Converter{
		provider: provider,
		ttl:      ttl,
		now:      func() time.Time { return time.Now().UTC() },
		log:      log,
		rates:    make(map[string]entry),
	}
}

// Convert converts amount from one currency to another, refreshing the cached
// rate when it is missing or past its freshness window. Same-currency
// conversion is a lossless identity.
func (c *Converter) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (Conversion, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if from == "" || to == "" {
		return Conversion{}, fmt.Errorf("convert: currency codes required")
	}
	if from == to {
		return Conversion{Amount: amount, Rate: decimal.NewFromInt(1)}, nil
	}

	key := from + "/" + to
	if e, ok := c.lookup(key); ok && c.fresh(e) {
		return Conversion{Amount: amount.Mul(e.rate).Round(2), Rate: e.rate}, nil
	}

	refreshErr := c.refresh(ctx, from)

	if e, ok := c.lookup(key); ok {
		stale := !c.fresh(e)
		if stale {
			c.log.Warn().Str("pair", key).Time("fetched_at", e.fetchedAt).
				Msg("using stale exchange rate")
		}
		return Conversion{Amount: amount.Mul(e.rate).Round(2), Rate: e.rate, Stale: stale}, nil
	}
	if refreshErr != nil {
		return Conversion{}, fmt.Errorf("%w for %s: %v", ErrRateUnavailable, key, refreshErr)
	}
	return Conversion{}, fmt.Errorf("%w for %s", ErrRateUnavailable, key)
}

// refresh fetches the full rate table for base and stores every quoted pair.
// Concurrent refreshes of the same base collapse into one provider call.
func (c *Converter) refresh(ctx context.Context, base string) error {
	_, err, _ := c.group.Do(base, func() (interface{}, error) {
		table, err := c.provider.Latest(ctx, base)
		if err != nil {
			return nil, err
		}
		fetched := c.now()
		c.mu.Lock()
		for quote, rate := range table.Rates {
			if quote == base {
				continue
			}
			c.rates[base+"/"+quote] = entry{rate: rate, fetchedAt: fetched}
		}
		c.mu.Unlock()
		c.log.Debug().Str("base", base).Int("pairs", len(table.Rates)).Msg("exchange rates refreshed")
		return nil, nil
	})
	return err
}

func (c *Converter) lookup(key string) (entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.rates[key]
	return e, ok
}

func (c *Converter) fresh(e entry) bool {
	return c.now().Sub(e.fetchedAt) < c.ttl
}
