package currency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	tables map[string]RateTable
	err    error
	calls  int
}

func (f *fakeProvider) Latest(_ context.Context, base string) (RateTable, error) {
	f.calls++
	if f.err != nil {
		return RateTable{}, f.err
	}
	t, ok := f.tables[base]
	if !ok {
		return RateTable{}, errors.New("unknown base")
	}
	return t, nil
}

func usdEurProvider() *fakeProvider {
	return &fakeProvider{tables: map[string]RateTable{
		"USD": {Base: "USD", Rates: map[string]decimal.Decimal{
			"EUR": decimal.RequireFromString("0.9"),
			"JPY": decimal.RequireFromString("155.2"),
		}},
		"EUR": {Base: "EUR", Rates: map[string]decimal.Decimal{
			"USD": decimal.RequireFromString("1.1111"),
		}},
	}}
}

func TestConvertSameCurrencyIsIdentity(t *testing.T) {
	t.Parallel()
	p := &fakeProvider{}
	c := NewConverter(p, time.Hour, zerolog.Nop())

	for _, code := range []string{"USD", "EUR", "JPY"} {
		amt := decimal.RequireFromString("123.45")
		got, err := c.Convert(context.Background(), amt, code, code)
		require.NoError(t, err)
		require.True(t, got.Amount.Equal(amt))
		require.False(t, got.Stale)
	}
	require.Equal(t, 0, p.calls, "identity conversion must not hit the provider")
}

func TestConvertFetchesAndCaches(t *testing.T) {
	t.Parallel()
	p := usdEurProvider()
	c := NewConverter(p, time.Hour, zerolog.Nop())

	got, err := c.Convert(context.Background(), decimal.RequireFromString("50"), "USD", "EUR")
	require.NoError(t, err)
	require.Equal(t, "45", got.Amount.String())
	require.False(t, got.Stale)
	require.Equal(t, 1, p.calls)

	// one fetch warms every pair for the base
	_, err = c.Convert(context.Background(), decimal.NewFromInt(10), "USD", "JPY")
	require.NoError(t, err)
	require.Equal(t, 1, p.calls)
}

func TestConvertRoundTripWithinTolerance(t *testing.T) {
	t.Parallel()
	c := NewConverter(usdEurProvider(), time.Hour, zerolog.Nop())

	x := decimal.RequireFromString("200.00")
	ab, err := c.Convert(context.Background(), x, "USD", "EUR")
	require.NoError(t, err)
	ba, err := c.Convert(context.Background(), ab.Amount, "EUR", "USD")
	require.NoError(t, err)

	diff := ba.Amount.Sub(x).Abs()
	require.True(t, diff.LessThanOrEqual(decimal.RequireFromString("0.05")),
		"round trip drifted by %s", diff)
}

func TestConvertStaleFallback(t *testing.T) {
	t.Parallel()
	p := usdEurProvider()
	c := NewConverter(p, time.Hour, zerolog.Nop())

	_, err := c.Convert(context.Background(), decimal.NewFromInt(1), "USD", "EUR")
	require.NoError(t, err)

	// expire the cache and break the provider
	c.now = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }
	p.err = errors.New("service down")

	got, err := c.Convert(context.Background(), decimal.NewFromInt(100), "USD", "EUR")
	require.NoError(t, err)
	require.True(t, got.Stale)
	require.Equal(t, "90", got.Amount.String())
}

func TestConvertRateUnavailable(t *testing.T) {
	t.Parallel()
	p := &fakeProvider{err: errors.New("network timeout")}
	c := NewConverter(p, time.Hour, zerolog.Nop())

	_, err := c.Convert(context.Background(), decimal.NewFromInt(5), "EUR", "JPY")
	require.ErrorIs(t, err, ErrRateUnavailable)
}

func TestConvertRefreshAfterExpiryUsesFreshRate(t *testing.T) {
	t.Parallel()
	p := usdEurProvider()
	c := NewConverter(p, time.Hour, zerolog.Nop())

	_, err := c.Convert(context.Background(), decimal.NewFromInt(1), "USD", "EUR")
	require.NoError(t, err)

	p.tables["USD"].Rates["EUR"] = decimal.RequireFromString("0.8")
	c.now = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }

	got, err := c.Convert(context.Background(), decimal.NewFromInt(10), "USD", "EUR")
	require.NoError(t, err)
	require.False(t, got.Stale)
	require.Equal(t, "8", got.Amount.String())
	require.Equal(t, 2, p.calls)
}
