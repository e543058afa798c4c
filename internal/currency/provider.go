package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RateTable holds every quote returned by one provider fetch for a base.
type RateTable struct {
	Base      string
	Rates     map[string]decimal.Decimal
	FetchedAt time.Time
}

// RateProvider fetches the latest rate table for a base currency.
type RateProvider interface {
	Latest(ctx context.Context, base string) (RateTable, error)
}

// APIClient talks to the exchangerate-api.com v6 endpoint:
// GET {baseURL}/{apiKey}/latest/{base} -> {"result":"success","conversion_rates":{...}}.
type APIClient struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

// NewAPIClient returns a client with a bounded request timeout.
func NewAPIClient(baseURL, apiKey string, timeout time.Duration) *APIClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: timeout},
	}
}

type latestResponse struct {
	Result          string                     `json:"result"`
	ErrorType       string                     `json:"error-type"`
	BaseCode        string                     `json:"base_code"`
	TimeLastUpdate  int64                      `json:"time_last_update_unix"`
	ConversionRates map[string]decimal.Decimal `json:"conversion_rates"`
}

func (c *APIClient) Latest(ctx context.Context, base string) (RateTable, error) {
	base = strings.ToUpper(strings.TrimSpace(base))
	if base == "" {
		return RateTable{}, fmt.Errorf("rate provider: base currency required")
	}
	url := fmt.Sprintf("%s/%s/latest/%s", c.baseURL, c.apiKey, base)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return RateTable{}, fmt.Errorf("rate provider: build request: %w", err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return RateTable{}, fmt.Errorf("rate provider: fetch %s: %w", base, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return RateTable{}, fmt.Errorf("rate provider: fetch %s: status %d", base, resp.StatusCode)
	}
	var body latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return RateTable{}, fmt.Errorf("rate provider: decode: %w", err)
	}
	if body.Result != "success" {
		return RateTable{}, fmt.Errorf("rate provider: %s", nonEmpty(body.ErrorType, "unknown error"))
	}
	if len(body.ConversionRates) == 0 {
		return RateTable{}, fmt.Errorf("rate provider: empty rate table for %s", base)
	}
	fetched := time.Now().UTC()
	if body.TimeLastUpdate > 0 {
		fetched = time.Unix(body.TimeLastUpdate, 0).UTC()
	}
	rates := make(map[string]decimal.Decimal, len(body.ConversionRates))
	for code, rate := range body.ConversionRates {
		rates[strings.ToUpper(code)] = rate
	}
	return RateTable{Base: base, Rates: rates, FetchedAt: fetched}, nil
}

func nonEmpty(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
