package toolkit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/fmogensen/agentswarm-tools-sub000/internal/log"
	"github.com/fmogensen/agentswarm-tools-sub000/internal/tools"
)

// defaultRatesEndpoint serves daily reference rates without an API key.
const defaultRatesEndpoint = "https://open.er-api.com/v6/latest"

// ExchangeRates fetches currency reference rates for a base currency.
//
// Rates refresh daily upstream, so results are cached on the base and symbols
// fields with a short TTL, and admission is bounded per upstream scope rather
// than per tool.
type ExchangeRates struct {
	client   *http.Client
	endpoint string
	logger   log.Logger
}

// NewExchangeRates creates the adapter. A nil client uses a default with a
// request timeout; the pipeline itself imposes none.
func NewExchangeRates(client *http.Client, logger log.Logger) *ExchangeRates {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &ExchangeRates{client: client, endpoint: defaultRatesEndpoint, logger: logger}
}

func (e *ExchangeRates) Name() string { return "exchange_rates" }

func (e *ExchangeRates) Description() string {
	return "Fetches daily currency exchange rates for a base currency, optionally filtered to specific symbols."
}

func (e *ExchangeRates) Schema() *jsonschema.Schema {
	return tools.ObjectSchema(map[string]*jsonschema.Schema{
		"base": {
			Type:        "string",
			Description: "ISO 4217 base currency code, e.g. USD.",
			MinLength:   tools.IntPtr(3),
			MaxLength:   tools.IntPtr(3),
		},
		"symbols": {
			Type:        "string",
			Description: "Comma-separated ISO 4217 codes to filter the response, e.g. EUR,DKK.",
			MaxLength:   tools.IntPtr(128),
		},
	}, "base")
}

// CacheSpec keys on base and symbols only; any display-oriented fields added
// later stay out of the key.
func (e *ExchangeRates) CacheSpec() tools.CacheSpec {
	return tools.CacheSpec{Fields: []string{"base", "symbols"}, TTL: 15 * time.Minute}
}

// RateSpec bounds all invocations against the shared upstream quota.
func (e *ExchangeRates) RateSpec() tools.RateSpec {
	return tools.RateSpec{Scope: "er-api", Limit: 30}
}

// ValidateParams checks the symbol list, a cross-field rule the schema cannot
// express.
func (e *ExchangeRates) ValidateParams(p tools.Params) error {
	for _, s := range splitSymbols(p.String("symbols", "")) {
		if len(s) != 3 {
			return tools.NewError(tools.KindValidation, "invalid currency code %q in symbols", s)
		}
	}
	return nil
}

func (e *ExchangeRates) MockResult(p tools.Params) any {
	return map[string]any{
		"base":  strings.ToUpper(p.String("base", "USD")),
		"rates": map[string]any{"EUR": 0.92, "DKK": 6.87, "JPY": 148.3},
	}
}

type ratesResponse struct {
	Result string             `json:"result"`
	Base   string             `json:"base_code"`
	Rates  map[string]float64 `json:"rates"`
}

func (e *ExchangeRates) Execute(ctx context.Context, p tools.Params) (any, error) {
	base := strings.ToUpper(p.String("base", ""))

	url := fmt.Sprintf("%s/%s", e.endpoint, base)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building rates request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching rates for %s: %w", base, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rates upstream returned %s for %s", resp.Status, base)
	}

	var decoded ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding rates response: %w", err)
	}
	if decoded.Result != "success" {
		return nil, fmt.Errorf("rates upstream rejected base %q", base)
	}

	rates := decoded.Rates
	if symbols := splitSymbols(p.String("symbols", "")); len(symbols) > 0 {
		rates = filterRates(decoded.Rates, symbols)
	}

	return map[string]any{"base": decoded.Base, "rates": rates}, nil
}

func splitSymbols(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.ToUpper(strings.TrimSpace(p)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func filterRates(rates map[string]float64, symbols []string) map[string]float64 {
	out := make(map[string]float64, len(symbols))
	for _, s := range symbols {
		if v, ok := rates[s]; ok {
			out[s] = v
		}
	}
	return out
}
