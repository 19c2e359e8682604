package oddsapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"golang.org/x/time/rate"

	"github.com/trendybets/propcore/internal/platform/logging"
	"github.com/trendybets/propcore/internal/platform/resilience"
)

const (
	defaultBaseURL     = "https://api.opticodds.com/api/v3"
	defaultTimeout     = 20 * time.Second
	defaultRequestsPS  = 5
	defaultBurst       = 10
	maxResponseBytes   = 6 << 20
	malformedSampleMax = 512
)

var apiKeyParamRegex = regexp.MustCompile(`(api_key|key)=[^&\s"']+`)
var errProviderTransient = crerr.New("odds provider transient failure")

// ErrUnavailable marks requests rejected before reaching the provider,
// typically because the circuit breaker is open.
var ErrUnavailable = crerr.New("odds provider unavailable")

type ClientConfig struct {
	HTTPClient        *http.Client
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	MaxRetries        int
	RequestsPerSecond float64
	Burst             int
	Logger            *logging.Logger
	CircuitBreaker    resilience.CircuitBreakerConfig
}

// Client talks to the odds provider. The provider is rate limited and
// occasionally returns partial or empty payloads; every fetch method
// flattens the provider's nested envelope before returning.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	maxRetries     int
	limiter        *rate.Limiter
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = defaultTimeout
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRequestsPS
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = defaultBurst
	}

	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         strings.TrimSpace(cfg.APIKey),
		maxRetries:     maxInt(cfg.MaxRetries, 0),
		limiter:        rate.NewLimiter(rate.Limit(rps), burst),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

// FixtureFilters narrows the fixture list. Zero values mean "no filter".
type FixtureFilters struct {
	League       string
	Date         string
	StartsAfter  time.Time
	StartsBefore time.Time
}

// OddsFilters narrows the odds lookup for one fixture.
type OddsFilters struct {
	Markets    []string
	Bookmakers []string
}

// FetchFixtures lists fixtures matching the filters.
func (c *Client) FetchFixtures(ctx context.Context, filters FixtureFilters) ([]Fixture, error) {
	query := map[string]string{}
	if filters.League != "" {
		query["league"] = filters.League
	}
	if filters.Date != "" {
		query["start_date"] = filters.Date
	}
	if !filters.StartsAfter.IsZero() {
		query["start_date_after"] = filters.StartsAfter.UTC().Format(time.RFC3339)
	}
	if !filters.StartsBefore.IsZero() {
		query["start_date_before"] = filters.StartsBefore.UTC().Format(time.RFC3339)
	}

	var envelope fixturesEnvelope
	if _, err := c.doJSON(ctx, "/fixtures", query, &envelope); err != nil {
		return nil, fmt.Errorf("fetch fixtures: %w", err)
	}

	out := make([]Fixture, 0, len(envelope.Data))
	for _, item := range envelope.Data {
		if strings.TrimSpace(item.ID) == "" {
			continue
		}
		out = append(out, mapFixture(item))
	}
	return out, nil
}

// FetchOdds returns the flattened odds rows for one fixture. The provider
// nests them as data[0].odds[]; an empty or malformed envelope degrades to
// an empty slice with a warning, never an error.
func (c *Client) FetchOdds(ctx context.Context, fixtureID string, filters OddsFilters) ([]OddsRecord, error) {
	fixtureID = strings.TrimSpace(fixtureID)
	if fixtureID == "" {
		return nil, fmt.Errorf("fixture id is required")
	}

	query := map[string]string{"fixture_id": fixtureID}
	if len(filters.Markets) > 0 {
		query["market"] = strings.Join(filters.Markets, ",")
	}
	if len(filters.Bookmakers) > 0 {
		query["sportsbook"] = strings.Join(filters.Bookmakers, ",")
	}

	var envelope oddsEnvelope
	raw, err := c.doJSON(ctx, "/fixtures/odds", query, &envelope)
	if err != nil {
		return nil, fmt.Errorf("fetch odds fixture_id=%s: %w", fixtureID, err)
	}

	if len(envelope.Data) == 0 || envelope.Data[0].Odds == nil {
		c.logger.WarnContext(ctx, "odds payload missing nested odds array, treating as empty",
			"fixture_id", fixtureID,
			"payload_sample", abbreviate(raw, malformedSampleMax),
		)
		return nil, nil
	}

	items := envelope.Data[0].Odds
	out := make([]OddsRecord, 0, len(items))
	for _, item := range items {
		record, ok := mapOddsRecord(fixtureID, item)
		if !ok {
			continue
		}
		out = append(out, record)
	}
	return out, nil
}

func (c *Client) doJSON(ctx context.Context, path string, query map[string]string, target any) ([]byte, error) {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "odds provider circuit breaker rejected request", "state", c.breaker.State())
			return nil, fmt.Errorf("%w: circuit open", ErrUnavailable)
		}
	}

	values := url.Values{}
	for key, value := range query {
		values.Set(key, value)
	}
	values.Set("key", c.apiKey)

	fullURL := c.baseURL + path
	if encoded := values.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	flightKey := path + "?" + values.Encode()
	out, err, _ := c.flight.Do(flightKey, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && isCircuitFailure(reqErr) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		return nil, err
	}

	raw, ok := out.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected response payload type %T", out)
	}

	if err := sonic.Unmarshal(raw, target); err != nil {
		return nil, fmt.Errorf("decode provider payload: %w", err)
	}

	return raw, nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %s", errProviderTransient, redactAPIKey(err.Error()))
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("%w: read response body: %v", errProviderTransient, readErr)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			case isRetryableStatus(resp.StatusCode):
				lastErr = fmt.Errorf("%w: provider status=%d body=%s", errProviderTransient, resp.StatusCode, abbreviate(raw, malformedSampleMax))
			default:
				return nil, fmt.Errorf("provider status=%d body=%s", resp.StatusCode, abbreviate(raw, malformedSampleMax))
			}
		}

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * time.Second
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("provider request failed")
	}
	c.logger.WarnContext(ctx, "odds provider request failed", "url", redactAPIKey(fullURL), "error", lastErr)
	return nil, lastErr
}

func isRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func isCircuitFailure(err error) bool {
	return crerr.Is(err, errProviderTransient)
}

func redactAPIKey(value string) string {
	return apiKeyParamRegex.ReplaceAllString(value, "$1=REDACTED")
}

func abbreviate(raw []byte, max int) string {
	text := strings.TrimSpace(string(raw))
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
