package thesports

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"

	"github.com/riskibarqy/match-tracker/internal/domain/reference"
	"github.com/riskibarqy/match-tracker/internal/platform/logging"
	"github.com/riskibarqy/match-tracker/internal/platform/resilience"
	"github.com/riskibarqy/match-tracker/internal/usecase"
)

const defaultBaseURL = "https://api.thesports.com/v1/football"

// Endpoint paths, each guarded by its own circuit breaker.
const (
	endpointLive        = "match/detail_live"
	endpointDetails     = "match/recent/list"
	endpointOdds        = "odds/history"
	endpointTeam        = "team/additional/list"
	endpointCompetition = "competition/additional/list"
	endpointCountry     = "country/list"
)

var secretParamRegex = regexp.MustCompile(`secret=[^&\s"']+`)

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	User           string
	Secret         string
	Timeout        time.Duration
	Retry          resilience.RetryConfig
	CircuitBreaker resilience.CircuitBreakerConfig
	Logger         *logging.Logger
}

// Client talks to the upstream football feed. One breaker per endpoint
// keeps a broken odds feed from blocking live-match fetches.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	user           string
	secret         string
	retryCfg       resilience.RetryConfig
	breakerCfg     resilience.CircuitBreakerConfig
	circuitEnabled bool
	logger         *logging.Logger

	flight resilience.SingleFlight

	mu       sync.Mutex
	breakers map[string]*resilience.CircuitBreaker
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
		httpClient.Timeout = 20 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		user:           strings.TrimSpace(cfg.User),
		secret:         strings.TrimSpace(cfg.Secret),
		retryCfg:       resilience.NormalizeRetryConfig(cfg.Retry),
		breakerCfg:     resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker),
		circuitEnabled: cfg.CircuitBreaker.Enabled,
		logger:         logger,
		breakers:       make(map[string]*resilience.CircuitBreaker),
	}
}

// LiveMatches returns the raw live snapshot list from the feed's
// results envelope.
func (c *Client) LiveMatches(ctx context.Context) ([]map[string]any, error) {
	raw, err := c.call(ctx, endpointLive, nil)
	if err != nil {
		return nil, err
	}

	var env struct {
		Results []map[string]any `json:"results"`
	}
	if err := sonic.Unmarshal(raw, &env); err != nil {
		return nil, crerr.Wrap(err, "decode live matches payload")
	}
	return env.Results, nil
}

// MatchDetails returns the raw detail payload for one match, envelope
// included. The merge engine unwraps it.
func (c *Client) MatchDetails(ctx context.Context, matchID string) (map[string]any, error) {
	return c.callRawObject(ctx, endpointDetails, matchID)
}

// MatchOdds returns the raw odds payload for one match, envelope
// included.
func (c *Client) MatchOdds(ctx context.Context, matchID string) (map[string]any, error) {
	return c.callRawObject(ctx, endpointOdds, matchID)
}

func (c *Client) callRawObject(ctx context.Context, endpoint, matchID string) (map[string]any, error) {
	raw, err := c.call(ctx, endpoint, url.Values{"uuid": {matchID}})
	if err != nil {
		return nil, err
	}

	var payload map[string]any
	if err := sonic.Unmarshal(raw, &payload); err != nil {
		return nil, crerr.Wrapf(err, "decode %s payload for match %q", endpoint, matchID)
	}
	return payload, nil
}

// Team fetches one team record.
func (c *Client) Team(ctx context.Context, teamID string) (reference.Team, error) {
	item, err := c.fetchFirstResult(ctx, endpointTeam, teamID)
	if err != nil {
		return reference.Team{}, err
	}
	if item == nil {
		return reference.Team{}, crerr.Wrapf(usecase.ErrNotFound, "team %q", teamID)
	}

	return reference.Team{
		ID:   firstNonEmpty(getString(item, "id"), teamID),
		Name: getString(item, "name"),
		Logo: getString(item, "logo"),
	}, nil
}

// Competition fetches one competition record.
func (c *Client) Competition(ctx context.Context, competitionID string) (reference.Competition, error) {
	item, err := c.fetchFirstResult(ctx, endpointCompetition, competitionID)
	if err != nil {
		return reference.Competition{}, err
	}
	if item == nil {
		return reference.Competition{}, crerr.Wrapf(usecase.ErrNotFound, "competition %q", competitionID)
	}

	return reference.Competition{
		ID:        firstNonEmpty(getString(item, "id"), competitionID),
		Name:      getString(item, "name"),
		CountryID: getString(item, "country_id"),
		Logo:      getString(item, "logo"),
	}, nil
}

// Countries fetches the full country list.
func (c *Client) Countries(ctx context.Context) ([]reference.Country, error) {
	raw, err := c.call(ctx, endpointCountry, nil)
	if err != nil {
		return nil, err
	}

	var env struct {
		Results []map[string]any `json:"results"`
	}
	if err := sonic.Unmarshal(raw, &env); err != nil {
		return nil, crerr.Wrap(err, "decode country list payload")
	}

	countries := make([]reference.Country, 0, len(env.Results))
	for _, item := range env.Results {
		countries = append(countries, reference.Country{
			ID:   getString(item, "id"),
			Name: getString(item, "name"),
		})
	}
	return countries, nil
}

func (c *Client) fetchFirstResult(ctx context.Context, endpoint, id string) (map[string]any, error) {
	raw, err := c.call(ctx, endpoint, url.Values{"uuid": {id}})
	if err != nil {
		return nil, err
	}

	var env struct {
		Results []map[string]any `json:"results"`
	}
	if err := sonic.Unmarshal(raw, &env); err != nil {
		return nil, crerr.Wrapf(err, "decode %s payload for id %q", endpoint, id)
	}
	if len(env.Results) == 0 {
		return nil, nil
	}
	return env.Results[0], nil
}

// breakerFor lazily creates the endpoint's circuit breaker.
func (c *Client) breakerFor(endpoint string) *resilience.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.breakers[endpoint]
	if !ok {
		b = resilience.NewCircuitBreaker(endpoint, c.breakerCfg, c.logger)
		c.breakers[endpoint] = b
	}
	return b
}

// EndpointStats returns cumulative breaker counters per endpoint.
func (c *Client) EndpointStats() map[string]resilience.CircuitStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]resilience.CircuitStats, len(c.breakers))
	for endpoint, b := range c.breakers {
		out[endpoint] = b.Stats()
	}
	return out
}

// call collapses concurrent identical requests into one upstream fetch,
// then performs it with retry inside the endpoint's circuit breaker.
func (c *Client) call(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	key := endpoint + "?" + query.Encode()
	raw, err, shared := c.flight.Do(key, func() (any, error) {
		return c.doCall(ctx, endpoint, query)
	})
	if shared {
		c.logger.DebugContext(ctx, "feed request coalesced", "endpoint", endpoint)
	}
	if err != nil {
		return nil, err
	}
	return raw.([]byte), nil
}

// doCall performs one feed request. Circuit-open surfaces as
// ErrDependencyUnavailable so callers skip the cycle instead of aborting.
func (c *Client) doCall(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	var breaker *resilience.CircuitBreaker
	if c.circuitEnabled {
		breaker = c.breakerFor(endpoint)
		if err := breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "circuit breaker rejected request",
				"endpoint", endpoint,
				"state", breaker.State(),
			)
			return nil, crerr.Wrapf(usecase.ErrDependencyUnavailable, "%s temporarily unavailable", endpoint)
		}
	}

	values := url.Values{}
	for key, vals := range query {
		for _, v := range vals {
			values.Add(key, v)
		}
	}
	values.Set("user", c.user)
	values.Set("secret", c.secret)

	fullURL := c.baseURL + "/" + endpoint + "?" + values.Encode()

	var raw []byte
	err := resilience.Retry(ctx, c.retryCfg, c.logger, endpoint, func(ctx context.Context) error {
		var reqErr error
		raw, reqErr = c.executeRequest(ctx, fullURL)
		return reqErr
	})

	if breaker != nil {
		if err != nil && resilience.IsTransient(err) {
			breaker.RecordFailure()
		} else {
			breaker.RecordSuccess()
		}
	}

	if err != nil {
		c.logger.WarnContext(ctx, "feed request failed",
			"endpoint", endpoint,
			"error", c.sanitize(err.Error()),
		)
		return nil, err
	}
	return raw, nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, crerr.Wrap(err, "build request")
	}
	req.Header.Set("accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, resilience.MarkTransient(fmt.Errorf("send request: %s", c.sanitize(err.Error())))
	}

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 6<<20))
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, resilience.MarkTransient(crerr.Wrap(readErr, "read response body"))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := fmt.Errorf("feed status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
		if isRetryableStatus(resp.StatusCode) {
			return nil, resilience.MarkTransient(statusErr)
		}
		return nil, statusErr
	}

	return raw, nil
}

func isRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func (c *Client) sanitize(value string) string {
	if c.secret != "" {
		value = strings.ReplaceAll(value, c.secret, "REDACTED")
	}
	return secretParamRegex.ReplaceAllString(value, "secret=REDACTED")
}

func abbreviateBody(raw []byte) string {
	const max = 256
	body := strings.TrimSpace(string(raw))
	if len(body) > max {
		return body[:max] + "..."
	}
	return body
}

func getString(src map[string]any, key string) string {
	if src == nil {
		return ""
	}
	raw, ok := src[key]
	if !ok || raw == nil {
		return ""
	}
	value, ok := raw.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}

func firstNonEmpty(values ...string) string {
	for _, item := range values {
		if strings.TrimSpace(item) != "" {
			return strings.TrimSpace(item)
		}
	}
	return ""
}
