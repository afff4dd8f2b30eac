package lrclib

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL   = "https://lrclib.net/api"
	DefaultUserAgent = "lrcplay/1.0 (https://lrclib.net)"

	cacheKeyPrefix = "lrclib:search:"
)

// Search parameter names understood by the lrclib search endpoint.
const (
	ParamQuery  = "q"
	ParamTrack  = "track_name"
	ParamArtist = "artist_name"
	ParamAlbum  = "album_name"
)

var (
	ErrAmbiguousQuery = errors.New("'q' overrides 'track_name'")
	ErrEmptyQuery     = errors.New("no search parameters given")
	ErrUnknownParam   = errors.New("unknown search parameter")
)

// Cache stores raw search responses. GetBytes returns nil, nil on a miss.
type Cache interface {
	GetBytes(ctx context.Context, key string) ([]byte, error)
	SetWithExpiration(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

// Client LRCLib search client
type Client struct {
	httpClient     *http.Client
	baseURL        string
	userAgent      string
	requestTimeout time.Duration
	maxRetries     int
	retryDelay     time.Duration
	limiter        *rate.Limiter
	cache          Cache
	cacheTTL       time.Duration
	logger         zerolog.Logger
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

func WithUserAgent(userAgent string) Option {
	return func(c *Client) { c.userAgent = userAgent }
}

func WithRequestTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.requestTimeout = timeout }
}

// WithRetries sets how many times a failed request is retried and the base
// delay of the linear backoff between attempts.
func WithRetries(maxRetries int, delay time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.retryDelay = delay
	}
}

// WithRateLimit paces outgoing requests. A non-positive rate disables pacing.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithCache serves repeated searches from cache for ttl.
func WithCache(cache Cache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = cache
		c.cacheTTL = ttl
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:     &http.Client{},
		baseURL:        DefaultBaseURL,
		userAgent:      DefaultUserAgent,
		requestTimeout: 10 * time.Second,
		maxRetries:     2,
		retryDelay:     500 * time.Millisecond,
		limiter:        rate.NewLimiter(rate.Limit(2), 2),
		logger:         log.With().Str("component", "lrclib").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ValidateParams checks a search parameter map and encodes it as a query.
// Empty values are dropped.
func ValidateParams(params map[string]string) (url.Values, error) {
	values := url.Values{}
	for key, value := range params {
		switch key {
		case ParamQuery, ParamTrack, ParamArtist, ParamAlbum:
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownParam, key)
		}
		if value != "" {
			values.Set(key, value)
		}
	}
	if values.Has(ParamQuery) && values.Has(ParamTrack) {
		return nil, ErrAmbiguousQuery
	}
	if len(values) == 0 {
		return nil, ErrEmptyQuery
	}
	return values, nil
}

// Search returns every record lrclib reports for params, in API order.
func (c *Client) Search(ctx context.Context, params map[string]string) ([]SearchResult, error) {
	values, err := ValidateParams(params)
	if err != nil {
		return nil, err
	}
	query := values.Encode()
	cacheKey := cacheKeyPrefix + query

	if c.cache != nil {
		if cached, err := c.cache.GetBytes(ctx, cacheKey); err != nil {
			c.logger.Warn().Err(err).Str("key", cacheKey).Msg("Cache read failed")
		} else if cached != nil {
			var results []SearchResult
			if err := json.Unmarshal(cached, &results); err == nil {
				c.logger.Info().Str("query", query).Int("results", len(results)).Msg("Cache HIT")
				return results, nil
			}
			c.logger.Warn().Str("key", cacheKey).Msg("Discarding undecodable cache entry")
		}
	}

	body, err := c.fetch(ctx, c.baseURL+"/search?"+query)
	if err != nil {
		return nil, err
	}

	var results []SearchResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	c.logger.Info().Str("query", query).Int("results", len(results)).Msg("Search finished")

	if c.cache != nil {
		if err := c.cache.SetWithExpiration(ctx, cacheKey, body, c.cacheTTL); err != nil {
			c.logger.Warn().Err(err).Str("key", cacheKey).Msg("Cache write failed")
		}
	}
	return results, nil
}

// fetch GETs u, retrying transport errors, 429 and 5xx responses.
func (c *Client) fetch(ctx context.Context, u string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Info().Int("attempt", attempt).Int("max_retries", c.maxRetries).Msg("Retrying request")
			if err := sleepContext(ctx, time.Duration(attempt)*c.retryDelay); err != nil {
				return nil, err
			}
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limiter: %w", err)
			}
		}

		body, retry, err := c.do(ctx, u)
		if err == nil {
			return body, nil
		}
		if !retry {
			return nil, err
		}
		c.logger.Warn().Err(err).Int("attempt", attempt+1).Msg("Request failed")
		lastErr = err
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

func (c *Client) do(ctx context.Context, u string) ([]byte, bool, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, u, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		retry := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, retry, fmt.Errorf("search API request failed with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("failed to read response: %w", err)
	}
	return body, false, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
