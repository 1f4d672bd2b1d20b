// Package resolver maps record keys to knowledge-base identifiers.
//
// A key is looked up once through the encyclopedia's page properties API,
// the response is cached on disk so repeated builds stay offline.
package resolver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/siherrmann/arkg/helper"
	"github.com/siherrmann/arkg/vocabulary"
	"golang.org/x/time/rate"
)

const (
	// DefaultTTL is how long a lookup response stays cached
	DefaultTTL = time.Hour
	// DefaultTimeout bounds a single lookup request
	DefaultTimeout = 30 * time.Second

	userAgent       = "arkg/1.0 (https://github.com/siherrmann/arkg)"
	maxResponseSize = 1 << 20
)

// Option configures a Resolver
type Option func(*Resolver)

// WithEndpoint sets the page properties API endpoint
func WithEndpoint(endpoint string) Option {
	return func(r *Resolver) {
		r.endpoint = endpoint
	}
}

// WithHTTPClient sets the client used for lookups
func WithHTTPClient(client *http.Client) Option {
	return func(r *Resolver) {
		if client != nil {
			r.client = client
		}
	}
}

// WithTTL sets the cache lifetime of a response
func WithTTL(ttl time.Duration) Option {
	return func(r *Resolver) {
		r.ttl = ttl
	}
}

// WithRateLimit limits outbound requests. Cache hits are not limited.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(r *Resolver) {
		r.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithNamespace sets the prefix the identifier is appended to
func WithNamespace(namespace string) Option {
	return func(r *Resolver) {
		r.namespace = namespace
	}
}

// Resolver resolves record keys to knowledge-base IRIs with a read-through cache.
// It is safe for concurrent use, Close waits for running lookups.
type Resolver struct {
	endpoint  string
	namespace string
	ttl       time.Duration
	client    *http.Client
	limiter   *rate.Limiter
	logger    *slog.Logger

	mu    sync.RWMutex
	cache *Cache
}

// New opens the cache in cacheDirectory and returns a resolver.
// Close must be called to release the cache.
func New(cacheDirectory string, opts ...Option) (*Resolver, error) {
	r := &Resolver{
		endpoint:  vocabulary.WikipediaAPI,
		namespace: vocabulary.WikidataEntityNamespace,
		ttl:       DefaultTTL,
		client:    &http.Client{Timeout: DefaultTimeout},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if strings.TrimSpace(cacheDirectory) == "" {
		return nil, helper.NewLookupError("", helper.NewValidationError("cache directory is blank"))
	}
	if _, err := url.ParseRequestURI(r.endpoint); err != nil {
		return nil, helper.NewLookupError("", helper.NewValidationError("invalid endpoint %q", r.endpoint))
	}

	cache, err := OpenCache(cacheDirectory)
	if err != nil {
		return nil, helper.NewLookupError("", err)
	}
	r.cache = cache

	return r, nil
}

// Close releases the cache
func (r *Resolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cache == nil {
		return nil
	}
	err := r.cache.Close()
	r.cache = nil
	if err != nil {
		return helper.NewError("close cache", err)
	}
	return nil
}

// LookupURL returns the page properties request of recordKey.
// It is also the cache key of the response.
func (r *Resolver) LookupURL(recordKey string) string {
	query := url.Values{}
	query.Set("action", "query")
	query.Set("prop", "pageprops")
	query.Set("titles", recordKey)
	query.Set("format", "json")
	return r.endpoint + "?" + query.Encode()
}

// Resolve returns the knowledge-base IRI of recordKey.
// Every failure wraps helper.ErrLookup, nothing is retried.
func (r *Resolver) Resolve(ctx context.Context, recordKey string) (string, error) {
	recordKey = strings.TrimSpace(recordKey)
	if recordKey == "" {
		return "", helper.NewLookupError(recordKey, helper.NewValidationError("record key is blank"))
	}
	if err := ctx.Err(); err != nil {
		return "", helper.NewLookupError(recordKey, err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.cache == nil {
		return "", helper.NewLookupError(recordKey, fmt.Errorf("resolver is closed"))
	}

	lookupURL := r.LookupURL(recordKey)

	body, cached, err := r.cache.Get(lookupURL)
	if err != nil {
		r.logger.Warn("Error reading lookup cache", "key", recordKey, "error", err)
	}
	if !cached {
		body, err = r.fetch(ctx, lookupURL)
		if err != nil {
			return "", helper.NewLookupError(recordKey, err)
		}
		err = r.cache.Set(lookupURL, body, r.ttl)
		if err != nil {
			r.logger.Warn("Error writing lookup cache", "key", recordKey, "error", err)
		}
	}

	identifier, err := parseIdentifier(body)
	if err != nil {
		return "", helper.NewLookupError(recordKey, err)
	}

	r.logger.Debug("Resolved record key", "key", recordKey, "identifier", identifier, "cached", cached)

	return r.namespace + identifier, nil
}

func (r *Resolver) fetch(ctx context.Context, lookupURL string) ([]byte, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, helper.NewError("wait for rate limit", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		return nil, helper.NewError("create request", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, helper.NewError("request page properties", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, helper.NewError("read response", err)
	}
	return body, nil
}

type pagePropsResponse struct {
	Query struct {
		Pages map[string]struct {
			Title     string `json:"title"`
			PageProps struct {
				WikibaseItem string `json:"wikibase_item"`
			} `json:"pageprops"`
		} `json:"pages"`
	} `json:"query"`
}

// parseIdentifier expects exactly one page carrying a wikibase item
func parseIdentifier(body []byte) (string, error) {
	var response pagePropsResponse
	err := json.Unmarshal(body, &response)
	if err != nil {
		return "", helper.NewError("decode response", err)
	}

	pages := response.Query.Pages
	if len(pages) != 1 {
		return "", fmt.Errorf("expected exactly one page, got %d", len(pages))
	}

	for _, page := range pages {
		identifier := strings.TrimSpace(page.PageProps.WikibaseItem)
		if identifier == "" {
			return "", fmt.Errorf("page %q has no wikibase item", page.Title)
		}
		return identifier, nil
	}
	return "", nil
}
