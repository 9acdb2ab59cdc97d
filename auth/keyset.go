package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/singleflight"
)

// JWK is a single RSA key from the provider's published key set.
type JWK struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// KeySet is the provider's key set document.
type KeySet struct {
	Keys []JWK `json:"keys"`
}

// Find returns the key with the given id.
func (ks *KeySet) Find(kid string) (JWK, bool) {
	if ks == nil {
		return JWK{}, false
	}
	for _, k := range ks.Keys {
		if k.Kid == kid {
			return k, true
		}
	}
	return JWK{}, false
}

// KeySetFetcher retrieves the current key set.
type KeySetFetcher interface {
	FetchKeySet(ctx context.Context) (*KeySet, error)
}

// HTTPDoer is satisfied by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// maxKeySetBytes bounds the key set response body.
const maxKeySetBytes = 1 << 20

// HTTPKeySetFetcher downloads the key set on every call. Consecutive failures
// open a circuit breaker so a dead provider is rejected without a network round trip.
type HTTPKeySetFetcher struct {
	url     string
	client  HTTPDoer
	breaker *gobreaker.CircuitBreaker[*KeySet]
}

// NewHTTPKeySetFetcher creates a fetcher for url. A nil client uses http.DefaultClient.
func NewHTTPKeySetFetcher(url string, client HTTPDoer) *HTTPKeySetFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPKeySetFetcher{
		url:    url,
		client: client,
		breaker: gobreaker.NewCircuitBreaker[*KeySet](gobreaker.Settings{
			Name:        "auth-keyset",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

// FetchKeySet implements KeySetFetcher.
func (f *HTTPKeySetFetcher) FetchKeySet(ctx context.Context) (*KeySet, error) {
	ks, err := f.breaker.Execute(func() (*KeySet, error) {
		return f.fetch(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %w", ErrFetchKeySet, err)
		}
		return nil, err
	}
	return ks, nil
}

func (f *HTTPKeySetFetcher) fetch(ctx context.Context) (*KeySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchKeySet, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchKeySet, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrFetchKeySet, resp.StatusCode)
	}

	var ks KeySet
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxKeySetBytes)).Decode(&ks); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrFetchKeySet, err)
	}
	return &ks, nil
}

// CachingKeySetFetcher reuses a fetched key set for ttl. Concurrent misses
// share one upstream fetch, and each caller stops waiting when its own context
// ends. Fetch failures are not cached.
type CachingKeySetFetcher struct {
	next KeySetFetcher
	ttl  time.Duration
	now  func() time.Time

	group singleflight.Group

	mu        sync.Mutex
	cached    *KeySet
	fetchedAt time.Time
}

// NewCachingKeySetFetcher wraps next. A ttl of zero or less disables caching
// and next is returned unchanged.
func NewCachingKeySetFetcher(next KeySetFetcher, ttl time.Duration) KeySetFetcher {
	if ttl <= 0 {
		return next
	}
	return &CachingKeySetFetcher{next: next, ttl: ttl, now: time.Now}
}

// FetchKeySet implements KeySetFetcher.
func (c *CachingKeySetFetcher) FetchKeySet(ctx context.Context) (*KeySet, error) {
	if ks := c.fresh(); ks != nil {
		return ks, nil
	}

	ch := c.group.DoChan("keyset", func() (interface{}, error) {
		// the shared fetch outlives any single caller, so it gets its own deadline
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DefaultFetchTimeout)
		defer cancel()

		ks, err := c.next.FetchKeySet(fetchCtx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.cached = ks
		c.fetchedAt = c.now()
		c.mu.Unlock()
		return ks, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*KeySet), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrFetchKeySet, ctx.Err())
	}
}

func (c *CachingKeySetFetcher) fresh() *KeySet {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cached != nil && c.now().Sub(c.fetchedAt) < c.ttl {
		return c.cached
	}
	return nil
}
