package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/totegamma/officechat/internal/domain"
)

const (
	defaultTimeout = 3 * time.Second
	listCacheKey   = "users"
)

// Remote resolves identities from an external user service:
//
//	GET {base}/users       -> [{"id","displayName","role"}]
//	GET {base}/users/{id}  -> {"id","displayName","role"} or 404
//
// Successful lookups are cached for ttl.
type Remote struct {
	client    *http.Client
	cache     *cache.Cache
	base      string
	userAgent string
}

func NewRemote(base string, ttl time.Duration) *Remote {
	if ttl <= 0 {
		ttl = time.Minute
	}
	r := &Remote{
		client:    &http.Client{Timeout: defaultTimeout},
		cache:     cache.New(ttl, 2*ttl),
		base:      strings.TrimSuffix(base, "/"),
		userAgent: "officechat",
	}
	return r
}

func (r *Remote) Lookup(ctx context.Context, id string) (domain.Identity, error) {
	cacheKey := "user:" + id
	x, found := r.cache.Get(cacheKey)
	if found {
		return x.(domain.Identity), nil
	}

	var identity domain.Identity
	err := r.get(ctx, "/users/"+url.PathEscape(id), &identity)
	if err != nil {
		return domain.Identity{}, err
	}

	r.cache.Set(cacheKey, identity, cache.DefaultExpiration)
	return identity, nil
}

func (r *Remote) List(ctx context.Context) ([]domain.Identity, error) {
	x, found := r.cache.Get(listCacheKey)
	if found {
		return x.([]domain.Identity), nil
	}

	var identities []domain.Identity
	err := r.get(ctx, "/users", &identities)
	if err != nil {
		return nil, err
	}

	r.cache.Set(listCacheKey, identities, cache.DefaultExpiration)
	for _, identity := range identities {
		r.cache.Set("user:"+identity.ID, identity, cache.DefaultExpiration)
	}
	return identities, nil
}

func (r *Remote) get(ctx context.Context, path string, response any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.base+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.NotFoundError{Resource: "user"}
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	err = json.NewDecoder(resp.Body).Decode(response)
	if err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
