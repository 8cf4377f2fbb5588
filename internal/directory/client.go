package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/time/rate"

	"murmur/internal/domain"
)

// HTTPClient fetches peer key bundles from a directory service over HTTP.
// Requests are throttled so a burst of session establishments cannot hammer
// the directory.
type HTTPClient struct {
	Base    string
	HTTP    *http.Client
	limiter *rate.Limiter
}

// NewHTTP returns a client for the directory at base. rps caps outbound
// lookups per second; zero or negative means 5.
func NewHTTP(base string, httpClient *http.Client, rps float64) *HTTPClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if rps <= 0 {
		rps = 5
	}
	// A fractional rate must still allow single requests through.
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &HTTPClient{
		Base:    base,
		HTTP:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// bundleJSON is the directory's wire shape for a bundle.
type bundleJSON struct {
	Handle      string `json:"handle"`
	IdentityKey []byte `json:"identity_key"`
}

// FetchPeerBundle resolves handle to its public key bundle. A 404 surfaces
// as ErrPeerNotFound; a malformed key as ErrInvalidKeyFormat.
func (c *HTTPClient) FetchPeerBundle(ctx context.Context, handle string) (domain.PeerKeyBundle, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.PeerKeyBundle{}, err
	}

	u := c.Base + "/bundle/" + url.PathEscape(handle)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.PeerKeyBundle{}, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return domain.PeerKeyBundle{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.PeerKeyBundle{}, fmt.Errorf("%w: %s", domain.ErrPeerNotFound, handle)
	}
	if resp.StatusCode/100 != 2 {
		return domain.PeerKeyBundle{}, fmt.Errorf("directory get %s: %s", u, resp.Status)
	}

	var bj bundleJSON
	if err := json.NewDecoder(resp.Body).Decode(&bj); err != nil {
		return domain.PeerKeyBundle{}, err
	}
	if len(bj.IdentityKey) != 32 {
		return domain.PeerKeyBundle{}, fmt.Errorf("%w: identity key length %d", domain.ErrInvalidKeyFormat, len(bj.IdentityKey))
	}
	var b domain.PeerKeyBundle
	copy(b.IdentityKey[:], bj.IdentityKey)
	return b, nil
}

// Compile-time assertion that HTTPClient implements domain.Directory.
var _ domain.Directory = (*HTTPClient)(nil)
