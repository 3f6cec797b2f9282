package auth

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"
)

const defaultKeySetTTL = 5 * time.Minute

var errUnknownKid = errors.New("unknown signing key")

// jwk is the subset of an RFC 7517 key the RS256 verifier reads.
type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// keySet caches the RSA keys of one JWKS document by kid. The document is
// fetched again when a kid is missing or the cache is older than ttl. With
// only an issuer configured, the JWKS location is read once from the
// issuer's OpenID configuration.
type keySet struct {
	issuer string
	ttl    time.Duration
	client *http.Client

	mu        sync.RWMutex
	url       string
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

func newKeySet(jwksURL, issuer string, ttl time.Duration) *keySet {
	return &keySet{
		issuer: strings.TrimSuffix(issuer, "/"),
		ttl:    ttl,
		client: &http.Client{Timeout: 10 * time.Second},
		url:    jwksURL,
		keys:   map[string]*rsa.PublicKey{},
	}
}

func (ks *keySet) key(kid string) (*rsa.PublicKey, error) {
	ks.mu.RLock()
	k, ok := ks.keys[kid]
	fresh := time.Since(ks.fetchedAt) <= ks.ttl
	ks.mu.RUnlock()
	if ok && fresh {
		return k, nil
	}

	if err := ks.refresh(); err != nil {
		return nil, err
	}
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	if k, ok := ks.keys[kid]; ok {
		return k, nil
	}
	return nil, fmt.Errorf("%w %q", errUnknownKid, kid)
}

func (ks *keySet) refresh() error {
	url, err := ks.location()
	if err != nil {
		return err
	}
	var doc struct {
		Keys []jwk `json:"keys"`
	}
	if err := ks.getJSON(url, &doc); err != nil {
		return fmt.Errorf("jwks: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" {
			continue
		}
		if pub, err := k.rsaPublicKey(); err == nil {
			keys[k.Kid] = pub
		}
	}

	ks.mu.Lock()
	ks.keys = keys
	ks.fetchedAt = time.Now()
	ks.mu.Unlock()
	return nil
}

// location returns the JWKS URL, discovering it from the issuer on first use.
func (ks *keySet) location() (string, error) {
	ks.mu.RLock()
	url := ks.url
	ks.mu.RUnlock()
	if url != "" {
		return url, nil
	}
	if ks.issuer == "" {
		return "", errors.New("jwks: neither a JWKS URL nor an issuer is configured")
	}

	var discovery struct {
		JWKSURI string `json:"jwks_uri"`
	}
	if err := ks.getJSON(ks.issuer+"/.well-known/openid-configuration", &discovery); err != nil {
		return "", fmt.Errorf("openid discovery: %w", err)
	}
	if discovery.JWKSURI == "" {
		return "", errors.New("openid discovery: document has no jwks_uri")
	}

	ks.mu.Lock()
	ks.url = discovery.JWKSURI
	ks.mu.Unlock()
	return discovery.JWKSURI, nil
}

func (ks *keySet) getJSON(url string, v interface{}) error {
	resp, err := ks.client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func (k jwk) rsaPublicKey() (*rsa.PublicKey, error) {
	n, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("modulus: %w", err)
	}
	e, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("exponent: %w", err)
	}
	exp := new(big.Int).SetBytes(e)
	if !exp.IsInt64() || exp.Int64() < 3 {
		return nil, errors.New("exponent out of range")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: int(exp.Int64())}, nil
}
