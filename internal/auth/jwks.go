package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/WailSalutem-Health-Care/clinic-service/internal/logging"
)

var ErrKeyNotFound = errors.New("jwks: key not found")

// missRefreshInterval is the minimum time between refreshes triggered by an
// unknown kid.
const missRefreshInterval = time.Minute

// KeySource resolves the RSA public key for a token's kid
type KeySource interface {
	Get(kid string) (*rsa.PublicKey, error)
}

type jwkKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwksJSON struct {
	Keys []jwkKey `json:"keys"`
}

// JWKS caches RSA public keys by kid.
type JWKS struct {
	url    string
	client *http.Client
	logger *zap.Logger

	mu     sync.RWMutex
	keys   map[string]*rsa.PublicKey
	ticker *time.Ticker
	quit   chan struct{}
	once   sync.Once

	missMu          sync.Mutex
	missInterval    time.Duration
	lastMissRefresh time.Time
}

var _ KeySource = (*JWKS)(nil)

// NewJWKS creates a JWKS instance and loads keys immediately. It also starts
// a background refresh every refreshInterval. Pass 0 to use default 15m.
func NewJWKS(ctx context.Context, url string, refreshInterval time.Duration, logger *zap.Logger) (*JWKS, error) {
	if refreshInterval <= 0 {
		refreshInterval = 15 * time.Minute
	}
	j := &JWKS{
		url:          url,
		client:       &http.Client{Timeout: 10 * time.Second},
		logger:       logging.OrNop(logger),
		keys:         map[string]*rsa.PublicKey{},
		ticker:       time.NewTicker(refreshInterval),
		quit:         make(chan struct{}),
		missInterval: missRefreshInterval,
	}
	if err := j.refresh(ctx); err != nil {
		j.ticker.Stop()
		return nil, err
	}
	go j.loop()
	return j, nil
}

// NewStaticJWKS returns a JWKS serving fixed keys. It never refreshes.
func NewStaticJWKS(keys map[string]*rsa.PublicKey) *JWKS {
	return &JWKS{keys: keys}
}

func (j *JWKS) loop() {
	for {
		select {
		case <-j.ticker.C:
			if err := j.refresh(context.Background()); err != nil {
				j.logger.Warn("jwks refresh failed", zap.Error(err))
			}
		case <-j.quit:
			return
		}
	}
}

// Close stops background refresh.
func (j *JWKS) Close() {
	if j.quit == nil {
		return
	}
	j.once.Do(func() {
		close(j.quit)
		j.ticker.Stop()
	})
}

func (j *JWKS) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.url, nil)
	if err != nil {
		return err
	}
	resp, err := j.client.Do(req)
	if err != nil {
		return fmt.Errorf("jwks: fetch %s: %w", j.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("jwks: unexpected status %d from %s", resp.StatusCode, j.url)
	}

	var raw jwksJSON
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return fmt.Errorf("jwks: decode: %w", err)
	}

	newKeys, err := parseKeys(raw)
	if err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	j.keys = newKeys
	return nil
}

func parseKeys(raw jwksJSON) (map[string]*rsa.PublicKey, error) {
	keys := make(map[string]*rsa.PublicKey)
	for _, k := range raw.Keys {
		if k.Kty != "RSA" {
			continue
		}
		nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
		if err != nil {
			return nil, fmt.Errorf("jwks: key %s modulus: %w", k.Kid, err)
		}
		eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
		if err != nil {
			return nil, fmt.Errorf("jwks: key %s exponent: %w", k.Kid, err)
		}
		keys[k.Kid] = &rsa.PublicKey{
			N: new(big.Int).SetBytes(nBytes),
			E: bytesToInt(eBytes),
		}
	}
	return keys, nil
}

// Get returns the key for kid. A miss refetches the set, at most once per
// missRefreshInterval; misses inside that window fail with ErrKeyNotFound.
func (j *JWKS) Get(kid string) (*rsa.PublicKey, error) {
	j.mu.RLock()
	p := j.keys[kid]
	j.mu.RUnlock()
	if p != nil {
		return p, nil
	}
	if j.url == "" || !j.allowMissRefresh() {
		return nil, ErrKeyNotFound
	}

	if err := j.refresh(context.Background()); err != nil {
		return nil, err
	}
	j.mu.RLock()
	defer j.mu.RUnlock()
	p = j.keys[kid]
	if p == nil {
		return nil, ErrKeyNotFound
	}
	return p, nil
}

func (j *JWKS) allowMissRefresh() bool {
	j.missMu.Lock()
	defer j.missMu.Unlock()

	if !j.lastMissRefresh.IsZero() && time.Since(j.lastMissRefresh) < j.missInterval {
		return false
	}
	j.lastMissRefresh = time.Now()
	return true
}

func bytesToInt(b []byte) int {
	res := 0
	for _, v := range b {
		res = (res << 8) + int(v)
	}
	return res
}
