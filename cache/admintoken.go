package cache

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// InvalidationConfig configures AdminTokenService (grounded on the
// teacher's token.Config: a TTL plus a replay-detection window).
type InvalidationConfig struct {
	TTL         time.Duration // Default: 5 minutes
	NonceWindow time.Duration // Default: 1 minute
}

// DefaultInvalidationConfig returns conservative defaults: an
// invalidation token is a privileged, short-lived capability, not a
// long-lived session credential.
func DefaultInvalidationConfig() *InvalidationConfig {
	return &InvalidationConfig{
		TTL:         5 * time.Minute,
		NonceWindow: time.Minute,
	}
}

// InvalidateClaims is the JWT payload for a signed cache-invalidation
// request: either a single template path or, when Template is empty,
// a request to purge everything.
type InvalidateClaims struct {
	Template string `json:"template"`
	Nonce    string `json:"nonce"`
	jwt.RegisteredClaims
}

// nonceStore tracks recently-seen nonces to reject replayed
// invalidation tokens, adapted from the teacher's token.NonceStore.
type nonceStore struct {
	mu     sync.RWMutex
	seenAt map[string]time.Time
}

func newNonceStore() *nonceStore { return &nonceStore{seenAt: make(map[string]time.Time)} }

func (ns *nonceStore) seen(nonce string, window time.Duration) bool {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	t, ok := ns.seenAt[nonce]
	return ok && time.Since(t) < window
}

func (ns *nonceStore) record(nonce string) {
	ns.mu.Lock()
	ns.seenAt[nonce] = time.Now()
	ns.mu.Unlock()
}

func (ns *nonceStore) cleanup(maxAge time.Duration) int {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	cutoff := time.Now().Add(-maxAge)
	n := 0
	for nonce, t := range ns.seenAt {
		if t.Before(cutoff) {
			delete(ns.seenAt, nonce)
			n++
		}
	}
	return n
}

// AdminTokenService signs and verifies short-lived capabilities that
// authorize a remote peer to evict one TemplateCache entry (or purge
// everything), the HS256-plus-nonce scheme of the teacher's
// token.TokenService retargeted from page-access tokens to
// cache-invalidation tokens.
type AdminTokenService struct {
	mu         sync.RWMutex
	signingKey []byte
	nonces     *nonceStore
	cfg        *InvalidationConfig
}

// NewAdminTokenService generates a random HS256 signing key and
// returns a ready-to-use service.
func NewAdminTokenService(cfg *InvalidationConfig) (*AdminTokenService, error) {
	if cfg == nil {
		cfg = DefaultInvalidationConfig()
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("cache: generate signing key: %w", err)
	}
	return &AdminTokenService{signingKey: key, nonces: newNonceStore(), cfg: cfg}, nil
}

// SignInvalidate issues a token authorizing eviction of template (the
// normalized path of a cached entry's key.Template), or of every entry
// when template == "".
func (s *AdminTokenService) SignInvalidate(template string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nonce, err := randomNonce()
	if err != nil {
		return "", fmt.Errorf("cache: generate nonce: %w", err)
	}
	now := time.Now()
	claims := &InvalidateClaims{
		Template: template,
		Nonce:    nonce,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "teng-cache",
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("cache: sign invalidation token: %w", err)
	}
	return signed, nil
}

// VerifyInvalidate validates tokenString (signature, expiry, replay)
// and returns its claims.
func (s *AdminTokenService) VerifyInvalidate(tokenString string) (*InvalidateClaims, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, err := jwt.ParseWithClaims(tokenString, &InvalidateClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("cache: parse invalidation token: %w", err)
	}
	claims, ok := tok.Claims.(*InvalidateClaims)
	if !ok || !tok.Valid {
		return nil, fmt.Errorf("cache: invalid invalidation token")
	}
	if s.nonces.seen(claims.Nonce, s.cfg.NonceWindow) {
		return nil, fmt.Errorf("cache: invalidation token replay detected")
	}
	s.nonces.record(claims.Nonce)
	return claims, nil
}

// CleanupExpiredNonces drops nonces older than twice the replay
// window, bounding the nonce store's memory use.
func (s *AdminTokenService) CleanupExpiredNonces() int {
	return s.nonces.cleanup(s.cfg.NonceWindow * 2)
}

func randomNonce() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// SignedInvalidate verifies tokenString and, if valid, evicts every
// Program cache entry for the named template, whatever its other key
// fields (or purges both caches entirely when the token authorizes
// template=="").
func (c *TemplateCache) SignedInvalidate(s *AdminTokenService, tokenString string) error {
	claims, err := s.VerifyInvalidate(tokenString)
	if err != nil {
		return err
	}
	if claims.Template == "" {
		c.PurgeAll()
		return nil
	}
	c.InvalidateProgram(Key{Template: claims.Template})
	// Key.String puts the template path first, NUL-terminated.
	prefix := Key{Template: claims.Template}.normalize().Template + "\x00"
	for _, ks := range c.programs.lru.Keys() {
		if strings.HasPrefix(ks, prefix) {
			c.programs.lru.Remove(ks)
		}
	}
	return nil
}
