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

	"github.com/golang-jwt/jwt/v5"

	"github.com/focusnest/gamification-engine/internal/apperrors"
)

const defaultJWKSCacheTTL = 10 * time.Minute

var errMissingSubject = apperrors.New(apperrors.CodeUnauthenticated, "token missing subject claim")
var errMissingKeyID = apperrors.New(apperrors.CodeUnauthenticated, "token missing kid header")

// clerkVerifier validates Clerk-issued JWTs using JWKS.
type clerkVerifier struct {
	jwksURL       string
	audience      string
	issuer        string
	client        *http.Client
	cacheDuration time.Duration

	mu         sync.RWMutex
	keys       map[string]*rsa.PublicKey
	lastLoaded time.Time
}

func newClerkVerifier(cfg Config) (Verifier, error) {
	if cfg.JWKSURL == "" {
		return nil, fmt.Errorf("clerk JWKS URL is required")
	}

	cacheDuration := cfg.CacheTTL
	if cacheDuration <= 0 {
		cacheDuration = defaultJWKSCacheTTL
	}

	return &clerkVerifier{
		jwksURL:       cfg.JWKSURL,
		audience:      cfg.Audience,
		issuer:        cfg.Issuer,
		client:        &http.Client{Timeout: 5 * time.Second},
		cacheDuration: cacheDuration,
		keys:          make(map[string]*rsa.PublicKey),
	}, nil
}

// Verify parses and validates a Clerk JWT, tagging every failure with the
// taxonomy code spec §7 expects the rest of the callable surface to use: a
// key-fetch failure is the JWKS endpoint being unreachable
// (store_unavailable), anything else about the token itself is
// unauthenticated.
func (v *clerkVerifier) Verify(ctx context.Context, token string) (AuthenticatedUser, error) {
	options := []jwt.ParserOption{jwt.WithLeeway(5 * time.Second)}
	if v.audience != "" {
		options = append(options, jwt.WithAudience(v.audience))
	}
	if v.issuer != "" {
		options = append(options, jwt.WithIssuer(v.issuer))
	}

	t, err := jwt.Parse(token, v.keyFunc(ctx), options...)
	if err != nil {
		code := apperrors.CodeOf(err)
		if code == apperrors.CodeInternal {
			code = apperrors.CodeUnauthenticated
		}
		return AuthenticatedUser{}, apperrors.Wrap(code, "token verification failed", err)
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return AuthenticatedUser{}, apperrors.New(apperrors.CodeUnauthenticated, "unexpected claims type")
	}

	subjectRaw, ok := claims["sub"].(string)
	if !ok || subjectRaw == "" {
		return AuthenticatedUser{}, errMissingSubject
	}

	sessionID, _ := claims["sid"].(string)

	expiresAt := int64(0)
	if expRaw, ok := claims["exp"].(float64); ok {
		expiresAt = int64(expRaw)
	}

	return AuthenticatedUser{
		UserID:    subjectRaw,
		SessionID: sessionID,
		ExpiresAt: expiresAt,
		Token:     token,
	}, nil
}

func (v *clerkVerifier) keyFunc(ctx context.Context) jwt.Keyfunc {
	return func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errMissingKeyID
		}

		if key, ok := v.lookupKey(kid); ok {
			return key, nil
		}

		if err := v.refreshKeys(ctx); err != nil {
			return nil, err
		}

		if key, ok := v.lookupKey(kid); ok {
			return key, nil
		}

		return nil, apperrors.New(apperrors.CodeUnauthenticated, fmt.Sprintf("jwks key %s not found", kid))
	}
}

func (v *clerkVerifier) lookupKey(kid string) (*rsa.PublicKey, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	key, ok := v.keys[kid]
	return key, ok
}

// refreshKeys re-fetches the JWKS document once the cache has gone stale.
// The write lock held across the fetch means concurrent callers racing a
// cache miss block on one fetch rather than each issuing their own HTTP
// request to the JWKS endpoint.
func (v *clerkVerifier) refreshKeys(ctx context.Context) error {
	v.mu.RLock()
	fresh := time.Since(v.lastLoaded) < v.cacheDuration && len(v.keys) > 0
	v.mu.RUnlock()
	if fresh {
		return nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if time.Since(v.lastLoaded) < v.cacheDuration && len(v.keys) > 0 {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.jwksURL, nil)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeStoreUnavailable, "create jwks request", err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeStoreUnavailable, "fetch jwks", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return apperrors.New(apperrors.CodeStoreUnavailable, fmt.Sprintf("fetch jwks: unexpected status %d", resp.StatusCode))
	}

	var document jwksDocument
	if err := json.NewDecoder(resp.Body).Decode(&document); err != nil {
		return apperrors.Wrap(apperrors.CodeStoreUnavailable, "decode jwks", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(document.Keys))
	for _, key := range document.Keys {
		if key.Kty != "RSA" {
			continue
		}

		pubKey, err := key.rsaPublicKey()
		if err != nil {
			return apperrors.Wrap(apperrors.CodeStoreUnavailable, fmt.Sprintf("parse jwks key %s", key.Kid), err)
		}
		keys[key.Kid] = pubKey
	}

	if len(keys) == 0 {
		return apperrors.New(apperrors.CodeStoreUnavailable, "jwks contained no supported keys")
	}

	v.keys = keys
	v.lastLoaded = time.Now()
	return nil
}

type jwksDocument struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func (j jwk) rsaPublicKey() (*rsa.PublicKey, error) {
	if j.N == "" || j.E == "" {
		return nil, errors.New("missing modulus or exponent")
	}

	nBytes, err := base64.RawURLEncoding.DecodeString(j.N)
	if err != nil {
		return nil, fmt.Errorf("invalid modulus: %w", err)
	}

	eBytes, err := base64.RawURLEncoding.DecodeString(j.E)
	if err != nil {
		return nil, fmt.Errorf("invalid exponent: %w", err)
	}

	var eInt int
	for _, b := range eBytes {
		eInt = eInt<<8 + int(b)
	}
	if eInt == 0 {
		return nil, errors.New("invalid exponent value")
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: eInt,
	}, nil
}
