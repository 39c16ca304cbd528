// Package license verifies signed conversion licenses and enforces their
// quota, size and format limits.
//
// A license is a JWT signed with Ed25519 (EdDSA) or HMAC-SHA256. Keys are
// passed explicitly; nothing is configured process-wide.
package license

import (
	"crypto"
	"crypto/ed25519"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Claims is the payload of a license token.
type Claims struct {
	RemainingConversions *int64   `json:"conversions_remaining,omitempty"`
	MaxFileSize          *int64   `json:"max_file_size,omitempty"`
	Formats              []string `json:"formats,omitempty"`
	jwt.RegisteredClaims
}

// Remaining returns the token's conversion allowance.
func (c *Claims) Remaining() int64 {
	if c.RemainingConversions == nil {
		return 0
	}
	return *c.RemainingConversions
}

// MaxBytes returns the licensed input size limit.
func (c *Claims) MaxBytes() int64 {
	if c.MaxFileSize == nil {
		return 0
	}
	return *c.MaxFileSize
}

// Permits reports whether format may be produced. An empty list permits all.
func (c *Claims) Permits(format string) bool {
	if len(c.Formats) == 0 {
		return true
	}
	return slices.ContainsFunc(c.Formats, func(f string) bool {
		return strings.EqualFold(f, format)
	})
}

func (c *Claims) validateRequired() error {
	switch {
	case c.Subject == "":
		return errors.New("missing sub claim")
	case c.ExpiresAt == nil:
		return errors.New("missing exp claim")
	case c.IssuedAt == nil:
		return errors.New("missing iat claim")
	case c.RemainingConversions == nil:
		return errors.New("missing conversions_remaining claim")
	case c.MaxFileSize == nil:
		return errors.New("missing max_file_size claim")
	case *c.MaxFileSize < 0:
		return errors.New("negative max_file_size claim")
	}
	return nil
}

// KeyConfig holds verification keys. At least one must be set.
type KeyConfig struct {
	// PublicKey verifies EdDSA tokens.
	PublicKey ed25519.PublicKey
	// HMACSecret verifies HS256 tokens.
	HMACSecret []byte
}

// ParseKey reads a PEM encoded Ed25519 public key. Anything that is not PEM
// is taken as an HMAC secret.
func ParseKey(data []byte) (KeyConfig, error) {
	if !strings.Contains(string(data), "-----BEGIN") {
		secret := []byte(strings.TrimSpace(string(data)))
		if len(secret) == 0 {
			return KeyConfig{}, errors.New("license: empty key")
		}
		return KeyConfig{HMACSecret: secret}, nil
	}

	pub, err := jwt.ParseEdPublicKeyFromPEM(data)
	if err != nil {
		return KeyConfig{}, fmt.Errorf("license: parse key: %w", err)
	}
	key, ok := pub.(ed25519.PublicKey)
	if !ok {
		return KeyConfig{}, errors.New("license: not an Ed25519 public key")
	}
	return KeyConfig{PublicKey: key}, nil
}

// Verifier checks token signatures and claims.
type Verifier struct {
	keys    KeyConfig
	methods []string
}

// NewVerifier creates a verifier accepting the algorithms for which keys
// are configured.
func NewVerifier(keys KeyConfig) (*Verifier, error) {
	var methods []string
	if len(keys.PublicKey) > 0 {
		if len(keys.PublicKey) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("license: invalid Ed25519 key size %d", len(keys.PublicKey))
		}
		methods = append(methods, jwt.SigningMethodEdDSA.Alg())
	}
	if len(keys.HMACSecret) > 0 {
		methods = append(methods, jwt.SigningMethodHS256.Alg())
	}
	if len(methods) == 0 {
		return nil, errors.New("license: no verification key configured")
	}
	return &Verifier{keys: keys, methods: methods}, nil
}

// Verify parses token and returns its claims.
func (v *Verifier) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, v.key, jwt.WithValidMethods(v.methods))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrAuthorizationExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrAuthorizationInvalid, err)
	}
	if err := claims.validateRequired(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthorizationInvalid, err)
	}
	return claims, nil
}

func (v *Verifier) key(t *jwt.Token) (any, error) {
	switch t.Method.(type) {
	case *jwt.SigningMethodEd25519:
		return v.keys.PublicKey, nil
	case *jwt.SigningMethodHMAC:
		return v.keys.HMACSecret, nil
	default:
		return nil, fmt.Errorf("unexpected signing method %q", t.Header["alg"])
	}
}

// Issuer signs license tokens. It is used by tooling and tests.
type Issuer struct {
	method jwt.SigningMethod
	key    any
}

// NewIssuer accepts an ed25519.PrivateKey (EdDSA) or a []byte secret (HS256).
func NewIssuer(key crypto.PrivateKey) (*Issuer, error) {
	switch k := key.(type) {
	case ed25519.PrivateKey:
		return &Issuer{method: jwt.SigningMethodEdDSA, key: k}, nil
	case []byte:
		if len(k) == 0 {
			return nil, errors.New("license: empty HMAC secret")
		}
		return &Issuer{method: jwt.SigningMethodHS256, key: k}, nil
	default:
		return nil, fmt.Errorf("license: unsupported signing key %T", key)
	}
}

// Issue signs claims. IssuedAt is stamped with the current time when unset;
// ExpiresAt must be provided by the caller.
func (i *Issuer) Issue(claims *Claims) (string, error) {
	if claims.IssuedAt == nil {
		c := *claims
		c.IssuedAt = jwt.NewNumericDate(time.Now())
		claims = &c
	}
	return jwt.NewWithClaims(i.method, claims).SignedString(i.key)
}

// Int64 returns a pointer to v, for building Claims.
func Int64(v int64) *int64 {
	return &v
}
