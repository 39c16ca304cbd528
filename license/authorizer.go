package license

import (
	"context"
	"fmt"
)

// Grant is a successful authorization for one conversion.
type Grant struct {
	Claims    *Claims
	Remaining int64
}

// CheckSize returns a *SizeError when size exceeds the licensed limit.
func (g *Grant) CheckSize(size int64) error {
	if limit := g.Claims.MaxBytes(); size > limit {
		return &SizeError{Limit: limit, Actual: size}
	}
	return nil
}

// Authorizer combines a Verifier with an optional Ledger.
type Authorizer struct {
	verifier *Verifier
	ledger   Ledger
	token    string
}

// NewAuthorizer creates an authorizer for token. ledger may be nil, in which
// case the token's own remaining count is used and never decremented.
func NewAuthorizer(verifier *Verifier, token string, ledger Ledger) *Authorizer {
	return &Authorizer{verifier: verifier, ledger: ledger, token: token}
}

// Authorize checks the token, the quota, the input size and the output
// format, in that order.
func (a *Authorizer) Authorize(ctx context.Context, size int64, format string) (*Grant, error) {
	claims, err := a.verifier.Verify(a.token)
	if err != nil {
		return nil, err
	}

	remaining := claims.Remaining()
	if a.ledger != nil {
		n, ok, err := a.ledger.Remaining(ctx, claims.Subject)
		if err != nil {
			return nil, err
		}
		if ok {
			remaining = n
		}
	}
	if remaining <= 0 {
		return nil, fmt.Errorf("%w: subject %q", ErrQuotaExceeded, claims.Subject)
	}

	g := &Grant{Claims: claims, Remaining: remaining}
	if err := g.CheckSize(size); err != nil {
		return nil, err
	}
	if !claims.Permits(format) {
		return nil, fmt.Errorf("%w: %q", ErrFormatNotPermitted, format)
	}
	return g, nil
}

// Consume records one finished conversion.
func (a *Authorizer) Consume(ctx context.Context, g *Grant) error {
	if a.ledger == nil {
		return nil
	}
	return a.ledger.Consume(ctx, g.Claims.Subject, g.Claims.Remaining())
}
