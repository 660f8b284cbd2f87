package auth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

// UserClaims are the ID token claims read by the OIDC verifier.
type UserClaims struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
}

// OIDC verifies ID tokens of an external identity provider.
type OIDC struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDC discovers the provider at issuer.
func NewOIDC(ctx context.Context, issuer, clientID string) (*OIDC, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc provider: %w", err)
	}
	return NewOIDCVerifier(provider.Verifier(&oidc.Config{ClientID: clientID})), nil
}

// NewOIDCVerifier wraps an existing verifier.
func NewOIDCVerifier(v *oidc.IDTokenVerifier) *OIDC {
	return &OIDC{verifier: v}
}

func (o *OIDC) Verify(ctx context.Context, raw string) (string, error) {
	if raw == "" {
		return "", ErrMissingToken
	}
	idToken, err := o.verifier.Verify(ctx, raw)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	var claims UserClaims
	if err := idToken.Claims(&claims); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidClaims, err)
	}
	if claims.Sub == "" {
		return "", fmt.Errorf("%w: missing user ID", ErrInvalidClaims)
	}
	return claims.Sub, nil
}
