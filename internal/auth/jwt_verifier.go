package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"intelligence/internal/domain"
	"intelligence/internal/domain/models"
)

// Google's OpenID Connect JWKS endpoint and accepted issuer values.
const (
	GoogleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"

	issuerGoogle       = "accounts.google.com"
	issuerGoogleHTTPS  = "https://accounts.google.com"
)

// GoogleIDTokenVerifier implements JWTVerifier against Google's JWKS.
type GoogleIDTokenVerifier struct {
	jwks     keyfunc.Keyfunc
	clientID string
	logger   *slog.Logger
}

// NewJWTVerifier creates a verifier that fetches public keys from Google's
// JWKS endpoint. Keys are cached and refreshed automatically based on HTTP
// cache headers. clientID is the OAuth client the token audience must match.
func NewJWTVerifier(jwksURL, clientID string, logger *slog.Logger) (JWTVerifier, error) {
	if jwksURL == "" {
		return nil, errors.New("JWKS URL cannot be empty")
	}
	if clientID == "" {
		return nil, errors.New("OAuth client ID cannot be empty")
	}

	jwks, err := keyfunc.NewDefaultCtx(context.Background(), []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS client: %w", err)
	}

	logger.Info("ID-token verifier initialized", "jwks_url", jwksURL)

	return &GoogleIDTokenVerifier{
		jwks:     jwks,
		clientID: clientID,
		logger:   logger,
	}, nil
}

// VerifyToken validates a Google ID token and extracts its claims.
// Returns domain.ErrUnauthorized for any invalid, expired, or misdirected
// token; the specific reason is only logged.
func (v *GoogleIDTokenVerifier) VerifyToken(tokenString string) (*models.GoogleClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.GoogleClaims{}, v.jwks.Keyfunc)
	if err != nil {
		v.logger.Debug("token parse failed", "error", err)
		return nil, domain.ErrUnauthorized
	}
	if !token.Valid {
		return nil, domain.ErrUnauthorized
	}

	// Prevent algorithm confusion attacks; Google signs with RS256.
	if alg := token.Method.Alg(); alg != "RS256" && alg != "ES256" {
		v.logger.Warn("token uses unexpected algorithm", "algorithm", alg)
		return nil, domain.ErrUnauthorized
	}

	claims, ok := token.Claims.(*models.GoogleClaims)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	if claims.Subject == "" {
		v.logger.Debug("token missing subject claim")
		return nil, domain.ErrUnauthorized
	}
	if iss := claims.Issuer; iss != issuerGoogle && iss != issuerGoogleHTTPS {
		v.logger.Warn("token has unexpected issuer", "issuer", iss)
		return nil, domain.ErrUnauthorized
	}
	if !slices.Contains(claims.Audience, v.clientID) {
		v.logger.Warn("token audience mismatch", "user_id", claims.Subject)
		return nil, domain.ErrUnauthorized
	}

	return claims, nil
}

// Close releases resources held by the verifier. keyfunc v3 manages its own
// refresh lifecycle, so this is a no-op kept for shutdown symmetry.
func (v *GoogleIDTokenVerifier) Close() error {
	return nil
}
