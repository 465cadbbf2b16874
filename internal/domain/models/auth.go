package models

import "github.com/golang-jwt/jwt/v5"

// GoogleClaims is the claims structure of a Google ID token.
// See: https://developers.google.com/identity/openid-connect/openid-connect#id_token-payload
type GoogleClaims struct {
	jwt.RegisteredClaims        // Standard JWT claims (sub, iss, aud, exp, iat, etc.)
	Email                string `json:"email"`
	EmailVerified        bool   `json:"email_verified"`
	Name                 string `json:"name"`
	Picture              string `json:"picture"`
	GivenName            string `json:"given_name"`
	FamilyName           string `json:"family_name"`
	HostedDomain         string `json:"hd"`
}

// GetUserID returns the user ID from the JWT subject claim.
// This is the primary identifier for the authenticated user.
func (c *GoogleClaims) GetUserID() string {
	return c.Subject
}
