package auth

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hongminglow/agentauth/internal/models"
)

// PlaceholderSignature stands in for the signature segment. Nothing is signed;
// the token only demonstrates forwarding and must never be trusted.
const PlaceholderSignature = "fake-signature"

// AnonymousID is the identity assigned when no usable token is present.
const AnonymousID = "anonymous"

const bearerPrefix = "Bearer "

// ErrMalformedToken indicates the value is not a three-segment token with a JSON payload.
var ErrMalformedToken = errors.New("malformed token")

// Claims is the payload copied from the current user.
type Claims struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Identity is what a downstream agent learns from a token.
type Identity struct {
	UserID string `json:"user_id"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
}

// Anonymous returns the identity used for unauthenticated callers.
func Anonymous() Identity {
	return Identity{UserID: AnonymousID}
}

// Authenticated reports whether the identity came from a decodable token.
func (i Identity) Authenticated() bool {
	return i.UserID != "" && i.UserID != AnonymousID
}

// DeriveToken builds the fake three-segment token for user. It returns false
// when there is no user. The result is deterministic for a given user.
func DeriveToken(user *models.User) (string, bool) {
	if user == nil {
		return "", false
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Role:   user.Role,
	})
	unsigned, err := token.SigningString()
	if err != nil {
		// Header and claims are plain strings; marshaling cannot fail.
		return "", false
	}
	return unsigned + "." + PlaceholderSignature, true
}

// DecodeToken reads the payload of a token without verifying anything.
func DecodeToken(raw string) (Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Identity{}, ErrMalformedToken
	}
	var claims Claims
	// A missing or unknown alg only means the token cannot be verified, which
	// is never attempted; the claims are already decoded at that point.
	_, _, err := jwt.NewParser().ParseUnverified(raw, &claims)
	if err != nil && !errors.Is(err, jwt.ErrTokenUnverifiable) {
		return Identity{}, errors.Join(ErrMalformedToken, err)
	}
	id := claims.UserID
	if id == "" {
		id = claims.Subject
	}
	if id == "" {
		return Identity{}, ErrMalformedToken
	}
	return Identity{UserID: id, Name: claims.Name, Email: claims.Email, Role: claims.Role}, nil
}

// IdentityFromAuthorization decodes a raw token or a "Bearer" header value,
// falling back to the anonymous identity.
func IdentityFromAuthorization(value string) Identity {
	id, err := DecodeToken(StripBearer(value))
	if err != nil {
		return Anonymous()
	}
	return id
}

// BearerHeader formats token as an Authorization header value.
func BearerHeader(token string) string {
	return bearerPrefix + token
}

// StripBearer removes a leading "Bearer " scheme when present.
func StripBearer(value string) string {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, bearerPrefix) {
		return strings.TrimSpace(value[len(bearerPrefix):])
	}
	return value
}
