package server

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// accessTokenProtocol is the websocket subprotocol that carries a token as
// the next protocol entry: "access_token, <token>".
const accessTokenProtocol = "access_token"

// Claims represents dashboard token claims
type Claims struct {
	// Accounts limits the token to these game accounts. Empty means all.
	Accounts []string `json:"accounts,omitempty"`
	jwt.RegisteredClaims
}

// Allows reports whether the token may read accountID.
func (c *Claims) Allows(accountID string) bool {
	if c.Unrestricted() {
		return true
	}
	return slices.Contains(c.Accounts, accountID)
}

// Unrestricted reports whether the token covers every account.
func (c *Claims) Unrestricted() bool {
	return c == nil || len(c.Accounts) == 0
}

// TokenValidator issues and checks HS256 dashboard tokens
type TokenValidator struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewTokenValidator creates a validator for secret.
func NewTokenValidator(secret, issuer string) (*TokenValidator, error) {
	if secret == "" {
		return nil, errors.New("empty token secret")
	}
	return &TokenValidator{secret: []byte(secret), issuer: issuer, now: time.Now}, nil
}

// Issue signs a token for subject. A zero ttl issues a token without expiry.
func (v *TokenValidator) Issue(subject string, accounts []string, ttl time.Duration) (string, error) {
	now := v.now()
	claims := Claims{
		Accounts: accounts,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   v.issuer,
			Subject:  subject,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken validates a token and returns its claims
func (v *TokenValidator) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// extractToken finds a token in the websocket subprotocols, the
// Authorization header or the token query parameter, in that order.
func extractToken(r *http.Request) string {
	if protocols := websocketProtocols(r); len(protocols) == 2 && protocols[0] == accessTokenProtocol {
		return protocols[1]
	}

	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}

	return r.URL.Query().Get("token")
}

func websocketProtocols(r *http.Request) []string {
	var out []string
	for _, header := range r.Header.Values("Sec-WebSocket-Protocol") {
		for _, p := range strings.Split(header, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
