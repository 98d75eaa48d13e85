// Package webauth implements the shell-redirect sign-in flow for web
// applications: a signed session cookie, echo middleware that enforces it,
// and a memoized view of the service definition for building shell URLs.
package webauth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/healthvault/sdk/pkg/hverror"
)

// Session is the authenticated web session carried by the cookie.
type Session struct {
	PersonID  uuid.UUID
	RecordID  uuid.UUID
	AuthToken string
	ExpiresAt time.Time
}

const (
	defaultCookieName = "hv-session"
	defaultCookieTTL  = 20 * time.Minute
)

// CookieCodec signs sessions into an HS256 JWT cookie and verifies them
// back. The cookie is HttpOnly, Secure and SameSite=Lax.
type CookieCodec struct {
	secret []byte
	name   string
	ttl    time.Duration
}

// CodecOption customizes a CookieCodec.
type CodecOption func(*CookieCodec)

// WithCookieName overrides the default cookie name.
func WithCookieName(name string) CodecOption {
	return func(c *CookieCodec) { c.name = name }
}

// WithCookieTTL overrides the default cookie lifetime.
func WithCookieTTL(ttl time.Duration) CodecOption {
	return func(c *CookieCodec) { c.ttl = ttl }
}

// NewCookieCodec creates a codec signing with secret.
func NewCookieCodec(secret []byte, opts ...CodecOption) (*CookieCodec, error) {
	if len(secret) == 0 {
		return nil, hverror.Validationf("cookie signing secret is required")
	}
	c := &CookieCodec{secret: secret, name: defaultCookieName, ttl: defaultCookieTTL}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Name returns the cookie name this codec reads and writes.
func (c *CookieCodec) Name() string { return c.name }

type sessionClaims struct {
	RecordID  string `json:"rid"`
	AuthToken string `json:"tok"`
	jwt.RegisteredClaims
}

// Encode signs the session into a cookie. The cookie expires at the earlier
// of the codec TTL and the session's own expiry.
func (c *CookieCodec) Encode(session Session) (*http.Cookie, error) {
	expires := time.Now().Add(c.ttl)
	if !session.ExpiresAt.IsZero() && session.ExpiresAt.Before(expires) {
		expires = session.ExpiresAt
	}

	claims := sessionClaims{
		RecordID:  session.RecordID.String(),
		AuthToken: session.AuthToken,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.PersonID.String(),
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return nil, fmt.Errorf("webauth: sign session: %w", err)
	}

	return &http.Cookie{
		Name:     c.name,
		Value:    signed,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// Decode verifies a cookie and returns the session it carries. Expired or
// tampered cookies fail verification; callers treat that as signed out.
func (c *CookieCodec) Decode(cookie *http.Cookie) (*Session, error) {
	if cookie == nil || cookie.Value == "" {
		return nil, hverror.Validationf("session cookie is empty")
	}

	var claims sessionClaims
	token, err := jwt.ParseWithClaims(cookie.Value, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("webauth: unexpected signing method %q", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		return nil, hverror.Parsef(err, "session cookie")
	}
	if !token.Valid {
		return nil, hverror.Parsef(nil, "session cookie signature invalid")
	}

	personID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, hverror.Parsef(err, "session person id")
	}
	recordID, err := uuid.Parse(claims.RecordID)
	if err != nil {
		return nil, hverror.Parsef(err, "session record id")
	}

	return &Session{
		PersonID:  personID,
		RecordID:  recordID,
		AuthToken: claims.AuthToken,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Clear returns an expired cookie that removes the session from the browser.
func (c *CookieCodec) Clear() *http.Cookie {
	return &http.Cookie{
		Name:     c.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}
