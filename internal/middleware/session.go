package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/soaringjerry/epds/internal/utils"
)

const (
	// SessionCookie carries the session token for browser clients.
	SessionCookie = "epds_session"
	// SessionHeader echoes a freshly issued token to API clients.
	SessionHeader = "X-Session-Token"

	sessionKey ctxKey = 2
	devSecret         = "epds-dev-secret"
)

var errInvalidToken = errors.New("invalid session token")

type Claims struct {
	SID string `json:"sid"`
	jwt.RegisteredClaims
}

// SessionTokens signs and verifies the token that binds a client to its
// session id.
type SessionTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionTokens uses a fixed development secret when secret is empty.
func NewSessionTokens(secret string, ttl time.Duration) *SessionTokens {
	if secret == "" {
		secret = devSecret
	}
	return &SessionTokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (t *SessionTokens) TTL() time.Duration { return t.ttl }

func (t *SessionTokens) Sign(sessionID string) (string, error) {
	now := t.now()
	claims := Claims{SID: sessionID, RegisteredClaims: jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
	}}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

func (t *SessionTokens) Parse(tok string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tok, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil {
		return nil, err
	}
	if c, ok := parsed.Claims.(*Claims); ok && parsed.Valid && c.SID != "" {
		return c, nil
	}
	return nil, errInvalidToken
}

// SetCookie stores tok in the session cookie and the response header.
func (t *SessionTokens) SetCookie(c *gin.Context, tok string) {
	c.Header(SessionHeader, tok)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, tok, int(t.ttl.Seconds()), "/", "", c.Request.TLS != nil, true)
}

// ClearCookie expires the session cookie.
func (t *SessionTokens) ClearCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", c.Request.TLS != nil, true)
}

// WithSession attaches the session id to the context when a valid token is
// presented as a Bearer header or the session cookie.
func WithSession(tokens *SessionTokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tok := extractToken(c); tok != "" {
			if claims, err := tokens.Parse(tok); err == nil {
				c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), sessionKey, claims.SID))
			}
		}
		c.Next()
	}
}

// RequireSession rejects requests without a verified session.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := SessionIDFromContext(c.Request.Context()); !ok {
			locale := LocaleFromContext(c.Request.Context())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": utils.T(locale, "session.unauthorized"), "code": "unauthorized"},
			})
			return
		}
		c.Next()
	}
}

func SessionIDFromContext(ctx context.Context) (string, bool) {
	if s, ok := ctx.Value(sessionKey).(string); ok && s != "" {
		return s, true
	}
	return "", false
}

func extractToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	if v, err := c.Cookie(SessionCookie); err == nil {
		return v
	}
	return ""
}
