package mid

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Auth failure messages.
const (
	MsgNoToken     = "Not authorized, no token"
	MsgTokenFailed = "Not authorized, token failed"
)

type userKey struct{}

// userSlot lets Auth report the user id back to an outer Logger.
type userSlotKey struct{}

func withUserSlot(ctx context.Context, slot *string) context.Context {
	return context.WithValue(ctx, userSlotKey{}, slot)
}

// WithUserID returns ctx carrying an authenticated user id.
func WithUserID(ctx context.Context, id string) context.Context {
	if slot, ok := ctx.Value(userSlotKey{}).(*string); ok {
		*slot = id
	}
	return context.WithValue(ctx, userKey{}, id)
}

// UserID returns the authenticated user id from ctx.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userKey{}).(string)
	return id, ok && id != ""
}

// Auth returns middleware that requires an HS256 bearer token signed with
// secret and carrying an "id" claim. Missing tokens and failed verification
// both answer 401 with a JSON message.
func Auth(secret []byte) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearer(r.Header.Get("Authorization"))
			if !ok {
				WriteMessage(w, http.StatusUnauthorized, MsgNoToken)
				return
			}
			id, err := ParseToken(secret, token)
			if err != nil {
				WriteMessage(w, http.StatusUnauthorized, MsgTokenFailed)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), id)))
		})
	}
}

func bearer(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

var errNoSubject = errors.New("token has no id claim")

// ParseToken verifies token and returns its "id" claim. Numeric ids are
// rendered in decimal.
func ParseToken(secret []byte, token string) (string, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("mid: parse token: %w", err)
	}
	switch v := claims["id"].(type) {
	case string:
		if v != "" {
			return v, nil
		}
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	}
	return "", errNoSubject
}

// IssueToken signs an HS256 token for userID expiring after ttl.
func IssueToken(secret []byte, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":  userID,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	})
	return tok.SignedString(secret)
}
