package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"storyloom-backend/internal/models"
)

type contextKey string

const (
	TokenKey  contextKey = "auth_token"
	UserIDKey contextKey = "user_id"
)

// AuthCookieName carries the Account Service JWT after login/register. The
// secret is shared with the Account Service, so the token validates locally
// without a round-trip.
const AuthCookieName = "storyloom_token"

type JWTAuth struct {
	Secret []byte

	// OnUnauthorized runs before every 401 this middleware writes. The
	// server uses it to steer the caller's session onto the login view.
	OnUnauthorized func(r *http.Request)
}

func NewJWTAuth(secret string) *JWTAuth {
	return &JWTAuth{Secret: []byte(secret)}
}

func (j *JWTAuth) unauthorized(w http.ResponseWriter, r *http.Request, code, message string) {
	if j.OnUnauthorized != nil {
		j.OnUnauthorized(r)
	}
	writeError(w, http.StatusUnauthorized, code, message, r)
}

// SetCookie installs the upstream token for later requests. Expiry mirrors
// the token's own exp claim when readable, else a day.
func (j *JWTAuth) SetCookie(w http.ResponseWriter, token string) {
	expires := time.Now().Add(24 * time.Hour)
	if parsed, _ := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return j.Secret, nil
	}); parsed != nil {
		if claims, ok := parsed.Claims.(jwt.MapClaims); ok {
			if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
				expires = exp.Time
			}
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie drops the auth cookie on logout.
func (j *JWTAuth) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Middleware validates the auth cookie and attaches the raw token and user
// id to context. Routes behind it require a signed-in user.
func (j *JWTAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(AuthCookieName)
		if err != nil || cookie.Value == "" {
			j.unauthorized(w, r, "AUTH_REQUIRED", "Sign in to use this feature")
			return
		}

		token, err := jwt.Parse(cookie.Value, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return j.Secret, nil
		})
		if err != nil {
			if strings.Contains(err.Error(), "expired") {
				j.unauthorized(w, r, "TOKEN_EXPIRED", "Session has expired, sign in again")
			} else {
				j.unauthorized(w, r, "AUTH_REQUIRED", "Invalid session token")
			}
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || !token.Valid {
			j.unauthorized(w, r, "AUTH_REQUIRED", "Invalid token claims")
			return
		}

		ctx := context.WithValue(r.Context(), TokenKey, cookie.Value)
		if userID, ok := claims["user_id"].(float64); ok {
			ctx = context.WithValue(ctx, UserIDKey, int64(userID))
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetToken extracts the raw upstream token from request context.
func GetToken(ctx context.Context) string {
	token, _ := ctx.Value(TokenKey).(string)
	return token
}

// GetUserID extracts the user id claim from request context.
func GetUserID(ctx context.Context) int64 {
	id, _ := ctx.Value(UserIDKey).(int64)
	return id
}

func writeError(w http.ResponseWriter, status int, code, message string, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	})
}
