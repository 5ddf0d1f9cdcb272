package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/xelth-com/eckscan/internal/utils"
)

type contextKey string

const DeviceContextKey contextKey = "device"

// Auth verifies device bearer tokens signed with secret. Browsers opening the
// websocket feed cannot set headers, so a token query parameter is accepted too.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := r.URL.Query().Get("token")
			if authHeader := r.Header.Get("Authorization"); authHeader != "" {
				// Bearer token
				parts := strings.Split(authHeader, " ")
				if len(parts) != 2 || parts[0] != "Bearer" {
					http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
					return
				}
				tokenString = parts[1]
			}
			if tokenString == "" {
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			claims, err := utils.ValidateToken(tokenString, secret)
			if err != nil {
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}
			if utils.DeviceID(claims) == "" {
				http.Error(w, "Invalid token: missing device_id", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), DeviceContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// DeviceFromContext returns the authenticated device id, or "".
func DeviceFromContext(ctx context.Context) string {
	claims, ok := ctx.Value(DeviceContextKey).(jwt.MapClaims)
	if !ok {
		return ""
	}
	return utils.DeviceID(claims)
}
