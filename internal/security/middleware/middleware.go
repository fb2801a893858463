package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aryan0dhankhar/bluecarbon/internal/domain"
	"github.com/aryan0dhankhar/bluecarbon/internal/security/audit"
	"github.com/aryan0dhankhar/bluecarbon/internal/security/auth"
	"github.com/aryan0dhankhar/bluecarbon/internal/security/ratelimit"
)

type ClaimsContextKey struct{}
type UserContextKey struct{}

// isPublic reports paths served without a session
func isPublic(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/readyz", "/metrics", "/api/auth/login":
		return true
	}
	return r.Method == http.MethodOptions
}

// RequestIDMiddleware tags every request with an id, reusing X-Request-ID when sent
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(audit.WithRequestID(r.Context(), id)))
	})
}

// JWTMiddleware resolves the session user from a bearer token.
// Websocket clients may pass the token as ?token= since browsers cannot set headers there.
func JWTMiddleware(tm *auth.TokenManager, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublic(r) {
				next.ServeHTTP(w, r)
				return
			}

			tokenString := ""
			if authHeader := r.Header.Get("Authorization"); authHeader != "" {
				var err error
				tokenString, err = auth.ExtractToken(authHeader)
				if err != nil {
					http.Error(w, `{"error":"invalid auth"}`, http.StatusUnauthorized)
					return
				}
			} else if strings.HasPrefix(r.URL.Path, "/ws/") {
				tokenString = r.URL.Query().Get("token")
			}
			if tokenString == "" {
				http.Error(w, `{"error":"no active session"}`, http.StatusUnauthorized)
				return
			}

			claims, err := tm.ValidateToken(tokenString)
			if err != nil {
				log.Debug("token rejected", slog.String("error", err.Error()))
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			user := claims.User()
			ctx := context.WithValue(r.Context(), ClaimsContextKey{}, claims)
			ctx = context.WithValue(ctx, UserContextKey{}, &user)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RateLimitMiddleware limits requests per user, or per client address before login.
// Login attempts get a stricter bucket.
func RateLimitMiddleware(limiter *ratelimit.Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/healthz", "/readyz", "/metrics":
				next.ServeHTTP(w, r)
				return
			case "/api/auth/login":
				if !limiter.AllowStrict(clientIP(r), 10, time.Minute) {
					log.Warn("login rate limit exceeded", slog.String("client", clientIP(r)))
					http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			key := clientIP(r)
			if u := GetUserFromContext(r.Context()); u != nil {
				key = u.ID
			}
			if !limiter.Allow(key) {
				http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AuditMiddleware logs every mutating request with its actor
func AuditMiddleware(auditLog *audit.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost || r.Method == http.MethodPut {
				auditLog.LogRequest(r.Context(), GetUserFromContext(r.Context()), r.Method, r.URL.Path)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CORSMiddleware allows the configured browser origins
func CORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (allowed[origin] || allowed["*"]) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Chain applies middlewares so the first one listed runs first
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func GetClaimsFromContext(ctx context.Context) *auth.Claims {
	if c, ok := ctx.Value(ClaimsContextKey{}).(*auth.Claims); ok {
		return c
	}
	return nil
}

// GetUserFromContext returns the session user, or nil for public requests
func GetUserFromContext(ctx context.Context) *domain.User {
	if u, ok := ctx.Value(UserContextKey{}).(*domain.User); ok {
		return u
	}
	return nil
}

// WithUser stores a session user; used by tests and internal callers
func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, UserContextKey{}, user)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
