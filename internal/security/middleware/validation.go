package middleware

import (
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"unicode"
)

// filter values are enum names, ids and small integers
const maxQueryValueLen = 128

// ValidateJSONContentType rejects write requests whose body is not JSON.
// Bodiless writes (purchase, review without comments) pass through.
func ValidateJSONContentType(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch:
			default:
				next.ServeHTTP(w, r)
				return
			}
			if r.ContentLength == 0 {
				next.ServeHTTP(w, r)
				return
			}

			mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err != nil || mediaType != "application/json" {
				log.Warn("rejected non-json body",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("content_type", r.Header.Get("Content-Type")),
				)
				http.Error(w, `{"error":"body must be application/json","kind":"invalid_input"}`, http.StatusUnsupportedMediaType)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SanitizeInputs rejects query filters and paths that could not name a
// registry record: markup, control characters, oversized values and
// traversal segments.
func SanitizeInputs(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.Contains(r.URL.Path, "..") || strings.Contains(r.URL.Path, "//") {
				log.Warn("suspicious path", slog.String("path", r.URL.Path))
				http.Error(w, `{"error":"invalid path","kind":"invalid_input"}`, http.StatusBadRequest)
				return
			}

			for key, values := range r.URL.Query() {
				for _, val := range values {
					if reason := unsafeQueryValue(val); reason != "" {
						log.Warn("suspicious query parameter",
							slog.String("path", r.URL.Path),
							slog.String("param", key),
							slog.String("reason", reason),
						)
						http.Error(w, `{"error":"invalid query parameter","kind":"invalid_input"}`, http.StatusBadRequest)
						return
					}
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// unsafeQueryValue names why val is refused, or returns "" when it is fine
func unsafeQueryValue(val string) string {
	if len(val) > maxQueryValueLen {
		return "too long"
	}
	if strings.ContainsAny(val, `<>"'&`) {
		return "markup"
	}
	for _, r := range val {
		if unicode.IsControl(r) {
			return "control character"
		}
	}
	return ""
}
