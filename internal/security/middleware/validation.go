package middleware

import (
	"log/slog"
	"net/http"
	"strings"
)

// ValidateJSONContentType rejects POST/PUT/PATCH requests whose body is not
// declared as JSON. Bodiless requests pass through.
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

			if ct := r.Header.Get("Content-Type"); !strings.Contains(ct, "application/json") {
				log.Warn("invalid content type",
					slog.String("path", r.URL.Path),
					slog.String("content_type", ct),
					slog.String("method", r.Method),
				)
				http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// SanitizeInputs rejects requests carrying markup or traversal characters in
// query params or the path. Body fields are validated by each handler's DTO.
func SanitizeInputs(log *slog.Logger) func(http.Handler) http.Handler {
	dangerous := []string{"<", ">", "\"", "'", "&"}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for param, values := range r.URL.Query() {
				for _, val := range values {
					for _, ch := range dangerous {
						if strings.Contains(val, ch) {
							log.Warn("suspicious input detected",
								slog.String("path", r.URL.Path),
								slog.String("param", param),
								slog.String("pattern", ch),
							)
							http.Error(w, "Invalid input: dangerous characters detected", http.StatusBadRequest)
							return
						}
					}
				}
			}

			if strings.Contains(r.URL.Path, "..") || strings.Contains(r.URL.Path, "//") {
				log.Warn("suspicious path pattern detected", slog.String("path", r.URL.Path))
				http.Error(w, "Invalid path", http.StatusBadRequest)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
