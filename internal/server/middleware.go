package server

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/verte-zerg/typerpg/internal/auth"
)

type tokenErrorKey struct{}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			}
			if ww.Status() >= http.StatusInternalServerError {
				s.log.Error("request", attrs...)
				return
			}
			s.log.Info("request", attrs...)
		}()
		next.ServeHTTP(ww, r)
	})
}

// identify attaches the bearer token's identity to the request when the
// token is valid. Public routes work without one.
func (s *Server) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			ctx = context.WithValue(ctx, tokenErrorKey{}, "invalid authorization header (expected: Bearer <token>)")
		} else if id, err := s.tokens.ValidateToken(token); err != nil {
			ctx = context.WithValue(ctx, tokenErrorKey{}, "invalid or expired token")
		} else {
			ctx = auth.WithIdentity(ctx, id)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.FromContext(r.Context()); ok {
			next.ServeHTTP(w, r)
			return
		}
		msg := "authentication required"
		if reason, ok := r.Context().Value(tokenErrorKey{}).(string); ok {
			msg = reason
		}
		writeError(w, http.StatusUnauthorized, msg, nil)
	})
}

// rateLimiter limits per player when authenticated, else per client IP.
func rateLimiter(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(limit, window,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			if id, ok := auth.FromContext(r.Context()); ok {
				return "user:" + id.UserID, nil
			}
			return "ip:" + clientIP(r), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			if w.Header().Get("Retry-After") == "" {
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
			}
			writeError(w, http.StatusTooManyRequests, "too many requests", nil)
		}),
	)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
