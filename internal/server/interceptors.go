package server

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const healthMethodPrefix = "/grpc.health.v1.Health/"

// publicPaths answer GET without a token.
var publicPaths = map[string]bool{
	"/v1/health": true,
	"/v1/ready":  true,
	"/metrics":   true,
}

// checkBearer validates an Authorization value against token and returns
// the rejection reason, or "" when the value is accepted.
func checkBearer(value, token string) string {
	if value == "" {
		return "missing authorization header"
	}
	provided, ok := strings.CutPrefix(value, "Bearer ")
	if !ok {
		return "invalid authorization scheme"
	}
	if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
		return "invalid token"
	}
	return ""
}

// unaryInterceptor recovers panics, enforces the bearer token (health RPCs
// excepted) and logs each call. An empty token disables auth.
func (s *LexiconServer) unaryInterceptor(token string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		start := time.Now()
		health := strings.HasPrefix(info.FullMethod, healthMethodPrefix)
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("panic in rpc handler",
					"method", info.FullMethod,
					"panic", fmt.Sprint(r),
					"stack", string(debug.Stack()))
				err = status.Error(codes.Internal, "internal server error")
			}
			level := slog.LevelInfo
			switch {
			case err != nil:
				level = slog.LevelError
			case health:
				level = slog.LevelDebug
			}
			s.logger.Log(ctx, level, "rpc",
				"method", info.FullMethod,
				"code", status.Code(err).String(),
				"duration", time.Since(start))
		}()

		if token != "" && !health {
			var value string
			if md, ok := metadata.FromIncomingContext(ctx); ok {
				if v := md.Get("authorization"); len(v) > 0 {
					value = v[0]
				}
			}
			if reason := checkBearer(value, token); reason != "" {
				return nil, status.Error(codes.Unauthenticated, reason)
			}
		}
		return handler(ctx, req)
	}
}

// requireToken rejects requests without a valid bearer token with 401.
// publicPaths are exempt and an empty token disables the check.
func requireToken(token string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && publicPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}
		if reason := checkBearer(r.Header.Get("Authorization"), token); reason != "" {
			writeError(w, http.StatusUnauthorized, reason)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// responseWriter remembers the status code written through it.
type responseWriter struct {
	http.ResponseWriter
	code int
}

func (w *responseWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *responseWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// accessLog writes one log line per request, at error level for 5xx.
func accessLog(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rw, r)

		level := slog.LevelInfo
		if rw.code >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(r.Context(), level, "http",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.code,
			"duration", time.Since(start))
	})
}

// rateLimit answers 429 once the server's limiter is exhausted.
func (s *LexiconServer) rateLimit(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
