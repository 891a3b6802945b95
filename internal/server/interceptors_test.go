package server

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func okHandler(context.Context, any) (any, error) { return "ok", nil }

func codeOf(t *testing.T, err error) codes.Code {
	t.Helper()
	st, ok := status.FromError(err)
	if !ok {
		t.Fatalf("not a status error: %v", err)
	}
	return st.Code()
}

func TestCheckBearer(t *testing.T) {
	for value, want := range map[string]string{
		"":              "missing authorization header",
		"Basic secret":  "invalid authorization scheme",
		"Bearer nope":   "invalid token",
		"Bearer secret": "",
	} {
		if got := checkBearer(value, "secret"); got != want {
			t.Errorf("checkBearer(%q) = %q, want %q", value, got, want)
		}
	}
}

func TestUnaryInterceptor_Auth(t *testing.T) {
	srv, _, _ := newTestServer()
	const method = "/lexigraph.v1.Lexicon/Search"
	for _, tc := range []struct {
		name   string
		token  string
		method string
		md     metadata.MD
		want   codes.Code
	}{
		{"Disabled", "", method, nil, codes.OK},
		{"HealthExempt", "secret", "/grpc.health.v1.Health/Check", nil, codes.OK},
		{"NoMetadata", "secret", method, nil, codes.Unauthenticated},
		{"NoHeader", "secret", method, metadata.Pairs("x-other", "v"), codes.Unauthenticated},
		{"WrongToken", "secret", method, metadata.Pairs("authorization", "Bearer wrong"), codes.Unauthenticated},
		{"WrongScheme", "secret", method, metadata.Pairs("authorization", "Basic secret"), codes.Unauthenticated},
		{"Valid", "secret", method, metadata.Pairs("authorization", "Bearer secret"), codes.OK},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			if tc.md != nil {
				ctx = metadata.NewIncomingContext(ctx, tc.md)
			}
			resp, err := srv.unaryInterceptor(tc.token)(ctx, nil, &grpc.UnaryServerInfo{FullMethod: tc.method}, okHandler)
			if tc.want != codes.OK {
				if got := codeOf(t, err); got != tc.want {
					t.Fatalf("code = %v, want %v", got, tc.want)
				}
				return
			}
			if err != nil || resp != "ok" {
				t.Fatalf("got resp=%v err=%v, want ok", resp, err)
			}
		})
	}
}

func TestUnaryInterceptor_PassesErrors(t *testing.T) {
	srv, _, _ := newTestServer()
	boom := errors.New("boom")
	_, err := srv.unaryInterceptor("")(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/x.Y/Z"},
		func(context.Context, any) (any, error) { return nil, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
}

func TestUnaryInterceptor_RecoversPanic(t *testing.T) {
	var buf bytes.Buffer
	srv, _, _ := newTestServerWith(Options{Logger: slog.New(slog.NewTextHandler(&buf, nil))}, dogDictionary...)

	_, err := srv.unaryInterceptor("")(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/x.Y/Z"},
		func(context.Context, any) (any, error) { panic("kaboom") })
	if got := codeOf(t, err); got != codes.Internal {
		t.Fatalf("code = %v, want Internal", got)
	}
	if out := buf.String(); !strings.Contains(out, "panic=kaboom") || !strings.Contains(out, "code=Internal") {
		t.Errorf("log output %q missing panic or code", out)
	}
}

func TestRequireToken(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	for _, tc := range []struct {
		name   string
		token  string
		method string
		path   string
		auth   string
		code   int
	}{
		{"Disabled", "", http.MethodGet, "/v1/stats/overview", "", http.StatusNoContent},
		{"Missing", "secret", http.MethodGet, "/v1/stats/overview", "", http.StatusUnauthorized},
		{"Wrong", "secret", http.MethodGet, "/v1/stats/overview", "Bearer wrong", http.StatusUnauthorized},
		{"Valid", "secret", http.MethodGet, "/v1/stats/overview", "Bearer secret", http.StatusNoContent},
		{"Health", "secret", http.MethodGet, "/v1/health", "", http.StatusNoContent},
		{"Ready", "secret", http.MethodGet, "/v1/ready", "", http.StatusNoContent},
		{"Metrics", "secret", http.MethodGet, "/metrics", "", http.StatusNoContent},
		{"RebuildNeedsToken", "secret", http.MethodPost, "/v1/rebuild", "", http.StatusUnauthorized},
	} {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.auth != "" {
				req.Header.Set("Authorization", tc.auth)
			}
			rec := httptest.NewRecorder()
			requireToken(tc.token, next).ServeHTTP(rec, req)
			if rec.Code != tc.code {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tc.code, rec.Body.String())
			}
		})
	}
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	h := accessLog(logger, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusBadGateway, "upstream")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/words/tea", nil))

	out := buf.String()
	for _, want := range []string{"level=ERROR", "method=GET", "path=/v1/words/tea", "status=502"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %q", out, want)
		}
	}
}

func TestResponseWriter_Flushes(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, code: http.StatusOK}
	var _ http.Flusher = rw
	rw.Flush()
	if !rec.Flushed {
		t.Fatal("Flush did not reach the underlying writer")
	}
}
