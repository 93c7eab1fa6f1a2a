package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskline/taskline-server/internal/domain"
	"github.com/taskline/taskline-server/internal/ratelimit"
	"github.com/taskline/taskline-server/internal/service"
	"github.com/taskline/taskline-server/internal/store"
	"github.com/taskline/taskline-server/internal/store/sqlite"
	"github.com/taskline/taskline-server/internal/validation"
)

// testEnvelope decodes a success envelope with typed data.
type testEnvelope[T any] struct {
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
}

// testServer wraps the API server for handler tests.
type testServer struct {
	*Server
	api   humatest.TestAPI
	db    *sqlite.Store
	prefs *store.Store
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

// setupTestServer creates a server backed by a temporary database and an in-memory preference store.
func setupTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	prefs, err := store.NewInMemory(logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = prefs.Close() })

	v := validation.New()
	services := &Services{
		Tag:        service.NewTagService(db, v, logger),
		Membership: service.NewMembershipService(db, v, logger),
		Preference: service.NewPreferenceService(prefs, domain.MarketGeneric, logger),
	}

	if opts.Health == nil {
		opts.Health = map[string]Pinger{"database": db, "preferences": prefs}
	}

	s := NewServer(services, opts, logger)
	return &testServer{
		Server: s,
		api:    humatest.Wrap(t, s.API()),
		db:     db,
		prefs:  prefs,
	}
}

func decode[T any](t *testing.T, body []byte) testEnvelope[T] {
	t.Helper()
	var env testEnvelope[T]
	require.NoError(t, json.Unmarshal(body, &env), "body: %s", body)
	return env
}

func decodeError(t *testing.T, body []byte) APIErrorEnvelope {
	t.Helper()
	var env APIErrorEnvelope
	require.NoError(t, json.Unmarshal(body, &env), "body: %s", body)
	return env
}

// createTag creates a tag through the API and returns it.
func (ts *testServer) createTag(t *testing.T, body map[string]any) TagResponse {
	t.Helper()
	resp := ts.api.Post("/api/v1/tags", body)
	require.Equal(t, http.StatusCreated, resp.Code, "body: %s", resp.Body.String())
	return decode[TagResponse](t, resp.Body.Bytes()).Data
}

func TestHealth_AllHealthy(t *testing.T) {
	ts := setupTestServer(t, Options{})

	resp := ts.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	env := decode[HealthResponse](t, resp.Body.Bytes())
	assert.True(t, env.Success)
	assert.Equal(t, EnvelopeVersion, env.Version)
	assert.Equal(t, "healthy", env.Data.Status)
	assert.Equal(t, "healthy", env.Data.Components["database"].Status)
	assert.Equal(t, "healthy", env.Data.Components["preferences"].Status)
}

func TestHealth_UnhealthyComponent(t *testing.T) {
	ts := setupTestServer(t, Options{Health: map[string]Pinger{
		"database": pingFunc(func(context.Context) error { return errors.New("disk gone") }),
	}})

	resp := ts.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	env := decode[HealthResponse](t, resp.Body.Bytes())
	assert.Equal(t, "unhealthy", env.Data.Status)
	assert.Equal(t, "disk gone", env.Data.Components["database"].Message)
}

func TestServer_RequestIDHeader(t *testing.T) {
	ts := setupTestServer(t, Options{})

	resp := ts.api.Get("/health")
	assert.Regexp(t, `^req-[0-9a-z]{16}$`, resp.Header().Get("X-Request-ID"))

	resp = ts.api.Get("/health", "X-Request-ID: client-supplied")
	assert.Equal(t, "client-supplied", resp.Header().Get("X-Request-ID"))
}

func TestServer_UnknownRoute(t *testing.T) {
	ts := setupTestServer(t, Options{})

	resp := ts.api.Get("/api/v1/nothing")
	require.Equal(t, http.StatusNotFound, resp.Code)

	env := decodeError(t, resp.Body.Bytes())
	assert.False(t, env.Success)
	assert.Equal(t, "NOT_FOUND", env.Code)
}

func TestServer_RateLimited(t *testing.T) {
	limiter := ratelimit.New(0.001, 1)
	t.Cleanup(limiter.Stop)
	ts := setupTestServer(t, Options{Limiter: limiter})

	resp := ts.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Get("/health")
	require.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.Equal(t, "1", resp.Header().Get("Retry-After"))

	env := decodeError(t, resp.Body.Bytes())
	assert.Equal(t, "RATE_LIMITED", env.Code)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "forwarded for", headers: map[string]string{"X-Forwarded-For": "10.0.0.1, 10.0.0.2"}, remote: "1.2.3.4:5", want: "10.0.0.1"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "10.0.0.9"}, remote: "1.2.3.4:5", want: "10.0.0.9"},
		{name: "remote addr", remote: "1.2.3.4:5678", want: "1.2.3.4"},
		{name: "remote addr without port", remote: "1.2.3.4", want: "1.2.3.4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := http.NewRequest(http.MethodGet, "/", nil)
			require.NoError(t, err)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientIP(r))
		})
	}
}
