package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"carepay/internal/app/server"
	"carepay/internal/auth"
	"carepay/internal/platform/config"
)

const testSecret = "test-secret"

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func (e envelope) code() string {
	if e.Error == nil {
		return ""
	}
	return e.Error.Code
}

func testConfig() config.Config {
	return config.Config{
		Environment:        "test",
		StoreDriver:        config.StoreDriverSQLite,
		SQLitePath:         ":memory:",
		JWTSecret:          testSecret,
		CORSAllowedOrigins: []string{"http://localhost:5173"},
		MaxBodyBytes:       1048576,
		RateLimitPerMinute: 1000,
		PayrollWorkers:     4,
		CheckNumberStart:   1000,
		LogLevel:           "error",
		LogFormat:          "json",
		MetricsEnabled:     true,
		RunMigrations:      true,
		ShutdownTimeout:    time.Second,
	}
}

type testServer struct {
	app    *server.App
	url    string
	client *http.Client
}

func startServer(t *testing.T, cfg config.Config) *testServer {
	t.Helper()
	app, err := server.New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(app.Close)

	ts := httptest.NewServer(app.Router)
	t.Cleanup(ts.Close)
	return &testServer{app: app, url: ts.URL + "/api/v1", client: ts.Client()}
}

func token(t *testing.T, role string) string {
	t.Helper()
	signed, err := auth.GenerateToken(testSecret, auth.Claims{UserID: "u-" + role, RoleName: role}, time.Hour)
	require.NoError(t, err)
	return signed
}

func (s *testServer) do(t *testing.T, method, path, bearer string, body any) (int, envelope) {
	t.Helper()
	resp, raw := s.raw(t, method, path, bearer, body)
	var env envelope
	require.NoError(t, json.Unmarshal(raw, &env), "body: %s", string(raw))
	return resp.StatusCode, env
}

func (s *testServer) raw(t *testing.T, method, path, bearer string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequest(method, s.url+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := s.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

// expect performs a request and decodes data into out after checking status.
func (s *testServer) expect(t *testing.T, method, path, bearer string, body any, want int, out any) envelope {
	t.Helper()
	status, env := s.do(t, method, path, bearer, body)
	require.Equal(t, want, status, "%s %s: %s", method, path, env.code())
	if out != nil {
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
	return env
}
