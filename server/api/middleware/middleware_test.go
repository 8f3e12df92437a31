package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID(t *testing.T) {
	t.Parallel()

	var seen string
	h := RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r.Context())
	}))

	tests := []struct {
		name     string
		header   string
		preserve bool
	}{
		{name: "missing", header: ""},
		{name: "supplied", header: "trace-42", preserve: true},
		{name: "too long", header: strings.Repeat("x", maxRequestIDLen+1)},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set(RequestIDHeader, tt.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, seen, rec.Header().Get(RequestIDHeader), tt.name)
		if tt.preserve {
			assert.Equal(t, tt.header, seen, tt.name)
			continue
		}
		_, err := uuid.Parse(seen)
		assert.NoError(t, err, tt.name)
	}
}

func TestRequestIDFrom_Empty(t *testing.T) {
	t.Parallel()
	assert.Empty(t, RequestIDFrom(t.Context()))
}

func TestLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.InfoLevel)

	r := mux.NewRouter()
	r.HandleFunc("/items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("hello"))
	})
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Use(Route)
	h := RequestID()(Logger(log, "/healthz")(r))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Zero(t, buf.Len(), "quiet path logged at info")

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/7", nil))
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "http_request", line["message"])
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "/items/7", line["path"])
	assert.Equal(t, "/items/{id}", line["route"])
	assert.EqualValues(t, http.StatusTeapot, line["status"])
	assert.EqualValues(t, 5, line["bytes"])
	assert.NotEmpty(t, line["request_id"])
}

func TestRecover(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h := RequestID()(Recover(zerolog.New(&buf))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), rec.Header().Get(RequestIDHeader))
	assert.Contains(t, buf.String(), "kaboom")
}

func TestLoggerRouteUnmatched(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	r := mux.NewRouter()
	r.HandleFunc("/items/{id}", func(http.ResponseWriter, *http.Request) {})
	r.Use(Route)
	h := Logger(zerolog.New(&buf))(r)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.EqualValues(t, http.StatusNotFound, line["status"])
	assert.Equal(t, "", line["route"])
}

func TestRouteWithoutLogger(t *testing.T) {
	t.Parallel()

	r := mux.NewRouter()
	r.HandleFunc("/items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	r.Use(Route)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/1", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
}
