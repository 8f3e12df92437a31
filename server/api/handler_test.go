package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compose-network/wlscanner/x/catalog"
	"github.com/compose-network/wlscanner/x/protocol"
)

func sampleResult() *catalog.Result {
	core := &protocol.Protocol{
		Name:        "core",
		Document:    "core.xml",
		Description: protocol.Description{Summary: "core objects"},
		Interfaces: []*protocol.Interface{
			{Name: "core_surface", Version: 3},
		},
	}
	tools := &protocol.Protocol{
		Name: "tools",
		Interfaces: []*protocol.Interface{
			{Name: "tool", Version: 1, Requests: []*protocol.Message{{Name: "apply"}}},
		},
	}
	extra := &protocol.Protocol{
		Name:       "extra",
		Interfaces: []*protocol.Interface{{Name: "extra_thing", Version: 1}},
	}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &catalog.Result{
		RunID:    "run-1",
		Started:  now,
		Finished: now,
		Imports:  []*protocol.Protocol{core, extra},
		Collections: []*catalog.CollectionResult{
			{Name: "core", Version: "3", Protocols: []*protocol.Protocol{core}, Duration: 2 * time.Millisecond},
			{Name: "tools", Protocols: []*protocol.Protocol{tools}},
			{Name: "broken", Err: errors.New("unresolved enum")},
			{Name: "ddm", Skipped: true, Reason: "disabled"},
		},
	}
}

func newTestRouter(t *testing.T, res *catalog.Result, gatherer prometheus.Gatherer) (*mux.Router, *Handler) {
	t.Helper()
	h := NewHandler(zerolog.New(io.Discard))
	if res != nil {
		h.Update(res)
	}
	r := mux.NewRouter()
	h.RegisterMux(r, gatherer)
	return r, h
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHandler_NotReady(t *testing.T) {
	t.Parallel()
	r, _ := newTestRouter(t, nil, nil)

	rec := get(t, r, routeHealth)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "starting", decode[HealthResponse](t, rec).Status)

	rec = get(t, r, routeProtocols)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not_ready", decode[ErrorBody](t, rec).Error.Code)
}

func TestHandler_Health(t *testing.T) {
	t.Parallel()
	r, _ := newTestRouter(t, sampleResult(), nil)

	rec := get(t, r, routeHealth)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[HealthResponse](t, rec)
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "run-1", body.RunID)
	assert.Equal(t, map[string]int{
		catalog.StatusCompiled: 2,
		catalog.StatusFailed:   1,
		catalog.StatusSkipped:  1,
	}, body.Collections)
}

func TestHandler_Collections(t *testing.T) {
	t.Parallel()
	r, _ := newTestRouter(t, sampleResult(), nil)

	rec := get(t, r, routeCollections)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]CollectionView](t, rec)
	require.Len(t, list, 4)
	assert.Equal(t, CollectionView{
		Name:       "core",
		Version:    "3",
		Status:     catalog.StatusCompiled,
		Protocols:  []string{"core"},
		DurationMS: 2,
	}, list[0])
	assert.Equal(t, "unresolved enum", list[2].Error)
	assert.Equal(t, catalog.StatusSkipped, list[3].Status)
	assert.Equal(t, "disabled", list[3].Reason)

	u, err := r.Get(RouteNameCollection).URL("name", "broken")
	require.NoError(t, err)
	rec = get(t, r, u.String())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, catalog.StatusFailed, decode[CollectionView](t, rec).Status)

	rec = get(t, r, "/v1/collections/nope")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "collection_not_found", decode[ErrorBody](t, rec).Error.Code)
}

func TestHandler_Protocols(t *testing.T) {
	t.Parallel()
	r, _ := newTestRouter(t, sampleResult(), nil)

	rec := get(t, r, routeProtocols)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]ProtocolSummary](t, rec)
	require.Len(t, list, 3)
	assert.Equal(t, ProtocolSummary{
		Name:       "core",
		Collection: "core",
		Document:   "core.xml",
		Summary:    "core objects",
		Interfaces: []string{"core_surface"},
	}, list[0])
	assert.Equal(t, "tools", list[1].Name)
	assert.Equal(t, "extra", list[2].Name)
	assert.Equal(t, importsCollection, list[2].Collection)
}

func TestHandler_ProtocolAndInterface(t *testing.T) {
	t.Parallel()
	r, _ := newTestRouter(t, sampleResult(), nil)

	u, err := r.Get(RouteNameProtocol).URL("name", "tools")
	require.NoError(t, err)
	rec := get(t, r, u.String())
	require.Equal(t, http.StatusOK, rec.Code)
	p := decode[protocol.Protocol](t, rec)
	assert.Equal(t, "tools", p.Name)
	require.Len(t, p.Interfaces, 1)
	assert.Equal(t, "apply", p.Interfaces[0].Requests[0].Name)

	u, err = r.Get(RouteNameInterface).URL("name", "core", "iface", "core_surface")
	require.NoError(t, err)
	rec = get(t, r, u.String())
	require.Equal(t, http.StatusOK, rec.Code)
	iface := decode[protocol.Interface](t, rec)
	assert.Equal(t, uint32(3), iface.Version)

	rec = get(t, r, "/v1/protocols/core/interfaces/missing")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "interface_not_found", decode[ErrorBody](t, rec).Error.Code)

	rec = get(t, r, "/v1/protocols/missing")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "protocol_not_found", decode[ErrorBody](t, rec).Error.Code)
}

func TestHandler_UpdateSwapsResult(t *testing.T) {
	t.Parallel()
	r, h := newTestRouter(t, sampleResult(), nil)

	next := &catalog.Result{RunID: "run-2", Collections: []*catalog.CollectionResult{{Name: "only"}}}
	h.Update(next)

	rec := get(t, r, routeCollections)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]CollectionView](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "only", list[0].Name)
}

func TestHandler_MethodAndRouteErrors(t *testing.T) {
	t.Parallel()
	r, _ := newTestRouter(t, sampleResult(), nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, routeProtocols, nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "method_not_allowed", decode[ErrorBody](t, rec).Error.Code)

	rec = get(t, r, "/v2/nothing")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode[ErrorBody](t, rec).Error.Code)
}

func TestHandler_Metrics(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "wlscanner_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	r, _ := newTestRouter(t, sampleResult(), reg)
	rec := get(t, r, routeMetrics)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "wlscanner_test_total 1")

	r, _ = newTestRouter(t, sampleResult(), nil)
	assert.Equal(t, http.StatusNotFound, get(t, r, routeMetrics).Code)
}
