package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/compose-network/wlscanner/x/catalog"
	"github.com/compose-network/wlscanner/x/protocol"
)

// importsCollection labels protocols that were only parsed as imports.
const importsCollection = "imports"

// Handler serves the latest catalog result over HTTP.
type Handler struct {
	mtx    sync.RWMutex
	result *catalog.Result

	log zerolog.Logger
}

// NewHandler creates a handler. Until Update is called every route except
// /healthz answers 503.
func NewHandler(log zerolog.Logger) *Handler {
	return &Handler{
		log: log.With().Str("component", "catalog-http").Logger(),
	}
}

// Update publishes a new catalog result.
func (h *Handler) Update(res *catalog.Result) {
	h.mtx.Lock()
	h.result = res
	h.mtx.Unlock()

	if res != nil {
		h.log.Info().
			Str("run_id", res.RunID).
			Int("collections", len(res.Collections)).
			Msg("Catalog result published")
	}
}

func (h *Handler) current() *catalog.Result {
	h.mtx.RLock()
	defer h.mtx.RUnlock()
	return h.result
}

// HealthResponse summarizes the published run.
type HealthResponse struct {
	Status      string         `json:"status"`
	RunID       string         `json:"run_id,omitempty"`
	Finished    string         `json:"finished,omitempty"`
	Collections map[string]int `json:"collections,omitempty"`
}

// CollectionView is the JSON shape of one collection result.
type CollectionView struct {
	Name        string   `json:"name"`
	Version     string   `json:"version,omitempty"`
	Description string   `json:"description,omitempty"`
	Status      string   `json:"status"`
	Reason      string   `json:"reason,omitempty"`
	Error       string   `json:"error,omitempty"`
	Protocols   []string `json:"protocols,omitempty"`
	DurationMS  int64    `json:"duration_ms"`
}

// ProtocolSummary is the list entry for one protocol.
type ProtocolSummary struct {
	Name       string   `json:"name"`
	Collection string   `json:"collection"`
	Document   string   `json:"document,omitempty"`
	Summary    string   `json:"summary,omitempty"`
	Interfaces []string `json:"interfaces"`
}

// handleHealth reports whether a catalog result has been published
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	res := h.current()
	if res == nil {
		WriteJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "starting"})
		return
	}

	counts := make(map[string]int, 3)
	for _, c := range res.Collections {
		counts[c.Status()]++
	}
	status := "ok"
	if counts[catalog.StatusFailed] > 0 {
		status = "degraded"
	}
	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:      status,
		RunID:       res.RunID,
		Finished:    res.Finished.UTC().Format(time.RFC3339),
		Collections: counts,
	})
}

// handleCollections lists every collection of the published run
func (h *Handler) handleCollections(w http.ResponseWriter, r *http.Request) {
	res, ok := h.ready(w, r)
	if !ok {
		return
	}
	out := make([]CollectionView, 0, len(res.Collections))
	for _, c := range res.Collections {
		out = append(out, collectionView(c))
	}
	WriteJSON(w, http.StatusOK, out)
}

// handleCollection returns one collection by name
func (h *Handler) handleCollection(w http.ResponseWriter, r *http.Request) {
	res, ok := h.ready(w, r)
	if !ok {
		return
	}
	name := mux.Vars(r)["name"]
	c := res.Collection(name)
	if c == nil {
		WriteError(w, r, http.StatusNotFound, "collection_not_found", "unknown collection "+name, nil)
		return
	}
	WriteJSON(w, http.StatusOK, collectionView(c))
}

// handleProtocols lists compiled and imported protocols
func (h *Handler) handleProtocols(w http.ResponseWriter, r *http.Request) {
	res, ok := h.ready(w, r)
	if !ok {
		return
	}
	entries := protocolIndex(res)
	out := make([]ProtocolSummary, 0, len(entries))
	for _, e := range entries {
		names := make([]string, 0, len(e.proto.Interfaces))
		for _, iface := range e.proto.Interfaces {
			names = append(names, iface.Name)
		}
		out = append(out, ProtocolSummary{
			Name:       e.proto.Name,
			Collection: e.collection,
			Document:   e.proto.Document,
			Summary:    e.proto.Description.Summary,
			Interfaces: names,
		})
	}
	WriteJSON(w, http.StatusOK, out)
}

// handleProtocol returns the full model of one protocol
func (h *Handler) handleProtocol(w http.ResponseWriter, r *http.Request) {
	p, ok := h.protocol(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, p)
}

// handleInterface returns one interface of a protocol
func (h *Handler) handleInterface(w http.ResponseWriter, r *http.Request) {
	p, ok := h.protocol(w, r)
	if !ok {
		return
	}
	name := mux.Vars(r)["iface"]
	iface := p.Interface(name)
	if iface == nil {
		WriteError(w, r, http.StatusNotFound, "interface_not_found", "unknown interface "+name, map[string]string{
			"protocol": p.Name,
		})
		return
	}
	WriteJSON(w, http.StatusOK, iface)
}

func (h *Handler) ready(w http.ResponseWriter, r *http.Request) (*catalog.Result, bool) {
	res := h.current()
	if res == nil {
		WriteError(w, r, http.StatusServiceUnavailable, "not_ready", "catalog has not been compiled yet", nil)
		return nil, false
	}
	return res, true
}

func (h *Handler) protocol(w http.ResponseWriter, r *http.Request) (*protocol.Protocol, bool) {
	res, ok := h.ready(w, r)
	if !ok {
		return nil, false
	}
	name := mux.Vars(r)["name"]
	for _, e := range protocolIndex(res) {
		if e.proto.Name == name {
			return e.proto, true
		}
	}
	WriteError(w, r, http.StatusNotFound, "protocol_not_found", "unknown protocol "+name, nil)
	return nil, false
}

type indexEntry struct {
	collection string
	proto      *protocol.Protocol
}

// protocolIndex lists compiled protocols in collection order followed by
// imports that no collection compiled.
func protocolIndex(res *catalog.Result) []indexEntry {
	var out []indexEntry
	seen := make(map[string]bool)
	for _, c := range res.Collections {
		if c.Status() != catalog.StatusCompiled {
			continue
		}
		for _, p := range c.Protocols {
			if seen[p.Name] {
				continue
			}
			seen[p.Name] = true
			out = append(out, indexEntry{collection: c.Name, proto: p})
		}
	}
	for _, p := range res.Imports {
		if seen[p.Name] {
			continue
		}
		seen[p.Name] = true
		out = append(out, indexEntry{collection: importsCollection, proto: p})
	}
	return out
}

func collectionView(c *catalog.CollectionResult) CollectionView {
	v := CollectionView{
		Name:        c.Name,
		Version:     c.Version,
		Description: c.Description,
		Status:      c.Status(),
		Reason:      c.Reason,
		DurationMS:  c.Duration.Milliseconds(),
	}
	if c.Err != nil {
		v.Error = c.Err.Error()
	}
	for _, p := range c.Protocols {
		v.Protocols = append(v.Protocols, p.Name)
	}
	return v
}
