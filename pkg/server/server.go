// Package server exposes scanning and the saved-link store over HTTP for the
// extension popup and other local clients.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/krrishhack/Social-Hunter-Extension/pkg/messaging"
	"github.com/krrishhack/Social-Hunter-Extension/pkg/model"
	"github.com/krrishhack/Social-Hunter-Extension/pkg/scanner"
	"github.com/krrishhack/Social-Hunter-Extension/pkg/store"
)

// maxBody caps request bodies; page HTML can be large.
const maxBody = 10 << 20

// Server holds the HTTP handlers.
type Server struct {
	scanner *scanner.Scanner
	store   *store.Store
	log     zerolog.Logger
}

// New creates a Server. The store must already be loaded.
func New(sc *scanner.Scanner, st *store.Store, log zerolog.Logger) *Server {
	return &Server{scanner: sc, store: st, log: log}
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("POST /scan", s.handleScan)
	mux.HandleFunc("POST /message", s.handleMessage)
	mux.HandleFunc("GET /saved", s.handleSaved)
	mux.HandleFunc("POST /saved", s.handleSave)
	mux.HandleFunc("POST /saved/all", s.handleSaveAll)
	mux.HandleFunc("DELETE /saved", s.handleDelete)
	mux.HandleFunc("DELETE /saved/all", s.handleClear)

	var handler http.Handler = mux
	handler = corsMiddleware(handler)
	handler = s.requestLoggerMiddleware(handler)
	handler = s.recoveryMiddleware(handler)
	return handler
}

// NewHTTPServer wraps h in an http.Server listening on addr.
func NewHTTPServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      h,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
	}
}

type scanRequest struct {
	Targets []string `json:"targets"`
}

type messageRequest struct {
	Type string `json:"type"`
	URL  string `json:"url"`
	HTML string `json:"html"`
}

type saveRequest struct {
	Domain string `json:"domain"`
	Link   string `json:"link"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"store":   s.store.State().String(),
		"domains": len(snap),
		"links":   snap.Count(),
	})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Targets) == 0 {
		writeError(w, http.StatusBadRequest, "targets is required")
		return
	}

	res := s.scanner.ScanAll(r.Context(), req.Targets)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if !decodeBody(w, r, &req) {
		return
	}

	agent := messaging.NewAgent(s.scanner, req.URL, req.HTML, messaging.WithLogger(s.log))
	reply, err := agent.Handle(messaging.Request{Type: req.Type})
	if errors.Is(err, messaging.ErrUnknownMessage) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleSaved(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Snapshot())
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if !decodeBody(w, r, &req) {
		return
	}

	added, err := s.store.Save(r.Context(), req.Domain, req.Link)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"added": added})
}

func (s *Server) handleSaveAll(w http.ResponseWriter, r *http.Request) {
	res := model.NewScanResult()
	if !decodeBody(w, r, res) {
		return
	}

	added, err := s.store.SaveAll(r.Context(), res)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"added": added})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	domain := strings.TrimSpace(r.URL.Query().Get("domain"))
	if domain == "" {
		writeError(w, http.StatusBadRequest, "domain is required")
		return
	}
	index, err := strconv.Atoi(r.URL.Query().Get("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "index must be an integer")
		return
	}

	removed, err := s.store.Delete(r.Context(), domain, index)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"removed": removed})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.store.ClearAll(r.Context()); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cleared": true})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

func writeStoreError(w http.ResponseWriter, err error) {
	var se *store.StorageError
	switch {
	case errors.Is(err, store.ErrEmptyValue):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotLoaded):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &se):
		// The change is applied in memory; only persisting failed.
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":          err.Error(),
			"kept_in_memory": true,
		})
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
