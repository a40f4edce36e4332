package watcher

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/pagewatch/shield"
	"github.com/hazyhaar/pagewatch/snapshot"
)

// NewHandler returns a router serving the API routes behind mws.
func NewHandler(svc *Service, mws ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(shield.Recover)
	for _, mw := range mws {
		r.Use(mw)
	}
	svc.RegisterHTTP(r)
	return r
}

// RegisterHTTP mounts the check, health, channel and history routes.
func (s *Service) RegisterHTTP(r chi.Router) {
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	})
	r.Get("/channels", s.handleChannels)
	r.Get("/history", s.handleHistory)
	for _, path := range []string{"/", "/check"} {
		r.Get(path, s.handleCheckGet)
		r.Post(path, s.handleCheckPost)
	}
}

func (s *Service) handleCheckGet(w http.ResponseWriter, r *http.Request) {
	req, err := parseQuery(r.URL.Query())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.runCheck(w, r, req)
}

func (s *Service) handleCheckPost(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCheckBody(r.Body)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.runCheck(w, r, req)
}

func (s *Service) runCheck(w http.ResponseWriter, r *http.Request, req CheckRequest) {
	report, err := s.Check(r.Context(), req)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Service) handleChannels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"channels": s.Channels()})
}

func (s *Service) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := snapshot.DefaultHistoryLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.writeErr(w, r, invalid("limit: %v", err))
			return
		}
		limit = n
	}
	target := strings.TrimSpace(q.Get("url"))
	snaps, err := s.History(r.Context(), target, limit)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"url":       target,
		"target":    snapshot.Fingerprint(target),
		"snapshots": snaps,
	})
}

func (s *Service) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status >= 500 {
		shield.GetLogger(r.Context()).Error("watcher: request failed", "status", status, "error", err)
	}
	shield.WriteError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
