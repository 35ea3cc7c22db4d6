package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/couchcryptid/wildfire-watch-service/internal/collection"
	"github.com/couchcryptid/wildfire-watch-service/internal/domain"
	"github.com/couchcryptid/wildfire-watch-service/internal/oracle"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

func (s *Server) collection(w http.ResponseWriter, r *http.Request) (*collection.Collection, bool) {
	c, err := s.deps.Collections.Get(mux.Vars(r)["entity"])
	if err != nil {
		s.writeErr(w, r, err)
		return nil, false
	}
	return c, true
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	c, ok := s.collection(w, r)
	if !ok {
		return
	}

	opts := collection.ListOptions{Sort: r.URL.Query().Get("sort")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		opts.Limit = limit
	}

	records, err := c.List(r.Context(), opts)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	c, ok := s.collection(w, r)
	if !ok {
		return
	}
	data, ok := decodeRecord(w, r)
	if !ok {
		return
	}

	var (
		created domain.Record
		err     error
	)
	if c.Name() == domain.CollectionZones {
		created, err = s.deps.Monitor.CreateZone(r.Context(), data)
	} else {
		created, err = c.Create(r.Context(), data)
	}
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	c, ok := s.collection(w, r)
	if !ok {
		return
	}
	patch, ok := decodeRecord(w, r)
	if !ok {
		return
	}

	updated, err := c.Update(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	c, ok := s.collection(w, r)
	if !ok {
		return
	}
	res, err := c.Delete(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req oracle.Request
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	res, err := s.deps.Oracle.Analyze(r.Context(), req)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res.Payload())
}

func (s *Server) handleAnalyzeZones(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Monitor.AnalyzeZones(r.Context())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAnalyzeZone(w http.ResponseWriter, r *http.Request) {
	zone, err := s.deps.Monitor.AnalyzeZone(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, zone)
}

func (s *Server) handlePredictions(w http.ResponseWriter, r *http.Request) {
	preds, err := s.deps.Monitor.PredictHotspots(r.Context())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.AnalysisResult{Predictions: preds}.Payload())
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sum, err := s.deps.Monitor.Summary(r.Context())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func decodeRecord(w http.ResponseWriter, r *http.Request) (domain.Record, bool) {
	var data domain.Record
	if !decodeBody(w, r, &data) {
		return nil, false
	}
	if data == nil {
		data = domain.Record{}
	}
	return data, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// writeErr maps service errors to status codes.
func (s *Server) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, collection.ErrUnknownCollection):
		writeError(w, http.StatusNotFound, err.Error())
	case r.Context().Err() != nil:
		// Client went away; nothing useful to send.
		s.logger.Debug("request cancelled", "path", r.URL.Path, "error", err)
	default:
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
