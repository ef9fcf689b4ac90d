package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"optionchain/pipeline"
	"optionchain/workers"
)

type Handler struct {
	pipeline *pipeline.Pipeline
	workers  *workers.Manager
}

func NewHandler(p *pipeline.Pipeline, m *workers.Manager) *Handler {
	return &Handler{pipeline: p, workers: m}
}

type errorResp struct {
	Error string `json:"error"`
}

type settingsView struct {
	Expiry          string `json:"expiry"`
	AutoRefresh     bool   `json:"autoRefresh"`
	IntervalSeconds int    `json:"intervalSeconds"`
}

func viewOf(s pipeline.Settings) settingsView {
	return settingsView{
		Expiry:          s.Expiry,
		AutoRefresh:     s.AutoRefresh,
		IntervalSeconds: int(s.Interval / time.Second),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("writing response")
	}
}

// GET /api/v1/optionchain
func (h *Handler) GetOptionChain(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.pipeline.Latest()
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, errorResp{Error: "option chain not loaded yet"})
		return
	}
	status := http.StatusOK
	if snap.Meta.Error != nil {
		switch snap.Meta.Error.Kind {
		case "blocked", "malformed", "schema":
			status = http.StatusBadGateway
		case "empty":
			status = http.StatusNotFound
		default:
			status = http.StatusInternalServerError
		}
	}
	writeJSON(w, status, snap)
}

// GET /api/v1/expiries
func (h *Handler) GetExpiries(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"expiryDates": h.pipeline.Expiries(),
		"selected":    h.pipeline.Settings().Expiry,
	})
}

// GET /api/v1/settings
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, viewOf(h.pipeline.Settings()))
}

// POST /api/v1/settings?expiry=..&autoRefresh=..&interval=<seconds>
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var u pipeline.Update
	if v := r.FormValue("expiry"); v != "" {
		u.Expiry = &v
	}
	if v := r.FormValue("autoRefresh"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResp{Error: "autoRefresh must be a boolean"})
			return
		}
		u.AutoRefresh = &b
	}
	if v := r.FormValue("interval"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResp{Error: "interval must be whole seconds"})
			return
		}
		d := time.Duration(secs) * time.Second
		u.Interval = &d
	}

	s, err := h.pipeline.UpdateSettings(u)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, pipeline.ErrInvalidExpiry) || errors.Is(err, pipeline.ErrInvalidInterval) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, errorResp{Error: err.Error()})
		return
	}
	log.Info().Str("expiry", s.Expiry).Bool("auto_refresh", s.AutoRefresh).Dur("interval", s.Interval).Msg("settings updated")
	writeJSON(w, http.StatusOK, viewOf(s))
}
