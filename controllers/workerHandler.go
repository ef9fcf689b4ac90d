package controllers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// GET /api/v1/workers
func (h *Handler) GetWorkers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.workers.Statuses())
}

// DELETE /api/v1/workers/{id}
func (h *Handler) CancelWorker(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.workers.Cancel(id); err != nil {
		writeJSON(w, http.StatusNotFound, errorResp{Error: err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
