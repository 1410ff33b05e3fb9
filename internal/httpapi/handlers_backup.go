package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"inventory-vault/internal/backup"
)

// handleCreateSnapshot triggers a snapshot synchronously.
// POST /api/v1/backup/create
func (h *Handler) handleCreateSnapshot(w http.ResponseWriter, r *http.Request) {
	record, err := h.snapshots.CreateSnapshot(r.Context())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusCreated, record)
}

// handleListSnapshots lists catalog records newest first.
// GET /api/v1/backup/list?status=complete&limit=20
func (h *Handler) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	filter, err := snapshotFilterFromQuery(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	records, err := h.snapshots.ListSnapshots(r.Context(), filter)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, records)
}

// handleRestore restores the live store from one snapshot.
// POST /api/v1/backup/restore/{id}
func (h *Handler) handleRestore(w http.ResponseWriter, r *http.Request) {
	snapshotID := chi.URLParam(r, "id")

	job, err := h.restores.Restore(r.Context(), snapshotID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, job)
}

func snapshotFilterFromQuery(r *http.Request) (backup.SnapshotFilter, error) {
	var filter backup.SnapshotFilter
	query := r.URL.Query()

	if raw := query.Get("status"); raw != "" {
		status := backup.SnapshotStatus(raw)
		switch status {
		case backup.SnapshotStatusPending, backup.SnapshotStatusComplete,
			backup.SnapshotStatusCorrupt, backup.SnapshotStatusDeleted:
			filter.Status = &status
		default:
			return filter, backup.NewValidationError(
				fmt.Sprintf("unknown snapshot status %q", raw), nil)
		}
	}

	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return filter, backup.NewValidationError(
				fmt.Sprintf("invalid limit %q", raw), nil)
		}
		filter.Limit = limit
	}

	return filter, nil
}
