package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"inventory-vault/internal/migration"
)

// maxImportBytes caps the multipart form held in memory. Legacy exports
// are localStorage dumps, a few megabytes at the very worst.
const maxImportBytes = 64 << 20

const defaultRunListLimit = 20

// handleImport accepts a legacy export upload and runs the migration.
// POST /api/v1/migrate/import, multipart field "file"; the format comes
// from the "format" form value or, failing that, the file extension.
func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		respondError(w, h.logger, migration.NewInvalidError("cannot parse multipart form", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, h.logger, migration.NewInvalidError(`multipart field "file" is required`, err))
		return
	}
	defer file.Close()

	format, err := resolveFormat(r.FormValue("format"), header.Filename)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	payload, err := io.ReadAll(file)
	if err != nil {
		respondError(w, h.logger, migration.NewInvalidError(
			fmt.Sprintf("cannot read upload %s", header.Filename), err))
		return
	}

	run, err := h.imports.Import(r.Context(), payload, format, filepath.Base(header.Filename))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusCreated, run)
}

// handleGetRun returns one import run with its rejects.
// GET /api/v1/migrate/runs/{id}
func (h *Handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.imports.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, run)
}

// handleListRuns returns import runs newest first, without rejects.
// GET /api/v1/migrate/runs?limit=20
func (h *Handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			respondError(w, h.logger, migration.NewInvalidError(
				fmt.Sprintf("invalid limit %q", raw), nil))
			return
		}
		limit = parsed
	}

	runs, err := h.imports.ListRuns(r.Context(), limit)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, runs)
}

func resolveFormat(formValue, filename string) (migration.Format, error) {
	if formValue != "" {
		return migration.ParseFormat(formValue)
	}
	return migration.FormatFromPath(filename)
}
