package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"inventory-vault/internal/backup"
	"inventory-vault/internal/logging"
	"inventory-vault/internal/migration"
)

// response is the envelope every endpoint returns
type response struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data,omitempty"`
	Error  *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, logger *logging.Logger, status int, data interface{}) {
	writeEnvelope(w, logger, status, &response{Status: "success", Data: data})
}

// respondError maps a domain error onto an HTTP status, reusing the typed
// error's code in the envelope. Lock contention is a conflict, missing
// records are 404, payload and format problems are the caller's fault,
// everything else is internal.
func respondError(w http.ResponseWriter, logger *logging.Logger, err error) {
	status, code := classifyError(err)
	if status >= http.StatusInternalServerError {
		logger.WithFields(map[string]interface{}{
			"code":  code,
			"error": err.Error(),
		}).Error("Request failed")
	}
	writeEnvelope(w, logger, status, &response{
		Status: "error",
		Error:  &apiError{Code: code, Message: err.Error()},
	})
}

func classifyError(err error) (int, string) {
	var backupErr *backup.BackupError
	if errors.As(err, &backupErr) {
		switch backupErr.Type {
		case backup.BackupErrorTypeAlreadyInProgress:
			return http.StatusConflict, string(backupErr.Type)
		case backup.BackupErrorTypeNotFound:
			return http.StatusNotFound, string(backupErr.Type)
		case backup.BackupErrorTypeValidation:
			return http.StatusBadRequest, string(backupErr.Type)
		default:
			return http.StatusInternalServerError, string(backupErr.Type)
		}
	}

	var importErr *migration.ImportError
	if errors.As(err, &importErr) {
		switch importErr.Type {
		case migration.ImportErrorTypeNoPayloadFound,
			migration.ImportErrorTypeUnsupportedFormat,
			migration.ImportErrorTypeInvalid:
			return http.StatusBadRequest, string(importErr.Type)
		default:
			return http.StatusInternalServerError, string(importErr.Type)
		}
	}

	return http.StatusInternalServerError, "INTERNAL"
}

func writeEnvelope(w http.ResponseWriter, logger *logging.Logger, status int, envelope *response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope); err != nil {
		logger.WithField("error", err.Error()).Error("Failed to write response")
	}
}
