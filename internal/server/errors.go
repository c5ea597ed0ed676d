package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"

	"task-tracker/internal/auth"
	"task-tracker/internal/avatar"
	"task-tracker/internal/logger"
	"task-tracker/internal/manager"
	"task-tracker/internal/models"
	"task-tracker/internal/storage"
)

type errorResponse struct {
	Detail any `json:"detail"`
}

// writeError единственное место, где ошибки превращаются в HTTP-ответы.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr   *models.ValidationError
		maxErr *http.MaxBytesError
	)

	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeJSON(w, http.StatusUnauthorized, errorResponse{Detail: "Could not validate credentials"})
	case errors.Is(err, manager.ErrInvalidCredentials):
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeJSON(w, http.StatusUnauthorized, errorResponse{Detail: "Incorrect username or password"})
	case errors.Is(err, storage.ErrConflict):
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "Username already registered"})
	case errors.Is(err, storage.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Detail: "Task not found"})
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: verr.Fields})
	case errors.Is(err, avatar.ErrTooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Detail: "File too large"})
	case errors.As(err, &maxErr):
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Detail: "Request body too large"})
	default:
		logger.Error(r.Context(), err, "Ошибка обработки запроса", "path", r.URL.Path, "method", r.Method)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: "Internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error(context.Background(), err, "Ошибка записи ответа")
	}
}
