package server

import (
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"task-tracker/internal/auth"
	"task-tracker/internal/manager"
	"task-tracker/internal/models"
)

const (
	// запас на заголовки multipart поверх лимита самого файла
	multipartOverhead = 64 << 10
	maxJSONBody       = 1 << 20
)

type handlers struct {
	users          *manager.UserManager
	tasks          *manager.TaskManager
	ping           func(ctx context.Context) error
	uploadMaxBytes int64
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	if h.ping != nil {
		if err := h.ping(r.Context()); err != nil {
			writeError(w, r, errors.Wrap(err, "healthcheck"))
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	if err := decodeJSON(w, r, &creds); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.users.Register(r.Context(), creds)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// login принимает form-encoded username/password (OAuth2 password flow).
func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, r, models.NewValidationError("body", "must be form-encoded"))
		return
	}
	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")

	var verr models.ValidationError
	if username == "" {
		verr.Add("username", "field required")
	}
	if password == "" {
		verr.Add("password", "field required")
	}
	if verr.HasErrors() {
		writeError(w, r, &verr)
		return
	}

	token, err := h.users.Login(r.Context(), username, password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (h *handlers) currentUser(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	writeJSON(w, http.StatusOK, user)
}

func (h *handlers) uploadAvatar(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, h.uploadMaxBytes+multipartOverhead)

	file, header, err := formFile(r, "file", "avatar")
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer file.Close()

	url, err := h.users.SetAvatar(r.Context(), user, header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"avatar_url": url})
}

func (h *handlers) listTasks(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	tasks, err := h.tasks.ListTasks(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *handlers) createTask(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	var req models.CreateTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	task, err := h.tasks.AddTask(r.Context(), user.ID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (h *handlers) updateTask(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	taskID, err := taskIDParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		writeError(w, r, errors.Wrap(err, "read body"))
		return
	}
	patch, err := models.DecodeTaskPatch(body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	task, err := h.tasks.UpdateTask(r.Context(), user.ID, taskID, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *handlers) deleteTask(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	taskID, err := taskIDParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.tasks.DeleteTask(r.Context(), user.ID, taskID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *handlers) stats(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	stats, err := h.tasks.Stats(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return err
		}
		return models.NewValidationError("body", "invalid JSON: "+err.Error())
	}
	return nil
}

func taskIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, models.NewValidationError("task_id", "must be a positive integer")
	}
	return id, nil
}

// formFile берёт первый найденный файл из перечисленных полей формы.
func formFile(r *http.Request, fields ...string) (multipart.File, *multipart.FileHeader, error) {
	for _, field := range fields {
		file, header, err := r.FormFile(field)
		if err == nil {
			return file, header, nil
		}
		if !errors.Is(err, http.ErrMissingFile) {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				return nil, nil, err
			}
			return nil, nil, models.NewValidationError("file", "must be a multipart upload")
		}
	}
	return nil, nil, models.NewValidationError("file", "field required")
}
