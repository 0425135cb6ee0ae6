package handler

import (
	"errors"
	"net/http"
	"strconv"

	"central-illustration/internal/logger"
	"central-illustration/internal/middleware"
	"central-illustration/internal/models"
	"central-illustration/internal/service"
	"central-illustration/internal/validation"

	"github.com/google/uuid"
)

type DemoHandler struct {
	Demos *service.DemoService
	Log   *logger.Logger
}

// loadDemo resolves the {id} path variable, answering 404 with notFound when
// the demonstration does not exist.
func loadDemo(w http.ResponseWriter, r *http.Request, demos *service.DemoService, log *logger.Logger, notFound string) (*models.Demonstration, bool) {
	id, ok := intVar(w, r, "id")
	if !ok {
		return nil, false
	}
	demo, err := demos.Get(r.Context(), id)
	if errors.Is(err, service.ErrDemoNotFound) {
		writeError(w, http.StatusNotFound, notFound)
		return nil, false
	}
	if err != nil {
		log.Error("load demo", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load demonstration")
		return nil, false
	}
	return demo, true
}

func (h *DemoHandler) List(w http.ResponseWriter, r *http.Request) {
	visibleOnly := true
	if v := r.URL.Query().Get("visible_only"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "visible_only must be a boolean")
			return
		}
		visibleOnly = b
	}

	demos, err := h.Demos.List(r.Context(), visibleOnly)
	if err != nil {
		h.Log.Error("list demos", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list demonstrations")
		return
	}
	writeJSON(w, http.StatusOK, demos)
}

func (h *DemoHandler) Get(w http.ResponseWriter, r *http.Request) {
	demo, ok := loadDemo(w, r, h.Demos, h.Log, "Demonstration not found")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, demo)
}

func (h *DemoHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.DemonstrationCreate
	if !decodeJSON(r, &in) {
		writeError(w, http.StatusUnprocessableEntity, "Invalid JSON body")
		return
	}
	if err := validation.ValidateTitle(in.Title); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := validation.ValidateFolderName(in.FolderName); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	createdBy := uuid.Nil
	if u, ok := middleware.UserFrom(r.Context()); ok {
		createdBy = u.ID
	}

	demo, err := h.Demos.Create(r.Context(), in, createdBy)
	if errors.Is(err, service.ErrFolderExists) {
		writeError(w, http.StatusBadRequest, "Folder name already exists")
		return
	}
	if err != nil {
		h.Log.Error("create demo", "folder", in.FolderName, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create demonstration")
		return
	}
	writeJSON(w, http.StatusCreated, demo)
}

func (h *DemoHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := intVar(w, r, "id")
	if !ok {
		return
	}
	var in models.DemonstrationUpdate
	if !decodeJSON(r, &in) {
		writeError(w, http.StatusUnprocessableEntity, "Invalid JSON body")
		return
	}
	if in.Title != nil {
		if err := validation.ValidateTitle(*in.Title); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	}

	demo, err := h.Demos.Update(r.Context(), id, in)
	if errors.Is(err, service.ErrDemoNotFound) {
		writeError(w, http.StatusNotFound, "Demonstration not found")
		return
	}
	if err != nil {
		h.Log.Error("update demo", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to update demonstration")
		return
	}
	writeJSON(w, http.StatusOK, demo)
}

func (h *DemoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := intVar(w, r, "id")
	if !ok {
		return
	}
	err := h.Demos.Delete(r.Context(), id)
	if errors.Is(err, service.ErrDemoNotFound) {
		writeError(w, http.StatusNotFound, "Demonstration not found")
		return
	}
	if err != nil {
		h.Log.Error("delete demo", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete demonstration")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
