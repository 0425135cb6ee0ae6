package handler

import (
	"errors"
	"net/http"

	"central-illustration/internal/extension"
	"central-illustration/internal/logger"
	"central-illustration/internal/middleware"
	"central-illustration/internal/models"
	"central-illustration/internal/service"
	"central-illustration/internal/validation"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// ProjectWatcher starts watching a newly available project's content.
type ProjectWatcher interface {
	AddProject(folder string) error
}

type ExtensionHandler struct {
	Catalog *extension.Catalog
	Demos   *service.DemoService
	Watcher ProjectWatcher
	Log     *logger.Logger
}

func (h *ExtensionHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.Catalog.List()
	if err != nil {
		h.Log.Error("list extensions", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list extensions")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *ExtensionHandler) Info(w http.ResponseWriter, r *http.Request) {
	info, err := h.Catalog.Info(mux.Vars(r)["name"])
	if errors.Is(err, extension.ErrExtensionNotFound) {
		writeError(w, http.StatusNotFound, "Extension not found")
		return
	}
	if err != nil {
		h.Log.Error("extension info", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to read extension")
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *ExtensionHandler) ContentFile(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	body, err := h.Catalog.ContentFile(vars["name"], vars["path"])
	switch {
	case errors.Is(err, extension.ErrExtensionNotFound), errors.Is(err, extension.ErrFileNotFound):
		writeError(w, http.StatusNotFound, "File not found")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "Failed to read file: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, models.PageContent{Content: body})
}

// CreateFromExtension scaffolds the project directory first and registers the
// demonstration second. If registration fails the directory is removed again.
func (h *ExtensionHandler) CreateFromExtension(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("extension_name")
	if err := validation.ValidateExtensionName(name); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	var in models.CreateFromExtensionRequest
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

	ctx := r.Context()
	if _, err := h.Demos.GetByFolder(ctx, in.FolderName); err == nil {
		writeError(w, http.StatusBadRequest, "Folder name already exists")
		return
	} else if !errors.Is(err, service.ErrDemoNotFound) {
		h.Log.Error("check folder", "folder", in.FolderName, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create project from extension")
		return
	}

	err := h.Catalog.Scaffold(name, in.FolderName)
	switch {
	case errors.Is(err, extension.ErrExtensionNotFound):
		writeError(w, http.StatusNotFound, "Extension not found")
		return
	case errors.Is(err, extension.ErrDestinationExists):
		writeError(w, http.StatusBadRequest, "Destination directory already exists")
		return
	case err != nil:
		h.Log.Error("scaffold project", "extension", name, "folder", in.FolderName, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create project from extension: "+err.Error())
		return
	}

	createdBy := uuid.Nil
	if u, ok := middleware.UserFrom(ctx); ok {
		createdBy = u.ID
	}
	visible := true
	desc := in.Description
	demo, err := h.Demos.Create(ctx, models.DemonstrationCreate{
		Title:       in.Title,
		Description: &desc,
		FolderName:  in.FolderName,
		IsVisible:   &visible,
	}, createdBy)
	if err != nil {
		if rmErr := h.Catalog.Remove(in.FolderName); rmErr != nil {
			h.Log.Warn("remove scaffold", "folder", in.FolderName, "error", rmErr)
		}
		if errors.Is(err, service.ErrFolderExists) {
			writeError(w, http.StatusBadRequest, "Folder name already exists")
			return
		}
		h.Log.Error("register scaffolded demo", "folder", in.FolderName, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create project from extension: "+err.Error())
		return
	}

	if h.Watcher != nil {
		if err := h.Watcher.AddProject(in.FolderName); err != nil {
			h.Log.Warn("watch project", "folder", in.FolderName, "error", err)
		}
	}

	h.Log.Info("project created from extension", "extension", name, "folder", in.FolderName, "demo_id", demo.ID)
	writeJSON(w, http.StatusOK, models.CreateFromExtensionResponse{
		Status:     "success",
		DemoID:     demo.ID,
		FolderName: in.FolderName,
		Message:    "Project created from extension successfully",
	})
}

func (h *ExtensionHandler) ProjectExtension(w http.ResponseWriter, r *http.Request) {
	demo, ok := loadDemo(w, r, h.Demos, h.Log, "Project not found")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, models.ProjectExtension{ExtensionName: h.Catalog.ProjectExtension(demo.FolderName)})
}
