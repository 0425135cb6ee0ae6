package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"central-illustration/internal/content"
	"central-illustration/internal/logger"
	"central-illustration/internal/models"
	"central-illustration/internal/service"
	"central-illustration/internal/storage"
	"central-illustration/internal/validation"

	"github.com/gorilla/mux"
)

// ContentHandler serves the content editor: pages, markdown slots, layouts,
// asset uploads and publishing.
type ContentHandler struct {
	Demos     *service.DemoService
	Content   *content.Store
	Storage   storage.Storage
	Processes Processes
	Log       *logger.Logger
}

func (h *ContentHandler) demo(w http.ResponseWriter, r *http.Request) (*models.Demonstration, bool) {
	return loadDemo(w, r, h.Demos, h.Log, "Project not found")
}

func pageVar(w http.ResponseWriter, r *http.Request) (int, bool) {
	n, err := strconv.Atoi(mux.Vars(r)["page"])
	if err != nil || validation.ValidatePageIndex(n) != nil {
		writeError(w, http.StatusUnprocessableEntity, validation.ErrInvalidPageIndex.Error())
		return 0, false
	}
	return n, true
}

// storeError maps content store failures onto responses.
func (h *ContentHandler) storeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, content.ErrProjectNotFound):
		writeError(w, http.StatusNotFound, "Project directory not found")
	case errors.Is(err, content.ErrPageNotFound):
		writeError(w, http.StatusNotFound, "Page not found")
	case errors.Is(err, content.ErrInvalidPage):
		writeError(w, http.StatusUnprocessableEntity, validation.ErrInvalidPageIndex.Error())
	default:
		h.Log.Error(op, "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to %s: %v", op, err))
	}
}

func (h *ContentHandler) Pages(w http.ResponseWriter, r *http.Request) {
	demo, ok := h.demo(w, r)
	if !ok {
		return
	}
	pages, err := h.Content.Pages(demo.FolderName)
	if err != nil {
		h.storeError(w, "list pages", err)
		return
	}
	writeJSON(w, http.StatusOK, models.PageList{Pages: pages})
}

func (h *ContentHandler) GetContent(w http.ResponseWriter, r *http.Request) {
	ct, err := models.ParseContentType(mux.Vars(r)["type"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid content type")
		return
	}
	demo, ok := h.demo(w, r)
	if !ok {
		return
	}
	page, ok := pageVar(w, r)
	if !ok {
		return
	}
	text, err := h.Content.Content(demo.FolderName, page, ct)
	if err != nil {
		h.storeError(w, "read content", err)
		return
	}
	writeJSON(w, http.StatusOK, models.PageContent{Content: text})
}

func (h *ContentHandler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	ct, err := models.ParseContentType(mux.Vars(r)["type"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid content type")
		return
	}
	demo, ok := h.demo(w, r)
	if !ok {
		return
	}
	page, ok := pageVar(w, r)
	if !ok {
		return
	}
	var in models.PageContentUpdate
	if !decodeJSON(r, &in) {
		writeError(w, http.StatusUnprocessableEntity, "Invalid JSON body")
		return
	}
	if err := h.Content.SetContent(demo.FolderName, page, ct, in.Content); err != nil {
		h.storeError(w, "update content", err)
		return
	}
	writeJSON(w, http.StatusOK, models.StatusResponse{Status: "success", Message: "Content updated successfully"})
}

func (h *ContentHandler) GetLayout(w http.ResponseWriter, r *http.Request) {
	demo, ok := h.demo(w, r)
	if !ok {
		return
	}
	page, ok := pageVar(w, r)
	if !ok {
		return
	}
	layout, err := h.Content.Layout(demo.FolderName, page)
	if err != nil {
		h.storeError(w, "read layout", err)
		return
	}
	writeJSON(w, http.StatusOK, layout)
}

func (h *ContentHandler) SaveLayout(w http.ResponseWriter, r *http.Request) {
	demo, ok := h.demo(w, r)
	if !ok {
		return
	}
	page, ok := pageVar(w, r)
	if !ok {
		return
	}
	var layout models.Layout
	if !decodeJSON(r, &layout) {
		writeError(w, http.StatusUnprocessableEntity, "Invalid JSON body")
		return
	}
	if err := h.Content.SetLayout(demo.FolderName, page, layout); err != nil {
		h.storeError(w, "save layout", err)
		return
	}
	writeJSON(w, http.StatusOK, models.StatusResponse{Status: "success"})
}

func (h *ContentHandler) AddPage(w http.ResponseWriter, r *http.Request) {
	demo, ok := h.demo(w, r)
	if !ok {
		return
	}
	var in models.AddPageRequest
	if !decodeJSON(r, &in) {
		writeError(w, http.StatusUnprocessableEntity, "Invalid JSON body")
		return
	}
	if in.BasePageIndex != models.PageStyle1 && in.BasePageIndex != models.PageStyle2 {
		writeError(w, http.StatusBadRequest, "base_page_index must be 0 or 1")
		return
	}
	idx, err := h.Content.AddPage(demo.FolderName, in.BasePageIndex)
	if err != nil {
		h.storeError(w, "add page", err)
		return
	}
	writeJSON(w, http.StatusOK, models.AddPageResponse{
		Status:    "success",
		PageIndex: idx,
		Message:   fmt.Sprintf("Page %d added", idx),
	})
}

// DeletePage removes exactly one page; the remaining pages keep their indexes.
func (h *ContentHandler) DeletePage(w http.ResponseWriter, r *http.Request) {
	demo, ok := h.demo(w, r)
	if !ok {
		return
	}
	page, ok := pageVar(w, r)
	if !ok {
		return
	}
	if err := h.Content.DeletePage(demo.FolderName, page); err != nil {
		h.storeError(w, "delete page", err)
		return
	}
	writeJSON(w, http.StatusOK, models.StatusResponse{Status: "success", Message: fmt.Sprintf("Page %d deleted", page)})
}

func (h *ContentHandler) Publish(w http.ResponseWriter, r *http.Request) {
	demo, ok := h.demo(w, r)
	if !ok {
		return
	}
	var in models.PublishRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusUnprocessableEntity, "Invalid JSON body")
		return
	}
	if in.PageIndex != nil && validation.ValidatePageIndex(*in.PageIndex) != nil {
		writeError(w, http.StatusUnprocessableEntity, validation.ErrInvalidPageIndex.Error())
		return
	}

	published, err := h.Content.Publish(demo.FolderName, in.PageIndex)
	if err != nil {
		h.storeError(w, "publish", err)
		return
	}

	msg := "Changes published. Start the project to see changes."
	if h.Processes != nil && h.Processes.Status(demo.FolderName).Status == models.StateRunning {
		msg = "Changes published and will be reflected on reload."
	}
	writeJSON(w, http.StatusOK, models.PublishResponse{Status: "success", Message: msg, Published: published})
}

func (h *ContentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	demo, ok := h.demo(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, validation.MaxAssetSize+1<<20)
	if err := r.ParseMultipartForm(validation.MaxAssetSize); err != nil {
		writeError(w, http.StatusBadRequest, validation.ErrFileTooLarge.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid file")
		return
	}
	defer file.Close()

	if err := validation.ValidateUpload(header); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	path, err := h.Storage.Upload(demo.FolderName, file, header.Filename)
	if err != nil {
		h.Log.Error("upload asset", "folder", demo.FolderName, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to upload: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, models.UploadResult{Status: "success", Path: path})
}
