package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"central-illustration/internal/logger"
	"central-illustration/internal/models"
	"central-illustration/internal/service"
)

// ErrExportUnavailable is returned by an Exporter that cannot serve a format.
var ErrExportUnavailable = errors.New("export pipeline not configured")

type Document struct {
	ContentType string
	Filename    string
	Data        []byte
}

// Exporter renders a demonstration to a slide deck or PDF.
type Exporter interface {
	Export(ctx context.Context, demo *models.Demonstration, format models.ExportFormat) (*Document, error)
}

type ExportHandler struct {
	Demos    *service.DemoService
	Exporter Exporter
	Log      *logger.Logger
}

func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := models.ExportFormat(r.URL.Query().Get("format"))
	if !format.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid format. Use ppt_169, ppt_43, pdf_169 or pdf_43")
		return
	}
	demo, ok := loadDemo(w, r, h.Demos, h.Log, "Demonstration not found")
	if !ok {
		return
	}
	if h.Exporter == nil {
		writeError(w, http.StatusNotImplemented, "Export pipeline not configured")
		return
	}

	doc, err := h.Exporter.Export(r.Context(), demo, format)
	if errors.Is(err, ErrExportUnavailable) {
		writeError(w, http.StatusNotImplemented, "Export pipeline not configured")
		return
	}
	if err != nil {
		h.Log.Error("export", "demo_id", demo.ID, "format", format, "error", err)
		writeError(w, http.StatusInternalServerError, "Export failed: "+err.Error())
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Data)))
	w.WriteHeader(http.StatusOK)
	w.Write(doc.Data)
}
