package handler

import (
	"net/http"
	"strconv"

	"central-illustration/internal/logger"
	"central-illustration/internal/preview"
	"central-illustration/internal/service"
)

type PreviewHandler struct {
	Demos *service.DemoService
	Hub   *preview.Hub
	Log   *logger.Logger
}

// Serve joins the caller to the demo's relay room.
func (h *PreviewHandler) Serve(w http.ResponseWriter, r *http.Request) {
	demo, ok := loadDemo(w, r, h.Demos, h.Log, "Demonstration not found")
	if !ok {
		return
	}
	h.Hub.Serve(w, r, strconv.FormatInt(demo.ID, 10))
}
