package handler

import (
	"net/http"

	"central-illustration/internal/logger"
	"central-illustration/internal/models"
	"central-illustration/internal/service"
)

// Processes is the demo process manager as seen by the HTTP layer.
type Processes interface {
	Start(folder string) models.ControlResult
	Stop(folder string) models.ControlResult
	Status(folder string) models.DemoStatus
	List() map[string]models.DemoStatus
}

type ManagerHandler struct {
	Demos     *service.DemoService
	Processes Processes
	Watcher   ProjectWatcher
	Log       *logger.Logger
}

func (h *ManagerHandler) Start(w http.ResponseWriter, r *http.Request) {
	demo, ok := loadDemo(w, r, h.Demos, h.Log, "Demonstration not found")
	if !ok {
		return
	}
	res := h.Processes.Start(demo.FolderName)
	if res.Status == "started" && h.Watcher != nil {
		if err := h.Watcher.AddProject(demo.FolderName); err != nil {
			h.Log.Warn("watch project", "folder", demo.FolderName, "error", err)
		}
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *ManagerHandler) Stop(w http.ResponseWriter, r *http.Request) {
	demo, ok := loadDemo(w, r, h.Demos, h.Log, "Demonstration not found")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.Processes.Stop(demo.FolderName))
}

// Status adds the browser-facing url when the demo is running.
func (h *ManagerHandler) Status(w http.ResponseWriter, r *http.Request) {
	demo, ok := loadDemo(w, r, h.Demos, h.Log, "Demonstration not found")
	if !ok {
		return
	}
	st := h.Processes.Status(demo.FolderName)
	if st.Status == models.StateRunning && st.Port != nil {
		u := demoURL(r, *st.Port)
		st.URL = &u
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *ManagerHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	demo, ok := loadDemo(w, r, h.Demos, h.Log, "Demonstration not found")
	if !ok {
		return
	}
	st := h.Processes.Status(demo.FolderName)
	if st.Status != models.StateRunning || st.Port == nil {
		writeJSON(w, http.StatusOK, models.Redirect{Status: models.StateNotRunning})
		return
	}
	u := demoURL(r, *st.Port)
	writeJSON(w, http.StatusOK, models.Redirect{URL: &u, Status: models.StateRunning, Port: st.Port})
}

func (h *ManagerHandler) All(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Processes.List())
}
