package handler

import (
	"errors"
	"net/http"

	"central-illustration/internal/logger"
	"central-illustration/internal/middleware"
	"central-illustration/internal/models"
	"central-illustration/internal/service"
	"central-illustration/internal/validation"
)

type CommentHandler struct {
	Comments *service.CommentService
	Log      *logger.Logger
}

func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := intVar(w, r, "id")
	if !ok {
		return
	}
	comments, err := h.Comments.List(r.Context(), id)
	if errors.Is(err, service.ErrDemoNotFound) {
		writeError(w, http.StatusNotFound, "Demonstration not found")
		return
	}
	if err != nil {
		h.Log.Error("list comments", "demo_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list comments")
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.CommentCreate
	if !decodeJSON(r, &in) {
		writeError(w, http.StatusUnprocessableEntity, "Invalid JSON body")
		return
	}
	if err := validation.ValidateComment(in.Content); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	author, _ := middleware.UserFrom(r.Context())
	c, err := h.Comments.Create(r.Context(), in, author)
	if errors.Is(err, service.ErrDemoNotFound) {
		writeError(w, http.StatusNotFound, "Demonstration not found")
		return
	}
	if err != nil {
		h.Log.Error("create comment", "demo_id", in.DemoID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create comment")
		return
	}
	writeJSON(w, http.StatusCreated, c)
}
