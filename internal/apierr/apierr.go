package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error is the backend's error payload, {"detail": "..."}, on both sides of the wire.
type Error struct {
	Status int    `json:"-"`
	Detail string `json:"detail"`
	Err    error  `json:"-"`
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Detail != "" {
		return fmt.Sprintf("api error (%d): %s", e.Status, e.Detail)
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("api error (%d)", e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, detail string) *Error {
	return &Error{Status: status, Detail: detail}
}

func Wrap(status int, detail string, err error) *Error {
	return &Error{Status: status, Detail: detail, Err: err}
}

// DetailOf returns the backend detail message carried by err, if any.
func DetailOf(err error) (string, bool) {
	var e *Error
	if errors.As(err, &e) && e.Detail != "" {
		return e.Detail, true
	}
	return "", false
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

// Message picks the backend detail when there is one, otherwise fallback.
func Message(err error, fallback string) string {
	if d, ok := DetailOf(err); ok {
		return d
	}
	return fallback
}

func Write(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Error{Detail: detail})
}
