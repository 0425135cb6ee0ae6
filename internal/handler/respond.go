package handler

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"

	"central-illustration/internal/apierr"

	"github.com/gorilla/mux"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	apierr.Write(w, status, detail)
}

func decodeJSON(r *http.Request, v any) bool {
	return json.NewDecoder(r.Body).Decode(v) == nil
}

// intVar parses a numeric path variable, answering 422 when it is malformed.
func intVar(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	v, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid "+name)
		return 0, false
	}
	return v, true
}

// requestOrigin is scheme://hostname of the request, without the port. Demo
// URLs are built on it so a browser on another machine reaches the right host.
func requestOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p != "" {
		scheme = strings.ToLower(strings.TrimSpace(strings.Split(p, ",")[0]))
	}
	host := r.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if host == "" {
		host = "localhost"
	}
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	return scheme + "://" + host
}

func demoURL(r *http.Request, port int) string {
	return requestOrigin(r) + ":" + strconv.Itoa(port)
}
