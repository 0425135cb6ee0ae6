package handler

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"central-illustration/internal/logger"
	"central-illustration/internal/models"
	"central-illustration/internal/service"

	"github.com/gorilla/mux"
)

// root-relative href/src/action attributes, excluding protocol-relative "//"
var rootAttr = regexp.MustCompile(`((?:href|src|action)=["'])/([^/])`)

type ProxyHandler struct {
	Demos     *service.DemoService
	Processes Processes
	// UpstreamHost is where demo dev servers listen. Defaults to 127.0.0.1.
	UpstreamHost string
	Log          *logger.Logger
}

// Serve forwards /proxy/{id}/... to the running demo with the prefix
// stripped, and rewrites root-relative links in HTML so they stay behind
// the prefix.
func (h *ProxyHandler) Serve(w http.ResponseWriter, r *http.Request) {
	demo, ok := loadDemo(w, r, h.Demos, h.Log, "Demonstration not found")
	if !ok {
		return
	}
	st := h.Processes.Status(demo.FolderName)
	if st.Status != models.StateRunning || st.Port == nil {
		writeError(w, http.StatusServiceUnavailable, "Demo service is not running")
		return
	}

	host := h.UpstreamHost
	if host == "" {
		host = "127.0.0.1"
	}
	target := &url.URL{Scheme: "http", Host: host + ":" + strconv.Itoa(*st.Port)}
	prefix := fmt.Sprintf("/proxy/%d", demo.ID)
	suffix := "/" + strings.TrimPrefix(mux.Vars(r)["path"], "/")

	rp := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.Out.URL.Path = suffix
			pr.Out.URL.RawPath = ""
			pr.Out.Header.Del("Accept-Encoding")
			pr.SetXForwarded()
		},
		ModifyResponse: func(resp *http.Response) error {
			if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
				return nil
			}
			body, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				return err
			}
			body = rootAttr.ReplaceAll(body, []byte("${1}"+prefix+"/${2}"))
			resp.Body = io.NopCloser(bytes.NewReader(body))
			resp.ContentLength = int64(len(body))
			resp.Header.Set("Content-Length", strconv.Itoa(len(body)))
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			h.Log.Warn("proxy upstream", "demo_id", demo.ID, "error", err)
			writeError(w, http.StatusBadGateway, "Cannot connect to demo service")
		},
	}
	rp.ServeHTTP(w, r)
}
