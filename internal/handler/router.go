package handler

import (
	"context"
	"net/http"

	"central-illustration/internal/content"
	"central-illustration/internal/extension"
	"central-illustration/internal/logger"
	"central-illustration/internal/middleware"
	"central-illustration/internal/preview"
	"central-illustration/internal/service"
	"central-illustration/internal/storage"

	"github.com/gorilla/mux"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps is everything the router wires into handlers.
type Deps struct {
	Log            *logger.Logger
	DB             Pinger
	Auth           *service.AuthService
	Demos          *service.DemoService
	Comments       *service.CommentService
	Processes      Processes
	Catalog        *extension.Catalog
	Content        *content.Store
	Storage        storage.Storage
	Exporter       Exporter
	Hub            *preview.Hub
	Watcher        ProjectWatcher
	CommentLimiter *middleware.KeyedLimiter
	UpstreamHost   string
}

func NewRouter(d Deps) *mux.Router {
	log := d.Log
	if log == nil {
		log = logger.Nop()
	}
	limiter := d.CommentLimiter
	if limiter == nil {
		limiter = middleware.PerMinute(10)
	}

	authMW := middleware.NewAuth(d.Auth, log)
	user := func(h http.HandlerFunc) http.Handler { return authMW.RequireUser(h) }
	admin := func(h http.HandlerFunc) http.Handler { return authMW.RequireAdmin(h) }

	authH := &AuthHandler{Auth: d.Auth, Log: log}
	demoH := &DemoHandler{Demos: d.Demos, Log: log}
	commentH := &CommentHandler{Comments: d.Comments, Log: log}
	managerH := &ManagerHandler{Demos: d.Demos, Processes: d.Processes, Watcher: d.Watcher, Log: log}
	extH := &ExtensionHandler{Catalog: d.Catalog, Demos: d.Demos, Watcher: d.Watcher, Log: log}
	contentH := &ContentHandler{Demos: d.Demos, Content: d.Content, Storage: d.Storage, Processes: d.Processes, Log: log}
	exportH := &ExportHandler{Demos: d.Demos, Exporter: d.Exporter, Log: log}
	proxyH := &ProxyHandler{Demos: d.Demos, Processes: d.Processes, UpstreamHost: d.UpstreamHost, Log: log}
	previewH := &PreviewHandler{Demos: d.Demos, Hub: d.Hub, Log: log}

	r := mux.NewRouter()
	r.Use(middleware.RequestLogger(log))

	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"message": "Central Illustration API",
			"version": "1.0.0",
		})
	}).Methods("GET")

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if d.DB != nil {
			if err := d.DB.PingContext(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}).Methods("GET")

	// ── Auth ──────────────────────────────────────────────────────────────────
	r.HandleFunc("/auth/login", authH.Login).Methods("POST")
	r.Handle("/auth/me", user(authH.Me)).Methods("GET")

	// ── Demos ─────────────────────────────────────────────────────────────────
	for _, p := range []string{"/demos", "/demos/"} {
		r.HandleFunc(p, demoH.List).Methods("GET")
		r.Handle(p, admin(demoH.Create)).Methods("POST")
	}
	r.HandleFunc("/demos/{id}", demoH.Get).Methods("GET")
	r.Handle("/demos/{id}", admin(demoH.Update)).Methods("PUT")
	r.Handle("/demos/{id}", admin(demoH.Delete)).Methods("DELETE")

	// ── Comments ──────────────────────────────────────────────────────────────
	r.HandleFunc("/comments/{id}", commentH.List).Methods("GET")
	createComment := authMW.RequireUser(middleware.RateLimit(limiter)(http.HandlerFunc(commentH.Create)))
	r.Handle("/comments", createComment).Methods("POST")
	r.Handle("/comments/", createComment).Methods("POST")

	// ── Demo manager ──────────────────────────────────────────────────────────
	dm := r.PathPrefix("/demo-manager").Subrouter()
	dm.Handle("/start/{id}", admin(managerH.Start)).Methods("POST")
	dm.Handle("/stop/{id}", admin(managerH.Stop)).Methods("POST")
	dm.HandleFunc("/status/{id}", managerH.Status).Methods("GET")
	dm.HandleFunc("/redirect/{id}", managerH.Redirect).Methods("GET")
	dm.HandleFunc("/all", managerH.All).Methods("GET")

	// ── Extensions ────────────────────────────────────────────────────────────
	ext := r.PathPrefix("/extensions").Subrouter()
	ext.HandleFunc("/list", extH.List).Methods("GET")
	ext.Handle("/create-from-extension", admin(extH.CreateFromExtension)).Methods("POST")
	ext.HandleFunc("/project-extension/{id}", extH.ProjectExtension).Methods("GET")
	ext.HandleFunc("/{name}/info", extH.Info).Methods("GET")
	ext.HandleFunc("/{name}/content/{path:.+}", extH.ContentFile).Methods("GET")

	// ── Content editor ────────────────────────────────────────────────────────
	ce := r.PathPrefix("/content-editor/{id}").Subrouter()
	ce.HandleFunc("/pages", contentH.Pages).Methods("GET")
	ce.HandleFunc("/page/{page}/layout", contentH.GetLayout).Methods("GET")
	ce.Handle("/page/{page}/layout", admin(contentH.SaveLayout)).Methods("PUT")
	ce.HandleFunc("/page/{page}/{type}", contentH.GetContent).Methods("GET")
	ce.Handle("/page/{page}/{type}", admin(contentH.UpdateContent)).Methods("PUT")
	ce.Handle("/page/{page}", admin(contentH.DeletePage)).Methods("DELETE")
	ce.Handle("/add-page", admin(contentH.AddPage)).Methods("POST")
	ce.Handle("/publish", admin(contentH.Publish)).Methods("POST")
	ce.Handle("/upload", admin(contentH.Upload)).Methods("POST")

	// ── Export ────────────────────────────────────────────────────────────────
	r.HandleFunc("/export/{id}", exportH.Export).Methods("POST")

	// ── Preview relay ─────────────────────────────────────────────────────────
	r.HandleFunc("/preview/{id}/ws", previewH.Serve).Methods("GET")

	// Proxy is a catch-all under its prefix; keep it last.
	r.HandleFunc("/proxy/{id}", proxyH.Serve)
	r.HandleFunc("/proxy/{id}/{path:.*}", proxyH.Serve)

	return r
}
