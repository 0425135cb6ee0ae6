// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"central-illustration/internal/config"
	"central-illustration/internal/content"
	"central-illustration/internal/database"
	"central-illustration/internal/extension"
	"central-illustration/internal/handler"
	"central-illustration/internal/logger"
	"central-illustration/internal/middleware"
	"central-illustration/internal/preview"
	"central-illustration/internal/procman"
	"central-illustration/internal/service"
	"central-illustration/internal/storage"
	"central-illustration/internal/watch"

	"github.com/gorilla/handlers"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Database ──────────────────────────────────────────────────────────────
	db, err := database.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("database open failed", "driver", cfg.DBDriver, "error", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Fatal("migration failed", "error", err)
	}
	log.Info("connected to database", "driver", db.Driver)

	// ── Services ──────────────────────────────────────────────────────────────
	users := &service.UserService{DB: db}
	created, err := users.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword)
	if err != nil {
		log.Fatal("bootstrap admin failed", "error", err)
	}
	if created {
		log.Warn("bootstrap admin created, change its password", "username", cfg.AdminUsername)
	}

	auth := &service.AuthService{Users: users, SecretKey: []byte(cfg.SecretKey), TTL: cfg.AccessTokenTTL}
	demos := &service.DemoService{DB: db}
	comments := &service.CommentService{DB: db, Demos: demos}

	// ── Demo processes & projects ─────────────────────────────────────────────
	var install []string
	if cfg.NPMInstallOnCreate {
		install = []string{"npm", "install"}
	}
	procs := procman.New(procman.Options{
		ProjectsDir:    cfg.ProjectsDir,
		StateFile:      cfg.ProcessStateFile,
		BasePort:       cfg.DemoBasePort,
		Command:        cfg.DemoCommand,
		InstallCommand: install,
		Log:            log,
	})

	catalog := &extension.Catalog{
		Dir:              cfg.ExtensionsDir,
		ProjectsDir:      cfg.ProjectsDir,
		DefaultExtension: cfg.DefaultExtension,
		Installer:        procs,
	}
	store := content.NewStore(cfg.ProjectsDir, catalog)
	hub := preview.NewHub(log)

	// Published page changes are pushed to previews of the owning demo.
	var watcher *watch.Watcher
	var projectWatcher handler.ProjectWatcher
	if cfg.WatchContent {
		watcher, err = watch.New(cfg.ProjectsDir, 300*time.Millisecond, func(folder string, page int) {
			demo, err := demos.GetByFolder(context.Background(), folder)
			if err != nil {
				return
			}
			hub.Broadcast(strconv.FormatInt(demo.ID, 10), preview.ContentUpdatedMessage(page))
		}, log)
		if err != nil {
			log.Warn("content watcher disabled", "error", err)
		} else {
			watcher.Start()
			projectWatcher = watcher
		}
	}

	// ── Router ────────────────────────────────────────────────────────────────
	r := handler.NewRouter(handler.Deps{
		Log:            log,
		DB:             db,
		Auth:           auth,
		Demos:          demos,
		Comments:       comments,
		Processes:      procs,
		Catalog:        catalog,
		Content:        store,
		Storage:        storage.NewLocalStorage(cfg.ProjectsDir),
		Hub:            hub,
		Watcher:        projectWatcher,
		CommentLimiter: middleware.PerMinute(cfg.CommentsPerMinute),
	})

	corsOpts := []handlers.CORSOption{
		handlers.AllowedOrigins(cfg.CORSOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS", "HEAD"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	}
	if !(len(cfg.CORSOrigins) == 1 && cfg.CORSOrigins[0] == "*") {
		corsOpts = append(corsOpts, handlers.AllowCredentials())
	}
	cors := handlers.CORS(corsOpts...)
	recovery := handlers.RecoveryHandler(handlers.PrintRecoveryStack(cfg.AppEnv != "production"))

	// ── HTTP Server with timeouts ──────────────────────────────────────────────
	// WriteTimeout stays generous for uploads and proxied dev-server pages.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      recovery(cors(r)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("api listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// ── Graceful Shutdown ──────────────────────────────────────────────────────
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, draining requests")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)

		hub.Close()
		if watcher != nil {
			watcher.Stop()
		}
		procs.Shutdown()
		return err
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", "error", err)
		return
	}
	log.Info("server stopped cleanly")
}
