package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xelth-com/eckscan/internal/config"
	"github.com/xelth-com/eckscan/internal/database"
	"github.com/xelth-com/eckscan/internal/document"
	"github.com/xelth-com/eckscan/internal/handlers"
	"github.com/xelth-com/eckscan/internal/lookup"
	"github.com/xelth-com/eckscan/internal/models"
	"github.com/xelth-com/eckscan/internal/reconcile"
	"github.com/xelth-com/eckscan/internal/scanmode"
	"github.com/xelth-com/eckscan/internal/services/odoo"
	"github.com/xelth-com/eckscan/internal/websocket"
)

func main() {
	log := config.GetLogger()

	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	config.SetLogLevel(cfg.LogLevel)

	// 2. Initialize database (embedded PostgreSQL, external PostgreSQL or SQLite)
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}

	// 3. Auto-Migrate Schema
	if err := db.AutoMigrate(models.All()...); err != nil {
		log.WithError(err).Warn("migration warning")
	} else {
		log.Info("schema synchronized")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 4. Scan services
	catalog := lookup.NewCatalog(db.DB,
		lookup.WithCatalogLogger(log),
		lookup.WithItemCreation(cfg.Scanner.AllowItemCreation),
		lookup.WithFallbackConditions(cfg.Scanner.Conditions),
	)

	hub := websocket.NewHub(log)
	go hub.Run(ctx)

	engine := reconcile.NewEngine(catalog, handlers.EngineSettings(cfg.Scanner),
		reconcile.WithNotifier(hub),
		reconcile.WithConditions(catalog),
		reconcile.WithLogger(log),
	)

	sessions := scanmode.NewStore(cfg.SessionIdle)
	go sweepSessions(ctx, sessions, time.Minute)

	router := handlers.NewRouter(handlers.Options{
		Config:   cfg,
		Catalog:  catalog,
		Engine:   engine,
		Docs:     document.NewRepository(db.DB, log),
		Sessions: sessions,
		Hub:      hub,
		Log:      log,
	})

	// 5. Start Odoo Sync Service (Background)
	var odooService *odoo.SyncService
	if cfg.Odoo.URL != "" {
		client := odoo.NewClient(cfg.Odoo.URL, cfg.Odoo.Database, cfg.Odoo.Username, cfg.Odoo.Password)
		odooService = odoo.NewSyncService(db.DB, client, time.Duration(cfg.Odoo.SyncInterval)*time.Minute, log)
		odooService.Start()
		router.SetOdooService(odooService)
	} else {
		log.Info("ODOO_URL not set, catalog sync disabled")
	}

	// 6. Start server with graceful shutdown
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.WithField("port", cfg.Port).Info("scan server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("failed to start server")
		}
	}()

	sig := <-shutdown
	log.WithField("signal", sig.String()).Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP server shutdown error")
	}

	if odooService != nil {
		odooService.Stop()
	}
	cancel()

	// Close database (this also stops embedded PostgreSQL)
	if err := db.Close(); err != nil {
		log.WithError(err).Error("database close error")
	}

	log.Info("shutdown complete")
}

// sweepSessions forgets idle scanner sessions until ctx is done.
func sweepSessions(ctx context.Context, store *scanmode.Store, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := store.Sweep(now); n > 0 {
				config.GetLogger().WithField("sessions", n).Debug("idle scan sessions dropped")
			}
		}
	}
}
