// iptv-catalog ingests an IPTV provider's content (a raw M3U playlist or an
// Xtream-Codes panel), classifies every entry as live, movie or series,
// organizes the result into groups and serves it over a JSON API with a
// token-guarded M3U re-export.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"iptv-catalog/work/cache"
	"iptv-catalog/work/client"
	"iptv-catalog/work/config"
	"iptv-catalog/work/handlers"
	"iptv-catalog/work/ingest"
	"iptv-catalog/work/logger"
	"iptv-catalog/work/middleware"
	"iptv-catalog/work/recent"
	"iptv-catalog/work/store"
	"iptv-catalog/work/utils"
	"iptv-catalog/work/xtream"
)

func main() {
	cfg := config.LoadConfig()

	level := "info"
	if cfg.Debug {
		level = "debug"
	}
	logger.SetLogLevel(level)
	log := logger.New(level)

	log.Info("{main} starting iptv-catalog on %s (provider: %s)", cfg.ListenAddr, cfg.ConnectionType)
	if !cfg.HasProvider() {
		log.Warn("{main} no provider configured; catalogs will be empty until config is completed")
	}

	st, err := store.Open(cfg.DatabasePath, log)
	if err != nil {
		log.Error("{main} could not open key-value store at %s: %v", cfg.DatabasePath, err)
		os.Exit(1)
	}
	defer st.Close()

	httpClient := client.New(cfg)

	source, err := ingest.NewSource(cfg, httpClient, log)
	if err != nil {
		log.Error("{main} %v", err)
		os.Exit(1)
	}

	// the panel client doubles as the account-info backend for xtream
	// providers; playlist providers run without one
	var panel *xtream.Client
	if ps, ok := source.(interface{ Client() *xtream.Client }); ok {
		panel = ps.Client()
	}

	contentCache := cache.New(st, cfg, log)
	engine, err := ingest.New(cfg, source, contentCache, st, log)
	if err != nil {
		log.Error("{main} %v", err)
		os.Exit(1)
	}
	defer engine.Stop()

	recents := recent.NewManager(st, cfg, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// warm the catalogs in the background so the first request doesn't pay
	// for the initial ingestion
	if cfg.HasProvider() {
		go func() {
			if err := engine.Refresh(ctx); err != nil {
				log.Warn("{main} initial ingestion failed: %v", err)
			}
		}()
		engine.StartRefreshLoop(ctx)
	}

	router := mux.NewRouter()
	router.Use(middleware.RequestLog(log))
	router.Use(middleware.Gzip)

	handlers.New(cfg, engine, recents, panel, httpClient, log).Register(router)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	if cfg.Secret != "" {
		log.Info("{main} playlist export available at %s/playlist/%s.m3u", cfg.BaseURL, utils.DeriveToken(cfg.Secret))
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("{main} listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("{main} server failed: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("{main} shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("{main} shutdown incomplete: %v", err)
	}
}
