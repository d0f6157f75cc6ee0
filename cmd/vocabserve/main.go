// Package main is the entry point for the vocabulary server. It loads
// configuration, connects the optional services, collects the vocabulary
// catalog, and starts the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"database/sql"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/text/language"

	"vocabserve/internal/cache"
	"vocabserve/internal/catalog"
	"vocabserve/internal/config"
	"vocabserve/internal/database"
	"vocabserve/internal/handlers"
	"vocabserve/internal/markdown"
	"vocabserve/internal/middleware"
	"vocabserve/internal/render"
	"vocabserve/internal/router"
	"vocabserve/internal/source"
	"vocabserve/internal/sparql"
	"vocabserve/internal/storage"
	"vocabserve/internal/store"
)

// collectTimeout bounds one collection of all sources.
const collectTimeout = 10 * time.Minute

func main() {
	// Load configuration from environment variables and the sources file.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"sources_file", cfg.SourcesFile,
	)

	for _, dir := range []string{cfg.FilesDir, cfg.CacheDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			slog.Error("failed to create directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	// Mirror vocabulary files from S3-compatible storage (optional).
	if cfg.HasS3() {
		syncFiles(cfg)
	} else {
		slog.Info("s3 storage not configured, serving local vocabulary files only")
	}

	// Connect to PostgreSQL for the catalog archive (optional).
	var archive *store.ArchiveStore
	if cfg.HasDatabase() {
		db := connectDatabase(cfg)
		defer db.Close()
		archive = store.NewArchiveStore(db)
	} else {
		slog.Warn("database not configured, collected catalog will not be archived")
	}

	// Connect to Valkey for the response cache (optional).
	var responses *cache.ResponseCache
	if cfg.HasValkey() {
		valkeyClient, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
		if err != nil {
			slog.Error("failed to connect to valkey", "error", err)
			os.Exit(1)
		}
		defer valkeyClient.Close()
		responses = cache.NewResponseCache(valkeyClient, cfg.ResponseTTL)
	}

	// Build one adapter per configured source, sharing the SPARQL client.
	client := sparql.NewClient(sparql.Options{
		Timeout:    cfg.SPARQLTimeout,
		MaxRetries: cfg.MaxRetries,
		RetrySleep: cfg.RetrySleep,
	})
	opts := source.Options{
		Client:   client,
		HTTP:     &http.Client{Timeout: cfg.SPARQLTimeout},
		Language: cfg.DefaultLanguage,
		CacheDir: cfg.CacheDir,
		CacheTTL: cfg.CacheTTL,
	}
	var adapters []source.Adapter
	for _, s := range cfg.Sources.Settings(cfg.FilesDir) {
		a, err := source.New(s, opts)
		if err != nil {
			slog.Error("failed to create source", "source", s.Name, "error", err)
			os.Exit(1)
		}
		adapters = append(adapters, a)
	}

	catOpts := catalog.Options{Language: cfg.DefaultLanguage, LocalURLs: cfg.LocalURLs}
	if archive != nil {
		catOpts.Archive = archive
	}
	cat := catalog.New(catOpts)
	collect(cat, adapters, responses)

	renderer, err := render.New(cfg.IsDev())
	if err != nil {
		slog.Error("failed to initialize template renderer", "error", err)
		os.Exit(1)
	}

	handlerOpts := handlers.Options{
		DefaultLanguage: cfg.DefaultLanguage,
		Languages:       languageTags(cfg.SupportedLanguages),
		About:           aboutHTML(cfg.AboutFile),
	}
	if archive != nil {
		handlerOpts.Runs = archive
	}
	vocab := handlers.NewVocab(renderer, cat, responses, handlerOpts)

	var limiter *middleware.RateLimiter
	if cfg.RateLimit > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimit, time.Minute)
		defer limiter.Stop()
	}

	r := router.New(vocab, limiter)

	// WriteTimeout must cover a full round of SPARQL retries.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: time.Duration(cfg.MaxRetries+1)*(cfg.SPARQLTimeout+cfg.RetrySleep) + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// SIGHUP re-collects the catalog; SIGINT and SIGTERM drain connections
	// and stop.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	for sig := range sigs {
		if sig == syscall.SIGHUP {
			slog.Info("re-collect requested")
			if cfg.HasS3() {
				syncFiles(cfg)
			}
			collect(cat, adapters, responses)
			continue
		}
		slog.Info("shutdown signal received", "signal", sig)
		break
	}

	// Give active requests up to 30 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

// connectDatabase opens the archive database and applies migrations.
func connectDatabase(cfg *config.Config) *sql.DB {
	db, err := database.Connect(context.Background(), cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	if _, err := database.Migrate(db); err != nil {
		db.Close()
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	return db
}

// syncFiles mirrors the bucket into the files directory. A failed sync
// leaves the local files in place.
func syncFiles(cfg *config.Config) {
	client, err := storage.New(cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3Prefix)
	if err != nil {
		slog.Error("failed to initialize S3 storage", "error", err)
		return
	}
	if client == nil {
		slog.Warn("s3 storage incomplete, set S3_SECRET_KEY to sync vocabulary files")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), collectTimeout)
	defer cancel()
	if _, err := client.Sync(ctx, cfg.FilesDir); err != nil {
		slog.Error("vocabulary file sync failed", "bucket", client.Bucket(), "error", err)
	}
}

// collect fills the catalog and drops cached representations. Failing
// sources are logged by the catalog and do not stop the server.
func collect(cat *catalog.Catalog, adapters []source.Adapter, responses *cache.ResponseCache) {
	ctx, cancel := context.WithTimeout(context.Background(), collectTimeout)
	defer cancel()
	if err := cat.Collect(ctx, adapters); err != nil {
		slog.Warn("some sources failed to collect", "error", err)
	}
	responses.InvalidateAll(ctx)
}

func languageTags(langs []string) []language.Tag {
	var tags []language.Tag
	for _, l := range langs {
		tags = append(tags, language.Make(l))
	}
	return tags
}

// aboutHTML renders the about page from Markdown. Without a file the page
// shows a short default.
func aboutHTML(path string) template.HTML {
	const fallback = "<p>This service publishes controlled vocabularies as SKOS concept schemes.</p>"
	if path == "" {
		return fallback
	}
	src, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("cannot read about file", "path", path, "error", err)
		return fallback
	}
	html, err := markdown.ToHTML(string(src))
	if err != nil {
		slog.Warn("cannot render about file", "path", path, "error", err)
		return fallback
	}
	return template.HTML(html)
}
