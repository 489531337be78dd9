// Command colorizer runs the image colorization backend: authenticated
// uploads, delegation to the external colorization engine and the
// owner-scoped artifact history.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/minorlabs/colorizer/pkg/auth"
	"github.com/minorlabs/colorizer/pkg/blob"
	"github.com/minorlabs/colorizer/pkg/colorize"
	"github.com/minorlabs/colorizer/pkg/config"
	"github.com/minorlabs/colorizer/pkg/history"
	"github.com/minorlabs/colorizer/pkg/identity"
	"github.com/minorlabs/colorizer/pkg/server"
	"github.com/minorlabs/colorizer/pkg/upload"

	_ "modernc.org/sqlite"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return err
	}

	setupLogging(cfg.LogLevel)

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil { //nolint:gosec // shared data dir
		return err
	}
	db, err := sql.Open("sqlite", cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck // process exit

	ctx := context.Background()

	// The store factory reads the environment, so file-config overrides are
	// promoted there first.
	if cfg.BlobStorageType != "" {
		os.Setenv("BLOB_STORAGE_TYPE", cfg.BlobStorageType) //nolint:errcheck // setenv cannot fail here
	}
	if cfg.DataDir != "" {
		os.Setenv("DATA_DIR", cfg.DataDir) //nolint:errcheck // setenv cannot fail here
	}
	store, err := blob.NewStoreFromEnv(ctx)
	if err != nil {
		return err
	}

	keySet, err := newKeySet(cfg)
	if err != nil {
		return err
	}
	tokens := identity.NewTokenManager(keySet)

	users, err := identity.NewUsers(db)
	if err != nil {
		return err
	}
	repo, err := history.NewRepository(db)
	if err != nil {
		return err
	}

	engine := colorize.NewHTTPEngine(cfg.EngineURL, &http.Client{})
	service := history.NewService(
		upload.NewValidator(store),
		colorize.NewClient(engine, store),
		repo,
		store,
		slog.Default(),
	)

	srv := server.New(tokens, users, service, newRevoker(cfg), slog.Default())

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(cfg.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "port", cfg.Port, "engine_url", cfg.EngineURL)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		slog.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func newKeySet(cfg *config.Config) (identity.KeySet, error) {
	if cfg.TokenSecret != "" {
		return identity.NewHMACKeySet(cfg.TokenSecret)
	}
	// Sessions will not survive a restart without a configured secret.
	slog.Warn("TOKEN_SECRET not set, using an ephemeral signing key")
	return identity.NewEphemeralKeySet()
}

func newRevoker(cfg *config.Config) auth.Revoker {
	if cfg.RedisURL == "" {
		return auth.NewMemoryRevoker()
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Warn("invalid REDIS_URL, falling back to in-memory revocation", "error", err)
		return auth.NewMemoryRevoker()
	}
	slog.Info("token revocation backed by redis")
	return auth.NewRedisRevoker(redis.NewClient(opts))
}

func setupLogging(level string) {
	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "WARN":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})))
}
