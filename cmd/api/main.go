// cmd/api/main.go
//
// Admission backend – HTTP entry point.
//
// Boot sequence
// -------------
//
//  1. Load env vars (jail-wide file → conf/.env fallback).
//
//  2. Load and validate the layered configuration.
//
//  3. Start daily rotating logger (tees to console when running in a TTY).
//
//  4. Open the directory (public-schema) pool and ensure its table.
//
//  5. Build the tenancy registry (lazy per-schema pools) and wire its
//     main slot to the directory's current cycle.
//
//  6. Assemble the chi router and serve until SIGINT/SIGTERM; shutdown
//     closes the server first, then every pool the registry owns.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"

	"github.com/sigedu/admision/internal/academic"
	"github.com/sigedu/admision/internal/admission"
	"github.com/sigedu/admision/internal/config"
	"github.com/sigedu/admision/internal/database"
	"github.com/sigedu/admision/internal/directory"
	"github.com/sigedu/admision/internal/httpapi"
	"github.com/sigedu/admision/internal/logger"
	"github.com/sigedu/admision/internal/server"
	"github.com/sigedu/admision/internal/tenancy"
)

const serverEnvPath = "/usr/local/etc/admision/global.env"

// loadEnv prefers the jail-wide env file; on dev it falls back to .env.
func loadEnv() {
	if _, err := os.Stat(serverEnvPath); err == nil {
		_ = godotenv.Load(serverEnvPath)
		return
	}
	_ = godotenv.Load()
}

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func init() { loadEnv() }

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logOut, err := logger.New(cfg.Paths.Root, runningInTTY())
	if err != nil {
		log.Fatalf("start logger: %v", err)
	}

	ctx := context.Background()

	//
	// ── 1.  Directory pool (public schema) ──────────────────────────────
	//
	logOut.Infow("connecting to directory DB")
	dirDB, err := database.OpenWithOptions(cfg.Database.URL, database.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: 30 * time.Minute,
	})
	if err != nil {
		logOut.Fatalf("open directory DB: %v", err)
	}
	if err := dirDB.PingContext(ctx); err != nil {
		logOut.Fatalf("ping directory DB: %v", err)
	}
	defer dirDB.Close()
	logOut.Infow("directory DB online")

	dir := directory.New(dirDB)
	if err := dir.EnsureSchema(ctx); err != nil {
		logOut.Fatalf("ensure directory table: %v", err)
	}

	//
	// ── 2.  Tenancy registry (lazy per-schema pools) ────────────────────
	//
	openSchema := func(schema string) (*sqlx.DB, error) {
		dsn, err := database.ForSchema(cfg.Database.URL, schema)
		if err != nil {
			return nil, err
		}
		return database.OpenWithOptions(dsn, database.Options{
			MaxOpenConns:    cfg.Database.TenantMaxOpenConns,
			MaxIdleConns:    cfg.Database.TenantMaxIdleConns,
			ConnMaxLifetime: 30 * time.Minute,
		})
	}
	registry := tenancy.New(openSchema,
		time.Duration(cfg.Database.TenantIdleTTLMinutes)*time.Minute,
		tenancy.MaxEntries)
	defer registry.Close()

	//
	// ── 3.  Services and router ─────────────────────────────────────────
	//
	admissions := admission.NewService(dir, registry, admission.Defaults{
		SeedSchedules: cfg.Admission.SeedSchedules,
	})
	admissions.InitMain(ctx)

	handlers := httpapi.NewHandlers(admissions, academic.New(registry))
	srv := server.New(cfg.HTTP.ListenAddr, httpapi.NewRouter(handlers))

	//
	// ── 4.  Serve until signalled ───────────────────────────────────────
	//
	errCh := make(chan error, 1)
	go func() {
		logOut.Infow("listening", "addr", cfg.HTTP.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logOut.Fatalf("http server: %v", err)
		}
	case sig := <-stop:
		logOut.Infow("shutting down", "signal", sig.String())
		shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logOut.Errorw("server shutdown", "err", err)
		}
	}
}
