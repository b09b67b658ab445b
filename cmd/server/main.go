package main

import (
	"database/sql"
	"log"
	"net/http"
	"os"
	"path/filepath"

	_ "github.com/lib/pq"

	"github.com/example/fleet-dispatch/internal/config"
	httpapi "github.com/example/fleet-dispatch/internal/http"
	"github.com/example/fleet-dispatch/internal/logging"
)

func main() {
	cfg, err := config.LoadServerConfig()
	logger := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		logger.Error("config load", "error", err)
		os.Exit(1)
	}

	if cfg.PGDSN != "" && cfg.RunMigrations {
		if db, err := sql.Open("postgres", cfg.PGDSN); err == nil {
			if b, err := os.ReadFile(filepath.Join("migrations", "001_create_schema.sql")); err == nil {
				if _, err := db.Exec(string(b)); err != nil {
					logger.Error("migration exec", "error", err)
				} else {
					logger.Info("migration applied", "file", "001_create_schema.sql")
				}
			}
			_ = db.Close()
		} else {
			logger.Error("migration db open", "error", err)
		}
	}

	srv := httpapi.NewServer(cfg, logger)
	// Read/write timeouts stay off: the websocket endpoint shares this
	// listener and long-lived connections must not be cut.
	hs := &http.Server{
		Addr:        cfg.HTTPAddr,
		Handler:     srv,
		IdleTimeout: cfg.IdleTimeout,
	}
	logger.Info("fleet-dispatch listening", "addr", cfg.HTTPAddr)
	if err := hs.ListenAndServe(); err != nil {
		log.Fatal(err)
	}
}
