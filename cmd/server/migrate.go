package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/soaringjerry/epds/internal/config"
	"github.com/soaringjerry/epds/internal/db"
	"github.com/soaringjerry/epds/internal/platform/logger"
)

// Migrate prepares the sqlite session database ahead of a deploy. Only file
// databases are worth migrating; in-memory ones are created on startup.
func Migrate(cfg config.Config, log *logger.Logger) error {
	dsn := cfg.SQLitePath
	if dsn == "" {
		return errors.New("sqlite path is required")
	}
	if strings.Contains(dsn, "mode=memory") {
		log.Info("sqlite session store is in-memory, nothing to migrate")
		return nil
	}
	if file := sqliteFile(dsn); file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
			return fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	store, err := db.OpenSQLite(dsn, cfg.MigrationsDir, cfg.SessionTTL)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			log.Warn("failed to close sqlite db", "error", cerr)
		}
	}()
	log.Info("sqlite session store migrated", "dsn", dsn)
	return nil
}

// sqliteFile extracts the filesystem path from a sqlite DSN.
func sqliteFile(dsn string) string {
	p := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	if p == "" || p == ":memory:" {
		return ""
	}
	return filepath.FromSlash(p)
}
