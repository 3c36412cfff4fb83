// Package bootstrap wires configuration, storage, services and the HTTP
// router into a runnable application.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"docarchive-backend/internal/archive"
	"docarchive-backend/internal/documents"
	"docarchive-backend/internal/shared/config"
	"docarchive-backend/internal/shared/server"
	"docarchive-backend/internal/shared/storage/db"
	"docarchive-backend/internal/shared/telemetry"
	"docarchive-backend/internal/token"
)

// App holds shared dependencies.
type App struct {
	Config           config.Config
	Router           *gin.Engine
	DB               *sql.DB
	Archive          archive.Store
	Issuer           *token.Issuer
	DocumentsService *documents.Service
	DocumentsHandler *documents.Handler
}

// Build prepares all dependencies and opens the archive. A missing token
// secret is fatal in every environment: uploads must never run unsigned.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	ctx := context.Background()

	issuer, err := token.NewIssuer(cfg.TokenSecret)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	store, sqlDB, err := buildArchive(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := store.Open(ctx); err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	docSvc := &documents.Service{
		Archive: store,
		Issuer:  issuer,
	}
	docHandler := documents.NewHandler(docSvc)

	app := &App{
		Config:           cfg,
		DB:               sqlDB,
		Archive:          store,
		Issuer:           issuer,
		DocumentsService: docSvc,
		DocumentsHandler: docHandler,
	}
	app.Router = server.NewRouter(server.RouterDeps{
		Config:          cfg,
		DocumentHandler: docHandler,
	})
	return app, nil
}

func buildArchive(ctx context.Context, cfg config.Config) (archive.Store, *sql.DB, error) {
	switch cfg.ArchiveDriver {
	case "postgres":
		opts := db.OptionsFromEnv(db.DefaultServerOptions())
		sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
		if err != nil {
			return nil, nil, fmt.Errorf("connect archive database: %w", err)
		}
		return archive.NewPostgresStore(sqlDB), sqlDB, nil
	case "memory":
		return archive.NewMemoryStore(), nil, nil
	default:
		telemetry.Info("bootstrap.archive", map[string]any{
			"driver": "sqlite",
			"path":   cfg.SQLitePath,
		})
		return archive.NewSQLiteStore(cfg.SQLitePath), nil, nil
	}
}
