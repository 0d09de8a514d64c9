// Package server assembles the mirroring application from configuration:
// logger, database, object stores, registry client and the mirror service.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/modelmirror/internal/filex"
	"github.com/dmitrijs2005/modelmirror/internal/logging"
	"github.com/dmitrijs2005/modelmirror/internal/server/config"
	"github.com/dmitrijs2005/modelmirror/internal/server/registry"
	"github.com/dmitrijs2005/modelmirror/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/modelmirror/internal/server/services"
	"github.com/dmitrijs2005/modelmirror/internal/server/storage/blob"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// seams for tests
var (
	openDB        = sql.Open
	newS3Store    = blob.NewS3Store
	newMinioStore = blob.NewMinioStore
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	repomanager repomanager.RepositoryManager

	Mirror *services.MirrorService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(c.LogFile, slog.LevelInfo).With("instance", c.InstanceID)

	if c.SpoolDir != "" {
		dir, err := filex.EnsureSubdDir(c.SpoolDir)
		if err != nil {
			return nil, fmt.Errorf("spool dir: %w", err)
		}
		c.SpoolDir = dir
	}

	db, err := openDB("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("repository manager init error: %w", err)
	}

	files, err := newBlobStore(ctx, c, c.S3Bucket)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("files store init error: %w", err)
	}
	exports, err := newBlobStore(ctx, c, c.S3ExportBucket)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("export store init error: %w", err)
	}

	reg := registry.NewClient(c.RegistryHost, c.RegistryInsecure, c.RegistryTimeout)

	return &App{
		config:      c,
		logger:      logger,
		db:          db,
		repomanager: rm,
		Mirror:      services.NewMirrorService(db, rm, files, exports, reg, c, logger),
	}, nil
}

func newBlobStore(ctx context.Context, c *config.Config, bucket string) (blob.Store, error) {
	bc := blob.Config{
		Endpoint: c.S3BaseEndpoint,
		Region:   c.S3Region,
		User:     c.S3RootUser,
		Password: c.S3RootPassword,
		Bucket:   bucket,
	}
	switch c.BlobDriver {
	case "s3":
		return newS3Store(ctx, bc)
	case "minio":
		return newMinioStore(bc)
	default:
		return nil, fmt.Errorf("unknown blob driver %q", c.BlobDriver)
	}
}

// Logger returns the application logger.
func (app *App) Logger() logging.Logger {
	return app.logger
}

// Migrate brings the database schema up to date.
func (app *App) Migrate(ctx context.Context) error {
	app.logger.Info(ctx, "running migrations")
	if err := app.repomanager.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return nil
}

// WithSignals returns a context cancelled on SIGINT, SIGTERM or SIGQUIT.
func (app *App) WithSignals(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case <-sigs:
			app.logger.Warn(ctx, "interrupted, cancelling")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

func (app *App) Close() error {
	if app.db == nil {
		return nil
	}
	return app.db.Close()
}
