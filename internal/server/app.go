// Package server wires the storage backends, services and transports of
// GophVault together, runs them and handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/cryptox"
	"github.com/dmitrijs2005/gophvault/internal/dbx"
	"github.com/dmitrijs2005/gophvault/internal/logging"
	"github.com/dmitrijs2005/gophvault/internal/server/config"
	"github.com/dmitrijs2005/gophvault/internal/server/httpapi"
	"github.com/dmitrijs2005/gophvault/internal/server/notify"
	"github.com/dmitrijs2005/gophvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophvault/internal/server/services"
	"github.com/dmitrijs2005/gophvault/internal/server/storage"
	"github.com/dmitrijs2005/gophvault/internal/server/summary"

	gs "github.com/dmitrijs2005/gophvault/internal/server/grpc"
)

// shutdownTimeout bounds the graceful stop of the HTTP server and the
// drain of pending notifications.
const shutdownTimeout = 10 * time.Second

type App struct {
	config *config.Config
	logger logging.Logger

	db        *sql.DB
	publisher *notify.AsyncPublisher
	sender    *notify.NATSSender

	uploads *services.UploadService
	files   *services.FileService
	cleanup *services.CleanupService
	router  http.Handler
	health  *gs.HealthServer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)
	return newApp(ctx, c, logger)
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	app := &App{config: c, logger: logger}

	key, err := cryptox.ResolveKey(c.EncryptionKey, c.EncryptionPassphrase, c.EncryptionSalt)
	if err != nil {
		return nil, fmt.Errorf("encryption key: %w", err)
	}

	runner, repos, err := app.initRepositories(ctx)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	chunks, err := storage.NewChunkStore(c.StagingDir)
	if err != nil {
		app.closeDB()
		return nil, fmt.Errorf("staging init error: %w", err)
	}

	blobs, err := newBlobStore(ctx, c)
	if err != nil {
		app.closeDB()
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	events, err := app.initPublisher()
	if err != nil {
		app.closeDB()
		return nil, fmt.Errorf("notifications init error: %w", err)
	}

	deps := services.Deps{
		Runner: runner,
		Repos:  repos,
		Chunks: chunks,
		Blobs:  blobs,
		Key:    key,
		Events: events,
		Logger: logger,
	}

	app.uploads = services.NewUploadService(deps, c.MaxConcurrentAssemblies)
	app.files = services.NewFileService(deps, newSummarizer(c, logger), c.SummaryMaxLength)
	app.cleanup = services.NewCleanupService(app.uploads, c.SessionTTL)

	app.router = httpapi.NewRouter(logger, httpapi.NewHandler(app.uploads, app.files, logger.With("module", "http")), httpapi.RouterOptions{
		Env:             c.Env,
		Secret:          []byte(c.SecretKey),
		MaxRequestBytes: c.MaxRequestBytes,
		Timeout:         time.Minute,
	})
	app.health = gs.NewHealthServer(c.EndpointAddrGRPC, logger)

	return app, nil
}

// initRepositories connects to PostgreSQL and migrates it. An empty DSN
// selects the in-memory store.
func (app *App) initRepositories(ctx context.Context) (dbx.Runner, repomanager.RepositoryManager, error) {
	if app.config.DatabaseDSN == "" {
		app.logger.Warn(ctx, "no database DSN configured, using in-memory store")
		mem := repomanager.NewInMemoryRepositoryManager()
		return mem.Runner(), mem, nil
	}

	db, err := sql.Open("pgx", app.config.DatabaseDSN)
	if err != nil {
		return nil, nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	pm := repomanager.NewPostgresRepositoryManager()
	if err := pm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}

	app.db = db
	return dbx.NewSQLRunner(db, nil), pm, nil
}

func newBlobStore(ctx context.Context, c *config.Config) (storage.BlobStore, error) {
	switch c.BlobBackend {
	case "", "local":
		return storage.NewLocalBlobStore(c.MediaRoot)
	case "s3":
		return storage.NewS3BlobStore(ctx, storage.S3Config{
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
		})
	default:
		return nil, fmt.Errorf("unknown blob backend %q", c.BlobBackend)
	}
}

// initPublisher connects to NATS when a URL is configured.
func (app *App) initPublisher() (notify.Publisher, error) {
	if app.config.NATSURL == "" {
		return notify.Noop{}, nil
	}

	sender, err := notify.NewNATSSender(app.config.NATSURL, app.config.NATSSubjectPrefix, app.config.EventSource, app.logger)
	if err != nil {
		return nil, err
	}

	app.sender = sender
	app.publisher = notify.NewAsyncPublisher(sender, app.logger, notify.AsyncOptions{Source: app.config.EventSource})
	return app.publisher, nil
}

func newSummarizer(c *config.Config, logger logging.Logger) *summary.TwoTier {
	tier := &summary.TwoTier{
		Fallback: summary.Extractive{},
		Timeout:  c.SummarizerTimeout,
		Logger:   logger.With("module", "summary"),
	}
	if c.SummarizerEndpoint != "" {
		tier.Primary = summary.NewRemote(c.SummarizerEndpoint, c.SummarizerTimeout)
	}
	return tier
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc, listen net.Listener) {
	srv := &http.Server{
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "HTTP shutdown failed", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.health.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	listen, err := net.Listen("tcp", app.config.EndpointAddrHTTP)
	if err != nil {
		app.shutdown(ctx)
		return err
	}

	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc, listen)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.cleanup.Run(ctx, app.config.CleanupInterval)
	}()

	wg.Wait()

	app.shutdown(ctx)
	return nil
}

// shutdown drains notifications and releases connections.
func (app *App) shutdown(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)

	if app.publisher != nil {
		drainCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		if err := app.publisher.Close(drainCtx); err != nil {
			app.logger.Warn(ctx, "pending notifications dropped", "error", err)
		}
		cancel()
	}
	if app.sender != nil {
		app.sender.Close()
	}
	app.closeDB()

	app.logger.Info(ctx, "App stopped")
}

func (app *App) closeDB() {
	if app.db != nil {
		_ = app.db.Close()
		app.db = nil
	}
}
