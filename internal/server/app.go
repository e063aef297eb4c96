// Package server initializes and runs the main application server.
// It opens the database, runs migrations, wires the identity provider,
// blob store and services together, and starts the HTTP server.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/storeit-app/storeit/internal/logging"
	"github.com/storeit-app/storeit/internal/server/blobstore"
	"github.com/storeit-app/storeit/internal/server/config"
	"github.com/storeit-app/storeit/internal/server/httpapi"
	"github.com/storeit-app/storeit/internal/server/identity"
	"github.com/storeit-app/storeit/internal/server/mail"
	"github.com/storeit-app/storeit/internal/server/repositories/repomanager"
	"github.com/storeit-app/storeit/internal/server/services"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	userService *services.UserService
	fileService *services.FileService
}

func NewApp(c *config.Config) (*App, error) {

	slog := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slog)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	var mailer mail.Mailer
	if c.SMTPAddr != "" {
		mailer = mail.NewSMTPMailer(c.SMTPAddr, c.SMTPFrom, nil)
	} else {
		mailer = mail.NewLogMailer(logger)
	}

	blobs := blobstore.NewS3Store(blobstore.Config{
		RootUser:     c.S3RootUser,
		RootPassword: c.S3RootPassword,
		Bucket:       c.S3Bucket,
		Region:       c.S3Region,
		BaseEndpoint: c.S3BaseEndpoint,
	})

	provider := identity.NewPostgresProvider(db, rm, mailer, c)

	us := services.NewUserService(db, rm, provider, blobs, logger)
	fs := services.NewFileService(db, rm, blobs, logger)

	return &App{config: c, logger: logger, db: db, userService: us, fileService: fs}, nil
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

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := httpapi.NewHTTPServer(app.config.RunAddr, app.logger, app.userService, app.fileService)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
}
