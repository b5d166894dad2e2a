// Package server wires the bot together: database, repositories, services,
// the update router, the ops HTTP server and background workers. It also
// handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dmitrijs2005/filegate/internal/common"
	"github.com/dmitrijs2005/filegate/internal/dbx"
	"github.com/dmitrijs2005/filegate/internal/filex"
	"github.com/dmitrijs2005/filegate/internal/logging"
	"github.com/dmitrijs2005/filegate/internal/server/cache"
	"github.com/dmitrijs2005/filegate/internal/server/config"
	"github.com/dmitrijs2005/filegate/internal/server/events"
	"github.com/dmitrijs2005/filegate/internal/server/messenger"
	"github.com/dmitrijs2005/filegate/internal/server/ops"
	"github.com/dmitrijs2005/filegate/internal/server/repositories/files"
	"github.com/dmitrijs2005/filegate/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/filegate/internal/server/repositories/settings"
	"github.com/dmitrijs2005/filegate/internal/server/router"
	"github.com/dmitrijs2005/filegate/internal/server/services"
	"github.com/dmitrijs2005/filegate/internal/server/shortener"
	"github.com/dmitrijs2005/filegate/internal/timex"
	"github.com/dmitrijs2005/filegate/internal/tracing"
)

const (
	sweepInterval = time.Hour
	dbPingRetries = 5
	dbPingBackoff = 500 * time.Millisecond
)

type App struct {
	config       *config.Config
	logger       logging.Logger
	db           *sql.DB
	telegram     *messenger.Telegram
	router       *router.Router
	verification *services.VerificationService
	events       events.Publisher
	shutdownOTel func(context.Context) error
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(os.Stdout, c.LogLevel, c.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	app := &App{config: c, logger: logger}
	if err := app.init(ctx); err != nil {
		app.close(ctx)
		return nil, err
	}
	return app, nil
}

func (app *App) init(ctx context.Context) error {
	c := app.config
	dialect := c.Dialect()

	shutdownOTel, err := tracing.Setup(ctx, c.OTelEndpoint, common.ServiceName)
	if err != nil {
		return fmt.Errorf("tracing init error: %w", err)
	}
	app.shutdownOTel = shutdownOTel

	db, err := openDatabase(ctx, dialect, c.DatabaseDSN, app.logger)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	app.db = db

	rm := repomanager.NewRepositoryManager(dialect)
	if err := rm.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("migrations error: %w", err)
	}

	var (
		fileRepo     files.Repository    = rm.Files(db)
		settingsRepo settings.Repository = rm.Settings(db)
	)
	if c.CacheSize > 0 {
		fileRepo = cache.NewFiles(fileRepo, c.CacheSize, c.CacheTTL)
		settingsRepo = cache.NewSettings(settingsRepo, c.CacheSize, c.CacheTTL)
	}

	app.events = app.newPublisher(ctx)

	tg, err := messenger.NewTelegram(c.BotToken, app.logger)
	if err != nil {
		return err
	}
	app.telegram = tg

	me, err := tg.Me(ctx)
	if err != nil {
		return fmt.Errorf("bot identity: %w", err)
	}
	app.logger.Info(ctx, "Bot identity resolved", "bot_id", me.ID, "username", me.Username)

	clock := timex.SystemClock

	short := shortener.New(shortener.Config{
		APIURL:  c.ShortenerAPIURL,
		APIKey:  c.ShortenerAPIKey,
		Timeout: c.ShortenerTimeout,
	}, settingsRepo, &http.Client{Timeout: c.ShortenerTimeout}, app.logger)

	app.verification = services.NewVerificationService(rm.Grants(db), c.VerificationTTL, c.VerificationScope, app.events, clock, app.logger)
	gate := services.NewGateService(tg, me, fileRepo, settingsRepo, app.verification, short, app.events, clock, app.logger)
	scheduler := services.NewEphemeralScheduler(tg, c.EphemeralDelay, app.logger)
	delivery := services.NewDeliveryService(services.DeliveryConfig{
		AppURL:           c.AppURL,
		StorageChannelID: c.StorageChannelID,
		AdminID:          c.AdminID,
	}, tg, fileRepo, settingsRepo, rm.Views(db), scheduler, app.events, clock, app.logger)
	users := services.NewUserService(db, rm, clock)

	app.router = router.New(router.Config{
		AppURL:      c.AppURL,
		TutorialURL: c.TutorialURL,
		UpdatesURL:  c.UpdatesURL,
		OwnerURL:    c.OwnerURL,
	}, tg, users, app.verification, gate, delivery, router.NewSettingsMenu(settingsRepo), app.logger)

	return nil
}

// openDatabase opens the store and waits for it to answer a ping, retrying
// with exponential backoff.
func openDatabase(ctx context.Context, dialect dbx.Dialect, dsn string, logger logging.Logger) (*sql.DB, error) {
	if dialect == dbx.SQLite {
		if _, err := filex.EnsureParentDir(dsn); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, err
	}
	if dialect == dbx.SQLite {
		// one writer at a time
		db.SetMaxOpenConns(1)
	}

	backoff := retry.WithMaxRetries(dbPingRetries, retry.NewExponential(dbPingBackoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			logger.Warn(ctx, "database not ready", "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return db, nil
}

func (app *App) newPublisher(ctx context.Context) events.Publisher {
	if app.config.RabbitMQURL == "" {
		return events.Nop{}
	}
	p, err := events.NewAMQPPublisher(app.config.RabbitMQURL, app.config.EventsExchange, app.logger)
	if err != nil {
		app.logger.Error(ctx, "event publishing disabled", "error", err)
		return events.Nop{}
	}
	return p
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

func (app *App) startOpsServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := ops.NewServer(app.config.OpsAddr, app.db, app.logger)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	if app.config.OpsAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startOpsServer(ctx, cancelFunc)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.verification.RunSweeper(ctx, sweepInterval)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.telegram.Run(ctx, app.router)
		cancelFunc()
	}()

	wg.Wait()

	app.logger.Info(ctx, "Stopping app...")
	app.close(context.Background())
}

func (app *App) close(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if app.events != nil {
		if err := app.events.Close(); err != nil {
			app.logger.Warn(ctx, "events close", "error", err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Warn(ctx, "db close", "error", err)
		}
	}
	if app.shutdownOTel != nil {
		if err := app.shutdownOTel(ctx); err != nil {
			app.logger.Warn(ctx, "tracing shutdown", "error", err)
		}
	}
}
