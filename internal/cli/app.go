package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/extrajob/internal/auth"
	"github.com/justsurfingit/extrajob/internal/config"
	"github.com/justsurfingit/extrajob/internal/database"
	"github.com/justsurfingit/extrajob/internal/handlers"
	"github.com/justsurfingit/extrajob/internal/mail"
	"github.com/justsurfingit/extrajob/internal/metrics"
	"github.com/justsurfingit/extrajob/internal/notify"
	"github.com/justsurfingit/extrajob/internal/services"
	"github.com/justsurfingit/extrajob/internal/syncbus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// App is the assembled server.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	DB       *gorm.DB
	Bus      *syncbus.Bus
	Metrics  *metrics.Collector
	Notifier *notify.AsyncDispatcher
	Router   *gin.Engine
}

func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	// 1. Database Connection
	db, err := database.Connect(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx, db, logger); err != nil {
		return nil, err
	}

	// 2. Metrics and the sync bus
	m := metrics.NewCollector()
	bus := syncbus.New(logger, syncbus.WithObserver(func(t syncbus.Topic, delivered int) {
		m.BusPublished(string(t), delivered)
	}))

	// 3. Mail transport and notification dispatch
	mailer, err := buildMailer(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	dispatcher := notify.NewDispatcher(db, mailer, m, logger)
	async := notify.NewAsyncDispatcher(dispatcher, cfg.Notify.QueueSize, cfg.Notify.RatePerSecond, cfg.Notify.Timeout)

	// 4. Core services
	jobs := services.NewJobService(db, bus, logger)
	ledger := services.NewLedger(db, bus, async, m, logger)

	// 5. Router
	router := handlers.NewRouter(handlers.Deps{
		Auth:               auth.NewAuthenticator(db, cfg.Session.TTL),
		Jobs:               jobs,
		Businesses:         services.NewBusinessService(db, logger),
		Profiles:           services.NewProfileService(db),
		Ledger:             ledger,
		Notifications:      services.NewNotificationService(db),
		Notifier:           dispatcher,
		Bus:                bus,
		Metrics:            m,
		Logger:             logger,
		CORSAllowedOrigins: cfg.HTTP.CORSAllowedOrigins,
	})

	return &App{
		Config:   cfg,
		Logger:   logger,
		DB:       db,
		Bus:      bus,
		Metrics:  m,
		Notifier: async,
		Router:   router,
	}, nil
}

func buildMailer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (mail.Mailer, error) {
	switch cfg.Mail.Transport {
	case config.TransportGmail:
		logger.Info("initializing gmail client")
		httpClient, err := auth.GmailClient(ctx, cfg.Mail.CredentialsFile, cfg.Mail.TokenFile)
		if err != nil {
			return nil, fmt.Errorf("gmail client: %w", err)
		}
		return mail.NewGmailMailer(ctx, httpClient, cfg.Mail.From)
	default:
		logger.Warn("mail transport is log: employer emails are not sent")
		return mail.NewLogMailer(logger), nil
	}
}

// Run serves HTTP until ctx is done, then stops accepting requests, ends
// open event streams and drains the notification queue.
func (a *App) Run(ctx context.Context) error {
	streams, endStreams := context.WithCancel(context.Background())
	defer endStreams()

	srv := &http.Server{
		Addr:              ":" + a.Config.HTTP.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return streams },
	}
	srv.RegisterOnShutdown(endStreams)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.Notifier.Run(context.Background())
	})
	g.Go(func() error {
		a.Logger.Info("server starting", "port", a.Config.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.Logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		a.Notifier.Close()
		return err
	})
	return g.Wait()
}

// Close releases the database.
func (a *App) Close() error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
