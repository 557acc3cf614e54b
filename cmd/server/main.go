package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iliyamo/contacts-api/internal/auth"
	"github.com/iliyamo/contacts-api/internal/avatar"
	"github.com/iliyamo/contacts-api/internal/config"
	"github.com/iliyamo/contacts-api/internal/database"
	"github.com/iliyamo/contacts-api/internal/handler"
	"github.com/iliyamo/contacts-api/internal/logging"
	"github.com/iliyamo/contacts-api/internal/mail"
	"github.com/iliyamo/contacts-api/internal/middleware"
	"github.com/iliyamo/contacts-api/internal/queue"
	"github.com/iliyamo/contacts-api/internal/repository"
	"github.com/iliyamo/contacts-api/internal/router"
	"github.com/iliyamo/contacts-api/internal/service"
)

func main() {
	root := &cobra.Command{
		Use:           "contacts-api",
		Short:         "Contacts REST API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCommand(), newMigrateCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, config.Load())
		},
	}
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Apply or inspect database migrations",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			return database.Migrate(cmd.Context(), db, args[0])
		},
	}
}

func openDB(cfg config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func serve(ctx context.Context, cfg config.Config) error {
	log := logging.New(cfg.LogLevel, cfg.LogFormat, nil)

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	if cfg.MigrateOnStart {
		if err := database.Migrate(ctx, db, "up"); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable; contact list rate limiting disabled")
	} else {
		defer rdb.Close()
	}

	sender, err := mail.NewSender(cfg.Mail, log)
	if err != nil {
		return err
	}

	var notifier auth.Notifier = mail.NewDirectNotifier(sender, cfg.BaseURL)
	if cfg.AMQPURL != "" {
		notifier = service.NewQueuePublisher(cfg.AMQPURL, log)
		consumer := queue.NewEmailConsumer(cfg.AMQPURL, sender, cfg.BaseURL, log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("email consumer stopped")
			}
		}()
	}

	var storage auth.AvatarStore
	if cfg.Storage.Enabled() {
		s3, err := avatar.NewS3Store(ctx, cfg.Storage)
		if err != nil {
			return fmt.Errorf("avatar storage: %w", err)
		}
		storage = s3
	}

	codec, err := auth.NewCodec(cfg.JWTSecret, cfg.JWTAlgorithm, auth.WithTTLs(cfg.AccessTTL(), cfg.RefreshTTL()))
	if err != nil {
		return err
	}
	users := repository.NewUserRepo(db)
	svc := auth.NewService(auth.Deps{
		Users:    users,
		Codec:    codec,
		Hasher:   auth.NewHasher(cfg.BcryptCost),
		Avatars:  avatar.Gravatar{Default: "identicon"},
		Storage:  storage,
		Notifier: notifier,
		Log:      log,
	})
	resolver := auth.NewResolver(codec, users)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestLogger(log))

	authHandler := handler.NewAuthHandler(svc, log)
	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, authHandler)
	router.RegisterUsers(e, authHandler, resolver)
	router.RegisterContacts(e, handler.NewContactHandler(repository.NewContactRepo(db), log),
		resolver, config.LoadRateLimitConfig(), rdb, log)

	errc := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
