package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"github.com/iliyamo/booking-engine/internal/availability"
	"github.com/iliyamo/booking-engine/internal/booking"
	"github.com/iliyamo/booking-engine/internal/config"
	"github.com/iliyamo/booking-engine/internal/database"
	"github.com/iliyamo/booking-engine/internal/handler"
	"github.com/iliyamo/booking-engine/internal/hold"
	"github.com/iliyamo/booking-engine/internal/logging"
	"github.com/iliyamo/booking-engine/internal/notify"
	"github.com/iliyamo/booking-engine/internal/queue"
	"github.com/iliyamo/booking-engine/internal/repository"
	"github.com/iliyamo/booking-engine/internal/router"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API together with the background hold sweeper.

Notifications go to RabbitMQ when NOTIFY_ENABLED is set and are sent
directly through SMS_PROVIDER otherwise.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		migrate, _ := cmd.Flags().GetBool("migrate")

		cfg := loadConfig()
		log := logging.WithComponent("server")

		db, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if migrate {
			n, err := database.Migrate(ctx, db)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			log.Info().Int("statements", n).Msg("schema applied")
		}

		st := repository.NewMySQLStore(db)
		engine := availability.NewEngine(st)
		holds := hold.NewManager(st, cfg.HoldTTL)
		svc := booking.NewService(st, engine, holds, newNotifier(cfg))

		rdb := config.NewRedisClient(config.LoadRedisConfig())
		if rdb == nil {
			log.Warn().Msg("redis unavailable, rate limiting in process and catalog cache off")
		} else {
			defer rdb.Close()
		}

		e := echo.New()
		e.HideBanner = true
		e.HidePort = true
		e.Use(echomw.Recover())
		router.RegisterRoutes(e, router.Deps{
			Catalog:      handler.NewCatalogHandler(st),
			Availability: handler.NewAvailabilityHandler(engine),
			Bookings:     handler.NewBookingHandler(svc),
			Manager:      handler.NewManagerHandler(svc, st),
			JWTSecret:    cfg.JWTSecret,
			RateLimit:    config.LoadRateLimitConfig(),
			Cache:        config.LoadCacheConfig(),
			Redis:        rdb,
		})

		go holds.RunSweeper(ctx, cfg.HoldSweepInterval)

		addr := ":" + cfg.Port
		errCh := make(chan error, 1)
		go func() {
			log.Info().Str("addr", addr).Str("env", cfg.Env).Str("version", Version).Msg("listening")
			if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().Bool("migrate", false, "apply the schema before serving")
}

func openDB(cfg config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("connect to mysql %s:%s: %w", cfg.DBHost, cfg.DBPort, err)
	}
	return db, nil
}

// newNotifier picks the booking notifier: the RabbitMQ publisher when
// enabled, otherwise direct delivery through the configured SMS sender.
func newNotifier(cfg config.Config) notify.Notifier {
	msgs := notify.Messages{FrontendURL: cfg.FrontendURL}
	if cfg.AMQP.Enabled {
		return queue.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Queue, msgs)
	}
	return notify.NewDirect(notify.NewSender(cfg.SMS.Provider, cfg.SMS.WebhookURL, cfg.SMS.WebhookToken), msgs)
}
