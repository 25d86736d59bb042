package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iliyamo/booking-engine/internal/database"
	"github.com/iliyamo/booking-engine/internal/hold"
	"github.com/iliyamo/booking-engine/internal/logging"
	"github.com/iliyamo/booking-engine/internal/notify"
	"github.com/iliyamo/booking-engine/internal/queue"
	"github.com/iliyamo/booking-engine/internal/repository"
	"github.com/iliyamo/booking-engine/internal/utils"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		db, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := database.Migrate(cmd.Context(), db)
		if err != nil {
			return err
		}
		fmt.Printf("applied %d statements to %s\n", n, cfg.DBName)
		return nil
	},
}

var sweepHoldsCmd = &cobra.Command{
	Use:   "sweep-holds",
	Short: "Delete expired slot holds once",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		db, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := hold.NewManager(repository.NewMySQLStore(db), cfg.HoldTTL).Sweep(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("deleted %d expired holds\n", n)
		return nil
	},
}

var notifyWorkerCmd = &cobra.Command{
	Use:   "notify-worker",
	Short: "Deliver queued booking notifications as SMS",
	Long: `Consume booking events from NOTIFY_QUEUE and send each message through
SMS_PROVIDER.  The worker reconnects when the broker goes away.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		log := logging.WithComponent("notify-worker")

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		sender := notify.NewSender(cfg.SMS.Provider, cfg.SMS.WebhookURL, cfg.SMS.WebhookToken)
		log.Info().Str("queue", cfg.AMQP.Queue).Str("provider", sender.ProviderID()).Msg("starting")
		err := queue.NewConsumer(cfg.AMQP.URL, cfg.AMQP.Queue, sender).Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a manager access token",
	Example: `  booking-engine token --business r1 --user alice
  JWT_SECRET=... booking-engine token --business r1 --ttl 1440`,
	RunE: func(cmd *cobra.Command, args []string) error {
		business, _ := cmd.Flags().GetString("business")
		user, _ := cmd.Flags().GetString("user")
		ttl, _ := cmd.Flags().GetInt("ttl")
		if business == "" {
			return errors.New("--business is required")
		}
		secret := os.Getenv("JWT_SECRET")
		if secret == "" {
			return errors.New("JWT_SECRET is not set")
		}

		tok, err := utils.NewAccessToken(secret, user, utils.RoleManager, business, ttl)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(tok)
	},
}

func init() {
	tokenCmd.Flags().String("business", "", "business id the token is valid for")
	tokenCmd.Flags().String("user", "manager", "subject recorded in the token")
	tokenCmd.Flags().Int("ttl", 60, "token lifetime in minutes")
}
