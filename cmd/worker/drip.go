package worker

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alizand/leadwire/internal/config"
	"github.com/alizand/leadwire/internal/db"
	"github.com/alizand/leadwire/internal/dispatch"
	"github.com/alizand/leadwire/internal/drip"
	"github.com/alizand/leadwire/internal/logger"
	"github.com/alizand/leadwire/internal/metrics"
	"github.com/alizand/leadwire/internal/render"
	"github.com/alizand/leadwire/internal/repository"
	"github.com/alizand/leadwire/internal/transport"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var dripCmd = &cobra.Command{
	Use:   "drip",
	Short: "Run the drip sequencer on a fixed tick",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger.Init(cfg.Log.Level)

		metrics.MustRegister(prometheus.DefaultRegisterer)

		if cfg.Pricing.PerMessage <= 0 {
			return fmt.Errorf("invalid pricing: per_message=%d", cfg.Pricing.PerMessage)
		}

		dbx, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
			PingTimeout:     cfg.MySQL.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer dbx.Close()

		seq := newSequencer(cfg, dbx)
		sched := drip.NewScheduler(seq, cfg.Drip.TickInterval, logger.Log.Named("drip"))

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

// newPipeline assembles the dispatch service from its MySQL repositories and
// the HTTP transport. Shared by the drip and inbound workers.
func newPipeline(cfg config.Config, dbx *sqlx.DB) *dispatch.Service {
	tc := transport.NewHTTPClient(
		cfg.Transport.BaseURL,
		cfg.Transport.SendPath,
		cfg.Transport.StatusPath,
		cfg.Transport.TimeoutMs,
		cfg.Transport.Breaker.FailThreshold,
		cfg.Transport.Breaker.OpenForMs,
	)
	return dispatch.New(
		repository.NewMessagesRepository(dbx),
		repository.NewWalletRepository(dbx),
		repository.NewContactsRepository(dbx),
		repository.NewIdentitiesRepository(dbx),
		tc,
		render.Options{OptOutSuffix: cfg.Content.OptOutSuffix, MaxLen: cfg.Content.MaxLen},
		cfg.Pricing.PerMessage,
		cfg.Transport.PollDelay,
		logger.Log.Named("dispatch"),
	)
}

func newSequencer(cfg config.Config, dbx *sqlx.DB) *drip.Sequencer {
	return drip.NewSequencer(
		repository.NewTenantsRepository(dbx),
		repository.NewDripSettingsRepository(dbx),
		repository.NewDripTemplatesRepository(dbx),
		repository.NewDripTrackersRepository(dbx),
		repository.NewContactsRepository(dbx),
		newPipeline(cfg, dbx),
		logger.Log.Named("sequencer"),
	)
}
