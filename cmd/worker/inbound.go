package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alizand/leadwire/internal/config"
	"github.com/alizand/leadwire/internal/db"
	"github.com/alizand/leadwire/internal/inbound"
	"github.com/alizand/leadwire/internal/kafka"
	"github.com/alizand/leadwire/internal/logger"
	"github.com/alizand/leadwire/internal/metrics"
	"github.com/alizand/leadwire/internal/reply"
	"github.com/alizand/leadwire/internal/repository"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var inboundCmd = &cobra.Command{
	Use:   "inbound",
	Short: "Consume inbound messages from Kafka and dispatch replies",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger.Init(cfg.Log.Level)

		metrics.MustRegister(prometheus.DefaultRegisterer)

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

		pipeline := newPipeline(cfg, dbx)
		responder := reply.NewResponder(reply.NewGenerator(reply.OfferConfig{
			Timezone:    cfg.Reply.Timezone,
			OpenHour:    cfg.Reply.OfficeOpen,
			CloseHour:   cfg.Reply.OfficeClose,
			SlotHours:   cfg.Reply.SlotHours,
			BookingLink: cfg.Reply.BookingLink,
		}))
		handler := inbound.NewHandler(
			repository.NewContactsRepository(dbx),
			repository.NewDripTrackersRepository(dbx),
			repository.NewMessagesRepository(dbx),
			responder,
			pipeline,
			logger.Log.Named("inbound"),
		)

		consumer := kafka.NewConsumerFromConfig(kafka.Config{
			Brokers:        cfg.Kafka.Brokers,
			Topic:          cfg.Kafka.InboundTopic,
			GroupID:        cfg.Kafka.GroupID,
			MinBytes:       cfg.Kafka.MinBytes,
			MaxBytes:       cfg.Kafka.MaxBytes,
			CommitInterval: time.Duration(cfg.Kafka.CommitInterval) * time.Millisecond,
		})
		defer func() { _ = consumer.Close() }()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runInbound(ctx, consumer, handler, logger.Log.Named("inbound-worker"))
	},
}

// runInbound loops fetch, handle, commit until the context is canceled. A
// message that fails to decode is committed anyway so a poison payload cannot
// wedge the partition; a handler failure leaves the offset uncommitted so the
// event is redelivered.
func runInbound(ctx context.Context, consumer *kafka.Consumer, handler *inbound.Handler, log *zap.Logger) error {
	for {
		msg, err := consumer.Fetch(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch: %w", err)
		}

		var ev inbound.Event
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			log.Warn("drop undecodable inbound event",
				zap.Int64("offset", msg.Offset),
				zap.Error(err))
			if err := consumer.Commit(ctx, msg); err != nil {
				return fmt.Errorf("commit: %w", err)
			}
			continue
		}

		if err := handler.Handle(ctx, ev); err != nil {
			log.Error("handle inbound event",
				zap.Int64("tenant_id", ev.TenantID),
				zap.String("provider_ref", ev.ProviderRef),
				zap.Error(err))
			continue
		}

		if err := consumer.Commit(ctx, msg); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
	}
}
