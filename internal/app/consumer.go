package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go-payroll/internal/bootstrap"
	"go-payroll/internal/config"
	"go-payroll/internal/events"
	"go-payroll/internal/messaging/kafka/consumer"
	"go-payroll/internal/shared/connection"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

func RunConsumer(cfg config.Config) error {
	logger := zap.L().Named("app.consumer")

	if cfg.KafkaBroker == "" {
		return fmt.Errorf("KAFKA_BROKER is required")
	}

	gormDB, err := connection.ConnectGORMWithRetry(cfg, cfg.DBMaxRetries)
	if err != nil {
		return err
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb, err = connection.ConnectRedisWithRetry(cfg.RedisAddr, cfg.DBMaxRetries)
		if err != nil {
			return err
		}
		defer rdb.Close()
	}

	payrollService, err := newPayrollService(cfg, sqlDB, gormDB, rdb, nil)
	if err != nil {
		return err
	}

	settledReader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        []string{cfg.KafkaBroker},
		Topic:          events.PaymentSettledTopic,
		GroupID:        cfg.KafkaGroupID + "-audit",
		CommitInterval: 0,
		StartOffset:    kafkago.FirstOffset,
	})
	defer settledReader.Close()

	documentReader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        []string{cfg.KafkaBroker},
		Topic:          events.PayslipDocumentRequestedTopic,
		GroupID:        cfg.KafkaGroupID + "-documents",
		CommitInterval: 0,
		StartOffset:    kafkago.FirstOffset,
	})
	defer documentReader.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		consumer.ConsumePaymentSettled(ctx, settledReader, bootstrap.NewZapAuditLogger(logger), logger)
	}()
	go func() {
		defer wg.Done()
		consumer.ConsumePayslipDocumentRequested(ctx, documentReader, payrollService, logger)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("consumer shutting down")
	cancel()
	wg.Wait()

	return nil
}
