package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/yeonjoon13/Vessel-Traffic-Monitor/internal/config"
	"github.com/yeonjoon13/Vessel-Traffic-Monitor/internal/eum"
	"github.com/yeonjoon13/Vessel-Traffic-Monitor/internal/kafka"
)

func main() {
	var (
		configPath = flag.String("config", os.Getenv("VTM_CONFIG"), "Path to YAML config file (optional)")
		broker     = flag.String("broker", os.Getenv("KAFKA_BROKER"), "Kafka broker address, overrides kafka.brokers")
		interval   = flag.Duration("interval", 5*time.Second, "Poll interval")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *broker != "" {
		cfg.Kafka.Brokers = []string{*broker}
	}
	if err := cfg.Kafka.RequireBrokers(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v (set -broker or kafka.brokers)\n", err)
		os.Exit(1)
	}

	logger, err := cfg.Log.Logger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := kafka.CreateTopics(cfg.Kafka.Brokers[0], kafka.Topics(cfg.Kafka.PositionsTopic)); err != nil {
		logger.Warn("ensuring positions topic", zap.Error(err))
	}

	client := eum.NewClient(cfg.EUM.BaseURL, cfg.EUM.ServiceKey, cfg.EUM.Timeout, logger)
	writer := kafka.NewWriter(cfg.Kafka.Brokers)
	defer writer.Close()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	logger.Info("starting ingestor",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.PositionsTopic),
		zap.Duration("interval", *interval))
	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down ingestor")
			return
		case <-ticker.C:
			positions, err := client.Positions(ctx)
			if err != nil {
				logger.Warn("fetch error", zap.Error(err))
				continue
			}
			if err := kafka.PublishPositions(ctx, writer, cfg.Kafka.PositionsTopic, positions); err != nil {
				logger.Warn("publish error", zap.Error(err))
				continue
			}
			logger.Debug("published positions", zap.Int("count", len(positions)))
		}
	}
}
