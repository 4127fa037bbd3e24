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
	"golang.org/x/sync/errgroup"

	"github.com/yeonjoon13/Vessel-Traffic-Monitor/internal/collision"
	"github.com/yeonjoon13/Vessel-Traffic-Monitor/internal/config"
	"github.com/yeonjoon13/Vessel-Traffic-Monitor/internal/fleet"
	"github.com/yeonjoon13/Vessel-Traffic-Monitor/internal/kafka"
	"github.com/yeonjoon13/Vessel-Traffic-Monitor/internal/scheduler"
)

// producer runs the proximity engine headless: vessel positions in from
// kafka, alerts and clusters out to kafka.
func main() {
	var (
		configPath = flag.String("config", os.Getenv("VTM_CONFIG"), "Path to YAML config file (optional)")
		broker     = flag.String("broker", os.Getenv("KAFKA_BROKER"), "Kafka broker address, overrides kafka.brokers")
		group      = flag.String("group", "", "Consumer group ID, overrides kafka.group_id")
		home       = flag.String("home", "", "Home vessel ID, overrides scheduler.home")
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
	if *group != "" {
		cfg.Kafka.GroupID = *group
	}
	if *home != "" {
		cfg.Scheduler.Home = *home
	}

	logger, err := cfg.Log.Logger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	topics := kafka.Topics(cfg.Kafka.PositionsTopic, cfg.Kafka.AlertsTopic, cfg.Kafka.ClustersTopic)
	if err := kafka.CreateTopics(cfg.Kafka.Brokers[0], topics); err != nil {
		logger.Warn("ensuring kafka topics", zap.Error(err))
	}

	store := fleet.NewStore(logger)
	reader := kafka.NewReader(cfg.Kafka.Brokers, cfg.Kafka.PositionsTopic, cfg.Kafka.GroupID)
	defer reader.Close()
	writer := kafka.NewWriter(cfg.Kafka.Brokers)
	defer writer.Close()

	watch := collision.NewWatch(cfg.Proximity, logger)
	watch.SetHome(cfg.Scheduler.Home)

	sched := scheduler.New(store, watch, scheduler.Config{
		Interval:       cfg.Scheduler.Interval,
		ActiveInterval: cfg.Scheduler.ActiveInterval,
		AcquireTimeout: cfg.Scheduler.AcquireTimeout,
		Cluster:        cfg.Cluster.Options(),
	}, logger)
	sched.Subscribe(kafka.NewPublisher(writer, cfg.Kafka.AlertsTopic, cfg.Kafka.ClustersTopic))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return kafka.ConsumePositions(ctx, reader, store, logger)
	})
	g.Go(func() error {
		store.RunCleanup(ctx, time.Minute, cfg.Kafka.MaxAge)
		return nil
	})
	g.Go(func() error {
		if err := sched.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		sched.Stop()
		return nil
	})

	logger.Info("starting proximity producer",
		zap.String("positions", cfg.Kafka.PositionsTopic),
		zap.String("alerts", cfg.Kafka.AlertsTopic),
		zap.String("home", watch.Home()))
	if err := g.Wait(); err != nil {
		logger.Error("producer exited", zap.Error(err))
	}
	logger.Info("shutting down producer")
}
