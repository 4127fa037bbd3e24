package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yeonjoon13/Vessel-Traffic-Monitor/internal/collision"
	"github.com/yeonjoon13/Vessel-Traffic-Monitor/internal/config"
	"github.com/yeonjoon13/Vessel-Traffic-Monitor/internal/eum"
	"github.com/yeonjoon13/Vessel-Traffic-Monitor/internal/fleet"
	"github.com/yeonjoon13/Vessel-Traffic-Monitor/internal/kafka"
	"github.com/yeonjoon13/Vessel-Traffic-Monitor/internal/scheduler"
	"github.com/yeonjoon13/Vessel-Traffic-Monitor/internal/server"
	"github.com/yeonjoon13/Vessel-Traffic-Monitor/internal/simulation"
	"github.com/yeonjoon13/Vessel-Traffic-Monitor/internal/ws"
)

const (
	cleanupInterval = time.Minute
	shutdownTimeout = 10 * time.Second
)

func main() {
	var (
		configPath = flag.String("config", os.Getenv("VTM_CONFIG"), "Path to YAML config file (optional)")
		broker     = flag.String("broker", "", "Kafka broker address, overrides kafka.brokers")
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

	logger, err := cfg.Log.Logger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("monitor exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	var (
		source scheduler.PositionSource
		sim    *simulation.Simulator
	)
	switch cfg.Source {
	case config.SourceEUM:
		source = eum.NewClient(cfg.EUM.BaseURL, cfg.EUM.ServiceKey, cfg.EUM.Timeout, logger)
	case config.SourceKafka:
		store := fleet.NewStore(logger)
		reader := kafka.NewReader(cfg.Kafka.Brokers, cfg.Kafka.PositionsTopic, cfg.Kafka.GroupID)
		defer reader.Close()
		g.Go(func() error {
			return kafka.ConsumePositions(ctx, reader, store, logger)
		})
		g.Go(func() error {
			store.RunCleanup(ctx, cleanupInterval, cfg.Kafka.MaxAge)
			return nil
		})
		source = store
	case config.SourceSimulation:
		routes := make([]simulation.Route, 0, len(cfg.Simulation.Routes))
		for _, rc := range cfg.Simulation.Routes {
			r, err := simulation.NewRoute(rc.ID, rc.Name, rc.Polyline, rc.Points, rc.Departure, rc.SpeedKnots)
			if err != nil {
				return err
			}
			routes = append(routes, r)
		}
		sim = simulation.New(routes, cfg.Simulation.SpeedMultiplier)
		source = sim
		logger.Info("simulation source ready; POST /api/simulation/start to begin",
			zap.Int("routes", len(routes)))
	}

	watch := collision.NewWatch(cfg.Proximity, logger)
	if cfg.Scheduler.Home != "" {
		watch.SetHome(cfg.Scheduler.Home)
	}

	sched := scheduler.New(source, watch, scheduler.Config{
		Interval:       cfg.Scheduler.Interval,
		ActiveInterval: cfg.Scheduler.ActiveInterval,
		AcquireTimeout: cfg.Scheduler.AcquireTimeout,
		Cluster:        cfg.Cluster.Options(),
	}, logger)

	hub := ws.NewHub(sched, logger)
	sched.Subscribe(hub)

	if cfg.Kafka.Enabled {
		topics := kafka.Topics(cfg.Kafka.AlertsTopic, cfg.Kafka.ClustersTopic)
		if err := kafka.CreateTopics(cfg.Kafka.Brokers[0], topics); err != nil {
			logger.Warn("ensuring kafka topics", zap.Error(err))
		}
		writer := kafka.NewWriter(cfg.Kafka.Brokers)
		defer writer.Close()
		sched.Subscribe(kafka.NewPublisher(writer, cfg.Kafka.AlertsTopic, cfg.Kafka.ClustersTopic))
	}

	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: server.NewRouter(server.Options{
			Engine:    sched,
			Simulator: sim,
			Stream:    hub,
			Logger:    logger,
			Release:   cfg.Server.Release,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		logger.Info("http server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		if err := sched.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		sched.Stop()
		return nil
	})

	logger.Info("vessel monitor started",
		zap.String("source", cfg.Source),
		zap.String("home", watch.Home()),
		zap.Bool("kafka_publish", cfg.Kafka.Enabled))

	err := g.Wait()
	logger.Info("vessel monitor stopped")
	return err
}
