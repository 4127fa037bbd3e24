// Package config loads monitor configuration from defaults, an optional YAML
// file and VTM_ environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap"

	"github.com/yeonjoon13/Vessel-Traffic-Monitor/internal/cluster"
	"github.com/yeonjoon13/Vessel-Traffic-Monitor/internal/collision"
	"github.com/yeonjoon13/Vessel-Traffic-Monitor/internal/geo"
)

// EnvPrefix prefixes every environment override. Nested keys use "__",
// e.g. VTM_PROXIMITY__WARNING_NM=0.2.
const EnvPrefix = "VTM_"

// Position source kinds.
const (
	SourceEUM        = "eum"
	SourceKafka      = "kafka"
	SourceSimulation = "simulation"
)

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Server     ServerConfig         `koanf:"server"`
	Log        LogConfig            `koanf:"log"`
	Source     string               `koanf:"source"`
	EUM        EUMConfig            `koanf:"eum"`
	Kafka      KafkaConfig          `koanf:"kafka"`
	Simulation SimulationConfig     `koanf:"simulation"`
	Scheduler  SchedulerConfig      `koanf:"scheduler"`
	Proximity  collision.Thresholds `koanf:"proximity"`
	Cluster    ClusterConfig        `koanf:"cluster"`
}

type ServerConfig struct {
	Addr    string `koanf:"addr"`
	Release bool   `koanf:"release"`
}

type LogConfig struct {
	Level       string `koanf:"level"`
	Development bool   `koanf:"development"`
}

type EUMConfig struct {
	BaseURL    string        `koanf:"base_url"`
	ServiceKey string        `koanf:"service_key"`
	Timeout    time.Duration `koanf:"timeout"`
}

type KafkaConfig struct {
	Enabled        bool          `koanf:"enabled"`
	Brokers        []string      `koanf:"brokers"`
	PositionsTopic string        `koanf:"positions_topic"`
	AlertsTopic    string        `koanf:"alerts_topic"`
	ClustersTopic  string        `koanf:"clusters_topic"`
	GroupID        string        `koanf:"group_id"`
	MaxAge         time.Duration `koanf:"max_age"`
}

type SimulationConfig struct {
	SpeedMultiplier float64 `koanf:"speed_multiplier"`
	Routes          []Route `koanf:"routes"`
}

// Route is a simulated vessel voyage. Either Polyline (Google encoded) or
// Points ([lat, lng] pairs) describes the path.
type Route struct {
	ID         string        `koanf:"id"`
	Name       string        `koanf:"name"`
	Polyline   string        `koanf:"polyline"`
	Points     [][]float64   `koanf:"points"`
	Departure  time.Duration `koanf:"departure"`
	SpeedKnots float64       `koanf:"speed_knots"`
}

type SchedulerConfig struct {
	Interval       time.Duration `koanf:"interval"`
	ActiveInterval time.Duration `koanf:"active_interval"`
	AcquireTimeout time.Duration `koanf:"acquire_timeout"`
	Home           string        `koanf:"home"`
}

// ClusterConfig holds clustering distances in meters.
type ClusterConfig struct {
	LinkM   float64 `koanf:"link_m"`
	SingleM float64 `koanf:"single_m"`
	MinM    float64 `koanf:"min_m"`
	GrowthM float64 `koanf:"growth_m"`
}

// Options converts the config to clustering options.
func (c ClusterConfig) Options() cluster.Options {
	return cluster.Options{
		MaxLinkDistance: c.LinkM,
		SingleRadius:    c.SingleM,
		MinRadius:       c.MinM,
		GrowthPerMember: c.GrowthM,
		Unit:            geo.Meters,
	}
}

func defaults() map[string]interface{} {
	th := collision.DefaultThresholds()
	co := cluster.DefaultOptions()
	return map[string]interface{}{
		"server.addr":    ":8080",
		"server.release": false,

		"log.level":       "info",
		"log.development": false,

		"source": SourceEUM,

		"eum.base_url": "https://dpg-apis.pohang-eum.co.kr",
		"eum.timeout":  "10s",

		"kafka.enabled":         false,
		"kafka.brokers":         []string{"localhost:9092"},
		"kafka.positions_topic": "vessel_positions",
		"kafka.alerts_topic":    "collision_alerts",
		"kafka.clusters_topic":  "vessel_clusters",
		"kafka.group_id":        "vessel-monitor",
		"kafka.max_age":         "15m",

		"simulation.speed_multiplier": 1.0,

		"scheduler.interval":        "5s",
		"scheduler.active_interval": "1s",
		"scheduler.acquire_timeout": "4s",

		"proximity.danger_nm":  th.Danger,
		"proximity.warning_nm": th.Warning,
		"proximity.safe_nm":    th.Safe,

		"cluster.link_m":   co.MaxLinkDistance,
		"cluster.single_m": co.SingleRadius,
		"cluster.min_m":    co.MinRadius,
		"cluster.growth_m": co.GrowthPerMember,
	}
}

// Load reads configuration. path may be empty to skip the YAML file.
// The result is validated; an invalid configuration is an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

// Validate checks the settings the engine relies on.
func (c *Config) Validate() error {
	if err := c.Proximity.Validate(); err != nil {
		return err
	}
	if c.Scheduler.Interval <= 0 || c.Scheduler.ActiveInterval <= 0 {
		return fmt.Errorf("%w: scheduler intervals must be positive", ErrInvalid)
	}
	if c.Scheduler.AcquireTimeout <= 0 {
		return fmt.Errorf("%w: scheduler.acquire_timeout must be positive", ErrInvalid)
	}
	if c.Cluster.LinkM <= 0 {
		return fmt.Errorf("%w: cluster.link_m must be positive", ErrInvalid)
	}
	if c.Kafka.Enabled {
		if err := c.Kafka.RequireBrokers(); err != nil {
			return err
		}
	}
	switch c.Source {
	case SourceEUM:
		if c.EUM.BaseURL == "" {
			return fmt.Errorf("%w: eum.base_url is required", ErrInvalid)
		}
	case SourceKafka:
		if err := c.Kafka.RequireBrokers(); err != nil {
			return err
		}
		if c.Kafka.PositionsTopic == "" {
			return fmt.Errorf("%w: kafka source needs positions_topic", ErrInvalid)
		}
	case SourceSimulation:
		if c.Simulation.SpeedMultiplier <= 0 {
			return fmt.Errorf("%w: simulation.speed_multiplier must be positive", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown source %q", ErrInvalid, c.Source)
	}
	return nil
}

// RequireBrokers fails unless a usable broker address is configured.
// Commands that always talk to kafka call it after applying flags.
func (c KafkaConfig) RequireBrokers() error {
	if len(c.Brokers) == 0 || strings.TrimSpace(c.Brokers[0]) == "" {
		return fmt.Errorf("%w: kafka.brokers is required", ErrInvalid)
	}
	return nil
}

// Logger builds the process logger.
func (c LogConfig) Logger() (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("%w: log.level: %v", ErrInvalid, err)
	}
	zc.Level = level
	return zc.Build()
}
