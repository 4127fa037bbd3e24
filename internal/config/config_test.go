package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeonjoon13/Vessel-Traffic-Monitor/internal/collision"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "monitor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, SourceEUM, cfg.Source)
	assert.Equal(t, collision.DefaultThresholds(), cfg.Proximity)
	assert.Equal(t, 5*time.Second, cfg.Scheduler.Interval)
	assert.Equal(t, time.Second, cfg.Scheduler.ActiveInterval)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "collision_alerts", cfg.Kafka.AlertsTopic)
	assert.Equal(t, 500.0, cfg.Cluster.Options().MaxLinkDistance)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeFile(t, `
source: simulation
scheduler:
  interval: 3s
  home: SHIP001
proximity:
  danger_nm: 0.5
  warning_nm: 1.0
  safe_nm: 1.5
simulation:
  speed_multiplier: 4
  routes:
    - id: SHIP002
      speed_knots: 10
      departure: 1m
      points:
        - [35.98, 129.55]
        - [35.93, 129.60]
`)
	t.Setenv("VTM_SCHEDULER__ACTIVE_INTERVAL", "500ms")
	t.Setenv("VTM_PROXIMITY__SAFE_NM", "2")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, SourceSimulation, cfg.Source)
	assert.Equal(t, 3*time.Second, cfg.Scheduler.Interval)
	assert.Equal(t, 500*time.Millisecond, cfg.Scheduler.ActiveInterval)
	assert.Equal(t, "SHIP001", cfg.Scheduler.Home)
	assert.Equal(t, collision.Thresholds{Danger: 0.5, Warning: 1.0, Safe: 2}, cfg.Proximity)
	assert.Equal(t, 4.0, cfg.Simulation.SpeedMultiplier)
	require.Len(t, cfg.Simulation.Routes, 1)
	r := cfg.Simulation.Routes[0]
	assert.Equal(t, "SHIP002", r.ID)
	assert.Equal(t, time.Minute, r.Departure)
	assert.Equal(t, [][]float64{{35.98, 129.55}, {35.93, 129.60}}, r.Points)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{
			name: "thresholds out of order",
			body: "proximity: {danger_nm: 0.2, warning_nm: 0.1, safe_nm: 0.15}\n",
			want: collision.ErrInvalidThresholds,
		},
		{
			name: "safe not above warning",
			body: "proximity: {danger_nm: 0.05, warning_nm: 0.1, safe_nm: 0.1}\n",
			want: collision.ErrInvalidThresholds,
		},
		{
			name: "zero interval",
			body: "scheduler: {interval: 0s}\n",
			want: ErrInvalid,
		},
		{
			name: "unknown source",
			body: "source: carrier-pigeon\n",
			want: ErrInvalid,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.body))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLogConfig_Logger(t *testing.T) {
	logger, err := LogConfig{Level: "debug", Development: true}.Logger()
	require.NoError(t, err)
	assert.NotNil(t, logger)

	_, err = LogConfig{Level: "loud"}.Logger()
	assert.True(t, errors.Is(err, ErrInvalid))
}

func TestKafkaConfig_RequireBrokers(t *testing.T) {
	tests := []struct {
		name    string
		brokers []string
		wantErr bool
	}{
		{"configured", []string{"kafka:9092"}, false},
		{"nil", nil, true},
		{"empty list", []string{}, true},
		{"blank address", []string{"  "}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := KafkaConfig{Brokers: tt.brokers}.RequireBrokers()
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalid), "got %v", err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidate_KafkaPublishNeedsBrokers(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Kafka.Enabled = true
	cfg.Kafka.Brokers = nil
	assert.True(t, errors.Is(cfg.Validate(), ErrInvalid))

	cfg.Kafka.Enabled = false
	cfg.Source = SourceKafka
	assert.True(t, errors.Is(cfg.Validate(), ErrInvalid))

	cfg.Kafka.Brokers = []string{"localhost:9092"}
	assert.NoError(t, cfg.Validate())
}
