package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeonjoon13/Vessel-Traffic-Monitor/internal/model"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

// fakeReader replays msgs then blocks until ctx is cancelled.
type fakeReader struct {
	msgs []kafka.Message
}

func (f *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(f.msgs) == 0 {
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := f.msgs[0]
	f.msgs = f.msgs[1:]
	return m, nil
}

type sink struct {
	mu  sync.Mutex
	got []model.Position
}

func (s *sink) Update(p model.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, p)
}

func (s *sink) positions() []model.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Position(nil), s.got...)
}

func TestEncodeDecodePosition(t *testing.T) {
	ts := time.Unix(1736000000, 0)
	p := model.NewPosition("SHIP001", 35.99, 129.57, ts)
	p.Speed = model.Float(8)

	b, err := EncodePosition(p)
	require.NoError(t, err)

	got, err := DecodePosition(b)
	require.NoError(t, err)
	assert.Equal(t, "SHIP001", got.ID)
	assert.True(t, got.Timestamp.Equal(ts))
	assert.Equal(t, 8.0, *got.Speed)
}

func TestDecodePosition_CleansNameAndDefaultsTimestamp(t *testing.T) {
	before := time.Now()
	got, err := DecodePosition([]byte(`{"id":" SHIP003 ","name":"SEA STAR\u0000\u0000  ","lat":35.9,"lng":129.5}`))
	require.NoError(t, err)
	assert.Equal(t, "SHIP003", got.ID)
	assert.Equal(t, "SEA STAR", got.Name)
	assert.False(t, got.Timestamp.Before(before))
}

func TestCleanJSON(t *testing.T) {
	raw := []byte("\ufeff  {\"id\":\"A\",\"timestamp\":'\"1736000000\"'}")
	assert.Equal(t, `{"id":"A","timestamp":1736000000}`, string(cleanJSON(raw)))
}

func TestConsumePositions(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{
		{Value: []byte(`{"id":"SHIP001","lat":35.99,"lng":129.57,"timestamp":1736000000}`)},
		{Value: []byte(`not json`)},
		{Key: []byte("SHIP002"), Value: []byte(`{"lat":35.98,"lng":129.56,"timestamp":"1736000001"}`)},
		{Value: []byte(`{"id":"SHIP009","lat":135.0,"lng":129.56}`)},
		{Value: []byte(`{"lat":35.0,"lng":129.0}`)},
	}}
	s := &sink{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ConsumePositions(ctx, r, s, nil) }()

	require.Eventually(t, func() bool { return len(s.positions()) == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	got := s.positions()
	assert.Equal(t, "SHIP001", got[0].ID)
	assert.Equal(t, "SHIP002", got[1].ID)
	assert.Equal(t, int64(1736000001), got[1].Timestamp.Unix())
}

func TestPublishPositions(t *testing.T) {
	w := &fakeWriter{}
	positions := []model.Position{
		model.NewPosition("SHIP001", 35.99, 129.57, time.Unix(1, 0)),
		model.NewPosition("SHIP002", 35.98, 129.56, time.Unix(2, 0)),
	}
	require.NoError(t, PublishPositions(context.Background(), w, "vessel_positions", positions))
	require.Len(t, w.msgs, 2)
	assert.Equal(t, "vessel_positions", w.msgs[0].Topic)
	assert.Equal(t, "SHIP002", string(w.msgs[1].Key))

	assert.NoError(t, PublishPositions(context.Background(), &fakeWriter{err: errors.New("boom")}, "t", nil))
}

func TestPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := NewPublisher(w, "collision_alerts", "vessel_clusters")

	snap := model.Snapshot{
		Sequence: 7,
		Alerts: []model.Alert{
			{HomeID: "SHIP002", OtherID: "SHIP001", Level: model.RiskDanger, Distance: 0.04},
		},
		Clusters: []model.Cluster{{Members: []string{"SHIP001", "SHIP002"}, Radius: 200}},
	}
	require.NoError(t, p.Publish(context.Background(), snap))
	require.Len(t, w.msgs, 2)

	assert.Equal(t, "collision_alerts", w.msgs[0].Topic)
	assert.Equal(t, "SHIP001|SHIP002", string(w.msgs[0].Key))
	var a map[string]interface{}
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &a))
	assert.Equal(t, "danger", a["level"])

	assert.Equal(t, "vessel_clusters", w.msgs[1].Topic)
	var cm ClusterMessage
	require.NoError(t, json.Unmarshal(w.msgs[1].Value, &cm))
	assert.Equal(t, uint64(7), cm.Sequence)
	assert.Len(t, cm.Clusters, 1)
}

func TestPublisher_WriteError(t *testing.T) {
	p := NewPublisher(&fakeWriter{err: errors.New("broker down")}, "a", "c")
	err := p.Publish(context.Background(), model.Snapshot{Sequence: 1})
	assert.ErrorContains(t, err, "broker down")
}

func TestTopics(t *testing.T) {
	got := Topics("a", "", "b")
	assert.Equal(t, []TopicConfig{
		{Topic: "a", NumPartitions: 1, ReplicationFactor: 1},
		{Topic: "b", NumPartitions: 1, ReplicationFactor: 1},
	}, got)
}
