package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeonjoon13/Vessel-Traffic-Monitor/internal/model"
)

type fakeController struct {
	mu     sync.Mutex
	homes  []string
	acks   []string
	latest *model.Snapshot
}

func (f *fakeController) SelectHome(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.homes = append(f.homes, id)
	return id != ""
}

func (f *fakeController) Acknowledge(otherID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acks = append(f.acks, otherID)
	return otherID == "SHIP002"
}

func (f *fakeController) Latest() (model.Snapshot, bool) {
	if f.latest == nil {
		return model.Snapshot{}, false
	}
	return *f.latest, true
}

func dial(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHub_SendsLatestOnConnect(t *testing.T) {
	ctrl := &fakeController{latest: &model.Snapshot{Sequence: 7, HomeID: "SHIP001"}}
	conn := dial(t, NewHub(ctrl, nil))

	msg := readMessage(t, conn)
	assert.Equal(t, TypeSnapshot, msg.Type)
	require.NotNil(t, msg.Data)
	assert.Equal(t, uint64(7), msg.Data.Sequence)
	assert.Equal(t, "SHIP001", msg.Data.HomeID)
}

func TestHub_BroadcastsPublishedSnapshots(t *testing.T) {
	hub := NewHub(&fakeController{}, nil)
	conn := dial(t, hub)

	snap := model.Snapshot{
		Sequence: 3,
		HomeID:   "SHIP001",
		Alerts: []model.Alert{
			{HomeID: "SHIP001", OtherID: "SHIP002", Distance: 0.08, Level: model.RiskWarning},
		},
	}
	require.NoError(t, hub.Publish(context.Background(), snap))

	msg := readMessage(t, conn)
	assert.Equal(t, TypeSnapshot, msg.Type)
	require.NotNil(t, msg.Data)
	assert.Equal(t, uint64(3), msg.Data.Sequence)
	require.Len(t, msg.Data.Alerts, 1)
	assert.Equal(t, model.RiskWarning, msg.Data.Alerts[0].Level)
}

func TestHub_Commands(t *testing.T) {
	ctrl := &fakeController{}
	conn := dial(t, NewHub(ctrl, nil))

	require.NoError(t, conn.WriteJSON(Message{Type: TypeSelectHome, ID: "SHIP004"}))
	msg := readMessage(t, conn)
	assert.Equal(t, TypeResult, msg.Type)
	assert.Equal(t, "SHIP004", msg.ID)
	require.NotNil(t, msg.OK)
	assert.True(t, *msg.OK)

	require.NoError(t, conn.WriteJSON(Message{Type: TypeAck, ID: "SHIP009"}))
	msg = readMessage(t, conn)
	require.NotNil(t, msg.OK)
	assert.False(t, *msg.OK)

	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	assert.Equal(t, []string{"SHIP004"}, ctrl.homes)
	assert.Equal(t, []string{"SHIP009"}, ctrl.acks)
}

func TestHub_UnregistersOnClose(t *testing.T) {
	hub := NewHub(&fakeController{}, nil)
	conn := dial(t, hub)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)

	// Publishing with no clients is a no-op.
	assert.NoError(t, hub.Publish(context.Background(), model.Snapshot{}))
}

func TestHub_Name(t *testing.T) {
	assert.Equal(t, "websocket", NewHub(&fakeController{}, nil).Name())
}
