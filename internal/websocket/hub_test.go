package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buildtrack/internal/infrastructure"
	"buildtrack/internal/shared/testutil"
	"buildtrack/pkg/contracts/events"
)

type idleConn struct{ closed bool }

func (c *idleConn) WriteMessage(int, []byte) error { return nil }
func (c *idleConn) ReadMessage() (int, []byte, error) { return 0, nil, nil }
func (c *idleConn) Close() error { c.closed = true; return nil }
func (c *idleConn) SetReadDeadline(time.Time) error { return nil }
func (c *idleConn) SetWriteDeadline(time.Time) error { return nil }
func (c *idleConn) SetReadLimit(int64) {}
func (c *idleConn) SetPongHandler(func(string) error) {}

func startHub(t *testing.T, opts ...Option) (*Hub, context.CancelFunc, <-chan error) {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(logger, opts...)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- hub.Run(ctx) }()
	t.Cleanup(cancel)
	return hub, cancel, errCh
}

func dial(t *testing.T, hub *Hub, upgrader *gws.Upgrader, header http.Header) (*gws.Conn, *http.Response, error) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ServeWS(hub, conn, "trace-ws")
	}))
	t.Cleanup(srv.Close)
	return gws.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), header)
}

func TestHubDeliversPublishedEvents(t *testing.T) {
	hub, _, _ := startHub(t)
	conn, _, err := dial(t, hub, NewUpgrader(1024, 1024, nil), nil)
	require.NoError(t, err)
	defer conn.Close()

	var hello events.Message
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, events.MessageTypeConnect, hello.Type)
	assert.Equal(t, "trace-ws", hello.TraceID)
	assert.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	ctx := infrastructure.WithTraceID(context.Background(), "trace-submit")
	require.NoError(t, hub.Publish(ctx, events.MessageTypeReportSubmitted, events.ReportSubmitted{
		ReportID:    "r1",
		ProjectName: "Tower A",
		ReportDate:  "2024-03-02",
	}))

	var got struct {
		Type    events.MessageType     `json:"type"`
		TraceID string                 `json:"trace_id"`
		Data    events.ReportSubmitted `json:"data"`
	}
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, events.MessageTypeReportSubmitted, got.Type)
	assert.Equal(t, "trace-submit", got.TraceID)
	assert.Equal(t, "Tower A", got.Data.ProjectName)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.EqualValues(t, 1, hub.Stats().TotalConnections)
}

func TestHubRejectsForeignOrigin(t *testing.T) {
	hub, _, _ := startHub(t)
	header := http.Header{"Origin": []string{"http://evil.example"}}

	_, resp, err := dial(t, hub, NewUpgrader(1024, 1024, []string{"http://localhost:5173"}), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHubDropsSlowClient(t *testing.T) {
	hub, _, _ := startHub(t)
	client := NewClient(hub, &idleConn{}, "10.0.0.1:5000", "")
	hub.Register(client)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	for i := 0; i < sendBufferSize+1; i++ {
		require.NoError(t, hub.Publish(context.Background(), events.MessageTypeLowStock, events.LowStock{MaterialID: "m1"}))
	}

	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.EqualValues(t, 1, hub.Stats().SlowClients)
}

func TestHubStop(t *testing.T) {
	hub, cancel, errCh := startHub(t)
	client := NewClient(hub, &idleConn{}, "", "")
	hub.Register(client)

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}

	_, open := <-client.send
	for open {
		_, open = <-client.send
	}
	assert.Equal(t, 0, hub.ClientCount())
	assert.ErrorIs(t, hub.Publish(context.Background(), events.MessageTypeConnect, nil), ErrHubStopped)

	late := &idleConn{}
	hub.Register(NewClient(hub, late, "", ""))
	assert.True(t, late.closed)
}

func TestWithKeepalive(t *testing.T) {
	hub := NewHub(nil, WithKeepalive(10*time.Second, 20*time.Second))
	assert.Equal(t, 10*time.Second, hub.pingPeriod)
	assert.Equal(t, 20*time.Second, hub.pongWait)

	hub = NewHub(nil, WithKeepalive(time.Minute, 20*time.Second))
	assert.Equal(t, 18*time.Second, hub.pingPeriod, "ping period must stay below pong wait")
}
