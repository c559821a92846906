package handler

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ayung21/billing-ps-api-sub000/internal/tv"
)

func newWSTestServer(t *testing.T) (*httptest.Server, *tv.Registry, *tv.Correlator) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := tv.NewRegistry(tv.RegistryConfig{
		HeartbeatInterval: time.Hour,
		SweepInterval:     time.Hour,
		StaleThreshold:    time.Hour,
	}, zap.NewNop())
	corr := tv.NewCorrelator(reg, zap.NewNop())
	h := NewTVSocketHandler(reg, corr, 1024, 1024, 65536, zap.NewNop())

	r := gin.New()
	r.GET("/ws/tv", h.ServeWS)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, reg, corr
}

func wsURL(srv *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/tv" + query
}

func TestConnectionWithoutTVIDIsRejected(t *testing.T) {
	srv, reg, _ := newWSTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), nil)
	require.NoError(t, err)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.ClosePolicyViolation, closeErr.Code)

	assert.Empty(t, reg.All(), "rejected connection is never registered")
}

func TestAgentReceivesConnectedGreeting(t *testing.T) {
	srv, reg, _ := newWSTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "?tv_id=TV1"), nil)
	require.NoError(t, err)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg tv.ConnectedMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, tv.TypeConnected, msg.Type)
	assert.Equal(t, "TV1", msg.DeviceID)

	require.Eventually(t, func() bool {
		_, ok := reg.Lookup("TV1")
		return ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAgentPingIsAnsweredWithPong(t *testing.T) {
	srv, _, _ := newWSTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "?tv_id=TV1"), nil)
	require.NoError(t, err)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage() // connected greeting
	require.NoError(t, err)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping", "device_id": "TV1"}))

	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var pong tv.PongMessage
	require.NoError(t, json.Unmarshal(data, &pong))
	assert.Equal(t, tv.TypePong, pong.Type)
	assert.Equal(t, "TV1", pong.DeviceID)
}

// End-to-end correlation: command goes out over the channel, the agent's
// response resolves the waiting caller.
func TestResponseResolvesPendingCommand(t *testing.T) {
	srv, _, corr := newWSTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "?tv_id=TV1"), nil)
	require.NoError(t, err)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage() // connected greeting
	require.NoError(t, err)

	require.NoError(t, corr.Send("TV1", tv.CmdPowerOn, "PS-01"))

	// Agent side: read the command, answer with a numeric-string code.
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var cmdMsg tv.CommandMessage
	require.NoError(t, json.Unmarshal(data, &cmdMsg))
	require.Equal(t, tv.CmdPowerOn, cmdMsg.Command)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":    "response",
		"command": "224",
		"status":  "success",
		"message": "tv powered on",
	}))

	res := corr.Await(context.Background(), "TV1", tv.CmdPowerOn, 2*time.Second)
	assert.Equal(t, tv.OutcomeSuccess, res.Outcome)
	assert.Equal(t, "tv powered on", res.Message)
}

func TestMalformedMessageDoesNotCloseChannel(t *testing.T) {
	srv, reg, _ := newWSTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "?tv_id=TV1"), nil)
	require.NoError(t, err)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage() // connected greeting
	require.NoError(t, err)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("!! not json !!")))

	// The channel must still answer an application ping afterwards.
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping", "device_id": "TV1"}))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var pong tv.PongMessage
	require.NoError(t, json.Unmarshal(data, &pong))
	assert.Equal(t, tv.TypePong, pong.Type)

	ch, ok := reg.Lookup("TV1")
	require.True(t, ok)
	assert.False(t, ch.Closed())
}

// Two connections for the same tv_id in quick succession: only the second
// stays reachable; the first observes a close.
func TestReconnectReplacesPreviousConnection(t *testing.T) {
	srv, reg, _ := newWSTestServer(t)

	first, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "?tv_id=TV1"), nil)
	require.NoError(t, err)
	defer first.Close()
	_ = first.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = first.ReadMessage() // greeting
	require.NoError(t, err)

	second, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "?tv_id=TV1"), nil)
	require.NoError(t, err)
	defer second.Close()
	_ = second.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = second.ReadMessage() // greeting
	require.NoError(t, err)

	// The first connection observes the forced close.
	_, _, err = first.ReadMessage()
	require.Error(t, err)

	require.Eventually(t, func() bool {
		ch, ok := reg.Lookup("TV1")
		return ok && !ch.Closed()
	}, 2*time.Second, 10*time.Millisecond, "replacement channel reachable and open")
}
