package tv

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// testPair is a real client/server WebSocket pair with the server side
// wrapped in a Channel.
type testPair struct {
	ch     *Channel
	client *websocket.Conn
	srv    *httptest.Server
}

func (p *testPair) close() {
	_ = p.client.Close()
	p.srv.Close()
}

// newTestPair dials a throwaway WebSocket server and returns the server
// side as a Channel for deviceID.
func newTestPair(t *testing.T, deviceID string) *testPair {
	t.Helper()
	upgrader := websocket.Upgrader{}
	chans := make(chan *Channel, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		chans <- NewChannel(deviceID, conn, zap.NewNop())
	}))

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	select {
	case ch := <-chans:
		return &testPair{ch: ch, client: client, srv: srv}
	case <-time.After(2 * time.Second):
		t.Fatal("server side of websocket pair never arrived")
		return nil
	}
}

// drain reads the server side of the channel until it closes, so inbound
// control frames (pongs) are processed.
func drain(ch *Channel) {
	go func() {
		for {
			if _, err := ch.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// drainClient reads the client side until close; gorilla's default ping
// handler answers server pings with pongs during these reads.
func drainClient(conn *websocket.Conn) {
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func testRegistry(cfg RegistryConfig) *Registry {
	return NewRegistry(cfg, zap.NewNop())
}
