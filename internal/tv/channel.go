package tv

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

// Channel is one live connection to a TV agent. It serializes writes,
// tracks liveness, and closes exactly once no matter which path triggers
// the close (explicit close, transport error, eviction, staleness sweep).
type Channel struct {
	deviceID   string
	remoteAddr string
	conn       *websocket.Conn
	log        *zap.Logger

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}

	mu          sync.Mutex
	lastSeen    time.Time
	awaitingAck bool
}

// NewChannel wraps an upgraded connection for the given device. The pong
// handler acks the server-initiated heartbeat and refreshes liveness.
func NewChannel(deviceID string, conn *websocket.Conn, log *zap.Logger) *Channel {
	ch := &Channel{
		deviceID:   deviceID,
		remoteAddr: conn.RemoteAddr().String(),
		conn:       conn,
		log:        log,
		done:       make(chan struct{}),
		lastSeen:   time.Now(),
	}
	conn.SetPongHandler(func(string) error {
		ch.ackHeartbeat()
		return nil
	})
	return ch
}

func (ch *Channel) DeviceID() string   { return ch.deviceID }
func (ch *Channel) RemoteAddr() string { return ch.remoteAddr }

// Done is closed when the channel closes, stopping its heartbeat loop.
func (ch *Channel) Done() <-chan struct{} { return ch.done }

// Closed reports whether the channel has been closed. Lookup callers must
// check this before use: an evicted channel object may still be reachable
// briefly while its owner finishes tearing it down.
func (ch *Channel) Closed() bool {
	select {
	case <-ch.done:
		return true
	default:
		return false
	}
}

// Touch refreshes the liveness timestamp. Called for every inbound message,
// not only heartbeat acks.
func (ch *Channel) Touch() {
	ch.mu.Lock()
	ch.lastSeen = time.Now()
	ch.mu.Unlock()
}

// LastSeen returns the time of the most recent inbound activity.
func (ch *Channel) LastSeen() time.Time {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.lastSeen
}

func (ch *Channel) ackHeartbeat() {
	ch.mu.Lock()
	ch.awaitingAck = false
	ch.lastSeen = time.Now()
	ch.mu.Unlock()
}

// AwaitingAck reports whether a heartbeat ping is still unacknowledged.
func (ch *Channel) AwaitingAck() bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.awaitingAck
}

// Ping sends a transport-level heartbeat and marks the channel as awaiting
// its ack.
func (ch *Channel) Ping() error {
	ch.mu.Lock()
	ch.awaitingAck = true
	ch.mu.Unlock()

	ch.writeMu.Lock()
	defer ch.writeMu.Unlock()
	return ch.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// WriteJSON sends one message to the agent. Safe for concurrent use.
func (ch *Channel) WriteJSON(v interface{}) error {
	ch.writeMu.Lock()
	defer ch.writeMu.Unlock()
	_ = ch.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return ch.conn.WriteJSON(v)
}

// ReadMessage blocks for the next inbound message.
func (ch *Channel) ReadMessage() ([]byte, error) {
	_, data, err := ch.conn.ReadMessage()
	return data, err
}

// SetReadLimit caps the inbound message size.
func (ch *Channel) SetReadLimit(n int64) {
	if n > 0 {
		ch.conn.SetReadLimit(n)
	}
}

// Close sends a close frame with the given code and tears down the
// connection. Idempotent: later calls from other close paths are no-ops.
func (ch *Channel) Close(code int, reason string) {
	ch.closeOnce.Do(func() {
		close(ch.done)
		msg := websocket.FormatCloseMessage(code, reason)
		ch.writeMu.Lock()
		_ = ch.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		ch.writeMu.Unlock()
		_ = ch.conn.Close()
		ch.log.Debug("tv channel closed",
			zap.String("tv_id", ch.deviceID),
			zap.Int("code", code),
			zap.String("reason", reason))
	})
}
