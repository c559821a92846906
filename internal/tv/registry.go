package tv

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// RegistryConfig carries the liveness timings for registered channels.
type RegistryConfig struct {
	// HeartbeatInterval is the period between server-initiated pings. A
	// channel that has not acked by the time the next ping is due is
	// considered dead.
	HeartbeatInterval time.Duration
	// SweepInterval is the period of the staleness sweep.
	SweepInterval time.Duration
	// StaleThreshold evicts any channel with no inbound activity for this
	// long, as a backstop for the heartbeat loop.
	StaleThreshold time.Duration
}

// Registry tracks at most one live channel per TV id. A reconnecting TV
// always wins over a stale handle: registering an id force-closes and
// evicts any previous entry, never rejects the new one.
type Registry struct {
	cfg RegistryConfig
	log *zap.Logger

	mu       sync.Mutex
	channels map[string]*Channel
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg RegistryConfig, log *zap.Logger) *Registry {
	return &Registry{
		cfg:      cfg,
		log:      log.With(zap.String("component", "tv_registry")),
		channels: make(map[string]*Channel),
	}
}

// Register stores ch under its device id, evicting and force-closing any
// previous channel for that id, and starts the heartbeat loop for ch.
func (r *Registry) Register(ch *Channel) {
	id := ch.DeviceID()
	r.mu.Lock()
	old := r.channels[id]
	r.channels[id] = ch
	r.mu.Unlock()

	if old != nil {
		old.Close(websocket.ClosePolicyViolation, "replaced by new connection")
		r.log.Info("evicted stale tv channel on reconnect",
			zap.String("tv_id", id),
			zap.String("old_addr", old.RemoteAddr()),
			zap.String("new_addr", ch.RemoteAddr()))
	}
	r.log.Info("tv channel registered",
		zap.String("tv_id", id),
		zap.String("addr", ch.RemoteAddr()))

	go r.heartbeat(ch)
}

// Lookup returns the channel for a TV id. Callers must re-check
// ch.Closed() before use.
func (r *Registry) Lookup(id string) (*Channel, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.channels[id]
	return ch, ok
}

// Evict removes the entry for id. Evicting an absent id is a no-op.
func (r *Registry) Evict(id string) {
	r.mu.Lock()
	delete(r.channels, id)
	r.mu.Unlock()
}

// EvictChannel removes the entry only if it still maps to ch, so a close
// path for an already-replaced channel cannot evict its successor.
func (r *Registry) EvictChannel(ch *Channel) {
	r.mu.Lock()
	if r.channels[ch.DeviceID()] == ch {
		delete(r.channels, ch.DeviceID())
	}
	r.mu.Unlock()
}

// All returns a snapshot of the registered channels, for bulk shutdown.
func (r *Registry) All() []*Channel {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Channel, 0, len(r.channels))
	for _, ch := range r.channels {
		out = append(out, ch)
	}
	return out
}

// CloseAll force-closes every registered channel with a normal-closure
// frame. Used on server shutdown.
func (r *Registry) CloseAll() {
	for _, ch := range r.All() {
		ch.Close(websocket.CloseNormalClosure, "server shutting down")
		r.EvictChannel(ch)
	}
}

// heartbeat pings ch every HeartbeatInterval. If the previous ping was not
// acked when the next tick fires, the channel is dead: close and evict.
func (r *Registry) heartbeat(ch *Channel) {
	t := time.NewTicker(r.cfg.HeartbeatInterval)
	defer t.Stop()
	for {
		select {
		case <-ch.Done():
			return
		case <-t.C:
			if ch.AwaitingAck() {
				r.log.Warn("tv missed heartbeat ack, evicting",
					zap.String("tv_id", ch.DeviceID()))
				ch.Close(websocket.CloseGoingAway, "heartbeat timeout")
				r.EvictChannel(ch)
				return
			}
			if err := ch.Ping(); err != nil {
				r.log.Warn("heartbeat ping failed, evicting",
					zap.String("tv_id", ch.DeviceID()),
					zap.Error(err))
				ch.Close(websocket.CloseGoingAway, "heartbeat send failed")
				r.EvictChannel(ch)
				return
			}
		}
	}
}

// RunSweeper periodically evicts channels idle beyond StaleThreshold. This
// backstops the heartbeat loop: any inbound application message refreshes
// liveness, not only heartbeat acks.
func (r *Registry) RunSweeper(ctx context.Context) {
	t := time.NewTicker(r.cfg.SweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.sweep()
		}
	}
}

func (r *Registry) sweep() {
	for _, ch := range r.All() {
		idle := time.Since(ch.LastSeen())
		if idle > r.cfg.StaleThreshold {
			r.log.Warn("evicting stale tv channel",
				zap.String("tv_id", ch.DeviceID()),
				zap.Duration("idle", idle))
			ch.Close(websocket.CloseGoingAway, "stale connection")
			r.EvictChannel(ch)
		}
	}
}
