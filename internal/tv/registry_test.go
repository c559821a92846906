package tv

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Timings generous enough for CI schedulers while keeping the suite fast.
var quietConfig = RegistryConfig{
	HeartbeatInterval: time.Hour,
	SweepInterval:     time.Hour,
	StaleThreshold:    time.Hour,
}

func TestRegisterReplacesExistingChannel(t *testing.T) {
	reg := testRegistry(quietConfig)

	first := newTestPair(t, "TV1")
	defer first.close()
	second := newTestPair(t, "TV1")
	defer second.close()

	reg.Register(first.ch)
	reg.Register(second.ch)

	got, ok := reg.Lookup("TV1")
	require.True(t, ok)
	assert.Same(t, second.ch, got, "only the newest channel is reachable")
	assert.True(t, first.ch.Closed(), "replaced channel is force-closed")
	assert.False(t, second.ch.Closed())
}

func TestEvictIsIdempotent(t *testing.T) {
	reg := testRegistry(quietConfig)

	reg.Evict("never-registered")

	pair := newTestPair(t, "TV2")
	defer pair.close()
	reg.Register(pair.ch)
	reg.Evict("TV2")
	reg.Evict("TV2")

	_, ok := reg.Lookup("TV2")
	assert.False(t, ok)
}

func TestEvictChannelSparesSuccessor(t *testing.T) {
	reg := testRegistry(quietConfig)

	old := newTestPair(t, "TV3")
	defer old.close()
	replacement := newTestPair(t, "TV3")
	defer replacement.close()

	reg.Register(old.ch)
	reg.Register(replacement.ch)

	// A late close path for the replaced channel must not evict the new one.
	reg.EvictChannel(old.ch)
	got, ok := reg.Lookup("TV3")
	require.True(t, ok)
	assert.Same(t, replacement.ch, got)
}

func TestHeartbeatEvictsSilentChannel(t *testing.T) {
	reg := testRegistry(RegistryConfig{
		HeartbeatInterval: 50 * time.Millisecond,
		SweepInterval:     time.Hour,
		StaleThreshold:    time.Hour,
	})

	pair := newTestPair(t, "TV1")
	defer pair.close()
	// The client never reads, so it never answers pings.
	reg.Register(pair.ch)

	_, ok := reg.Lookup("TV1")
	require.True(t, ok, "channel present right after registration")

	require.Eventually(t, func() bool {
		_, ok := reg.Lookup("TV1")
		return !ok && pair.ch.Closed()
	}, 2*time.Second, 10*time.Millisecond, "silent channel evicted within two heartbeat intervals")
}

func TestHeartbeatKeepsResponsiveChannelAlive(t *testing.T) {
	reg := testRegistry(RegistryConfig{
		HeartbeatInterval: 40 * time.Millisecond,
		SweepInterval:     time.Hour,
		StaleThreshold:    time.Hour,
	})

	pair := newTestPair(t, "TV1")
	defer pair.close()
	drain(pair.ch)          // server processes inbound pongs
	drainClient(pair.client) // client's default ping handler answers pings

	reg.Register(pair.ch)
	time.Sleep(250 * time.Millisecond) // several heartbeat rounds

	got, ok := reg.Lookup("TV1")
	require.True(t, ok)
	assert.False(t, got.Closed())
}

func TestSweeperEvictsStaleChannel(t *testing.T) {
	reg := testRegistry(RegistryConfig{
		HeartbeatInterval: time.Hour, // isolate the sweep path
		SweepInterval:     20 * time.Millisecond,
		StaleThreshold:    60 * time.Millisecond,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go reg.RunSweeper(ctx)

	pair := newTestPair(t, "TV1")
	defer pair.close()
	reg.Register(pair.ch)

	require.Eventually(t, func() bool {
		_, ok := reg.Lookup("TV1")
		return !ok && pair.ch.Closed()
	}, 2*time.Second, 10*time.Millisecond, "idle channel evicted past the staleness threshold")
}

func TestSweeperSparesActiveChannel(t *testing.T) {
	reg := testRegistry(RegistryConfig{
		HeartbeatInterval: time.Hour,
		SweepInterval:     20 * time.Millisecond,
		StaleThreshold:    80 * time.Millisecond,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go reg.RunSweeper(ctx)

	pair := newTestPair(t, "TV1")
	defer pair.close()
	reg.Register(pair.ch)

	// Any inbound activity refreshes liveness, not only heartbeat acks.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(30 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				pair.ch.Touch()
			}
		}
	}()

	time.Sleep(300 * time.Millisecond)
	_, ok := reg.Lookup("TV1")
	assert.True(t, ok, "channel with recent activity survives the sweep")
}

func TestCloseAll(t *testing.T) {
	reg := testRegistry(quietConfig)

	a := newTestPair(t, "TV1")
	defer a.close()
	b := newTestPair(t, "TV2")
	defer b.close()
	reg.Register(a.ch)
	reg.Register(b.ch)

	reg.CloseAll()

	assert.True(t, a.ch.Closed())
	assert.True(t, b.ch.Closed())
	assert.Empty(t, reg.All())
}

func TestChannelCloseIsIdempotent(t *testing.T) {
	pair := newTestPair(t, "TV1")
	defer pair.close()

	pair.ch.Close(1000, "first")
	pair.ch.Close(1000, "second") // must not panic or block
	assert.True(t, pair.ch.Closed())
}
