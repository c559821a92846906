package tv

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ayung21/billing-ps-api-sub000/internal/errs"
)

// Outcome classifies how an awaited command resolved.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeFailed
	OutcomeTimedOut
)

// Result is the resolution of one awaited command.
type Result struct {
	Outcome Outcome
	// Status is the raw status string from the agent ("success", "failed",
	// "error"); empty on timeout.
	Status  string
	Message string
	// Reason carries the agent's error detail on failure.
	Reason string
}

// The wire protocol has no per-request id: responses are correlated by
// (device_id, command code) only. Two rapid in-flight commands with the
// same code to the same device would race; callers must Clear the pair
// before issuing a new command. See DESIGN.md.
type pendingKey struct {
	deviceID string
	command  int
}

// Correlator matches outbound commands to inbound agent responses and
// delivers the first of matching-response or timeout to the waiting
// caller. Late responses after a timeout are discarded.
type Correlator struct {
	reg *Registry
	log *zap.Logger

	mu      sync.Mutex
	pending map[pendingKey]chan Result
}

// NewCorrelator creates a correlator resolving channels through reg.
func NewCorrelator(reg *Registry, log *zap.Logger) *Correlator {
	return &Correlator{
		reg:     reg,
		log:     log.With(zap.String("component", "tv_correlator")),
		pending: make(map[pendingKey]chan Result),
	}
}

// Clear drops any stale pending entry for the pair, so a previous
// exchange's unconsumed resolution cannot satisfy a new command.
func (c *Correlator) Clear(deviceID string, command int) {
	c.mu.Lock()
	delete(c.pending, pendingKey{deviceID, command})
	c.mu.Unlock()
}

// Send issues a command to the device's channel. It fails fast with
// ErrDeviceNotConnected when no open channel exists, and with ErrSendFailed
// on a transport write error; after either failure no pending command
// remains registered.
func (c *Correlator) Send(deviceID string, command int, target string) error {
	ch, ok := c.reg.Lookup(deviceID)
	if !ok || ch.Closed() {
		return fmt.Errorf("%w: %s", errs.ErrDeviceNotConnected, deviceID)
	}

	key := pendingKey{deviceID, command}
	c.mu.Lock()
	c.pending[key] = make(chan Result, 1)
	c.mu.Unlock()

	msg := CommandMessage{
		Type:      TypeCommand,
		DeviceID:  deviceID,
		Command:   command,
		Target:    target,
		Timestamp: time.Now().Unix(),
	}
	if err := ch.WriteJSON(msg); err != nil {
		c.Clear(deviceID, command)
		return fmt.Errorf("%w: %v", errs.ErrSendFailed, err)
	}

	c.log.Info("command sent",
		zap.String("tv_id", deviceID),
		zap.Int("command", command),
		zap.String("target", target))
	return nil
}

// Await blocks the calling flow until the matching response arrives or the
// timeout elapses, whichever first. On timeout the pending entry is removed
// under the lock, so a response arriving even 1ms later finds no waiter and
// is discarded without effect.
func (c *Correlator) Await(ctx context.Context, deviceID string, command int, timeout time.Duration) Result {
	key := pendingKey{deviceID, command}
	c.mu.Lock()
	waitCh, ok := c.pending[key]
	c.mu.Unlock()
	if !ok {
		return Result{Outcome: OutcomeTimedOut}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case res := <-waitCh:
		// Resolve removed the pending entry before delivering.
		return res
	case <-timer.C:
	case <-ctx.Done():
	}
	c.Clear(deviceID, command)
	c.log.Warn("command timed out",
		zap.String("tv_id", deviceID),
		zap.Int("command", command),
		zap.Duration("timeout", timeout))
	return Result{Outcome: OutcomeTimedOut}
}

// Resolve delivers an inbound response to the waiter for the exact
// (deviceID, command) pair. A response for a different code resolves
// nothing here; with no matching waiter it is dropped. Returns whether a
// waiter was resolved.
func (c *Correlator) Resolve(deviceID string, command int, status, message, reason string) bool {
	key := pendingKey{deviceID, command}
	c.mu.Lock()
	waitCh, ok := c.pending[key]
	if !ok {
		c.mu.Unlock()
		c.log.Debug("discarding unmatched response",
			zap.String("tv_id", deviceID),
			zap.Int("command", command),
			zap.String("status", status))
		return false
	}
	delete(c.pending, key)
	c.mu.Unlock()

	res := Result{Status: status, Message: message, Reason: reason}
	if status == StatusSuccess {
		res.Outcome = OutcomeSuccess
	} else {
		res.Outcome = OutcomeFailed
	}
	waitCh <- res
	return true
}
