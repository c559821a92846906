package tv

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Message types exchanged with TV agents. One JSON object per WebSocket
// text message.
const (
	TypeConnected = "connected"
	TypePing      = "ping"
	TypePong      = "pong"
	TypeCommand   = "command"
	TypeResponse  = "response"
	TypeError     = "error"
)

// Response status values reported by the agent.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusError   = "error"
)

// CmdPowerOn is the agent command code to power on the TV.
const CmdPowerOn = 224

// ConnectedMessage greets the agent right after registration.
type ConnectedMessage struct {
	Type      string `json:"type"`
	DeviceID  string `json:"device_id"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// NewConnectedMessage builds the greeting for a freshly registered device.
func NewConnectedMessage(deviceID string) ConnectedMessage {
	return ConnectedMessage{
		Type:      TypeConnected,
		DeviceID:  deviceID,
		Message:   "connected to billing server",
		Timestamp: time.Now().Unix(),
	}
}

// PongMessage answers an application-level ping from the agent.
type PongMessage struct {
	Type      string `json:"type"`
	DeviceID  string `json:"device_id"`
	Timestamp int64  `json:"timestamp"`
}

// NewPongMessage builds the reply to an agent-initiated ping.
func NewPongMessage(deviceID string) PongMessage {
	return PongMessage{Type: TypePong, DeviceID: deviceID, Timestamp: time.Now().Unix()}
}

// CommandMessage instructs the agent to execute a command code against a
// target (e.g. the rental unit label shown on screen).
type CommandMessage struct {
	Type      string `json:"type"`
	DeviceID  string `json:"device_id"`
	Command   int    `json:"command"`
	Target    string `json:"target"`
	Timestamp int64  `json:"timestamp"`
}

// Inbound is a message received from a TV agent. The command field is kept
// raw because agents send it either as a JSON number or a numeric string.
type Inbound struct {
	Type     string          `json:"type"`
	DeviceID string          `json:"device_id"`
	Command  json.RawMessage `json:"command"`
	Status   string          `json:"status"`
	Message  string          `json:"message"`
	Error    string          `json:"error"`
}

// ParseInbound decodes one agent message. A missing type is an error; the
// caller logs and discards without closing the channel.
func ParseInbound(data []byte) (*Inbound, error) {
	var m Inbound
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse agent message: %w", err)
	}
	if m.Type == "" {
		return nil, fmt.Errorf("agent message missing type")
	}
	return &m, nil
}

// CommandCode coerces the raw command field to an integer. Both sides of the
// protocol treat the code as an int regardless of the JSON encoding used.
func (m *Inbound) CommandCode() (int, bool) {
	raw := strings.TrimSpace(string(m.Command))
	if raw == "" || raw == "null" {
		return 0, false
	}
	raw = strings.Trim(raw, `"`)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}
