package tv

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInboundResponse(t *testing.T) {
	raw := `{"type":"response","command":224,"status":"success","message":"tv on"}`
	msg, err := ParseInbound([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, TypeResponse, msg.Type)
	assert.Equal(t, StatusSuccess, msg.Status)

	code, ok := msg.CommandCode()
	require.True(t, ok)
	assert.Equal(t, CmdPowerOn, code)
}

func TestCommandCodeCoercesNumericString(t *testing.T) {
	msg, err := ParseInbound([]byte(`{"type":"response","command":"224","status":"failed","error":"busy"}`))
	require.NoError(t, err)
	code, ok := msg.CommandCode()
	require.True(t, ok)
	assert.Equal(t, 224, code)
	assert.Equal(t, "busy", msg.Error)
}

func TestCommandCodeMissingOrGarbage(t *testing.T) {
	msg, err := ParseInbound([]byte(`{"type":"response","status":"success"}`))
	require.NoError(t, err)
	_, ok := msg.CommandCode()
	assert.False(t, ok)

	msg, err = ParseInbound([]byte(`{"type":"response","command":"on","status":"success"}`))
	require.NoError(t, err)
	_, ok = msg.CommandCode()
	assert.False(t, ok)
}

func TestParseInboundRejectsGarbage(t *testing.T) {
	_, err := ParseInbound([]byte(`not json at all`))
	assert.Error(t, err)

	_, err = ParseInbound([]byte(`{"device_id":"TV1"}`))
	assert.Error(t, err, "message without type is rejected")
}

func TestCommandMessageWireShape(t *testing.T) {
	msg := CommandMessage{
		Type:      TypeCommand,
		DeviceID:  "TV1",
		Command:   CmdPowerOn,
		Target:    "PS-01",
		Timestamp: 1700000000,
	}
	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "command", decoded["type"])
	assert.Equal(t, float64(224), decoded["command"], "command must be a JSON integer")
	assert.Equal(t, "PS-01", decoded["target"])
}
