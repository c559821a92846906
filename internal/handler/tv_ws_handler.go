package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ayung21/billing-ps-api-sub000/internal/tv"
)

// TVSocketHandler accepts TV agent connections on /ws/tv and runs their
// read loop: liveness refresh, application ping/pong, and routing of
// command responses into the correlator.
type TVSocketHandler struct {
	registry   *tv.Registry
	correlator *tv.Correlator
	upgrader   websocket.Upgrader
	readLimit  int64
	logger     *zap.Logger
}

// NewTVSocketHandler creates the TV channel endpoint handler.
func NewTVSocketHandler(reg *tv.Registry, corr *tv.Correlator, readBuf, writeBuf int, readLimit int64, logger *zap.Logger) *TVSocketHandler {
	return &TVSocketHandler{
		registry:   reg,
		correlator: corr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  readBuf,
			WriteBufferSize: writeBuf,
			// Agents connect from LAN TVs with no Origin header.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		readLimit: readLimit,
		logger:    logger,
	}
}

// ServeWS upgrades the request and registers the agent's channel. A
// connection without the tv_id query parameter is closed with a policy
// violation before registration.
func (h *TVSocketHandler) ServeWS(c *gin.Context) {
	tvID := c.Query("tv_id")

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	if tvID == "" {
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "tv_id query parameter required")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(5*time.Second))
		_ = conn.Close()
		h.logger.Warn("tv connection rejected: missing tv_id",
			zap.String("addr", conn.RemoteAddr().String()))
		return
	}

	ch := tv.NewChannel(tvID, conn, h.logger)
	ch.SetReadLimit(h.readLimit)
	h.registry.Register(ch)

	if err := ch.WriteJSON(tv.NewConnectedMessage(tvID)); err != nil {
		h.logger.Warn("failed to send connected greeting",
			zap.String("tv_id", tvID), zap.Error(err))
	}

	h.readLoop(ch)
}

// readLoop processes inbound messages in arrival order until the transport
// errors or the channel is closed. Unparseable messages are logged and
// discarded without closing the channel.
func (h *TVSocketHandler) readLoop(ch *tv.Channel) {
	defer func() {
		ch.Close(websocket.CloseNormalClosure, "read loop ended")
		h.registry.EvictChannel(ch)
	}()
	for {
		data, err := ch.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("tv read error",
					zap.String("tv_id", ch.DeviceID()), zap.Error(err))
			}
			return
		}
		ch.Touch()

		msg, err := tv.ParseInbound(data)
		if err != nil {
			h.logger.Warn("discarding malformed tv message",
				zap.String("tv_id", ch.DeviceID()), zap.Error(err))
			continue
		}

		switch msg.Type {
		case tv.TypePing:
			if err := ch.WriteJSON(tv.NewPongMessage(ch.DeviceID())); err != nil {
				h.logger.Warn("pong send failed",
					zap.String("tv_id", ch.DeviceID()), zap.Error(err))
			}
		case tv.TypeResponse, tv.TypeError:
			code, ok := msg.CommandCode()
			if !ok {
				h.logger.Warn("response without usable command code",
					zap.String("tv_id", ch.DeviceID()))
				continue
			}
			h.correlator.Resolve(ch.DeviceID(), code, msg.Status, msg.Message, msg.Error)
		default:
			h.logger.Debug("ignoring tv message",
				zap.String("tv_id", ch.DeviceID()),
				zap.String("type", msg.Type))
		}
	}
}
