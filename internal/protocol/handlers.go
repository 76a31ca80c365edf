package protocol

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes exposes the binary telemetry protocol on a websocket
// endpoint. Every binary websocket message carries exactly one frame.
func RegisterRoutes(r fiber.Router, deps Deps, settings Settings) {
	idleTimeout := settings.PingInterval + settings.PongTimeout

	r.Get("/ws", websocket.New(func(c *websocket.Conn) {
		sess := NewSession(deps, settings)

		for {
			if idleTimeout > 0 {
				_ = c.SetReadDeadline(time.Now().Add(idleTimeout))
			}
			msgType, msg, err := c.ReadMessage()
			if err != nil {
				return
			}
			if msgType != websocket.BinaryMessage {
				continue
			}

			out, closeErr := sess.HandleMessage(context.Background(), msg)
			for _, reply := range out {
				if err := c.WriteMessage(websocket.BinaryMessage, reply); err != nil {
					return
				}
			}
			if closeErr != nil {
				_ = c.WriteMessage(websocket.CloseMessage, closePayload(closeErr))
				return
			}
		}
	}))
}

func closePayload(ce *CloseError) []byte {
	buf := make([]byte, 2+len(ce.Reason))
	binary.BigEndian.PutUint16(buf, uint16(ce.Code))
	copy(buf[2:], ce.Reason)
	return buf
}
