package live

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes exposes the live telemetry feed for a vehicle as a
// JSON-over-websocket stream.
func RegisterRoutes(r fiber.Router, hub *Hub) {
	r.Get("/ws/:vehicleID", websocket.New(func(c *websocket.Conn) {
		vehicleID := c.Params("vehicleID")
		w := hub.Watch(vehicleID)

		done := make(chan struct{})
		go func() {
			for msg := range w.Send {
				if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
					break
				}
			}
			close(done)
		}()

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}

		// Unwatch closes the send channel, which lets the writer drain
		// and exit.
		hub.Unwatch(w)
		<-done
	}))
}
