package routes

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/congo-pay/xrp_wallet/internal/notification"
)

const notificationWriteWait = 5 * time.Second

// RegisterNotificationRoutes streams payment notifications to websocket
// clients. Clients only receive; anything they send is discarded.
func RegisterNotificationRoutes(r fiber.Router, broker *notification.Broker, logger *slog.Logger) {
	r.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	r.Get("/ws/notifications", websocket.New(notificationStream(broker, logger)))
}

func notificationStream(broker *notification.Broker, logger *slog.Logger) func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		messages, cancel := broker.Subscribe()
		defer cancel()

		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-closed:
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				payload, err := json.Marshal(msg)
				if err != nil {
					logger.Warn("encode notification", "error", err)
					continue
				}
				_ = conn.SetWriteDeadline(time.Now().Add(notificationWriteWait))
				if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
					logger.Debug("notification stream closed", "error", err)
					return
				}
			}
		}
	}
}
