package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/slotter-org/cs-ai-agent/internal/logger"
	"github.com/slotter-org/cs-ai-agent/internal/socket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WsHandler upgrades the connection and joins the client to the events
// channel. The pumps outlive the request, so they get their own context.
func WsHandler(hub *socket.Hub, log *logger.Logger) gin.HandlerFunc {
	wsLog := log.With("handler", "WsHandler")
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			wsLog.Warn("Failed to upgrade to websocket", "error", err)
			return
		}
		ctx, cancel := context.WithCancel(context.Background())
		client := socket.NewClient(conn, hub, cancel, log)
		hub.Subscribe(client, []string{socket.ChannelEvents})

		go client.WriteLoop(ctx)
		go client.ReadLoop(ctx)
	}
}
