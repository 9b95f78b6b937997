package ipc

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// NewHTTPHandler exposes the host over HTTP:
//
//	GET /ws            websocket session, one JSON request per text frame
//	GET /healthz       liveness probe
//	GET /api/monitors  read-only registry snapshot
func NewHTTPHandler(h *Handler, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = h.logger
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "store": h.store.Kind()})
	})

	router.GET("/api/monitors", func(c *gin.Context) {
		monitors, err := h.Snapshot()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "code": CodeStoreFailure})
			return
		}
		if monitors == nil {
			monitors = []Monitor{}
		}
		c.JSON(http.StatusOK, MonitorsData{Monitors: monitors})
	})

	router.GET("/ws", func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", "remote", c.Request.RemoteAddr, "err", err)
			return
		}
		serveWebsocket(conn, h, logger)
	})

	return router
}

func serveWebsocket(conn *websocket.Conn, h *Handler, logger *slog.Logger) {
	defer conn.Close()
	conn.SetReadLimit(maxRequestBytes)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				logger.Warn("websocket read error", "err", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, h.HandleBytes(data)); err != nil {
			logger.Warn("failed to send websocket response", "err", err)
			return
		}
	}
}
