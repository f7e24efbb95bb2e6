package controller

import (
	"context"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
)

func (c *controller) generateTimeBasedId() string {
	return strconv.FormatInt(time.Now().UnixNano(), 36)
}

func (c *controller) writeToConn(ctx context.Context, conn *websocket.Conn, output any) error {
	return conn.WriteJSON(output)
}

// broadcast delivers one message to every given connection. Delivery is
// best-effort per recipient: a failed send is logged and does not abort
// delivery to the rest.
func (c *controller) broadcast(ctx context.Context, conns []*websocket.Conn, output any) {
	for _, conn := range conns {
		if err := c.writeToConn(ctx, conn, output); err != nil {
			c.metrics.IncSendFailures()
			c.logger.WarnContext(ctx, "failed to deliver broadcast message", "error", err)
		}
	}
}

type errorOutput struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (c *controller) writeError(ctx context.Context, conn *websocket.Conn, message string) {
	if err := c.writeToConn(ctx, conn, &errorOutput{Type: "error", Message: message}); err != nil {
		c.logger.WarnContext(ctx, "failed to write error message", "error", err)
	}
}
