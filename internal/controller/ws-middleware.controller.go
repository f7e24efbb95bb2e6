package controller

import (
	"context"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/syncwatch/server/pkg/ctxlogger"
	"github.com/syncwatch/server/pkg/wsrouter"
)

// requestIdWSMw tags every inbound frame with its own id for log correlation.
func (c *controller) requestIdWSMw(next wsrouter.HandlerFunc[any]) wsrouter.HandlerFunc[any] {
	return func(ctx context.Context, conn *websocket.Conn, input any) error {
		ctx = ctxlogger.AppendCtx(ctx, slog.String("request_id", c.generateTimeBasedId()))
		return next(ctx, conn, input)
	}
}

func (c *controller) loggerWSMw(next wsrouter.HandlerFunc[any]) wsrouter.HandlerFunc[any] {
	return func(ctx context.Context, conn *websocket.Conn, input any) error {
		messageType := wsrouter.GetMessageTypeFromCtx(ctx)
		start := time.Now()

		err := next(ctx, conn, input)

		c.logger.DebugContext(ctx, "handled message",
			"message_type", messageType,
			"elapsed_time", time.Since(start).String(),
		)

		return err
	}
}
