package controller

import (
	"context"
	"errors"

	"github.com/gorilla/websocket"
	"github.com/syncwatch/server/internal/service/room"
	"github.com/syncwatch/server/pkg/wsrouter"
)

func (c *controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()

	mux.Use(c.requestIdWSMw)
	mux.Use(c.loggerWSMw)

	wsrouter.Handle(mux, "handshake", c.handleHandshake)
	wsrouter.Handle(mux, "ping", c.handlePing)
	wsrouter.Handle(mux, "create_room", c.handleCreateRoom)
	wsrouter.Handle(mux, "join_room", c.handleJoinRoom)
	wsrouter.Handle(mux, "leave_room", c.handleLeaveRoom)
	wsrouter.Handle(mux, "sync_playback", c.handleSyncPlayback)
	wsrouter.Handle(mux, "sync_request", c.handleSyncRequest)
	wsrouter.Handle(mux, "chat_message", c.handleChatMessage)
	wsrouter.Handle(mux, "video_share_request", c.handleVideoShareRequest)
	wsrouter.HandleRaw(mux, "video_chunk", c.handleVideoChunk)
	wsrouter.Handle(mux, "video_transfer_complete", c.handleVideoTransferComplete)
	wsrouter.HandleRaw(mux, "video_share_response", c.handleVideoShareResponse)

	mux.OnMalformed = func(ctx context.Context, conn *websocket.Conn, err error) {
		c.logger.DebugContext(ctx, "malformed message", "error", err)
		c.writeError(ctx, conn, "invalid message format")
	}
	mux.OnUnknownType = func(ctx context.Context, conn *websocket.Conn, messageType string) {
		c.logger.DebugContext(ctx, "unknown message type", "message_type", messageType)
		c.writeError(ctx, conn, "unknown message type")
	}
	mux.OnError = func(ctx context.Context, conn *websocket.Conn, err error) {
		c.writeError(ctx, conn, c.errorMessage(ctx, err))
	}

	return mux
}

// errorMessage maps a handler error to the message put on the wire. Service
// errors keep their wording; anything unexpected is logged and masked.
func (c *controller) errorMessage(ctx context.Context, err error) string {
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		return "room not found"
	case errors.Is(err, room.ErrNotAMember):
		return "not a room member"
	case errors.Is(err, room.ErrTransferAlreadyActive):
		return "transfer already active"
	case errors.Is(err, room.ErrHostUnavailable):
		return "host unavailable"
	default:
		c.logger.ErrorContext(ctx, "handler failed", "error", err)
		return "internal server error"
	}
}
