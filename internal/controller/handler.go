package controller

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/syncwatch/server/internal/service/room"
	"github.com/syncwatch/server/pkg/ctxlogger"
)

const (
	userIdPrefix = "user_"
	userIdLength = 9
)

// serveWS upgrades the request and serves the connection until it drops. The
// identity assigned here is the member's identity for the whole session.
func (c *controller) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.ErrorContext(r.Context(), "failed to upgrade connection", "error", err)
		return
	}

	userId := userIdPrefix + c.generator.GenerateRandomString(userIdLength)
	if err := c.connRepo.Add(conn, userId); err != nil {
		c.logger.ErrorContext(r.Context(), "failed to register connection", "error", err)
		conn.Close()
		return
	}

	ctx := context.WithValue(context.Background(), userIdCtxKey, userId)
	ctx = ctxlogger.AppendCtx(ctx, slog.String("user_id", userId))
	c.logger.InfoContext(ctx, "connection established", "remote_addr", r.RemoteAddr)

	err = c.wsmux.ServeConn(ctx, conn)

	c.logger.InfoContext(ctx, "connection closed", "reason", err)
	c.disconnect(ctx, userId, conn)
}

// disconnect tears down everything tied to the dropped connection: the
// connection registry entry, the user's membership, and any transfer it
// requested.
func (c *controller) disconnect(ctx context.Context, userId string, conn *websocket.Conn) {
	if err := c.connRepo.RemoveByConn(conn); err != nil {
		c.logger.WarnContext(ctx, "failed to remove connection", "error", err)
	}

	disconnectResp, err := c.roomService.DisconnectMember(ctx, &room.DisconnectMemberParams{UserId: userId})
	if err != nil {
		// not being in a room is the usual case, nothing to announce
		c.logger.DebugContext(ctx, "disconnect cleanup skipped", "error", err)
		return
	}

	if !disconnectResp.RoomDeleted {
		c.broadcast(ctx, disconnectResp.Conns, &participantUpdateOutput{
			Type:         "participant_update",
			RoomId:       disconnectResp.RoomId,
			Participants: disconnectResp.Participants,
		})
	}
}
