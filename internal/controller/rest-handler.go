package controller

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/syncwatch/server/internal/service/room"
	"github.com/syncwatch/server/pkg/rest"
)

func (c *controller) getHealth(w http.ResponseWriter, r *http.Request) {
	if err := rest.WriteJSON(w, http.StatusOK, rest.Envelope{"status": "ok"}); err != nil {
		c.logger.ErrorContext(r.Context(), "failed to write response", "error", err)
	}
}

// getRoom serves a read-only snapshot of a room for late joiners and
// debugging. The live state still only moves over the websocket.
func (c *controller) getRoom(w http.ResponseWriter, r *http.Request) {
	roomId := chi.URLParam(r, "room-id")

	stateResp, err := c.roomService.GetRoomState(r.Context(), roomId)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			if err := rest.WriteJSON(w, http.StatusNotFound, rest.Envelope{"error": "room not found"}); err != nil {
				c.logger.ErrorContext(r.Context(), "failed to write response", "error", err)
			}
			return
		}

		c.logger.ErrorContext(r.Context(), "failed to get room state", "error", err)
		if err := rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "internal server error"}); err != nil {
			c.logger.ErrorContext(r.Context(), "failed to write response", "error", err)
		}
		return
	}

	if err := rest.WriteJSON(w, http.StatusOK, rest.Envelope{
		"room":         stateResp.Room,
		"chat_history": stateResp.ChatHistory,
	}); err != nil {
		c.logger.ErrorContext(r.Context(), "failed to write response", "error", err)
	}
}
