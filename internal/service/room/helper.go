package room

import (
	"context"

	"github.com/gorilla/websocket"
)

// getConnsByRoomId resolves the live connections of a room's participants.
// Exclusion is by identity, not connection object, and members without a
// live connection are skipped: broadcast delivery is best-effort.
func (s *service) getConnsByRoomId(ctx context.Context, roomId, excludeId string) ([]*websocket.Conn, error) {
	participants, err := s.roomRepo.GetParticipants(ctx, roomId)
	if err != nil {
		return nil, err
	}

	return s.connsOf(participants, excludeId), nil
}

func (s *service) connsOf(participants []string, excludeId string) []*websocket.Conn {
	conns := make([]*websocket.Conn, 0, len(participants))
	for _, userId := range participants {
		if userId == excludeId {
			continue
		}

		conn, err := s.connRepo.GetConn(userId)
		if err != nil {
			continue
		}

		conns = append(conns, conn)
	}

	return conns
}
