package room

import (
	"context"
	"errors"

	"github.com/gorilla/websocket"
	repo "github.com/syncwatch/server/internal/repository/room"
)

type SyncPlaybackParams struct {
	RoomId     string
	Position   int
	IsPlaying  bool
	FromUserId string
}

type SyncPlaybackResponse struct {
	Playback   Playback
	FromUserId string
	Conns      []*websocket.Conn
}

// SyncPlayback overwrites the room's playback cell wholesale. Last writer
// wins: there is no ordering or version check against concurrent updates.
func (s *service) SyncPlayback(ctx context.Context, params *SyncPlaybackParams) (SyncPlaybackResponse, error) {
	if err := s.roomRepo.UpdatePlayback(ctx, &repo.UpdatePlaybackParams{
		RoomId:    params.RoomId,
		Position:  params.Position,
		IsPlaying: params.IsPlaying,
	}); err != nil {
		if errors.Is(err, repo.ErrRoomNotFound) {
			return SyncPlaybackResponse{}, ErrRoomNotFound
		}
		return SyncPlaybackResponse{}, err
	}

	conns, err := s.getConnsByRoomId(ctx, params.RoomId, params.FromUserId)
	if err != nil {
		return SyncPlaybackResponse{}, err
	}

	s.logger.DebugContext(ctx, "playback synced",
		"room_id", params.RoomId,
		"position", params.Position,
		"is_playing", params.IsPlaying,
	)

	return SyncPlaybackResponse{
		Playback:   Playback{Position: params.Position, IsPlaying: params.IsPlaying},
		FromUserId: params.FromUserId,
		Conns:      conns,
	}, nil
}

// GetPlayback is the pull variant: late joiners and reconnecters recover
// state from it instead of replaying history.
func (s *service) GetPlayback(ctx context.Context, roomId string) (Playback, error) {
	playback, err := s.roomRepo.GetPlayback(ctx, roomId)
	if err != nil {
		if errors.Is(err, repo.ErrRoomNotFound) {
			return Playback{}, ErrRoomNotFound
		}
		return Playback{}, err
	}

	return Playback(playback), nil
}
