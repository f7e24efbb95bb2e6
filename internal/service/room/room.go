package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
	repo "github.com/syncwatch/server/internal/repository/room"
)

const (
	roomIdPrefix = "room_"
	roomIdLength = 6
)

// LeftRoom describes a membership dissolved as a side effect of the member
// moving to another room, so the caller can notify the remaining members.
type LeftRoom struct {
	RoomId       string
	Participants []string
	Conns        []*websocket.Conn
	RoomDeleted  bool
}

type CreateRoomParams struct {
	Video  string
	UserId string
}

type CreateRoomResponse struct {
	Room RoomState
	Left *LeftRoom
}

func (s *service) CreateRoom(ctx context.Context, params *CreateRoomParams) (CreateRoomResponse, error) {
	left, err := s.leaveCurrentRoom(ctx, params.UserId, "")
	if err != nil {
		return CreateRoomResponse{}, err
	}

	var roomId string
	for {
		roomId = roomIdPrefix + s.generator.GenerateRandomString(roomIdLength)
		err := s.roomRepo.CreateRoom(ctx, &repo.CreateRoomParams{
			RoomId:    roomId,
			Video:     params.Video,
			CreatorId: params.UserId,
		})
		if err == nil {
			break
		}
		if !errors.Is(err, repo.ErrRoomAlreadyExists) {
			return CreateRoomResponse{}, fmt.Errorf("failed to create room: %w", err)
		}
	}

	s.metrics.IncRoomsCreated()
	s.logger.InfoContext(ctx, "room created", "room_id", roomId, "creator_id", params.UserId)

	return CreateRoomResponse{
		Room: RoomState{
			RoomId:       roomId,
			Video:        params.Video,
			Participants: []string{params.UserId},
			Playback:     Playback{Position: 0, IsPlaying: false},
		},
		Left: left,
	}, nil
}

type JoinRoomParams struct {
	RoomId string
	UserId string
}

type JoinRoomResponse struct {
	Room RoomState
	// Rejoined reports an idempotent rejoin: the member was already on the
	// participant list, so no participant_update broadcast is owed.
	Rejoined bool
	Conns    []*websocket.Conn
	Left     *LeftRoom
}

func (s *service) JoinRoom(ctx context.Context, params *JoinRoomParams) (JoinRoomResponse, error) {
	left, err := s.leaveCurrentRoom(ctx, params.UserId, params.RoomId)
	if err != nil {
		return JoinRoomResponse{}, err
	}

	added, err := s.roomRepo.AddMemberToList(ctx, &repo.AddMemberToListParams{
		RoomId:   params.RoomId,
		MemberId: params.UserId,
	})
	if err != nil {
		if errors.Is(err, repo.ErrRoomNotFound) {
			return JoinRoomResponse{}, ErrRoomNotFound
		}
		return JoinRoomResponse{}, err
	}

	state, err := s.roomRepo.GetRoomState(ctx, params.RoomId)
	if err != nil {
		return JoinRoomResponse{}, err
	}

	resp := JoinRoomResponse{
		Room: RoomState{
			RoomId:       params.RoomId,
			Video:        state.Video,
			Participants: state.Participants,
			Playback:     Playback(state.Playback),
		},
		Rejoined: !added,
		Left:     left,
	}
	if added {
		resp.Conns = s.connsOf(state.Participants, params.UserId)
		s.logger.InfoContext(ctx, "member joined room", "room_id", params.RoomId, "user_id", params.UserId)
	}

	return resp, nil
}

type LeaveRoomParams struct {
	RoomId string
	UserId string
}

type LeaveRoomResponse struct {
	Participants []string
	Conns        []*websocket.Conn
	RoomDeleted  bool
}

func (s *service) LeaveRoom(ctx context.Context, params *LeaveRoomParams) (LeaveRoomResponse, error) {
	result, err := s.roomRepo.RemoveMemberFromList(ctx, &repo.RemoveMemberFromListParams{
		RoomId:   params.RoomId,
		MemberId: params.UserId,
	})
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrRoomNotFound):
			return LeaveRoomResponse{}, ErrRoomNotFound
		case errors.Is(err, repo.ErrMemberNotFound):
			return LeaveRoomResponse{}, ErrNotAMember
		}
		return LeaveRoomResponse{}, err
	}

	if result.RoomDeleted {
		s.logger.InfoContext(ctx, "room deleted", "room_id", params.RoomId)
		return LeaveRoomResponse{RoomDeleted: true}, nil
	}

	s.logger.InfoContext(ctx, "member left room", "room_id", params.RoomId, "user_id", params.UserId)

	return LeaveRoomResponse{
		Participants: result.Participants,
		Conns:        s.connsOf(result.Participants, ""),
	}, nil
}

type DisconnectMemberParams struct {
	UserId string
}

type DisconnectMemberResponse struct {
	RoomId       string
	Participants []string
	Conns        []*websocket.Conn
	RoomDeleted  bool
}

// DisconnectMember has leave semantics plus cleanup: any transfer the
// disconnecting user requested in its room is discarded without notification.
func (s *service) DisconnectMember(ctx context.Context, params *DisconnectMemberParams) (DisconnectMemberResponse, error) {
	roomId, err := s.roomRepo.GetMemberRoomId(ctx, params.UserId)
	if err != nil {
		if errors.Is(err, repo.ErrMemberNotFound) {
			return DisconnectMemberResponse{}, ErrNotAMember
		}
		return DisconnectMemberResponse{}, err
	}

	if removed, _ := s.roomRepo.RemoveTransfer(ctx, &repo.RemoveTransferParams{
		RoomId:      roomId,
		RequesterId: params.UserId,
	}); removed {
		s.metrics.IncTransfersAborted()
		s.logger.InfoContext(ctx, "transfer discarded on disconnect", "room_id", roomId, "requester_id", params.UserId)
	}

	leaveResp, err := s.LeaveRoom(ctx, &LeaveRoomParams{RoomId: roomId, UserId: params.UserId})
	if err != nil {
		return DisconnectMemberResponse{}, err
	}

	return DisconnectMemberResponse{
		RoomId:       roomId,
		Participants: leaveResp.Participants,
		Conns:        leaveResp.Conns,
		RoomDeleted:  leaveResp.RoomDeleted,
	}, nil
}

type GetRoomStateResponse struct {
	Room        RoomState     `json:"room"`
	ChatHistory []ChatMessage `json:"chat_history"`
}

func (s *service) GetRoomState(ctx context.Context, roomId string) (GetRoomStateResponse, error) {
	state, err := s.roomRepo.GetRoomState(ctx, roomId)
	if err != nil {
		if errors.Is(err, repo.ErrRoomNotFound) {
			return GetRoomStateResponse{}, ErrRoomNotFound
		}
		return GetRoomStateResponse{}, err
	}

	history, err := s.roomRepo.GetChatHistory(ctx, roomId)
	if err != nil && !errors.Is(err, repo.ErrRoomNotFound) {
		return GetRoomStateResponse{}, err
	}

	messages := make([]ChatMessage, 0, len(history))
	for _, m := range history {
		messages = append(messages, ChatMessage{
			RoomId:     roomId,
			SenderId:   m.SenderId,
			SenderName: m.SenderName,
			Content:    m.Content,
			Timestamp:  m.Timestamp,
		})
	}

	return GetRoomStateResponse{
		Room: RoomState{
			RoomId:       roomId,
			Video:        state.Video,
			Participants: state.Participants,
			Playback:     Playback(state.Playback),
		},
		ChatHistory: messages,
	}, nil
}

// leaveCurrentRoom dissolves the user's existing membership before it joins
// or creates another room, so no identity is ever on two participant lists.
// A membership in skipRoomId is kept (idempotent rejoin path).
func (s *service) leaveCurrentRoom(ctx context.Context, userId, skipRoomId string) (*LeftRoom, error) {
	currentRoomId, err := s.roomRepo.GetMemberRoomId(ctx, userId)
	if err != nil {
		if errors.Is(err, repo.ErrMemberNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if currentRoomId == skipRoomId {
		return nil, nil
	}

	leaveResp, err := s.LeaveRoom(ctx, &LeaveRoomParams{RoomId: currentRoomId, UserId: userId})
	if err != nil {
		return nil, err
	}

	return &LeftRoom{
		RoomId:       currentRoomId,
		Participants: leaveResp.Participants,
		Conns:        leaveResp.Conns,
		RoomDeleted:  leaveResp.RoomDeleted,
	}, nil
}
