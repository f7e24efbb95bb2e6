// Package inmemory holds the single authority for all room state. Every
// multi-step mutation that must be atomic (membership removal with
// empty-room deletion, chunk accounting, completion checks) is one method
// executed under the store lock.
package inmemory

import (
	"context"
	"slices"
	"sync"

	"github.com/syncwatch/server/internal/repository/room"
)

type roomEntity struct {
	video           string
	participants    []string
	playback        room.Playback
	chatHistory     []room.ChatMessage
	activeTransfers map[string]*room.Transfer
}

type repo struct {
	mu               sync.RWMutex
	rooms            map[string]*roomEntity
	memberRooms      map[string]string
	chatHistoryLimit int
}

func NewRepo(chatHistoryLimit int) *repo {
	return &repo{
		rooms:            make(map[string]*roomEntity),
		memberRooms:      make(map[string]string),
		chatHistoryLimit: chatHistoryLimit,
	}
}

func (r *repo) CreateRoom(ctx context.Context, params *room.CreateRoomParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[params.RoomId]; ok {
		return room.ErrRoomAlreadyExists
	}

	r.rooms[params.RoomId] = &roomEntity{
		video:           params.Video,
		participants:    []string{params.CreatorId},
		playback:        room.Playback{Position: 0, IsPlaying: false},
		chatHistory:     make([]room.ChatMessage, 0),
		activeTransfers: make(map[string]*room.Transfer),
	}
	r.memberRooms[params.CreatorId] = params.RoomId

	return nil
}

func (r *repo) GetRoomState(ctx context.Context, roomId string) (room.RoomState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entity, ok := r.rooms[roomId]
	if !ok {
		return room.RoomState{}, room.ErrRoomNotFound
	}

	return room.RoomState{
		Id:           roomId,
		Video:        entity.video,
		Participants: slices.Clone(entity.participants),
		Playback:     entity.playback,
	}, nil
}

func (r *repo) GetParticipants(ctx context.Context, roomId string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entity, ok := r.rooms[roomId]
	if !ok {
		return nil, room.ErrRoomNotFound
	}

	return slices.Clone(entity.participants), nil
}

// AddMemberToList appends the member in join order. Adding a member that is
// already on the list is an idempotent no-op reported via the added flag, so
// a rejoin can never produce a duplicate entry and shift host resolution.
func (r *repo) AddMemberToList(ctx context.Context, params *room.AddMemberToListParams) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entity, ok := r.rooms[params.RoomId]
	if !ok {
		return false, room.ErrRoomNotFound
	}

	if slices.Contains(entity.participants, params.MemberId) {
		return false, nil
	}

	entity.participants = append(entity.participants, params.MemberId)
	r.memberRooms[params.MemberId] = params.RoomId

	return true, nil
}

func (r *repo) RemoveMemberFromList(ctx context.Context, params *room.RemoveMemberFromListParams) (room.RemoveMemberResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entity, ok := r.rooms[params.RoomId]
	if !ok {
		return room.RemoveMemberResult{}, room.ErrRoomNotFound
	}

	before := len(entity.participants)
	entity.participants = slices.DeleteFunc(entity.participants, func(id string) bool {
		return id == params.MemberId
	})
	if len(entity.participants) == before {
		return room.RemoveMemberResult{}, room.ErrMemberNotFound
	}

	if r.memberRooms[params.MemberId] == params.RoomId {
		delete(r.memberRooms, params.MemberId)
	}

	if len(entity.participants) == 0 {
		delete(r.rooms, params.RoomId)
		return room.RemoveMemberResult{Participants: []string{}, RoomDeleted: true}, nil
	}

	return room.RemoveMemberResult{Participants: slices.Clone(entity.participants)}, nil
}

func (r *repo) GetMemberRoomId(ctx context.Context, memberId string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roomId, ok := r.memberRooms[memberId]
	if !ok {
		return "", room.ErrMemberNotFound
	}

	return roomId, nil
}

func (r *repo) UpdatePlayback(ctx context.Context, params *room.UpdatePlaybackParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entity, ok := r.rooms[params.RoomId]
	if !ok {
		return room.ErrRoomNotFound
	}

	entity.playback = room.Playback{
		Position:  params.Position,
		IsPlaying: params.IsPlaying,
	}

	return nil
}

func (r *repo) GetPlayback(ctx context.Context, roomId string) (room.Playback, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entity, ok := r.rooms[roomId]
	if !ok {
		return room.Playback{}, room.ErrRoomNotFound
	}

	return entity.playback, nil
}

func (r *repo) AddChatMessage(ctx context.Context, params *room.AddChatMessageParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entity, ok := r.rooms[params.RoomId]
	if !ok {
		return room.ErrRoomNotFound
	}

	entity.chatHistory = append(entity.chatHistory, params.Message)
	if overflow := len(entity.chatHistory) - r.chatHistoryLimit; overflow > 0 {
		entity.chatHistory = slices.Clone(entity.chatHistory[overflow:])
	}

	return nil
}

func (r *repo) GetChatHistory(ctx context.Context, roomId string) ([]room.ChatMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entity, ok := r.rooms[roomId]
	if !ok {
		return nil, room.ErrRoomNotFound
	}

	return slices.Clone(entity.chatHistory), nil
}

func (r *repo) CreateTransfer(ctx context.Context, params *room.CreateTransferParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entity, ok := r.rooms[params.RoomId]
	if !ok {
		return room.ErrRoomNotFound
	}

	if _, ok := entity.activeTransfers[params.RequesterId]; ok {
		return room.ErrTransferAlreadyExists
	}

	entity.activeTransfers[params.RequesterId] = &room.Transfer{
		Id:            params.TransferId,
		RequesterId:   params.RequesterId,
		StartTime:     params.StartTime,
		LastChunkTime: params.StartTime,
	}

	return nil
}

// ApplyChunk accounts one relayed chunk. The declared size is pinned by the
// first chunk carrying a nonzero total; a byte count exceeding it destroys
// the transfer and reports ErrTransferOverflow.
func (r *repo) ApplyChunk(ctx context.Context, params *room.ApplyChunkParams) (room.Transfer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entity, ok := r.rooms[params.RoomId]
	if !ok {
		return room.Transfer{}, room.ErrTransferNotFound
	}

	transfer, ok := entity.activeTransfers[params.RequesterId]
	if !ok {
		return room.Transfer{}, room.ErrTransferNotFound
	}

	transfer.LastChunkTime = params.ReceivedAt
	transfer.BytesReceived += int64(params.ChunkSize)
	if transfer.FileSize == 0 {
		transfer.FileSize = params.DeclaredSize
	}

	if transfer.FileSize > 0 && transfer.BytesReceived > transfer.FileSize {
		delete(entity.activeTransfers, params.RequesterId)
		return room.Transfer{}, room.ErrTransferOverflow
	}

	return *transfer, nil
}

// CompleteTransfer destroys the transfer and returns its final state, but
// only when every declared byte was relayed. On a mismatch the entry is kept
// so the liveness timer can reap it.
func (r *repo) CompleteTransfer(ctx context.Context, params *room.CompleteTransferParams) (room.Transfer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entity, ok := r.rooms[params.RoomId]
	if !ok {
		return room.Transfer{}, room.ErrTransferNotFound
	}

	transfer, ok := entity.activeTransfers[params.RequesterId]
	if !ok {
		return room.Transfer{}, room.ErrTransferNotFound
	}

	if transfer.BytesReceived != transfer.FileSize {
		return room.Transfer{}, room.ErrTransferIncomplete
	}

	delete(entity.activeTransfers, params.RequesterId)

	return *transfer, nil
}

func (r *repo) RemoveTransfer(ctx context.Context, params *room.RemoveTransferParams) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entity, ok := r.rooms[params.RoomId]
	if !ok {
		return false, nil
	}

	transfer, ok := entity.activeTransfers[params.RequesterId]
	if !ok {
		return false, nil
	}

	if params.TransferId != "" && transfer.Id != params.TransferId {
		return false, nil
	}

	delete(entity.activeTransfers, params.RequesterId)

	return true, nil
}

func (r *repo) GetTransfer(ctx context.Context, roomId, requesterId string) (room.Transfer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entity, ok := r.rooms[roomId]
	if !ok {
		return room.Transfer{}, room.ErrTransferNotFound
	}

	transfer, ok := entity.activeTransfers[requesterId]
	if !ok {
		return room.Transfer{}, room.ErrTransferNotFound
	}

	return *transfer, nil
}

func (r *repo) RoomCount(ctx context.Context) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rooms)
}
