package room

import "time"

type CreateRoomParams struct {
	RoomId    string
	Video     string
	CreatorId string
}

type AddMemberToListParams struct {
	RoomId   string
	MemberId string
}

type RemoveMemberFromListParams struct {
	RoomId   string
	MemberId string
}

type UpdatePlaybackParams struct {
	RoomId    string
	Position  int
	IsPlaying bool
}

type AddChatMessageParams struct {
	RoomId  string
	Message ChatMessage
}

type CreateTransferParams struct {
	RoomId      string
	RequesterId string
	TransferId  string
	StartTime   time.Time
}

type ApplyChunkParams struct {
	RoomId       string
	RequesterId  string
	ChunkSize    int
	DeclaredSize int64
	ReceivedAt   time.Time
}

type CompleteTransferParams struct {
	RoomId      string
	RequesterId string
}

// RemoveTransferParams removes the requester's transfer. A nonempty
// TransferId only removes the transfer it identifies, which keeps a stale
// liveness timer from cancelling a successor transfer.
type RemoveTransferParams struct {
	RoomId      string
	RequesterId string
	TransferId  string
}
