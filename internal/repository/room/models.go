package room

import "time"

type Playback struct {
	Position  int  `json:"position"`
	IsPlaying bool `json:"is_playing"`
}

type ChatMessage struct {
	SenderId   string `json:"sender_id"`
	SenderName string `json:"sender_name"`
	Content    string `json:"content"`
	Timestamp  string `json:"timestamp"`
}

// Transfer tracks one in-flight chunked delivery from the room host to a
// single requester. FileSize stays 0 until the first chunk declares a
// nonzero total.
type Transfer struct {
	Id            string
	RequesterId   string
	StartTime     time.Time
	LastChunkTime time.Time
	FileSize      int64
	BytesReceived int64
}

type RoomState struct {
	Id           string
	Video        string
	Participants []string
	Playback     Playback
}

type RemoveMemberResult struct {
	Participants []string
	RoomDeleted  bool
}
