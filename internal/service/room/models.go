package room

type Playback struct {
	Position  int  `json:"position"`
	IsPlaying bool `json:"is_playing"`
}

type ChatMessage struct {
	RoomId     string `json:"room_id"`
	SenderId   string `json:"sender_id"`
	SenderName string `json:"sender_name"`
	Content    string `json:"content"`
	Timestamp  string `json:"timestamp"`
}

type RoomState struct {
	RoomId       string   `json:"room_id"`
	Video        string   `json:"video"`
	Participants []string `json:"participants"`
	Playback     Playback `json:"playback"`
}
