package room

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	repo "github.com/syncwatch/server/internal/repository/room"
)

type SendChatMessageParams struct {
	RoomId     string
	SenderId   string
	SenderName string
	Content    string
}

type SendChatMessageResponse struct {
	Message ChatMessage
	Conns   []*websocket.Conn
}

// SendChatMessage appends to the bounded room history and returns every
// participant connection, the sender included: the sender relies on the
// broadcast echo for its own UI confirmation.
func (s *service) SendChatMessage(ctx context.Context, params *SendChatMessageParams) (SendChatMessageResponse, error) {
	senderName := params.SenderName
	if senderName == "" {
		senderName = defaultSenderName(params.SenderId)
	}

	message := ChatMessage{
		RoomId:     params.RoomId,
		SenderId:   params.SenderId,
		SenderName: senderName,
		Content:    params.Content,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}

	if err := s.roomRepo.AddChatMessage(ctx, &repo.AddChatMessageParams{
		RoomId: params.RoomId,
		Message: repo.ChatMessage{
			SenderId:   message.SenderId,
			SenderName: message.SenderName,
			Content:    message.Content,
			Timestamp:  message.Timestamp,
		},
	}); err != nil {
		if errors.Is(err, repo.ErrRoomNotFound) {
			return SendChatMessageResponse{}, ErrRoomNotFound
		}
		return SendChatMessageResponse{}, err
	}

	conns, err := s.getConnsByRoomId(ctx, params.RoomId, "")
	if err != nil {
		return SendChatMessageResponse{}, err
	}

	s.metrics.IncChatMessages()

	return SendChatMessageResponse{
		Message: message,
		Conns:   conns,
	}, nil
}

// defaultSenderName derives a display name from the assigned identity when
// the sender supplied none.
func defaultSenderName(senderId string) string {
	return fmt.Sprintf("user-%.4s", strings.TrimPrefix(senderId, "user_"))
}
