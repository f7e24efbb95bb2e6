package room

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendChatMessage(t *testing.T) {
	s, connRepo := newTestService(t, time.Minute)
	ctx := context.Background()

	conn1 := &websocket.Conn{}
	conn2 := &websocket.Conn{}
	require.NoError(t, connRepo.Add(conn1, "user_aaa"))
	require.NoError(t, connRepo.Add(conn2, "user_bbb"))

	createRoomResp, err := s.CreateRoom(ctx, &CreateRoomParams{Video: "v", UserId: "user_aaa"})
	require.NoError(t, err)
	roomId := createRoomResp.Room.RoomId

	_, err = s.JoinRoom(ctx, &JoinRoomParams{RoomId: roomId, UserId: "user_bbb"})
	require.NoError(t, err)

	sendResp, err := s.SendChatMessage(ctx, &SendChatMessageParams{
		RoomId:     roomId,
		SenderId:   "user_aaa",
		SenderName: "alice",
		Content:    "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", sendResp.Message.SenderName)
	assert.Equal(t, "hello", sendResp.Message.Content)
	assert.NotEmpty(t, sendResp.Message.Timestamp)
	assert.Len(t, sendResp.Conns, 2, "the sender receives the echo too")

	_, err = s.SendChatMessage(ctx, &SendChatMessageParams{
		RoomId:   "room_nosuch",
		SenderId: "user_aaa",
		Content:  "hello",
	})
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestSendChatMessageDefaultSenderName(t *testing.T) {
	s, connRepo := newTestService(t, time.Minute)
	ctx := context.Background()

	conn := &websocket.Conn{}
	require.NoError(t, connRepo.Add(conn, "user_k3x9p2m1q"))

	createRoomResp, err := s.CreateRoom(ctx, &CreateRoomParams{Video: "v", UserId: "user_k3x9p2m1q"})
	require.NoError(t, err)

	sendResp, err := s.SendChatMessage(ctx, &SendChatMessageParams{
		RoomId:   createRoomResp.Room.RoomId,
		SenderId: "user_k3x9p2m1q",
		Content:  "hi",
	})
	require.NoError(t, err)
	assert.Equal(t, "user-k3x9", sendResp.Message.SenderName)
}

func TestChatHistoryBounded(t *testing.T) {
	s, connRepo := newTestService(t, time.Minute)
	ctx := context.Background()

	conn := &websocket.Conn{}
	require.NoError(t, connRepo.Add(conn, "user_aaa"))

	createRoomResp, err := s.CreateRoom(ctx, &CreateRoomParams{Video: "v", UserId: "user_aaa"})
	require.NoError(t, err)
	roomId := createRoomResp.Room.RoomId

	for i := 0; i < 150; i++ {
		_, err := s.SendChatMessage(ctx, &SendChatMessageParams{
			RoomId:   roomId,
			SenderId: "user_aaa",
			Content:  fmt.Sprintf("msg-%d", i),
		})
		require.NoError(t, err)
	}

	stateResp, err := s.GetRoomState(ctx, roomId)
	require.NoError(t, err)
	require.Len(t, stateResp.ChatHistory, 100, "history is capped at the configured limit")
	assert.Equal(t, "msg-50", stateResp.ChatHistory[0].Content, "the oldest messages are evicted")
	assert.Equal(t, "msg-149", stateResp.ChatHistory[99].Content)
}
