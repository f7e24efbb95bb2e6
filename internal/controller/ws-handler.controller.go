package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/syncwatch/server/internal/service/room"
	"github.com/syncwatch/server/pkg/wsrouter"
)

type EmptyInput struct{}

type handshakeResponseOutput struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	UserId  string `json:"user_id"`
}

func (c *controller) handleHandshake(ctx context.Context, conn *websocket.Conn, _ EmptyInput) error {
	return c.writeToConn(ctx, conn, &handshakeResponseOutput{
		Type:    "handshake_response",
		Message: "handshake successful",
		UserId:  c.getUserIdFromCtx(ctx),
	})
}

type pongOutput struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

func (c *controller) handlePing(ctx context.Context, conn *websocket.Conn, _ EmptyInput) error {
	return c.writeToConn(ctx, conn, &pongOutput{
		Type:      "pong",
		Timestamp: time.Now().UnixMilli(),
	})
}

type participantUpdateOutput struct {
	Type         string   `json:"type"`
	RoomId       string   `json:"room_id"`
	Participants []string `json:"participants"`
}

// notifyLeftRoom tells the remaining members of a dissolved membership.
func (c *controller) notifyLeftRoom(ctx context.Context, left *room.LeftRoom) {
	if left == nil || left.RoomDeleted {
		return
	}

	c.broadcast(ctx, left.Conns, &participantUpdateOutput{
		Type:         "participant_update",
		RoomId:       left.RoomId,
		Participants: left.Participants,
	})
}

type CreateRoomInput struct {
	Video string `json:"video" validate:"required"`
}

type roomCreatedOutput struct {
	Type         string   `json:"type"`
	RoomId       string   `json:"room_id"`
	Video        string   `json:"video"`
	Participants []string `json:"participants"`
	Position     int      `json:"position"`
	IsPlaying    bool     `json:"is_playing"`
}

func (c *controller) handleCreateRoom(ctx context.Context, conn *websocket.Conn, input CreateRoomInput) error {
	if validationErrors, ok := c.validate.Validate(input); !ok {
		c.writeError(ctx, conn, validationErrors[0].Message)
		return nil
	}

	createRoomResp, err := c.roomService.CreateRoom(ctx, &room.CreateRoomParams{
		Video:  input.Video,
		UserId: c.getUserIdFromCtx(ctx),
	})
	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}

	c.notifyLeftRoom(ctx, createRoomResp.Left)

	// the creator's confirmation doubles as the initial room snapshot
	return c.writeToConn(ctx, conn, &roomCreatedOutput{
		Type:         "room_created",
		RoomId:       createRoomResp.Room.RoomId,
		Video:        createRoomResp.Room.Video,
		Participants: createRoomResp.Room.Participants,
		Position:     createRoomResp.Room.Playback.Position,
		IsPlaying:    createRoomResp.Room.Playback.IsPlaying,
	})
}

type JoinRoomInput struct {
	RoomId string `json:"room_id" validate:"required"`
}

type roomJoinedOutput struct {
	Type         string   `json:"type"`
	RoomId       string   `json:"room_id"`
	Participants []string `json:"participants"`
	Video        string   `json:"video"`
	Position     int      `json:"position"`
	IsPlaying    bool     `json:"is_playing"`
}

func (c *controller) handleJoinRoom(ctx context.Context, conn *websocket.Conn, input JoinRoomInput) error {
	if validationErrors, ok := c.validate.Validate(input); !ok {
		c.writeError(ctx, conn, validationErrors[0].Message)
		return nil
	}

	joinRoomResp, err := c.roomService.JoinRoom(ctx, &room.JoinRoomParams{
		RoomId: input.RoomId,
		UserId: c.getUserIdFromCtx(ctx),
	})
	if err != nil {
		return fmt.Errorf("failed to join room: %w", err)
	}

	c.notifyLeftRoom(ctx, joinRoomResp.Left)

	if err := c.writeToConn(ctx, conn, &roomJoinedOutput{
		Type:         "room_joined",
		RoomId:       joinRoomResp.Room.RoomId,
		Participants: joinRoomResp.Room.Participants,
		Video:        joinRoomResp.Room.Video,
		Position:     joinRoomResp.Room.Playback.Position,
		IsPlaying:    joinRoomResp.Room.Playback.IsPlaying,
	}); err != nil {
		return fmt.Errorf("failed to write room joined: %w", err)
	}

	if !joinRoomResp.Rejoined {
		c.broadcast(ctx, joinRoomResp.Conns, &participantUpdateOutput{
			Type:         "participant_update",
			RoomId:       joinRoomResp.Room.RoomId,
			Participants: joinRoomResp.Room.Participants,
		})
	}

	return nil
}

type LeaveRoomInput struct {
	RoomId string `json:"room_id" validate:"required"`
}

func (c *controller) handleLeaveRoom(ctx context.Context, conn *websocket.Conn, input LeaveRoomInput) error {
	if validationErrors, ok := c.validate.Validate(input); !ok {
		c.writeError(ctx, conn, validationErrors[0].Message)
		return nil
	}

	leaveRoomResp, err := c.roomService.LeaveRoom(ctx, &room.LeaveRoomParams{
		RoomId: input.RoomId,
		UserId: c.getUserIdFromCtx(ctx),
	})
	if err != nil {
		// fire-and-forget: an unknown room or membership is dropped silently
		c.logger.DebugContext(ctx, "failed to leave room", "error", err)
		return nil
	}

	if !leaveRoomResp.RoomDeleted {
		c.broadcast(ctx, leaveRoomResp.Conns, &participantUpdateOutput{
			Type:         "participant_update",
			RoomId:       input.RoomId,
			Participants: leaveRoomResp.Participants,
		})
	}

	return nil
}

type SyncPlaybackInput struct {
	RoomId    string `json:"room_id" validate:"required"`
	Position  int    `json:"position" validate:"gte=0"`
	IsPlaying bool   `json:"is_playing"`
	FromUser  string `json:"from_user"`
}

type syncPlaybackOutput struct {
	Type      string `json:"type"`
	RoomId    string `json:"room_id"`
	Position  int    `json:"position"`
	IsPlaying bool   `json:"is_playing"`
	FromUser  string `json:"from_user,omitempty"`
}

func (c *controller) handleSyncPlayback(ctx context.Context, conn *websocket.Conn, input SyncPlaybackInput) error {
	if validationErrors, ok := c.validate.Validate(input); !ok {
		c.writeError(ctx, conn, validationErrors[0].Message)
		return nil
	}

	fromUser := input.FromUser
	if fromUser == "" {
		fromUser = c.getUserIdFromCtx(ctx)
	}

	syncPlaybackResp, err := c.roomService.SyncPlayback(ctx, &room.SyncPlaybackParams{
		RoomId:     input.RoomId,
		Position:   input.Position,
		IsPlaying:  input.IsPlaying,
		FromUserId: fromUser,
	})
	if err != nil {
		c.logger.DebugContext(ctx, "failed to sync playback", "error", err)
		return nil
	}

	c.broadcast(ctx, syncPlaybackResp.Conns, &syncPlaybackOutput{
		Type:      "sync_playback",
		RoomId:    input.RoomId,
		Position:  syncPlaybackResp.Playback.Position,
		IsPlaying: syncPlaybackResp.Playback.IsPlaying,
		FromUser:  syncPlaybackResp.FromUserId,
	})

	return nil
}

type SyncRequestInput struct {
	RoomId string `json:"room_id" validate:"required"`
}

func (c *controller) handleSyncRequest(ctx context.Context, conn *websocket.Conn, input SyncRequestInput) error {
	if validationErrors, ok := c.validate.Validate(input); !ok {
		c.writeError(ctx, conn, validationErrors[0].Message)
		return nil
	}

	playback, err := c.roomService.GetPlayback(ctx, input.RoomId)
	if err != nil {
		c.logger.DebugContext(ctx, "failed to get playback", "error", err)
		return nil
	}

	return c.writeToConn(ctx, conn, &syncPlaybackOutput{
		Type:      "sync_playback",
		RoomId:    input.RoomId,
		Position:  playback.Position,
		IsPlaying: playback.IsPlaying,
	})
}

type ChatMessageInput struct {
	RoomId     string `json:"room_id" validate:"required"`
	SenderId   string `json:"sender_id"`
	SenderName string `json:"sender_name"`
	Content    string `json:"content" validate:"required"`
}

type chatMessageOutput struct {
	Type       string `json:"type"`
	RoomId     string `json:"room_id"`
	SenderId   string `json:"sender_id"`
	SenderName string `json:"sender_name"`
	Content    string `json:"content"`
	Timestamp  string `json:"timestamp"`
}

func (c *controller) handleChatMessage(ctx context.Context, conn *websocket.Conn, input ChatMessageInput) error {
	if validationErrors, ok := c.validate.Validate(input); !ok {
		c.writeError(ctx, conn, validationErrors[0].Message)
		return nil
	}

	senderId := input.SenderId
	if senderId == "" {
		senderId = c.getUserIdFromCtx(ctx)
	}

	sendChatMessageResp, err := c.roomService.SendChatMessage(ctx, &room.SendChatMessageParams{
		RoomId:     input.RoomId,
		SenderId:   senderId,
		SenderName: input.SenderName,
		Content:    input.Content,
	})
	if err != nil {
		c.logger.DebugContext(ctx, "failed to send chat message", "error", err)
		return nil
	}

	// the sender is included: its own UI confirmation is the broadcast echo
	c.broadcast(ctx, sendChatMessageResp.Conns, &chatMessageOutput{
		Type:       "chat_message",
		RoomId:     sendChatMessageResp.Message.RoomId,
		SenderId:   sendChatMessageResp.Message.SenderId,
		SenderName: sendChatMessageResp.Message.SenderName,
		Content:    sendChatMessageResp.Message.Content,
		Timestamp:  sendChatMessageResp.Message.Timestamp,
	})

	return nil
}

type VideoShareRequestInput struct {
	RoomId      string `json:"room_id" validate:"required"`
	RequesterId string `json:"requester_id"`
}

type videoShareRequestOutput struct {
	Type        string `json:"type"`
	RoomId      string `json:"room_id"`
	RequesterId string `json:"requester_id"`
}

func (c *controller) handleVideoShareRequest(ctx context.Context, conn *websocket.Conn, input VideoShareRequestInput) error {
	if validationErrors, ok := c.validate.Validate(input); !ok {
		c.writeError(ctx, conn, validationErrors[0].Message)
		return nil
	}

	requesterId := input.RequesterId
	if requesterId == "" {
		requesterId = c.getUserIdFromCtx(ctx)
	}

	requestVideoShareResp, err := c.roomService.RequestVideoShare(ctx, &room.RequestVideoShareParams{
		RoomId:      input.RoomId,
		RequesterId: requesterId,
	})
	if err != nil {
		return fmt.Errorf("failed to request video share: %w", err)
	}

	return c.writeToConn(ctx, requestVideoShareResp.HostConn, &videoShareRequestOutput{
		Type:        "video_share_request",
		RoomId:      input.RoomId,
		RequesterId: requesterId,
	})
}

type videoChunkInput struct {
	RoomId      string `json:"room_id"`
	RequesterId string `json:"requester_id"`
	Data        string `json:"data"`
	ChunkIndex  int    `json:"chunk_index"`
	TotalSize   int64  `json:"total_size"`
}

// handleVideoChunk relays a chunk frame verbatim, so the payload is never
// re-encoded on the way to the requester.
func (c *controller) handleVideoChunk(ctx context.Context, conn *websocket.Conn, frame json.RawMessage) error {
	var input videoChunkInput
	if err := json.Unmarshal(frame, &input); err != nil {
		return &wsrouter.MalformedMessageError{Err: err}
	}
	if input.RoomId == "" || input.RequesterId == "" {
		c.writeError(ctx, conn, "room_id and requester_id are required")
		return nil
	}

	forwardVideoChunkResp, err := c.roomService.ForwardVideoChunk(ctx, &room.ForwardVideoChunkParams{
		RoomId:       input.RoomId,
		RequesterId:  input.RequesterId,
		ChunkSize:    len(input.Data),
		DeclaredSize: input.TotalSize,
	})
	if err != nil {
		// dropped chunk: the transfer is gone or was never started
		c.logger.DebugContext(ctx, "video chunk dropped", "error", err)
		return nil
	}

	if forwardVideoChunkResp.RequesterConn == nil {
		return nil
	}

	if err := forwardVideoChunkResp.RequesterConn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.logger.WarnContext(ctx, "failed to forward video chunk", "error", err)
		c.roomService.CancelTransfer(ctx, &room.CancelTransferParams{
			RoomId:      input.RoomId,
			RequesterId: input.RequesterId,
		})
	}

	return nil
}

type VideoTransferCompleteInput struct {
	RoomId      string `json:"room_id" validate:"required"`
	RequesterId string `json:"requester_id"`
}

type videoTransferCompleteOutput struct {
	Type          string `json:"type"`
	RoomId        string `json:"room_id"`
	RequesterId   string `json:"requester_id"`
	ReceivedBytes int64  `json:"received_bytes"`
	Duration      int64  `json:"duration"`
}

func (c *controller) handleVideoTransferComplete(ctx context.Context, conn *websocket.Conn, input VideoTransferCompleteInput) error {
	if validationErrors, ok := c.validate.Validate(input); !ok {
		c.writeError(ctx, conn, validationErrors[0].Message)
		return nil
	}

	requesterId := input.RequesterId
	if requesterId == "" {
		requesterId = c.getUserIdFromCtx(ctx)
	}

	completeVideoTransferResp, err := c.roomService.CompleteVideoTransfer(ctx, &room.CompleteVideoTransferParams{
		RoomId:      input.RoomId,
		RequesterId: requesterId,
	})
	if err != nil {
		c.logger.DebugContext(ctx, "completion notice dropped", "error", err)
		return nil
	}

	if completeVideoTransferResp.RequesterConn == nil {
		return nil
	}

	return c.writeToConn(ctx, completeVideoTransferResp.RequesterConn, &videoTransferCompleteOutput{
		Type:          "video_transfer_complete",
		RoomId:        input.RoomId,
		RequesterId:   requesterId,
		ReceivedBytes: completeVideoTransferResp.ReceivedBytes,
		Duration:      completeVideoTransferResp.Duration,
	})
}

type videoShareResponseInput struct {
	RequesterId string `json:"requester_id"`
}

// handleVideoShareResponse is a stateless pass-through: the host's
// accept/decline payload goes to the requester verbatim, with no room or
// transfer lookup.
func (c *controller) handleVideoShareResponse(ctx context.Context, conn *websocket.Conn, frame json.RawMessage) error {
	var input videoShareResponseInput
	if err := json.Unmarshal(frame, &input); err != nil {
		return &wsrouter.MalformedMessageError{Err: err}
	}
	if input.RequesterId == "" {
		c.writeError(ctx, conn, "requester_id is required")
		return nil
	}

	requesterConn, err := c.roomService.GetShareResponseConn(ctx, input.RequesterId)
	if err != nil {
		c.logger.DebugContext(ctx, "share response dropped", "error", err)
		return nil
	}

	if err := requesterConn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.logger.WarnContext(ctx, "failed to forward share response", "error", err)
	}

	return nil
}
