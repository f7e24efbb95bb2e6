package room

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/syncwatch/server/internal/repository/room"
	"github.com/syncwatch/server/pkg/randstr"
)

var (
	ErrRoomNotFound          = errors.New("room not found")
	ErrNotAMember            = errors.New("not a room member")
	ErrTransferAlreadyActive = errors.New("transfer already active")
	ErrHostUnavailable       = errors.New("host unavailable")
	ErrTransferNotFound      = errors.New("no active transfer")
	ErrTransferIntegrity     = errors.New("transfer integrity violation")
	ErrTransferIncomplete    = errors.New("transfer incomplete")
)

type iRoomRepo interface {
	// room & membership
	CreateRoom(context.Context, *room.CreateRoomParams) error
	GetRoomState(context.Context, string) (room.RoomState, error)
	GetParticipants(context.Context, string) ([]string, error)
	AddMemberToList(context.Context, *room.AddMemberToListParams) (bool, error)
	RemoveMemberFromList(context.Context, *room.RemoveMemberFromListParams) (room.RemoveMemberResult, error)
	GetMemberRoomId(context.Context, string) (string, error)
	// playback
	UpdatePlayback(context.Context, *room.UpdatePlaybackParams) error
	GetPlayback(context.Context, string) (room.Playback, error)
	// chat
	AddChatMessage(context.Context, *room.AddChatMessageParams) error
	GetChatHistory(context.Context, string) ([]room.ChatMessage, error)
	// transfers
	CreateTransfer(context.Context, *room.CreateTransferParams) error
	ApplyChunk(context.Context, *room.ApplyChunkParams) (room.Transfer, error)
	CompleteTransfer(context.Context, *room.CompleteTransferParams) (room.Transfer, error)
	RemoveTransfer(context.Context, *room.RemoveTransferParams) (bool, error)
	GetTransfer(ctx context.Context, roomId, requesterId string) (room.Transfer, error)
}

type iConnRepo interface {
	GetConn(userId string) (*websocket.Conn, error)
}

type iMetrics interface {
	IncRoomsCreated()
	IncChatMessages()
	IncTransfersStarted()
	IncTransfersCompleted()
	IncTransfersExpired()
	IncTransfersAborted()
}

type iGenerator interface {
	GenerateRandomString(length int) string
}

type Config struct {
	TransferTimeout time.Duration
}

type service struct {
	roomRepo        iRoomRepo
	connRepo        iConnRepo
	metrics         iMetrics
	generator       iGenerator
	logger          *slog.Logger
	transferTimeout time.Duration
}

func NewService(roomRepo iRoomRepo, connRepo iConnRepo, metrics iMetrics, logger *slog.Logger, cfg *Config) *service {
	s := service{
		roomRepo:        roomRepo,
		connRepo:        connRepo,
		metrics:         metrics,
		logger:          logger,
		transferTimeout: cfg.TransferTimeout,
	}

	letterBytes := []byte("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")
	s.generator = randstr.New(letterBytes)

	return &s
}
