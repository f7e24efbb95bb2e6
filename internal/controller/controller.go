package controller

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/syncwatch/server/internal/service/room"
	"github.com/syncwatch/server/pkg/randstr"
	"github.com/syncwatch/server/pkg/validator"
	"github.com/syncwatch/server/pkg/wsrouter"
)

type iRoomService interface {
	CreateRoom(context.Context, *room.CreateRoomParams) (room.CreateRoomResponse, error)
	JoinRoom(context.Context, *room.JoinRoomParams) (room.JoinRoomResponse, error)
	LeaveRoom(context.Context, *room.LeaveRoomParams) (room.LeaveRoomResponse, error)
	DisconnectMember(context.Context, *room.DisconnectMemberParams) (room.DisconnectMemberResponse, error)
	GetRoomState(context.Context, string) (room.GetRoomStateResponse, error)
	SyncPlayback(context.Context, *room.SyncPlaybackParams) (room.SyncPlaybackResponse, error)
	GetPlayback(context.Context, string) (room.Playback, error)
	SendChatMessage(context.Context, *room.SendChatMessageParams) (room.SendChatMessageResponse, error)
	RequestVideoShare(context.Context, *room.RequestVideoShareParams) (room.RequestVideoShareResponse, error)
	ForwardVideoChunk(context.Context, *room.ForwardVideoChunkParams) (room.ForwardVideoChunkResponse, error)
	CancelTransfer(context.Context, *room.CancelTransferParams)
	CompleteVideoTransfer(context.Context, *room.CompleteVideoTransferParams) (room.CompleteVideoTransferResponse, error)
	GetShareResponseConn(context.Context, string) (*websocket.Conn, error)
}

type iConnRepo interface {
	Add(conn *websocket.Conn, userId string) error
	RemoveByConn(conn *websocket.Conn) error
}

type iMetrics interface {
	IncSendFailures()
}

type controller struct {
	roomService    iRoomService
	connRepo       iConnRepo
	metrics        iMetrics
	metricsHandler http.Handler
	upgrader       websocket.Upgrader
	validate       *validator.Validator
	generator      *randstr.Generator
	wsmux          *wsrouter.WSRouter
	logger         *slog.Logger
}

func NewController(roomService iRoomService, connRepo iConnRepo, metrics iMetrics, metricsHandler http.Handler, logger *slog.Logger) *controller {
	c := &controller{
		roomService: roomService,
		connRepo:    connRepo,
		metrics:     metrics,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		metricsHandler: metricsHandler,
		validate:       validator.NewValidator(),
		generator:      randstr.New([]byte("abcdefghijklmnopqrstuvwxyz0123456789")),
		logger:         logger,
	}
	c.wsmux = c.getWSRouter()

	return c
}
