package room

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	repo "github.com/syncwatch/server/internal/repository/room"
)

type RequestVideoShareParams struct {
	RoomId      string
	RequesterId string
}

type RequestVideoShareResponse struct {
	HostId   string
	HostConn *websocket.Conn
}

// RequestVideoShare opens a transfer for the requester and resolves the
// room's host (the participant at position 0 of the join order). A liveness
// timer is armed; if it fires while this transfer still exists, the transfer
// is abandoned silently. The timer is internal coordinator state and never
// crosses the wire.
func (s *service) RequestVideoShare(ctx context.Context, params *RequestVideoShareParams) (RequestVideoShareResponse, error) {
	participants, err := s.roomRepo.GetParticipants(ctx, params.RoomId)
	if err != nil {
		if errors.Is(err, repo.ErrRoomNotFound) {
			return RequestVideoShareResponse{}, ErrRoomNotFound
		}
		return RequestVideoShareResponse{}, err
	}

	if !slices.Contains(participants, params.RequesterId) {
		return RequestVideoShareResponse{}, ErrNotAMember
	}

	if _, err := s.roomRepo.GetTransfer(ctx, params.RoomId, params.RequesterId); err == nil {
		return RequestVideoShareResponse{}, ErrTransferAlreadyActive
	}

	hostId := participants[0]
	hostConn, err := s.connRepo.GetConn(hostId)
	if err != nil {
		return RequestVideoShareResponse{}, ErrHostUnavailable
	}

	transferId := uuid.NewString()
	if err := s.roomRepo.CreateTransfer(ctx, &repo.CreateTransferParams{
		RoomId:      params.RoomId,
		RequesterId: params.RequesterId,
		TransferId:  transferId,
		StartTime:   time.Now(),
	}); err != nil {
		if errors.Is(err, repo.ErrTransferAlreadyExists) {
			return RequestVideoShareResponse{}, ErrTransferAlreadyActive
		}
		if errors.Is(err, repo.ErrRoomNotFound) {
			return RequestVideoShareResponse{}, ErrRoomNotFound
		}
		return RequestVideoShareResponse{}, err
	}

	s.armTransferTimer(params.RoomId, params.RequesterId, transferId)

	s.metrics.IncTransfersStarted()
	s.logger.InfoContext(ctx, "transfer requested",
		"room_id", params.RoomId,
		"requester_id", params.RequesterId,
		"host_id", hostId,
	)

	return RequestVideoShareResponse{
		HostId:   hostId,
		HostConn: hostConn,
	}, nil
}

func (s *service) armTransferTimer(roomId, requesterId, transferId string) {
	time.AfterFunc(s.transferTimeout, func() {
		removed, err := s.roomRepo.RemoveTransfer(context.Background(), &repo.RemoveTransferParams{
			RoomId:      roomId,
			RequesterId: requesterId,
			TransferId:  transferId,
		})
		if err != nil || !removed {
			return
		}

		s.metrics.IncTransfersExpired()
		s.logger.Info("transfer timed out", "room_id", roomId, "requester_id", requesterId)
	})
}

type ForwardVideoChunkParams struct {
	RoomId       string
	RequesterId  string
	ChunkSize    int
	DeclaredSize int64
}

type ForwardVideoChunkResponse struct {
	// RequesterConn is nil when the requester has no live connection; the
	// chunk is then dropped but the transfer stays alive.
	RequesterConn *websocket.Conn
	BytesReceived int64
}

// ForwardVideoChunk accounts a chunk against the requester's transfer.
// Chunks for a missing or already-finalized transfer are inert; a byte count
// exceeding the declared size is fatal for the transfer and surfaces to
// neither party.
func (s *service) ForwardVideoChunk(ctx context.Context, params *ForwardVideoChunkParams) (ForwardVideoChunkResponse, error) {
	transfer, err := s.roomRepo.ApplyChunk(ctx, &repo.ApplyChunkParams{
		RoomId:       params.RoomId,
		RequesterId:  params.RequesterId,
		ChunkSize:    params.ChunkSize,
		DeclaredSize: params.DeclaredSize,
		ReceivedAt:   time.Now(),
	})
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrTransferNotFound):
			return ForwardVideoChunkResponse{}, ErrTransferNotFound
		case errors.Is(err, repo.ErrTransferOverflow):
			s.metrics.IncTransfersAborted()
			s.logger.WarnContext(ctx, "transfer integrity violation",
				"room_id", params.RoomId,
				"requester_id", params.RequesterId,
			)
			return ForwardVideoChunkResponse{}, ErrTransferIntegrity
		}
		return ForwardVideoChunkResponse{}, err
	}

	resp := ForwardVideoChunkResponse{BytesReceived: transfer.BytesReceived}
	if conn, err := s.connRepo.GetConn(params.RequesterId); err == nil {
		resp.RequesterConn = conn
	}

	return resp, nil
}

type CancelTransferParams struct {
	RoomId      string
	RequesterId string
}

// CancelTransfer drops the requester's transfer, typically after a chunk
// could not be delivered. Cancellation is the entire action: any later chunk
// belongs to no transfer and is dropped.
func (s *service) CancelTransfer(ctx context.Context, params *CancelTransferParams) {
	removed, err := s.roomRepo.RemoveTransfer(ctx, &repo.RemoveTransferParams{
		RoomId:      params.RoomId,
		RequesterId: params.RequesterId,
	})
	if err != nil || !removed {
		return
	}

	s.metrics.IncTransfersAborted()
	s.logger.InfoContext(ctx, "transfer cancelled", "room_id", params.RoomId, "requester_id", params.RequesterId)
}

type CompleteVideoTransferParams struct {
	RoomId      string
	RequesterId string
}

type CompleteVideoTransferResponse struct {
	RequesterConn *websocket.Conn
	ReceivedBytes int64
	// Duration is the elapsed transfer time in milliseconds.
	Duration int64
}

// CompleteVideoTransfer finalizes the transfer when every declared byte was
// relayed. A completion notice for a transfer that has not delivered all
// bytes is rejected and the entry is left to expire via the liveness timer.
func (s *service) CompleteVideoTransfer(ctx context.Context, params *CompleteVideoTransferParams) (CompleteVideoTransferResponse, error) {
	transfer, err := s.roomRepo.CompleteTransfer(ctx, &repo.CompleteTransferParams{
		RoomId:      params.RoomId,
		RequesterId: params.RequesterId,
	})
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrTransferNotFound):
			return CompleteVideoTransferResponse{}, ErrTransferNotFound
		case errors.Is(err, repo.ErrTransferIncomplete):
			s.logger.WarnContext(ctx, "completion notice for incomplete transfer",
				"room_id", params.RoomId,
				"requester_id", params.RequesterId,
			)
			return CompleteVideoTransferResponse{}, ErrTransferIncomplete
		}
		return CompleteVideoTransferResponse{}, err
	}

	s.metrics.IncTransfersCompleted()
	s.logger.InfoContext(ctx, "transfer completed",
		"room_id", params.RoomId,
		"requester_id", params.RequesterId,
		"received_bytes", transfer.BytesReceived,
	)

	resp := CompleteVideoTransferResponse{
		ReceivedBytes: transfer.BytesReceived,
		Duration:      time.Since(transfer.StartTime).Milliseconds(),
	}
	if conn, err := s.connRepo.GetConn(params.RequesterId); err == nil {
		resp.RequesterConn = conn
	}

	return resp, nil
}

// GetShareResponseConn resolves the requester addressed by a host's share
// response. Stateless pass-through: no room or transfer lookup at all.
func (s *service) GetShareResponseConn(ctx context.Context, requesterId string) (*websocket.Conn, error) {
	return s.connRepo.GetConn(requesterId)
}
