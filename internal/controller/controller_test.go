package controller_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syncwatch/server/internal/controller"
	"github.com/syncwatch/server/internal/metrics"
	connInmemory "github.com/syncwatch/server/internal/repository/connection/inmemory"
	roomInmemory "github.com/syncwatch/server/internal/repository/room/inmemory"
	"github.com/syncwatch/server/internal/service/room"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	roomRepo := roomInmemory.NewRepo(100)
	connectionRepo := connInmemory.NewRepo()
	m := metrics.New()
	roomService := room.NewService(roomRepo, connectionRepo, m, slog.Default(), &room.Config{
		TransferTimeout: time.Minute,
	})
	c := controller.NewController(roomService, connectionRepo, m, m.Handler(nil), slog.Default())

	srv := httptest.NewServer(c.GetRouter())
	t.Cleanup(srv.Close)

	return srv
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()

	var frame map[string]any
	require.NoError(t, conn.ReadJSON(&frame))

	return frame
}

// handshake performs the identity exchange and returns the assigned user id.
func handshake(t *testing.T, conn *websocket.Conn) string {
	t.Helper()

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "handshake"}))
	frame := readFrame(t, conn)
	require.Equal(t, "handshake_response", frame["type"])

	userId, _ := frame["user_id"].(string)
	require.True(t, strings.HasPrefix(userId, "user_"), "unexpected user id %q", userId)

	return userId
}

func TestHandshakeAndPing(t *testing.T) {
	srv := newTestServer(t)
	conn := dialWS(t, srv)

	userId := handshake(t, conn)
	assert.Len(t, userId, len("user_")+9)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "ping"}))
	frame := readFrame(t, conn)
	assert.Equal(t, "pong", frame["type"])
	assert.Greater(t, frame["timestamp"].(float64), float64(0))
}

func TestCreateJoinChat(t *testing.T) {
	srv := newTestServer(t)

	conn1 := dialWS(t, srv)
	user1 := handshake(t, conn1)

	require.NoError(t, conn1.WriteJSON(map[string]any{"type": "create_room", "video": "movie.mp4"}))
	created := readFrame(t, conn1)
	require.Equal(t, "room_created", created["type"])
	roomId := created["room_id"].(string)
	assert.Equal(t, "movie.mp4", created["video"])
	assert.Equal(t, []any{user1}, created["participants"])

	conn2 := dialWS(t, srv)
	user2 := handshake(t, conn2)

	require.NoError(t, conn2.WriteJSON(map[string]any{"type": "join_room", "room_id": roomId}))
	joined := readFrame(t, conn2)
	require.Equal(t, "room_joined", joined["type"])
	assert.Equal(t, roomId, joined["room_id"])
	assert.Equal(t, "movie.mp4", joined["video"])
	assert.Equal(t, []any{user1, user2}, joined["participants"])

	// the existing member hears about the new one
	update := readFrame(t, conn1)
	require.Equal(t, "participant_update", update["type"])
	assert.Equal(t, []any{user1, user2}, update["participants"])

	// chat goes to everyone, sender included
	require.NoError(t, conn2.WriteJSON(map[string]any{
		"type":        "chat_message",
		"room_id":     roomId,
		"sender_name": "bob",
		"content":     "hello",
	}))

	for _, conn := range []*websocket.Conn{conn1, conn2} {
		frame := readFrame(t, conn)
		require.Equal(t, "chat_message", frame["type"])
		assert.Equal(t, user2, frame["sender_id"])
		assert.Equal(t, "bob", frame["sender_name"])
		assert.Equal(t, "hello", frame["content"])
		assert.NotEmpty(t, frame["timestamp"])
	}
}

func TestSyncPlayback(t *testing.T) {
	srv := newTestServer(t)

	conn1 := dialWS(t, srv)
	handshake(t, conn1)
	require.NoError(t, conn1.WriteJSON(map[string]any{"type": "create_room", "video": "movie.mp4"}))
	roomId := readFrame(t, conn1)["room_id"].(string)

	conn2 := dialWS(t, srv)
	user2 := handshake(t, conn2)
	require.NoError(t, conn2.WriteJSON(map[string]any{"type": "join_room", "room_id": roomId}))
	readFrame(t, conn2) // room_joined
	readFrame(t, conn1) // participant_update

	require.NoError(t, conn2.WriteJSON(map[string]any{
		"type":       "sync_playback",
		"room_id":    roomId,
		"position":   42,
		"is_playing": true,
	}))

	frame := readFrame(t, conn1)
	require.Equal(t, "sync_playback", frame["type"])
	assert.Equal(t, float64(42), frame["position"])
	assert.Equal(t, true, frame["is_playing"])
	assert.Equal(t, user2, frame["from_user"])

	// the pull variant answers only the asker
	require.NoError(t, conn2.WriteJSON(map[string]any{"type": "sync_request", "room_id": roomId}))
	frame = readFrame(t, conn2)
	require.Equal(t, "sync_playback", frame["type"])
	assert.Equal(t, float64(42), frame["position"])
}

func TestVideoTransferFlow(t *testing.T) {
	srv := newTestServer(t)

	hostConn := dialWS(t, srv)
	handshake(t, hostConn)
	require.NoError(t, hostConn.WriteJSON(map[string]any{"type": "create_room", "video": "movie.mp4"}))
	roomId := readFrame(t, hostConn)["room_id"].(string)

	requesterConn := dialWS(t, srv)
	requesterId := handshake(t, requesterConn)
	require.NoError(t, requesterConn.WriteJSON(map[string]any{"type": "join_room", "room_id": roomId}))
	readFrame(t, requesterConn) // room_joined
	readFrame(t, hostConn)      // participant_update

	// the share request lands on the host
	require.NoError(t, requesterConn.WriteJSON(map[string]any{"type": "video_share_request", "room_id": roomId}))
	frame := readFrame(t, hostConn)
	require.Equal(t, "video_share_request", frame["type"])
	assert.Equal(t, requesterId, frame["requester_id"])

	// chunks are relayed verbatim
	chunk := map[string]any{
		"type":         "video_chunk",
		"room_id":      roomId,
		"requester_id": requesterId,
		"data":         "abcd",
		"chunk_index":  0,
		"total_size":   8,
	}
	require.NoError(t, hostConn.WriteJSON(chunk))
	frame = readFrame(t, requesterConn)
	require.Equal(t, "video_chunk", frame["type"])
	assert.Equal(t, "abcd", frame["data"])
	assert.Equal(t, float64(0), frame["chunk_index"])

	chunk["data"] = "efgh"
	chunk["chunk_index"] = 1
	require.NoError(t, hostConn.WriteJSON(chunk))
	frame = readFrame(t, requesterConn)
	assert.Equal(t, "efgh", frame["data"])

	// completion reports the accounted bytes back to the requester
	require.NoError(t, hostConn.WriteJSON(map[string]any{
		"type":         "video_transfer_complete",
		"room_id":      roomId,
		"requester_id": requesterId,
	}))
	frame = readFrame(t, requesterConn)
	require.Equal(t, "video_transfer_complete", frame["type"])
	assert.Equal(t, float64(8), frame["received_bytes"])
	assert.GreaterOrEqual(t, frame["duration"].(float64), float64(0))
}

func TestVideoShareResponseRelay(t *testing.T) {
	srv := newTestServer(t)

	hostConn := dialWS(t, srv)
	handshake(t, hostConn)
	require.NoError(t, hostConn.WriteJSON(map[string]any{"type": "create_room", "video": "movie.mp4"}))
	readFrame(t, hostConn)

	requesterConn := dialWS(t, srv)
	requesterId := handshake(t, requesterConn)

	// the relay is stateless: no room membership needed
	require.NoError(t, hostConn.WriteJSON(map[string]any{
		"type":         "video_share_response",
		"requester_id": requesterId,
		"accepted":     true,
		"file_name":    "movie.mp4",
	}))

	frame := readFrame(t, requesterConn)
	require.Equal(t, "video_share_response", frame["type"])
	assert.Equal(t, true, frame["accepted"])
	assert.Equal(t, "movie.mp4", frame["file_name"])
}

func TestErrorFrames(t *testing.T) {
	srv := newTestServer(t)
	conn := dialWS(t, srv)
	handshake(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "join_room", "room_id": "room_nosuch"}))
	frame := readFrame(t, conn)
	require.Equal(t, "error", frame["type"])
	assert.Equal(t, "room not found", frame["message"])

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "nosuch"}))
	frame = readFrame(t, conn)
	require.Equal(t, "error", frame["type"])
	assert.Equal(t, "unknown message type", frame["message"])

	require.NoError(t, conn.WriteJSON(map[string]any{"content": "no type"}))
	frame = readFrame(t, conn)
	require.Equal(t, "error", frame["type"])
	assert.Equal(t, "invalid message format", frame["message"])

	// validation failures come back as error frames too
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "create_room"}))
	frame = readFrame(t, conn)
	assert.Equal(t, "error", frame["type"])
}

func TestRESTEndpoints(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/v1/rooms/room_nosuch")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	conn := dialWS(t, srv)
	handshake(t, conn)
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "create_room", "video": "movie.mp4"}))
	roomId := readFrame(t, conn)["room_id"].(string)

	resp, err = http.Get(srv.URL + "/api/v1/rooms/" + roomId)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Room room.RoomState `json:"room"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, roomId, body.Room.RoomId)
	assert.Equal(t, "movie.mp4", body.Room.Video)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
