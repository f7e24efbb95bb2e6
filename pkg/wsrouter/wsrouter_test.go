package wsrouter_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syncwatch/server/pkg/wsrouter"
)

type echoInput struct {
	Content string `json:"content"`
}

type echoOutput struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// dial starts a server that feeds every accepted connection to the router and
// returns a client connection to it.
func dial(t *testing.T, mux *wsrouter.WSRouter) *websocket.Conn {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		go mux.ServeConn(context.Background(), conn)
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))

	return conn
}

func TestDispatch(t *testing.T) {
	mux := wsrouter.New()
	wsrouter.Handle(mux, "echo", func(ctx context.Context, conn *websocket.Conn, input echoInput) error {
		return conn.WriteJSON(&echoOutput{
			Type:    wsrouter.GetMessageTypeFromCtx(ctx),
			Content: input.Content,
		})
	})

	conn := dial(t, mux)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "echo", "content": "hello"}))

	var out echoOutput
	require.NoError(t, conn.ReadJSON(&out))
	assert.Equal(t, echoOutput{Type: "echo", Content: "hello"}, out)
}

func TestMiddlewareWrapsHandlers(t *testing.T) {
	mux := wsrouter.New()
	mux.Use(func(next wsrouter.HandlerFunc[any]) wsrouter.HandlerFunc[any] {
		return func(ctx context.Context, conn *websocket.Conn, input any) error {
			ctx = context.WithValue(ctx, struct{}{}, "seen")
			return next(ctx, conn, input)
		}
	})

	sawMiddlewareValue := make(chan bool, 1)
	wsrouter.Handle(mux, "echo", func(ctx context.Context, conn *websocket.Conn, input echoInput) error {
		sawMiddlewareValue <- ctx.Value(struct{}{}) == "seen"
		return conn.WriteJSON(&echoOutput{Type: "echo", Content: input.Content})
	})

	conn := dial(t, mux)
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "echo", "content": "x"}))

	var out echoOutput
	require.NoError(t, conn.ReadJSON(&out))
	assert.True(t, <-sawMiddlewareValue)
}

func TestUnknownAndMalformedFrames(t *testing.T) {
	mux := wsrouter.New()
	wsrouter.Handle(mux, "echo", func(ctx context.Context, conn *websocket.Conn, input echoInput) error {
		return nil
	})
	mux.OnUnknownType = func(ctx context.Context, conn *websocket.Conn, messageType string) {
		conn.WriteJSON(map[string]string{"type": "error", "message": "unknown: " + messageType})
	}
	mux.OnMalformed = func(ctx context.Context, conn *websocket.Conn, err error) {
		conn.WriteJSON(map[string]string{"type": "error", "message": "malformed"})
	}

	conn := dial(t, mux)

	var out map[string]string

	// no handler registered for this type
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "nosuch"}))
	require.NoError(t, conn.ReadJSON(&out))
	assert.Equal(t, "unknown: nosuch", out["message"])

	// missing type discriminator
	require.NoError(t, conn.WriteJSON(map[string]any{"content": "x"}))
	require.NoError(t, conn.ReadJSON(&out))
	assert.Equal(t, "malformed", out["message"])

	// frame does not decode into the handler's input type
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"echo","content":7}`)))
	require.NoError(t, conn.ReadJSON(&out))
	assert.Equal(t, "malformed", out["message"])
}

func TestHandlerErrorsReachHook(t *testing.T) {
	mux := wsrouter.New()
	wsrouter.HandleRaw(mux, "boom", func(ctx context.Context, conn *websocket.Conn, frame json.RawMessage) error {
		return assert.AnError
	})
	mux.OnError = func(ctx context.Context, conn *websocket.Conn, err error) {
		conn.WriteJSON(map[string]string{"type": "error", "message": err.Error()})
	}

	conn := dial(t, mux)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "boom"}))

	var out map[string]string
	require.NoError(t, conn.ReadJSON(&out))
	assert.Equal(t, assert.AnError.Error(), out["message"])
}
