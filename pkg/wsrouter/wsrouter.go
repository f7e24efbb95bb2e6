// Package wsrouter routes flat JSON websocket frames by their "type" field.
// A frame looks like {"type":"chat_message","room_id":"...",...}: the payload
// fields are siblings of the type discriminator, and each registered handler
// receives the whole frame decoded into its own input type.
package wsrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
)

var ErrMissingType = errors.New("missing message type")

// MalformedMessageError marks frames that could not be decoded into the
// handler's input type, as opposed to errors returned by the handler itself.
type MalformedMessageError struct {
	Err error
}

func (e *MalformedMessageError) Error() string {
	return fmt.Sprintf("malformed message: %v", e.Err)
}

func (e *MalformedMessageError) Unwrap() error {
	return e.Err
}

type (
	HandlerFunc[T any] func(ctx context.Context, conn *websocket.Conn, input T) error
	Middleware         func(next HandlerFunc[any]) HandlerFunc[any]

	rawHandlerFunc func(ctx context.Context, conn *websocket.Conn, frame json.RawMessage) error
)

type WSRouter struct {
	routes      map[string]rawHandlerFunc
	middlewares []Middleware

	// OnMalformed is called for undecodable frames, OnUnknownType for frames
	// whose type has no registered handler, OnError for errors returned by
	// handlers. Nil hooks drop the event.
	OnMalformed   func(ctx context.Context, conn *websocket.Conn, err error)
	OnUnknownType func(ctx context.Context, conn *websocket.Conn, messageType string)
	OnError       func(ctx context.Context, conn *websocket.Conn, err error)
}

func New() *WSRouter {
	return &WSRouter{routes: make(map[string]rawHandlerFunc)}
}

// Use appends a middleware. Middlewares must be registered before the router
// starts serving; they wrap every handler, raw ones included.
func (r *WSRouter) Use(mw Middleware) {
	r.middlewares = append(r.middlewares, mw)
}

// Handle registers a typed handler for the given message type. The full frame
// is unmarshalled into T, so T's fields use the frame's json tags.
func Handle[T any](r *WSRouter, messageType string, handler HandlerFunc[T]) {
	r.routes[messageType] = func(ctx context.Context, conn *websocket.Conn, frame json.RawMessage) error {
		var input T
		if err := json.Unmarshal(frame, &input); err != nil {
			return &MalformedMessageError{Err: err}
		}

		h := HandlerFunc[any](func(ctx context.Context, conn *websocket.Conn, payload any) error {
			return handler(ctx, conn, payload.(T))
		})
		for i := len(r.middlewares) - 1; i >= 0; i-- {
			h = r.middlewares[i](h)
		}

		return h(ctx, conn, any(input))
	}
}

// HandleRaw registers a handler that receives the frame verbatim. Used where
// the frame must be relayed without re-encoding.
func HandleRaw(r *WSRouter, messageType string, handler HandlerFunc[json.RawMessage]) {
	Handle(r, messageType, handler)
}

// ServeConn reads frames from the connection until the read fails,
// dispatching each one to its handler. The returned error is the read error.
func (r *WSRouter) ServeConn(ctx context.Context, conn *websocket.Conn) error {
	defer conn.Close()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var discriminator struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(raw, &discriminator); err != nil {
			if r.OnMalformed != nil {
				r.OnMalformed(ctx, conn, &MalformedMessageError{Err: err})
			}
			continue
		}
		if discriminator.Type == "" {
			if r.OnMalformed != nil {
				r.OnMalformed(ctx, conn, ErrMissingType)
			}
			continue
		}

		route, ok := r.routes[discriminator.Type]
		if !ok {
			if r.OnUnknownType != nil {
				r.OnUnknownType(ctx, conn, discriminator.Type)
			}
			continue
		}

		handlerCtx := context.WithValue(ctx, messageTypeKey, discriminator.Type)
		if err := route(handlerCtx, conn, raw); err != nil {
			var malformed *MalformedMessageError
			if errors.As(err, &malformed) {
				if r.OnMalformed != nil {
					r.OnMalformed(handlerCtx, conn, err)
				}
				continue
			}

			if r.OnError != nil {
				r.OnError(handlerCtx, conn, err)
			}
		}
	}
}
