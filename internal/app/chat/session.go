/*
This file defines the Session struct, representing one client connection. It manages
the connection lifecycle, the read/write pumps, and the outbound send queue. All
session state other than the send queue is owned by the hub run loop.
*/
package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"rainchat/internal/app/user"
	"rainchat/internal/pkg/errs"
	"rainchat/internal/pkg/logx"
	"rainchat/internal/pkg/randx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxMessageSize = 8192

	// maximum allowed size (in bytes) for chat message content.
	MaxContentBytes = 2000

	// outbound queue capacity per session.
	sendQueueSize = 256

	// WsCloseCodeSessionKicked is a custom WebSocket close code (4000-4999 range)
	// signaling that the session was replaced by a newer connection for the same user.
	WsCloseCodeSessionKicked = 4001

	// WsCloseCodeServerShutdown signals that the server is shutting down.
	WsCloseCodeServerShutdown = 4002

	// chatMessagesPerSecond and chatMessageBurst cap how fast one session may
	// send chat messages.
	chatMessagesPerSecond = 2
	chatMessageBurst      = 5
)

// sessionState tracks the session lifecycle.
type sessionState int

const (
	stateConnecting sessionState = iota
	stateUnauthenticated
	stateAuthenticated
	stateDisconnected
)

// Session represents one connected client and its authenticated user state.
// Every field except the send channel is mutated only on the hub run loop.
type Session struct {
	id   string
	hub  *Hub
	conn *websocket.Conn

	state sessionState
	user  user.User

	// room is the id of the room the session currently belongs to ("" before auth).
	room string

	joinedAt     time.Time
	lastActivity time.Time

	// msgLimiter caps the rate of chat messages from this session.
	msgLimiter *rate.Limiter

	// send queues marshaled outbound frames for the write pump.
	send chan []byte

	logger zerolog.Logger
}

// NewSession constructs a Session for an accepted connection. The session starts
// in the connecting state; the hub moves it forward once registered.
func NewSession(hub *Hub, conn *websocket.Conn) *Session {
	id := randx.SessionID()

	return &Session{
		id:         id,
		hub:        hub,
		conn:       conn,
		state:      stateConnecting,
		msgLimiter: rate.NewLimiter(rate.Limit(chatMessagesPerSecond), chatMessageBurst),
		send:       make(chan []byte, sendQueueSize),
		logger:     logx.Logger().With().Str("session_id", id).Logger(),
	}
}

// ID returns the session's connection-scoped identifier.
func (s *Session) ID() string {
	return s.id
}

// ReadPump reads frames from the connection and forwards them to the hub.
// It handles heartbeats (Pong) and triggers teardown when the connection closes.
func (s *Session) ReadPump() {
	defer s.hub.Unregister(s)

	s.conn.SetReadLimit(maxMessageSize)

	if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Info().Err(err).Msg("Error reading frame (client close/going away)")
			}
			break
		}

		s.hub.Inbound(s, frame)
	}
}

// WritePump drains the send queue onto the connection and keeps the heartbeat alive.
func (s *Session) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := s.conn.Close(); err != nil {
			s.logger.Debug().Err(err).Msg("Connection close error in WritePump")
		}
	}()

	for {
		select {
		case frame, ok := <-s.send:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				s.logger.Error().Err(err).Msg("Failed to set write deadline")
				return
			}

			if !ok {
				if err := s.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					s.logger.Debug().Err(err).Msg("Error writing close message")
				}
				return
			}

			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				s.logger.Warn().Err(err).Msg("Error writing frame")
				return
			}

		case <-ticker.C:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				s.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
				return
			}

			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.logger.Info().Err(err).Msg("Error writing ping")
				return
			}
		}
	}
}

// enqueue queues a marshaled frame for delivery, dropping it when the queue is full.
func (s *Session) enqueue(frame []byte) {
	select {
	case s.send <- frame:
	default:
		s.logger.Warn().Int("queue_len", len(s.send)).Msg("Session send queue full, dropping frame")
	}
}

// sendEvent marshals v and queues it for delivery.
func (s *Session) sendEvent(v any) {
	frame, err := json.Marshal(v)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error marshaling outbound event")
		return
	}
	s.enqueue(frame)
}

// sendError queues an error envelope describing err. CustomError values keep
// their code and message; anything else maps to the generic internal error.
func (s *Session) sendError(err error) {
	var code int
	var message string

	var customErr *errs.CustomError
	if errors.As(err, &customErr) {
		code = customErr.Code
		message = customErr.Message
	} else {
		code = errs.ErrUnknown
		message = fmt.Sprintf("Internal server error: %v", err)
	}

	s.sendEvent(errorEvent{Type: typeError, Code: code, Message: message})
}

// closeWithCode writes a close frame with the given code and reason. The read
// pump observes the closure and triggers normal teardown.
func (s *Session) closeWithCode(code int, reason string) {
	if s.conn == nil {
		return
	}

	closeMessage := websocket.FormatCloseMessage(code, reason)

	s.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := s.conn.WriteMessage(websocket.CloseMessage, closeMessage); err != nil {
		s.logger.Debug().Err(err).Int("close_code", code).Msg("Failed to write close frame")
	}
}

// forceClose terminates the underlying connection without ceremony.
func (s *Session) forceClose() {
	if s.conn == nil {
		return
	}
	if err := s.conn.Close(); err != nil {
		s.logger.Debug().Err(err).Msg("Connection force close error")
	}
}
