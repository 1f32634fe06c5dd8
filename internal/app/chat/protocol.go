/*
Package chat contains the core logic for the real-time chat rooms and the shared
coin economy: session lifecycle, room membership and history, envelope routing,
tipping and the rain pool, and the scheduler driving periodic economy events.

This file defines the JSON wire protocol. Every frame is one JSON object with a
"type" discriminator; inbound envelopes carry their fields inline, outbound
envelopes are small typed structs.
*/
package chat

import (
	"encoding/json"

	"rainchat/internal/app/user"
	"rainchat/internal/pkg/randx"
)

// Inbound envelope types (client -> server).
const (
	typeAuth     = "auth"
	typeMessage  = "message"
	typeTip      = "tip"
	typeRain     = "rain"
	typeBalance  = "balance"
	typeOnline   = "online"
	typeJoinRoom = "joinRoom"
)

// Outbound envelope types (server -> client). Chat, system, tip, and rain
// records share the Message struct and use its Type field directly.
const (
	typeWelcome          = "welcome"
	typeAuthSuccess      = "authSuccess"
	typeUserCount        = "userCount"
	typeRainPool         = "rainPool"
	typeUserJoin         = "userJoin"
	typeUserLeave        = "userLeave"
	typeTipSent          = "tipSent"
	typeTipReceived      = "tipReceived"
	typeRainContributed  = "rainContributed"
	typeRainContribution = "rainContribution"
	typeRoomJoined       = "roomJoined"
	typeError            = "error"

	typeSystem = "system"
)

// AuthUser is the identity payload of an auth envelope, supplied by the
// external identity provider and trusted verbatim unless a token is present.
type AuthUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Balance  int64  `json:"balance,omitempty"`
	IsVip    bool   `json:"isVip,omitempty"`
}

type authInbound struct {
	User *AuthUser `json:"user"`

	// Token optionally carries a signed identity token. When the server has a
	// JWT secret configured, verified claims override the raw user payload.
	Token string `json:"token,omitempty"`
}

type messageInbound struct {
	Room    string `json:"room,omitempty"`
	Message string `json:"message"`
}

type tipInbound struct {
	Target string `json:"target"`
	Amount int64  `json:"amount"`
}

type rainInbound struct {
	Amount int64 `json:"amount"`
}

type joinRoomInbound struct {
	Room string `json:"room"`
}

// Message is the immutable record appended to room and global history and
// broadcast to clients. Type is one of "message", "system", "tip", "rain".
type Message struct {
	Type      string   `json:"type"`
	ID        string   `json:"id"`
	UserID    string   `json:"userId,omitempty"`
	User      string   `json:"user,omitempty"`
	Message   string   `json:"message,omitempty"`
	Room      string   `json:"room,omitempty"`
	Amount    int64    `json:"amount,omitempty"`
	From      string   `json:"from,omitempty"`
	To        string   `json:"to,omitempty"`
	Winners   []string `json:"winners,omitempty"`
	Timestamp int64    `json:"timestamp"`
}

// NewMessage constructs a Message record with a fresh ID and the given timestamp
// in Unix milliseconds.
func NewMessage(msgType string, from user.User, roomID, body string, timestampMs int64) Message {
	return Message{
		Type:      msgType,
		ID:        randx.MessageID(),
		UserID:    from.ID,
		User:      from.Username,
		Message:   body,
		Room:      roomID,
		Timestamp: timestampMs,
	}
}

type welcomeEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type authSuccessEvent struct {
	Type string    `json:"type"`
	User user.User `json:"user"`
}

type userCountEvent struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

type rainPoolEvent struct {
	Type   string `json:"type"`
	Amount int64  `json:"amount"`
}

type userPresenceEvent struct {
	Type      string `json:"type"`
	User      string `json:"user"`
	UserCount int    `json:"userCount"`
}

type tipResultEvent struct {
	Type       string `json:"type"`
	From       string `json:"from,omitempty"`
	To         string `json:"to,omitempty"`
	Amount     int64  `json:"amount"`
	NewBalance int64  `json:"newBalance"`
}

type rainContributedEvent struct {
	Type       string `json:"type"`
	Amount     int64  `json:"amount"`
	NewBalance int64  `json:"newBalance"`
	RainPool   int64  `json:"rainPool"`
}

type rainContributionEvent struct {
	Type              string `json:"type"`
	ContributionCount int    `json:"contributionCount"`
	Message           string `json:"message"`
}

type balanceEvent struct {
	Type    string `json:"type"`
	Balance int64  `json:"balance"`
}

type roomJoinedEvent struct {
	Type string `json:"type"`
	Room string `json:"room"`
}

type errorEvent struct {
	Type    string `json:"type"`
	Code    int    `json:"code,omitempty"`
	Message string `json:"message"`
}

// frameType extracts the type discriminator from a raw frame. It returns an
// empty string when the frame is not a JSON object with a string type.
func frameType(data []byte) string {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return ""
	}
	return probe.Type
}
