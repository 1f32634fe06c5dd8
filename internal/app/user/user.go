/*
Package user contains the core data structure for user identity within the chat system.

A User arrives pre-authenticated from the external identity provider; the chat core
trusts the payload and keeps the balance as a local cache of the durable store.
*/
package user

// User represents the identity and cached economic state of a chat participant.
// Fields use JSON tags for serialization in WebSocket envelopes.
type User struct {
	// ID is the unique identifier supplied by the identity provider.
	ID string `json:"id"`

	// Username is the display name, also the case-insensitive tip-target key.
	Username string `json:"username"`

	// Balance is the session-local cached coin balance. The authoritative copy
	// lives in the external balance store.
	Balance int64 `json:"balance"`

	// IsVip marks privileged users as flagged by the identity provider.
	IsVip bool `json:"isVip,omitempty"`

	// IsBot marks the connectionless system pseudo-user.
	IsBot bool `json:"isBot,omitempty"`
}
