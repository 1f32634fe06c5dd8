/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
HTTP responses and the error envelopes sent over WebSocket connections.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
// The key is the error code (int), and the value contains the user message and HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: Protocol Errors
	ErrInvalidParams:         {Code: ErrInvalidParams, Message: "Invalid request parameters."},
	ErrInvalidJSONFormat:     {Code: ErrInvalidJSONFormat, Message: "Unsupported message format."},
	ErrUnknownMessageType:    {Code: ErrUnknownMessageType, Message: "Unknown message type."},
	ErrMissingField:          {Code: ErrMissingField, Message: "Missing required field: %s."},
	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Message: "Message is too long."},
	ErrRateLimitExceeded:     {Code: ErrRateLimitExceeded, Message: "Too many requests. Please slow down.", Status: http.StatusTooManyRequests},

	// 3xxx: Session and Authorization Errors
	ErrAuthRequired:       {Code: ErrAuthRequired, Message: "Authentication required."},
	ErrInvalidAuthPayload: {Code: ErrInvalidAuthPayload, Message: "Auth payload must include a user id and username."},
	ErrInvalidToken:       {Code: ErrInvalidToken, Message: "Identity token is invalid or expired."},
	ErrSessionKicked:      {Code: ErrSessionKicked, Message: "You were signed in from another connection."},

	// 4xxx: Economy Validation Errors
	ErrInvalidAmount:       {Code: ErrInvalidAmount, Message: "Amount must be a positive number of coins."},
	ErrInsufficientBalance: {Code: ErrInsufficientBalance, Message: "You don't have enough coins for that."},
	ErrTargetNotFound:      {Code: ErrTargetNotFound, Message: "No online user named %q."},
	ErrSelfTip:             {Code: ErrSelfTip, Message: "You can't tip yourself."},
	ErrBelowMinimum:        {Code: ErrBelowMinimum, Message: "Rain contributions must be at least %d coins."},
	ErrRoomNotFound:        {Code: ErrRoomNotFound, Message: "Chat room not found."},

	// 5xxx: Internal System Errors
	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}
