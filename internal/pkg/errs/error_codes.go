/*
Package errs provides custom error types and application-level error code constants.

These error codes identify specific protocol, authorization, and economy errors both
internally within the server and in the error envelopes sent to clients.
*/
package errs

// 1xxx: Protocol Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrInvalidJSONFormat indicates that an envelope body could not be parsed as JSON.
	ErrInvalidJSONFormat = 1002

	// ErrUnknownMessageType indicates an envelope with an unrecognized type discriminator.
	ErrUnknownMessageType = 1003

	// ErrMissingField indicates a recognized envelope type with a required field absent.
	ErrMissingField = 1004

	// ErrMessageContentTooLong indicates that chat message content exceeded the maximum length.
	ErrMessageContentTooLong = 1005

	// ErrRateLimitExceeded indicates that the request or message rate has exceeded the cap.
	ErrRateLimitExceeded = 1006
)

// 3xxx: Session and Authorization Errors
const (
	// ErrAuthRequired indicates an action was attempted before a successful auth envelope.
	ErrAuthRequired = 3001

	// ErrInvalidAuthPayload indicates an auth envelope without a usable user identity.
	ErrInvalidAuthPayload = 3002

	// ErrInvalidToken indicates an identity token that failed verification.
	ErrInvalidToken = 3003

	// ErrSessionKicked indicates that the connection was replaced by a newer one.
	ErrSessionKicked = 3004
)

// 4xxx: Economy Validation Errors
const (
	// ErrInvalidAmount indicates a tip or rain amount that is not a positive integer.
	ErrInvalidAmount = 4001

	// ErrInsufficientBalance indicates an amount exceeding the sender's balance.
	ErrInsufficientBalance = 4002

	// ErrTargetNotFound indicates that no connected session matches the tip target.
	ErrTargetNotFound = 4003

	// ErrSelfTip indicates an attempt to tip oneself.
	ErrSelfTip = 4004

	// ErrBelowMinimum indicates a rain contribution under the configured floor.
	ErrBelowMinimum = 4005

	// ErrRoomNotFound indicates an operation against a room outside the configured set.
	ErrRoomNotFound = 4101
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000
)
