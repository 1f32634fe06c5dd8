package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the identity-token claims accepted at session auth.
// The external identity provider issues these tokens; the chat core only
// verifies the signature and reads the claims.
type Payload struct {
	// StandardClaims embeds the JWT standard fields (Exp, Iat, Iss) used for
	// token validity checks.
	jwt.StandardClaims `json:"standard_claims"`

	// UserID is the unique identifier of the authenticated user.
	UserID string `json:"userId"`

	// Username is the display name shown in chat and used as the tip target key.
	Username string `json:"username"`

	// Balance is the user's coin balance at issuance time. It seeds the
	// session's cached balance.
	Balance int64 `json:"balance"`

	// IsVip marks privileged users. The flag is carried through to clients verbatim.
	IsVip bool `json:"isVip"`
}
