package jwt

import "github.com/golang-jwt/jwt"

// Payload holds the identity claims carried by a PunkSpace session token.
type Payload struct {
	jwt.StandardClaims `json:"standard_claims"`

	// ID is the numeric user id.
	ID int64 `json:"id"`

	// Username is the handle at the time the token was issued.
	Username string `json:"username"`
}
