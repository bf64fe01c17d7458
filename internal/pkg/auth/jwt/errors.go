package jwt

import "errors"

var errRevoked = errors.New("token has been revoked")
