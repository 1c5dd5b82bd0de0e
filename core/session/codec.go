package session

import (
	"strings"

	"github.com/dgrijalva/jwt-go"
)

var parser = new(jwt.Parser)

// DecodeError is returned when a bearer token is not a well-formed header.payload.signature structure.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return "invalid token: " + e.Reason + ": " + e.Err.Error()
	}
	return "invalid token: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decode extracts the UserClaims from a bearer token WITHOUT verifying its signature.
// An expired but well-formed token decodes fine.
func Decode(token string) (UserClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return UserClaims{}, &DecodeError{Reason: "empty token"}
	}
	if strings.Count(token, ".") != 2 {
		return UserClaims{}, &DecodeError{Reason: "token must have three segments"}
	}

	var claims UserClaims
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		// an unknown or missing `alg` only prevents verification, which is not our job
		vErr, ok := err.(*jwt.ValidationError)
		if !ok || vErr.Errors&jwt.ValidationErrorMalformed != 0 || vErr.Errors&jwt.ValidationErrorUnverifiable == 0 {
			return UserClaims{}, &DecodeError{Reason: "malformed token", Err: err}
		}
	}
	return claims, nil
}
