package authsvc

import (
	"errors"

	stdjwt "github.com/dgrijalva/jwt-go"
	kitjwt "github.com/go-kit/kit/auth/jwt"
	"github.com/ichigozero/todokit"
)

// Claim names carried by an access token.
const (
	ClaimTokenID = "uuid"
	ClaimUserID  = "user_id"
	ClaimExpiry  = "exp"
)

var (
	ErrInvalidBody  = todokit.NewError(todokit.Validation, "Invalid request body")
	ErrTokenMissing = todokit.NewError(todokit.Auth, "No token, authorization denied")
	ErrTokenInvalid = todokit.NewError(todokit.Auth, "Token is not valid")
)

// TranslateJWTError turns the errors produced by the go-kit JWT parser into
// auth failures. Anything else is returned unchanged.
func TranslateJWTError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, kitjwt.ErrTokenContextMissing):
		return ErrTokenMissing
	case errors.Is(err, kitjwt.ErrTokenInvalid),
		errors.Is(err, kitjwt.ErrTokenExpired),
		errors.Is(err, kitjwt.ErrTokenMalformed),
		errors.Is(err, kitjwt.ErrTokenNotActive),
		errors.Is(err, kitjwt.ErrUnexpectedSigningMethod),
		errors.Is(err, stdjwt.ErrSignatureInvalid):
		return ErrTokenInvalid
	}

	var verr *stdjwt.ValidationError
	if errors.As(err, &verr) {
		return ErrTokenInvalid
	}
	return err
}
