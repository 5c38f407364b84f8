package core

import "errors"

var (
	// ErrUnauthorized indicates the exchange rejected the API key, its permissions or the signature.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrTimestamp indicates the request timestamp fell outside the exchange receive window.
	ErrTimestamp = errors.New("timestamp outside recv window")
	// ErrAccountRejected indicates the account summary carried no balance, so the session cannot continue.
	ErrAccountRejected = errors.New("account summary rejected")
	// ErrUnexpectedPayload indicates a response document did not have the expected shape.
	ErrUnexpectedPayload = errors.New("unexpected payload")
)

var ErrMissingCredentials = errors.New("api key and secret key are required")
