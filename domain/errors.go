package domain

import "errors"

var (
	UnexpectedDatabaseError = errors.New("unexpected-database-error")
	ErrRoomNotFound         = errors.New("room-not-found")
	ErrUserNotFound         = errors.New("user-not-found")
	ErrShapeNotFound        = errors.New("shape-not-found")
	ErrInvalidShape         = errors.New("invalid-shape")
	ErrDuplicateUsername    = errors.New("duplicate-username")
	ErrDuplicateRoomSlug    = errors.New("duplicate-room-slug")
)

var (
	UnexpectedTokenGenerationError   = errors.New("unexpected-token-generation-error")
	UnexpectedTokenVerificationError = errors.New("unexpected-token-verification-error")
	ErrInvalidSigningAlg             = errors.New("invalid-signing-algorithm")
	ErrExpiredToken                  = errors.New("expired-token")
	ErrInvalidTokenSignature         = errors.New("invalid-token-signature")
	ErrCorruptedToken                = errors.New("corrupted-token")
)
