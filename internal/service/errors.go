package service

import (
	"errors"
	"fmt"
)

// Error kinds
var (
	ErrValidation    = errors.New("validation error")
	ErrNotFound      = errors.New("resource not found")
	ErrNotAuthorized = errors.New("not authorized")
	ErrDurableWrite  = errors.New("durable write failed")
)

// RequestError 요청자에게 그대로 전달되는 에러 (Message가 클라이언트 메시지)
type RequestError struct {
	Kind    error
	Message string

	base *RequestError
}

func (e *RequestError) Error() string { return e.Message }
func (e *RequestError) Unwrap() error { return e.Kind }

// Is 상세 정보가 붙은 에러도 원래 sentinel과 일치
func (e *RequestError) Is(target error) bool {
	t, ok := target.(*RequestError)
	return ok && e.base != nil && t == e.base
}

// inRoom 거절 사유가 된 방 ID를 메시지에 붙인다
func (e *RequestError) inRoom(roomID string) *RequestError {
	return &RequestError{
		Kind:    e.Kind,
		Message: fmt.Sprintf("%s (room %s)", e.Message, roomID),
		base:    e,
	}
}

func newRequestError(kind error, message string) *RequestError {
	return &RequestError{Kind: kind, Message: message}
}

// Matchmaking errors
var (
	ErrWalletRequired     = newRequestError(ErrValidation, "Wallet address is required")
	ErrWalletNotConnected = newRequestError(ErrValidation, "Please connect your wallet first")
	ErrInvalidGameType    = newRequestError(ErrValidation, "Invalid game type")
	ErrAlreadyQueued      = newRequestError(ErrValidation, "Already in queue for this game")
	ErrQueuedElsewhere    = newRequestError(ErrValidation, "Already in queue for another game")
	ErrAlreadyInRoom      = newRequestError(ErrValidation, "Already playing an active game")
	ErrMalformedEvent     = newRequestError(ErrValidation, "Malformed event")
	ErrRateLimited        = newRequestError(ErrValidation, "Too many requests")
	ErrRoomNotFound       = newRequestError(ErrNotFound, "Room not found")
	ErrPlayerNotInRoom    = newRequestError(ErrNotAuthorized, "Player not in this room")
)

// Query errors
var (
	ErrInvalidLimit = newRequestError(ErrValidation, "Invalid limit")
)
