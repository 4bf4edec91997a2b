// Package protocol defines the websocket wire format. Every frame is an
// envelope {"type": ..., "payload": ...}; inbound frames are decoded once
// into one of the Inbound variants below.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pandeygsundaram/gameforge/internal/models"
)

// 수신 이벤트 타입
const (
	TypeConnectWallet = "connect_wallet"
	TypeJoinGame      = "join_game"
	TypeLeaveQueue    = "leave_queue"
	TypeUpdateScore   = "update_score"
	TypeEndGame       = "end_game"
)

// 송신 이벤트 타입
const (
	TypeMessage            = "message"
	TypeWalletConnected    = "wallet_connected"
	TypeQueued             = "queued"
	TypeLeftQueue          = "left_queue"
	TypeGameMatched        = "game_matched"
	TypeScoreUpdated       = "score_updated"
	TypeGameEnded          = "game_ended"
	TypePlayerDisconnected = "player_disconnected"
	TypePlayerReconnected  = "player_reconnected"
	TypeError              = "error"
)

var (
	ErrUnknownEvent   = errors.New("unknown event type")
	ErrMalformedEvent = errors.New("malformed event payload")
)

// Envelope 공통 프레임
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Inbound 클라이언트 -> 서버 이벤트
type Inbound interface {
	inbound()
}

type ConnectWallet struct {
	WalletAddress string `json:"walletAddress"`
}

type JoinGame struct {
	GameType models.GameType `json:"gameType"`
}

type LeaveQueue struct {
	GameType models.GameType `json:"gameType"`
}

type UpdateScore struct {
	RoomID string  `json:"roomId"`
	Score  float64 `json:"score"`
}

type EndGame struct {
	RoomID       string  `json:"roomId"`
	WinnerWallet *string `json:"winnerWallet,omitempty"`
}

func (ConnectWallet) inbound() {}
func (JoinGame) inbound()      {}
func (LeaveQueue) inbound()    {}
func (UpdateScore) inbound()   {}
func (EndGame) inbound()       {}

// Decode 프레임을 타입별 이벤트로 변환
func Decode(data []byte) (Inbound, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	payload, err := unwrapPayload(env.Payload)
	if err != nil {
		return nil, err
	}

	var event Inbound
	switch env.Type {
	case TypeConnectWallet:
		var e ConnectWallet
		err = decodePayload(payload, &e)
		event = e
	case TypeJoinGame:
		var e JoinGame
		err = decodePayload(payload, &e)
		event = e
	case TypeLeaveQueue:
		var e LeaveQueue
		err = decodePayload(payload, &e)
		event = e
	case TypeUpdateScore:
		var e UpdateScore
		err = decodePayload(payload, &e)
		event = e
	case TypeEndGame:
		var e EndGame
		err = decodePayload(payload, &e)
		event = e
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Type)
	}
	if err != nil {
		return nil, err
	}
	return event, nil
}

// socket.io 클라이언트는 payload를 JSON 문자열로 보내기도 한다
func unwrapPayload(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] != '"' {
		return trimmed, nil
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return json.RawMessage(s), nil
}

func decodePayload(payload json.RawMessage, v interface{}) error {
	if len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return nil
}
