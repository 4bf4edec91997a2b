package protocol

import (
	"encoding/json"
	"testing"

	"github.com/pandeygsundaram/gameforge/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	winner := "P1"

	tests := []struct {
		name  string
		frame string
		want  Inbound
	}{
		{
			name:  "connect wallet",
			frame: `{"type":"connect_wallet","payload":{"walletAddress":"0xabc"}}`,
			want:  ConnectWallet{WalletAddress: "0xabc"},
		},
		{
			name:  "join game with string payload",
			frame: `{"type":"join_game","payload":"{\"gameType\":\"game1\"}"}`,
			want:  JoinGame{GameType: models.GameTypeFruitNinja},
		},
		{
			name:  "leave queue",
			frame: `{"type":"leave_queue","payload":{"gameType":"game2"}}`,
			want:  LeaveQueue{GameType: models.GameTypeCornPot},
		},
		{
			name:  "update score",
			frame: `{"type":"update_score","payload":{"roomId":"room_1","score":7}}`,
			want:  UpdateScore{RoomID: "room_1", Score: 7},
		},
		{
			name:  "fractional score",
			frame: `{"type":"update_score","payload":{"roomId":"room_1","score":7.5}}`,
			want:  UpdateScore{RoomID: "room_1", Score: 7.5},
		},
		{
			name:  "end game with winner",
			frame: `{"type":"end_game","payload":{"roomId":"room_1","winnerWallet":"P1"}}`,
			want:  EndGame{RoomID: "room_1", WinnerWallet: &winner},
		},
		{
			name:  "end game draw",
			frame: `{"type":"end_game","payload":{"roomId":"room_1"}}`,
			want:  EndGame{RoomID: "room_1"},
		},
		{
			name:  "missing payload",
			frame: `{"type":"connect_wallet"}`,
			want:  ConnectWallet{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.frame))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode([]byte(`not json`))
	assert.ErrorIs(t, err, ErrMalformedEvent)

	_, err = Decode([]byte(`{"type":"fly_away","payload":{}}`))
	assert.ErrorIs(t, err, ErrUnknownEvent)

	_, err = Decode([]byte(`{"type":"update_score","payload":{"roomId":"r","score":"seven"}}`))
	assert.ErrorIs(t, err, ErrMalformedEvent)

	_, err = Decode([]byte(`{"type":"join_game","payload":"{broken"}`))
	assert.ErrorIs(t, err, ErrMalformedEvent)
}

func TestNewFrame_Encoding(t *testing.T) {
	data, err := json.Marshal(NewFrame(GameEnded{
		RoomID:      "room_1",
		FinalScores: []models.PlayerScore{{Wallet: "P1", Score: 7}, {Wallet: "P2", Score: 0}},
		Message:     "Game completed!",
	}))
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"type": "game_ended",
		"payload": {
			"roomId": "room_1",
			"winnerWallet": null,
			"finalScores": [{"wallet":"P1","score":7},{"wallet":"P2","score":0}],
			"message": "Game completed!"
		}
	}`, string(data))
}
