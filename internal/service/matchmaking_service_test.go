package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pandeygsundaram/gameforge/internal/models"
	"github.com/pandeygsundaram/gameforge/internal/protocol"
	"github.com/pandeygsundaram/gameforge/pkg/ratelimit"
)

type sentEvent struct {
	to    string
	event protocol.Outbound
}

// fakeTransport 전송 호출 기록
type fakeTransport struct {
	mu         sync.Mutex
	sends      []sentEvent
	broadcasts []sentEvent
	members    map[string]map[string]bool
	closed     []string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{members: make(map[string]map[string]bool)}
}

func (f *fakeTransport) Send(connectionID string, event protocol.Outbound) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, sentEvent{to: connectionID, event: event})
}

func (f *fakeTransport) JoinRoom(roomID string, connectionIDs ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.members[roomID] == nil {
		f.members[roomID] = make(map[string]bool)
	}
	for _, id := range connectionIDs {
		f.members[roomID][id] = true
	}
}

func (f *fakeTransport) LeaveRoom(roomID, connectionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.members[roomID], connectionID)
}

func (f *fakeTransport) Broadcast(roomID string, event protocol.Outbound) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcasts = append(f.broadcasts, sentEvent{to: roomID, event: event})
}

func (f *fakeTransport) CloseRoom(roomID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.members, roomID)
	f.closed = append(f.closed, roomID)
}

// sentTo 해당 연결로 직접 보낸 이벤트
func (f *fakeTransport) sentTo(connectionID string) []protocol.Outbound {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []protocol.Outbound
	for _, s := range f.sends {
		if s.to == connectionID {
			out = append(out, s.event)
		}
	}
	return out
}

// sentOfType 해당 연결로 직접 보낸 특정 타입 이벤트
func (f *fakeTransport) sentOfType(connectionID, eventType string) []protocol.Outbound {
	var out []protocol.Outbound
	for _, e := range f.sentTo(connectionID) {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

// broadcastOf 해당 방에 특정 타입으로 전파된 이벤트
func (f *fakeTransport) broadcastOf(roomID, eventType string) []protocol.Outbound {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []protocol.Outbound
	for _, b := range f.broadcasts {
		if b.to == roomID && b.event.EventType() == eventType {
			out = append(out, b.event)
		}
	}
	return out
}

func (f *fakeTransport) lastBroadcast() sentEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.broadcasts[len(f.broadcasts)-1]
}

func (f *fakeTransport) roomMembers(roomID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for id := range f.members[roomID] {
		out = append(out, id)
	}
	return out
}

type endedSession struct {
	roomID string
	winner *string
	scores []models.PlayerScore
}

// fakeSessions 세션 저장 기록. err가 있으면 모든 호출이 실패한다.
type fakeSessions struct {
	mu      sync.Mutex
	err     error
	nextID  int64
	created []string
	scores  []models.PlayerScore
	ended   []endedSession
	users   []string
}

func (f *fakeSessions) CreateSession(_ context.Context, roomID string, _ models.GameType, _, _ string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.nextID++
	f.created = append(f.created, roomID)
	return f.nextID, nil
}

func (f *fakeSessions) RecordScore(_ context.Context, _ string, wallet string, score float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.scores = append(f.scores, models.PlayerScore{Wallet: wallet, Score: score})
	return nil
}

func (f *fakeSessions) EndSession(_ context.Context, roomID string, winner *string, finalScores []models.PlayerScore) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.ended = append(f.ended, endedSession{roomID: roomID, winner: winner, scores: finalScores})
	return nil
}

func (f *fakeSessions) SaveUser(_ context.Context, wallet string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.users = append(f.users, wallet)
	return nil
}

type testEnv struct {
	svc       *MatchmakingService
	transport *fakeTransport
	sessions  *fakeSessions
	recorder  *RecorderQueue
}

// newTestEnv 워커를 시작하지 않은 기록 큐 사용. recorder.Stop()으로 비운다.
func newTestEnv(t *testing.T, opts MatchmakingOptions) *testEnv {
	t.Helper()
	transport := newFakeTransport()
	sessions := &fakeSessions{}
	recorder := NewRecorderQueue(64, time.Second)
	svc := NewMatchmakingService(transport, sessions, sessions, recorder, opts)
	t.Cleanup(recorder.Stop)
	return &testEnv{svc: svc, transport: transport, sessions: sessions, recorder: recorder}
}

// matchPair P1(c1), P2(c2)를 game1에 매칭시키고 방 ID 반환
func (e *testEnv) matchPair(t *testing.T) string {
	t.Helper()
	require.NoError(t, e.svc.ConnectWallet("c1", "P1"))
	require.NoError(t, e.svc.ConnectWallet("c2", "P2"))
	require.NoError(t, e.svc.JoinGame("c1", models.GameTypeFruitNinja))
	require.NoError(t, e.svc.JoinGame("c2", models.GameTypeFruitNinja))

	matched := e.transport.lastBroadcast()
	require.Equal(t, protocol.TypeGameMatched, matched.event.EventType())
	return matched.to
}

func TestMatchmaking_TwoPlayersAreMatched(t *testing.T) {
	env := newTestEnv(t, MatchmakingOptions{})

	require.NoError(t, env.svc.ConnectWallet("c1", "P1"))
	require.NoError(t, env.svc.ConnectWallet("c2", "P2"))

	require.NoError(t, env.svc.JoinGame("c1", models.GameTypeFruitNinja))
	sent := env.transport.sentTo("c1")
	require.NotEmpty(t, sent)
	queued, ok := sent[len(sent)-1].(protocol.Queued)
	require.True(t, ok)
	assert.Equal(t, 1, queued.Position)
	assert.Equal(t, 1, env.svc.QueuePosition(models.GameTypeFruitNinja, "P1"))

	require.NoError(t, env.svc.JoinGame("c2", models.GameTypeFruitNinja))

	last := env.transport.lastBroadcast()
	matched, ok := last.event.(protocol.GameMatched)
	require.True(t, ok)
	assert.Equal(t, last.to, matched.RoomID)
	assert.Equal(t, models.GameTypeFruitNinja, matched.GameType)
	assert.Equal(t, []models.PlayerScore{{Wallet: "P1", Score: 0}, {Wallet: "P2", Score: 0}}, matched.Players)
	assert.ElementsMatch(t, []string{"c1", "c2"}, env.transport.roomMembers(matched.RoomID))

	stats := env.svc.Stats()
	assert.Equal(t, 1, stats.ActiveRooms)
	assert.Equal(t, 0, stats.Queues[models.GameTypeFruitNinja])
	assert.Equal(t, 2, stats.ConnectedUsers)
	assert.Equal(t, 0, env.svc.QueuePosition(models.GameTypeFruitNinja, "P1"))
}

func TestMatchmaking_ScoreUpdateAndEnd(t *testing.T) {
	env := newTestEnv(t, MatchmakingOptions{})
	roomID := env.matchPair(t)

	require.NoError(t, env.svc.UpdateScore("c1", roomID, 7))
	updates := env.transport.broadcastOf(roomID, protocol.TypeScoreUpdated)
	require.Len(t, updates, 1)
	update := updates[0].(protocol.ScoreUpdated)
	assert.Equal(t, "P1", update.PlayerWallet)
	assert.Equal(t, 7.0, update.Score)
	assert.Equal(t, []models.PlayerScore{{Wallet: "P1", Score: 7}, {Wallet: "P2", Score: 0}}, update.GameState.Players)

	// 점수는 누적이 아니라 덮어쓴다
	require.NoError(t, env.svc.UpdateScore("c1", roomID, 3))
	room, err := env.svc.Room(roomID)
	require.NoError(t, err)
	assert.Equal(t, 3.0, room.Players[0].Score)

	winner := "P1"
	require.NoError(t, env.svc.EndGame(roomID, &winner))

	ended := env.transport.broadcastOf(roomID, protocol.TypeGameEnded)
	require.Len(t, ended, 1)
	gameEnded := ended[0].(protocol.GameEnded)
	require.NotNil(t, gameEnded.WinnerWallet)
	assert.Equal(t, "P1", *gameEnded.WinnerWallet)
	assert.Equal(t, []models.PlayerScore{{Wallet: "P1", Score: 3}, {Wallet: "P2", Score: 0}}, gameEnded.FinalScores)
	assert.Contains(t, env.transport.closed, roomID)

	err = env.svc.UpdateScore("c1", roomID, 9)
	assert.ErrorIs(t, err, ErrRoomNotFound)

	err = env.svc.EndGame(roomID, &winner)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.svc.Room(roomID)
	assert.ErrorIs(t, err, ErrRoomNotFound)
	assert.Equal(t, 0, env.svc.Stats().ActiveRooms)
}

func TestMatchmaking_EndGameWithoutWinner(t *testing.T) {
	env := newTestEnv(t, MatchmakingOptions{})
	roomID := env.matchPair(t)

	empty := ""
	require.NoError(t, env.svc.EndGame(roomID, &empty))

	ended := env.transport.broadcastOf(roomID, protocol.TypeGameEnded)
	require.Len(t, ended, 1)
	assert.Nil(t, ended[0].(protocol.GameEnded).WinnerWallet)
}

func TestMatchmaking_JoinValidation(t *testing.T) {
	env := newTestEnv(t, MatchmakingOptions{})

	assert.ErrorIs(t, env.svc.ConnectWallet("c1", ""), ErrWalletRequired)
	assert.ErrorIs(t, env.svc.JoinGame("c1", models.GameTypeFruitNinja), ErrWalletNotConnected)

	require.NoError(t, env.svc.ConnectWallet("c1", "P1"))
	assert.ErrorIs(t, env.svc.JoinGame("c1", models.GameType("chess")), ErrInvalidGameType)

	require.NoError(t, env.svc.JoinGame("c1", models.GameTypeFruitNinja))
	assert.ErrorIs(t, env.svc.JoinGame("c1", models.GameTypeFruitNinja), ErrAlreadyQueued)
	assert.ErrorIs(t, env.svc.JoinGame("c1", models.GameTypeCornPot), ErrQueuedElsewhere)
	assert.Equal(t, 1, env.svc.Stats().Queues[models.GameTypeFruitNinja])
	assert.Equal(t, 0, env.svc.Stats().Queues[models.GameTypeCornPot])
}

func TestMatchmaking_PlayerInRoomCannotQueue(t *testing.T) {
	env := newTestEnv(t, MatchmakingOptions{})
	roomID := env.matchPair(t)

	err := env.svc.JoinGame("c1", models.GameTypeCornPot)
	assert.ErrorIs(t, err, ErrAlreadyInRoom)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), roomID)
	assert.Equal(t, 1, env.svc.Stats().ActiveRooms)
}

func TestMatchmaking_JoinAfterOpponentLeftClosesRoom(t *testing.T) {
	env := newTestEnv(t, MatchmakingOptions{})
	roomID := env.matchPair(t)

	env.svc.Disconnect("c2")
	require.NoError(t, env.svc.JoinGame("c1", models.GameTypeCornPot))

	ended := env.transport.broadcastOf(roomID, protocol.TypeGameEnded)
	require.Len(t, ended, 1)
	assert.Nil(t, ended[0].(protocol.GameEnded).WinnerWallet)
	assert.Contains(t, env.transport.closed, roomID)

	stats := env.svc.Stats()
	assert.Equal(t, 0, stats.ActiveRooms)
	assert.Equal(t, 1, stats.Queues[models.GameTypeCornPot])
}

func TestMatchmaking_LeaveQueue(t *testing.T) {
	env := newTestEnv(t, MatchmakingOptions{})
	require.NoError(t, env.svc.ConnectWallet("c1", "P1"))
	require.NoError(t, env.svc.JoinGame("c1", models.GameTypeCornPot))

	require.NoError(t, env.svc.LeaveQueue("c1", models.GameTypeCornPot))
	require.NoError(t, env.svc.LeaveQueue("c1", models.GameTypeCornPot))
	assert.Equal(t, 0, env.svc.QueuePosition(models.GameTypeCornPot, "P1"))

	sent := env.transport.sentTo("c1")
	_, ok := sent[len(sent)-1].(protocol.LeftQueue)
	assert.True(t, ok)

	assert.ErrorIs(t, env.svc.LeaveQueue("c9", models.GameTypeCornPot), ErrWalletNotConnected)
}

func TestMatchmaking_OutsiderCannotUpdateScore(t *testing.T) {
	env := newTestEnv(t, MatchmakingOptions{})
	roomID := env.matchPair(t)
	require.NoError(t, env.svc.ConnectWallet("c3", "P3"))

	err := env.svc.UpdateScore("c3", roomID, 5)
	assert.ErrorIs(t, err, ErrPlayerNotInRoom)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	room, err := env.svc.Room(roomID)
	require.NoError(t, err)
	assert.Equal(t, []models.PlayerScore{{Wallet: "P1", Score: 0}, {Wallet: "P2", Score: 0}}, room.Scores())
	assert.Empty(t, env.transport.broadcastOf(roomID, protocol.TypeScoreUpdated))

	assert.ErrorIs(t, env.svc.UpdateScore("c3", "room_missing", 5), ErrRoomNotFound)
}

func TestMatchmaking_DisconnectKeepsRoomActive(t *testing.T) {
	env := newTestEnv(t, MatchmakingOptions{})
	roomID := env.matchPair(t)

	env.svc.Disconnect("c1")

	room, err := env.svc.Room(roomID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusActive, room.Status)

	notices := env.transport.broadcastOf(roomID, protocol.TypePlayerDisconnected)
	require.Len(t, notices, 1)
	assert.Equal(t, "P1", notices[0].(protocol.PlayerDisconnected).DisconnectedPlayer)
	assert.Equal(t, []string{"c2"}, env.transport.roomMembers(roomID))
	assert.Equal(t, 1, env.svc.Stats().ConnectedUsers)

	// 같은 연결의 두 번째 종료는 무시
	env.svc.Disconnect("c1")
	assert.Len(t, env.transport.broadcastOf(roomID, protocol.TypePlayerDisconnected), 1)
}

func TestMatchmaking_DisconnectRemovesFromQueues(t *testing.T) {
	env := newTestEnv(t, MatchmakingOptions{})
	require.NoError(t, env.svc.ConnectWallet("c1", "P1"))
	require.NoError(t, env.svc.JoinGame("c1", models.GameTypeCornPot))

	env.svc.Disconnect("c1")

	assert.Equal(t, 0, env.svc.Stats().Queues[models.GameTypeCornPot])
	assert.Equal(t, 0, env.svc.Stats().ConnectedUsers)
}

func TestMatchmaking_ReconnectRejoinsRoom(t *testing.T) {
	env := newTestEnv(t, MatchmakingOptions{})
	roomID := env.matchPair(t)

	env.svc.Disconnect("c1")
	require.NoError(t, env.svc.ConnectWallet("c3", "P1"))

	assert.Empty(t, env.transport.broadcastOf(roomID, protocol.TypePlayerReconnected))

	own := env.transport.sentOfType("c3", protocol.TypePlayerReconnected)
	require.Len(t, own, 1)
	resumed := own[0].(protocol.PlayerReconnected)
	assert.Equal(t, roomID, resumed.RoomID)
	assert.Equal(t, models.GameTypeFruitNinja, resumed.GameType)
	assert.Equal(t, "Rejoined your active game", resumed.Message)

	opponent := env.transport.sentOfType("c2", protocol.TypePlayerReconnected)
	require.Len(t, opponent, 1)
	assert.Equal(t, "P1", opponent[0].(protocol.PlayerReconnected).Wallet)
	assert.Equal(t, "Your opponent has reconnected", opponent[0].(protocol.PlayerReconnected).Message)

	assert.ElementsMatch(t, []string{"c2", "c3"}, env.transport.roomMembers(roomID))

	require.NoError(t, env.svc.UpdateScore("c3", roomID, 4))
	room, err := env.svc.Room(roomID)
	require.NoError(t, err)
	assert.Equal(t, 4.0, room.Players[0].Score)
	assert.Nil(t, room.Players[0].DisconnectedAt)
}

func TestMatchmaking_ReconnectAfterBothLeftCanQueueAgain(t *testing.T) {
	env := newTestEnv(t, MatchmakingOptions{})
	roomID := env.matchPair(t)
	require.NoError(t, env.svc.UpdateScore("c1", roomID, 6.5))

	env.svc.Disconnect("c1")
	env.svc.Disconnect("c2")
	require.NoError(t, env.svc.ConnectWallet("c3", "P1"))

	// 재접속한 본인은 방 ID와 점수를 받는다
	resumed := env.transport.sentOfType("c3", protocol.TypePlayerReconnected)
	require.Len(t, resumed, 1)
	notice := resumed[0].(protocol.PlayerReconnected)
	assert.Equal(t, roomID, notice.RoomID)
	assert.Equal(t, []models.PlayerScore{{Wallet: "P1", Score: 6.5}, {Wallet: "P2", Score: 0}}, notice.Players)
	assert.Empty(t, env.transport.sentOfType("c2", protocol.TypePlayerReconnected))

	require.NoError(t, env.svc.JoinGame("c3", models.GameTypeCornPot))

	ended := env.transport.broadcastOf(roomID, protocol.TypeGameEnded)
	require.Len(t, ended, 1)
	assert.Nil(t, ended[0].(protocol.GameEnded).WinnerWallet)
	assert.Equal(t, 0, env.svc.Stats().ActiveRooms)
	assert.Equal(t, 1, env.svc.QueuePosition(models.GameTypeCornPot, "P1"))
}

func TestMatchmaking_SwitchingWalletLeavesSeat(t *testing.T) {
	env := newTestEnv(t, MatchmakingOptions{})
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	env.svc.now = func() time.Time { return now }
	roomID := env.matchPair(t)

	require.NoError(t, env.svc.ConnectWallet("c1", "X"))

	assert.Equal(t, []string{"c2"}, env.transport.roomMembers(roomID))
	notices := env.transport.broadcastOf(roomID, protocol.TypePlayerDisconnected)
	require.Len(t, notices, 1)
	assert.Equal(t, "P1", notices[0].(protocol.PlayerDisconnected).DisconnectedPlayer)

	room, err := env.svc.Room(roomID)
	require.NoError(t, err)
	require.NotNil(t, room.Players[0].DisconnectedAt)
	assert.Equal(t, now, *room.Players[0].DisconnectedAt)

	// c1 종료는 X 기준으로 처리되고 P1 방에는 영향 없음
	env.svc.Disconnect("c1")
	assert.Len(t, env.transport.broadcastOf(roomID, protocol.TypePlayerDisconnected), 1)
	assert.Equal(t, 1, env.svc.Stats().ConnectedUsers)

	// 남은 상대는 새 게임을 시작할 수 있다
	require.NoError(t, env.svc.JoinGame("c2", models.GameTypeCornPot))
	assert.Equal(t, 0, env.svc.Stats().ActiveRooms)
}

func TestMatchmaking_StaleConnectionDisconnectIgnored(t *testing.T) {
	env := newTestEnv(t, MatchmakingOptions{})
	roomID := env.matchPair(t)

	// 끊기 전에 새 연결로 옮겨감
	require.NoError(t, env.svc.ConnectWallet("c3", "P1"))
	env.svc.Disconnect("c1")

	assert.Empty(t, env.transport.broadcastOf(roomID, protocol.TypePlayerDisconnected))
	assert.Equal(t, 2, env.svc.Stats().ConnectedUsers)
	require.NoError(t, env.svc.UpdateScore("c3", roomID, 1))
}

func TestMatchmaking_QueuedWalletFollowsNewConnection(t *testing.T) {
	env := newTestEnv(t, MatchmakingOptions{})
	require.NoError(t, env.svc.ConnectWallet("c1", "P1"))
	require.NoError(t, env.svc.JoinGame("c1", models.GameTypeFruitNinja))
	require.NoError(t, env.svc.ConnectWallet("c3", "P1"))

	require.NoError(t, env.svc.ConnectWallet("c2", "P2"))
	require.NoError(t, env.svc.JoinGame("c2", models.GameTypeFruitNinja))

	roomID := env.transport.lastBroadcast().to
	assert.ElementsMatch(t, []string{"c2", "c3"}, env.transport.roomMembers(roomID))
}

func TestMatchmaking_SessionRecorded(t *testing.T) {
	env := newTestEnv(t, MatchmakingOptions{})
	roomID := env.matchPair(t)
	require.NoError(t, env.svc.UpdateScore("c2", roomID, 11))

	// 방 종료 전에 세션 생성 작업만 먼저 처리
	env.recorder.Start()
	require.Eventually(t, func() bool {
		room, err := env.svc.Room(roomID)
		return err == nil && room.SessionID != nil
	}, time.Second, 10*time.Millisecond)

	room, err := env.svc.Room(roomID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), *room.SessionID)

	winner := "P2"
	require.NoError(t, env.svc.EndGame(roomID, &winner))
	env.recorder.Stop()

	env.sessions.mu.Lock()
	defer env.sessions.mu.Unlock()
	assert.Equal(t, []string{roomID}, env.sessions.created)
	assert.Equal(t, []models.PlayerScore{{Wallet: "P2", Score: 11}}, env.sessions.scores)
	require.Len(t, env.sessions.ended, 1)
	assert.Equal(t, "P2", *env.sessions.ended[0].winner)
	assert.Equal(t, []models.PlayerScore{{Wallet: "P1", Score: 0}, {Wallet: "P2", Score: 11}}, env.sessions.ended[0].scores)
	assert.ElementsMatch(t, []string{"P1", "P2"}, env.sessions.users)
}

func TestMatchmaking_RecorderFailureDoesNotBlockGame(t *testing.T) {
	env := newTestEnv(t, MatchmakingOptions{})
	env.sessions.err = errors.New("database unavailable")

	roomID := env.matchPair(t)
	env.recorder.Stop()

	room, err := env.svc.Room(roomID)
	require.NoError(t, err)
	assert.Nil(t, room.SessionID)

	require.NoError(t, env.svc.UpdateScore("c1", roomID, 2))
	assert.Len(t, env.transport.broadcastOf(roomID, protocol.TypeScoreUpdated), 1)

	require.NoError(t, env.svc.EndGame(roomID, nil))
	assert.Len(t, env.transport.broadcastOf(roomID, protocol.TypeGameEnded), 1)
}

func TestMatchmaking_WithoutRecorder(t *testing.T) {
	transport := newFakeTransport()
	svc := NewMatchmakingService(transport, nil, nil, nil, MatchmakingOptions{})

	require.NoError(t, svc.ConnectWallet("c1", "P1"))
	require.NoError(t, svc.ConnectWallet("c2", "P2"))
	require.NoError(t, svc.JoinGame("c1", models.GameTypeCornPot))
	require.NoError(t, svc.JoinGame("c2", models.GameTypeCornPot))

	assert.Equal(t, 1, svc.Stats().ActiveRooms)
}

func TestMatchmaking_ReapOrphanedRooms(t *testing.T) {
	env := newTestEnv(t, MatchmakingOptions{ReapEnabled: true, ReapAfter: 10 * time.Minute})
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	env.svc.now = func() time.Time { return now }

	roomID := env.matchPair(t)
	env.svc.Disconnect("c1")

	now = now.Add(5 * time.Minute)
	assert.Equal(t, 0, env.svc.ReapOrphanedRooms())

	now = now.Add(6 * time.Minute)
	assert.Equal(t, 1, env.svc.ReapOrphanedRooms())

	ended := env.transport.broadcastOf(roomID, protocol.TypeGameEnded)
	require.Len(t, ended, 1)
	assert.Nil(t, ended[0].(protocol.GameEnded).WinnerWallet)
	assert.Equal(t, 0, env.svc.Stats().ActiveRooms)
}

func TestMatchmaking_StartStopWithoutReaper(t *testing.T) {
	env := newTestEnv(t, MatchmakingOptions{})
	env.svc.Start()
	env.svc.Stop()

	reaping := newTestEnv(t, MatchmakingOptions{ReapEnabled: true, ReapInterval: 10 * time.Millisecond})
	reaping.svc.Start()
	reaping.svc.Start()
	reaping.svc.Stop()
	reaping.svc.Stop()
}

func TestMatchmaking_EventRouting(t *testing.T) {
	env := newTestEnv(t, MatchmakingOptions{})

	env.svc.OnConnect("c1")
	welcome := env.transport.sentTo("c1")
	require.Len(t, welcome, 1)
	assert.Equal(t, protocol.TypeMessage, welcome[0].EventType())

	env.svc.OnEvent("c1", protocol.JoinGame{GameType: models.GameTypeFruitNinja})
	env.svc.OnEvent("c1", protocol.ConnectWallet{WalletAddress: "P1"})
	env.svc.OnEvent("c1", protocol.JoinGame{GameType: models.GameTypeFruitNinja})

	sent := env.transport.sentTo("c1")
	require.Len(t, sent, 4)
	assert.Equal(t, protocol.Error{Message: "Please connect your wallet first"}, sent[1])
	assert.Equal(t, protocol.TypeWalletConnected, sent[2].EventType())
	assert.Equal(t, protocol.TypeQueued, sent[3].EventType())
}

func TestMatchmaking_OnReject(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
	}{
		{"request error", ErrRoomNotFound, "Room not found"},
		{"malformed", protocol.ErrMalformedEvent, "Malformed event"},
		{"unknown event", protocol.ErrUnknownEvent, "Malformed event"},
		{"rate limited", ratelimit.ErrRateLimited, "Too many requests"},
		{"internal", errors.New("boom"), "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, MatchmakingOptions{})
			env.svc.OnReject("c1", tt.err)

			assert.Equal(t, []protocol.Outbound{protocol.Error{Message: tt.message}}, env.transport.sentTo("c1"))
			assert.Empty(t, env.transport.broadcasts)
		})
	}
}
