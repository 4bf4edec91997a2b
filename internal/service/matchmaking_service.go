package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pandeygsundaram/gameforge/internal/matchmaking"
	"github.com/pandeygsundaram/gameforge/internal/models"
	"github.com/pandeygsundaram/gameforge/internal/protocol"
	"github.com/pandeygsundaram/gameforge/pkg/logger"
	"github.com/pandeygsundaram/gameforge/pkg/ratelimit"
)

// Transport 연결/방 단위 전송 (websocket Hub가 구현)
type Transport interface {
	Send(connectionID string, event protocol.Outbound)
	JoinRoom(roomID string, connectionIDs ...string)
	LeaveRoom(roomID, connectionID string)
	Broadcast(roomID string, event protocol.Outbound)
	CloseRoom(roomID string)
}

// SessionRecorder 게임 세션 영속 저장소
type SessionRecorder interface {
	CreateSession(ctx context.Context, roomID string, gameType models.GameType, walletA, walletB string) (int64, error)
	RecordScore(ctx context.Context, roomID, wallet string, score float64) error
	EndSession(ctx context.Context, roomID string, winner *string, finalScores []models.PlayerScore) error
}

// UserRecorder 지갑 사용자 저장소
type UserRecorder interface {
	SaveUser(ctx context.Context, wallet string) error
}

// MatchmakingOptions 연결이 끊긴 방 정리 정책
type MatchmakingOptions struct {
	ReapEnabled  bool
	ReapAfter    time.Duration
	ReapInterval time.Duration
}

// MatchmakingService 매칭 큐, 방 레지스트리, 지갑 바인딩을 소유한다.
// 모든 상태 변경은 mu 아래에서 끝까지 처리되고, 브로드캐스트도 같은
// 임계 구역에서 전송 큐에 넣어 방별 순서를 보장한다.
type MatchmakingService struct {
	mu         sync.Mutex
	queue      *matchmaking.Queue
	rooms      *matchmaking.Rooms
	identities *matchmaking.Identities

	transport Transport
	sessions  SessionRecorder
	users     UserRecorder
	recorder  *RecorderQueue

	opts   MatchmakingOptions
	now    func() time.Time
	logger *zap.Logger

	runMu    sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewMatchmakingService(
	transport Transport,
	sessions SessionRecorder,
	users UserRecorder,
	recorder *RecorderQueue,
	opts MatchmakingOptions,
) *MatchmakingService {
	if opts.ReapAfter <= 0 {
		opts.ReapAfter = 10 * time.Minute
	}
	if opts.ReapInterval <= 0 {
		opts.ReapInterval = time.Minute
	}

	return &MatchmakingService{
		queue:      matchmaking.NewQueue(),
		rooms:      matchmaking.NewRooms(),
		identities: matchmaking.NewIdentities(),
		transport:  transport,
		sessions:   sessions,
		users:      users,
		recorder:   recorder,
		opts:       opts,
		now:        time.Now,
		logger:     logger.Named("matchmaking"),
		stopChan:   make(chan struct{}),
	}
}

// Start 방 정리 루프 시작 (ReapEnabled일 때만)
func (s *MatchmakingService) Start() {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.running || !s.opts.ReapEnabled {
		return
	}
	s.running = true

	s.logger.Info("Starting orphaned room reaper",
		zap.Duration("after", s.opts.ReapAfter),
		zap.Duration("interval", s.opts.ReapInterval))

	s.wg.Add(1)
	go s.reapLoop()
}

// Stop 방 정리 루프 중지
func (s *MatchmakingService) Stop() {
	s.runMu.Lock()
	if !s.running {
		s.runMu.Unlock()
		return
	}
	s.running = false
	s.runMu.Unlock()

	close(s.stopChan)
	s.wg.Wait()
	s.logger.Info("Orphaned room reaper stopped")
}

func (s *MatchmakingService) reapLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.opts.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := s.ReapOrphanedRooms(); n > 0 {
				s.logger.Info("Reaped orphaned rooms", zap.Int("count", n))
			}
		case <-s.stopChan:
			return
		}
	}
}

// OnConnect 새 연결 환영 메시지
func (s *MatchmakingService) OnConnect(connectionID string) {
	s.logger.Info("Client connected", zap.String("connectionId", connectionID))
	s.transport.Send(connectionID, protocol.Message{Msg: "You are connected to the game server!"})
}

// OnEvent 수신 이벤트 처리. 실패하면 요청한 연결에만 에러 전송.
func (s *MatchmakingService) OnEvent(connectionID string, event protocol.Inbound) {
	if err := s.Handle(connectionID, event); err != nil {
		s.OnReject(connectionID, err)
	}
}

// OnReject 거절된 요청을 요청자에게 알린다
func (s *MatchmakingService) OnReject(connectionID string, err error) {
	var reqErr *RequestError
	switch {
	case errors.As(err, &reqErr):
	case errors.Is(err, protocol.ErrMalformedEvent), errors.Is(err, protocol.ErrUnknownEvent):
		reqErr = ErrMalformedEvent
	case errors.Is(err, ratelimit.ErrRateLimited):
		reqErr = ErrRateLimited
	default:
		s.logger.Error("Unhandled request error", zap.String("connectionId", connectionID), zap.Error(err))
		reqErr = newRequestError(err, "Internal server error")
	}

	s.logger.Debug("Request rejected",
		zap.String("connectionId", connectionID),
		zap.String("reason", reqErr.Message))
	s.transport.Send(connectionID, protocol.Error{Message: reqErr.Message})
}

// OnDisconnect 연결 종료
func (s *MatchmakingService) OnDisconnect(connectionID string) {
	s.Disconnect(connectionID)
}

// Handle 이벤트 종류별 분기
func (s *MatchmakingService) Handle(connectionID string, event protocol.Inbound) error {
	switch e := event.(type) {
	case protocol.ConnectWallet:
		return s.ConnectWallet(connectionID, e.WalletAddress)
	case protocol.JoinGame:
		return s.JoinGame(connectionID, e.GameType)
	case protocol.LeaveQueue:
		return s.LeaveQueue(connectionID, e.GameType)
	case protocol.UpdateScore:
		return s.UpdateScore(connectionID, e.RoomID, e.Score)
	case protocol.EndGame:
		return s.EndGame(e.RoomID, e.WinnerWallet)
	default:
		return ErrMalformedEvent
	}
}

// ConnectWallet 연결에 지갑 바인딩 (나중 연결이 이김)
func (s *MatchmakingService) ConnectWallet(connectionID, wallet string) error {
	if wallet == "" {
		return ErrWalletRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// 같은 연결이 다른 지갑으로 바꾸면 이전 지갑은 연결이 끊긴 것으로 처리
	if oldWallet, ok := s.identities.IdentityOf(connectionID); ok && oldWallet != wallet {
		s.detachLocked(oldWallet, connectionID)
	}

	if previous := s.identities.Bind(wallet, connectionID); previous != "" {
		s.logger.Info("Wallet moved to a new connection",
			zap.String("wallet", wallet),
			zap.String("previousConnectionId", previous),
			zap.String("connectionId", connectionID))
	}
	s.queue.Rebind(wallet, connectionID)

	if s.users != nil && s.recorder != nil {
		s.recorder.submit("save_user", func(ctx context.Context) error {
			if err := s.users.SaveUser(ctx, wallet); err != nil {
				return fmt.Errorf("%w: save user %s: %v", ErrDurableWrite, wallet, err)
			}
			return nil
		})
	}

	s.transport.Send(connectionID, protocol.WalletConnected{
		Message:       "Wallet connected successfully",
		WalletAddress: wallet,
	})

	for _, reseat := range s.rooms.Reconnect(wallet, connectionID) {
		s.rejoinLocked(reseat, wallet, connectionID)
	}

	s.logger.Info("Wallet connected", zap.String("wallet", wallet), zap.String("connectionId", connectionID))
	return nil
}

// rejoinLocked 재접속한 연결을 방 그룹으로 옮기고 양쪽에 알린다. mu 보유 상태에서 호출.
func (s *MatchmakingService) rejoinLocked(reseat matchmaking.Reseat, wallet, connectionID string) {
	room := reseat.Room
	if reseat.PreviousConnection != "" && reseat.PreviousConnection != connectionID {
		s.transport.LeaveRoom(room.ID, reseat.PreviousConnection)
	}
	s.transport.JoinRoom(room.ID, connectionID)

	notice := protocol.PlayerReconnected{
		RoomID:   room.ID,
		GameType: room.GameType,
		Wallet:   wallet,
		Players:  room.Scores(),
	}

	notice.Message = "Rejoined your active game"
	s.transport.Send(connectionID, notice)

	notice.Message = "Your opponent has reconnected"
	for _, p := range room.Players {
		if p.Wallet != wallet && p.DisconnectedAt == nil {
			s.transport.Send(p.ConnectionID, notice)
		}
	}

	s.logger.Info("Player rejoined room", zap.String("wallet", wallet), zap.String("roomId", room.ID))
}

// JoinGame 대기 중인 상대가 있으면 즉시 매칭, 없으면 큐에 추가
func (s *MatchmakingService) JoinGame(connectionID string, gameType models.GameType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	wallet, ok := s.identities.IdentityOf(connectionID)
	if !ok {
		return ErrWalletNotConnected
	}
	if !gameType.IsValid() {
		return ErrInvalidGameType
	}
	if s.queue.IsQueued(gameType, wallet) {
		return ErrAlreadyQueued
	}
	if _, queued := s.queue.QueuedIn(wallet); queued {
		return ErrQueuedElsewhere
	}
	// 상대가 떠난 방은 무승부로 정리하고 새 게임을 허용
	for _, room := range s.rooms.RoomsOf(wallet) {
		if !opponentGone(room, wallet) {
			return ErrAlreadyInRoom.inRoom(room.ID)
		}
		if err := s.endRoomLocked(room.ID, nil, "Game ended: opponent did not return"); err != nil {
			return err
		}
		s.logger.Info("Abandoned room closed before rejoining queue",
			zap.String("roomId", room.ID), zap.String("wallet", wallet))
	}

	self := models.QueuedPlayer{Wallet: wallet, ConnectionID: connectionID, JoinedAt: s.now()}

	if opponent, found := s.queue.FindMatch(gameType, wallet); found {
		return s.createMatchLocked(gameType, opponent, self)
	}

	if err := s.queue.Enqueue(gameType, self); err != nil {
		return ErrAlreadyQueued
	}

	s.transport.Send(connectionID, protocol.Queued{
		GameType: gameType,
		Position: s.queue.Position(gameType, wallet),
		Message:  "Looking for opponent...",
	})

	s.logger.Info("Player joined queue",
		zap.String("wallet", wallet),
		zap.String("gameType", string(gameType)),
		zap.Int("queueLength", s.queue.Len(gameType)))
	return nil
}

func opponentGone(room *models.Room, wallet string) bool {
	for _, p := range room.Players {
		if p.Wallet != wallet && p.DisconnectedAt != nil {
			return true
		}
	}
	return false
}

// createMatchLocked 큐에서 둘을 빼고 방 생성 후 매칭 알림. mu 보유 상태에서 호출.
func (s *MatchmakingService) createMatchLocked(gameType models.GameType, waiting, joining models.QueuedPlayer) error {
	s.queue.Dequeue(gameType, waiting.Wallet)
	s.queue.Dequeue(gameType, joining.Wallet)

	room, err := s.rooms.Create(gameType, waiting, joining, s.now())
	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}

	roomID := room.ID
	if s.sessions != nil && s.recorder != nil {
		s.recorder.submit("create_session", func(ctx context.Context) error {
			sessionID, err := s.sessions.CreateSession(ctx, roomID, gameType, waiting.Wallet, joining.Wallet)
			if err != nil {
				return fmt.Errorf("%w: create session %s: %v", ErrDurableWrite, roomID, err)
			}
			s.attachSession(roomID, sessionID)
			return nil
		})
	}

	s.transport.JoinRoom(roomID, waiting.ConnectionID, joining.ConnectionID)
	s.transport.Broadcast(roomID, protocol.GameMatched{
		RoomID:   roomID,
		GameType: gameType,
		Players:  room.Scores(),
		Message:  "Game match found! Get ready to play!",
	})

	s.logger.Info("Match created",
		zap.String("roomId", roomID),
		zap.String("gameType", string(gameType)),
		zap.String("player1", waiting.Wallet),
		zap.String("player2", joining.Wallet))
	return nil
}

func (s *MatchmakingService) attachSession(roomID string, sessionID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.rooms.AttachSession(roomID, sessionID) {
		s.logger.Debug("Session created for a room that already ended",
			zap.String("roomId", roomID), zap.Int64("sessionId", sessionID))
	}
}

// LeaveQueue 대기 취소 (여러 번 호출해도 무방)
func (s *MatchmakingService) LeaveQueue(connectionID string, gameType models.GameType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	wallet, ok := s.identities.IdentityOf(connectionID)
	if !ok {
		return ErrWalletNotConnected
	}
	if !gameType.IsValid() {
		return ErrInvalidGameType
	}

	s.queue.Dequeue(gameType, wallet)
	s.transport.Send(connectionID, protocol.LeftQueue{GameType: gameType, Message: "Left the queue"})

	s.logger.Info("Player left queue", zap.String("wallet", wallet), zap.String("gameType", string(gameType)))
	return nil
}

// UpdateScore 참가자 점수 덮어쓰기 후 방 전체에 전파
func (s *MatchmakingService) UpdateScore(connectionID, roomID string, score float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.rooms.Get(roomID); err != nil {
		return ErrRoomNotFound
	}
	wallet, ok := s.identities.IdentityOf(connectionID)
	if !ok {
		return ErrWalletNotConnected
	}

	room, err := s.rooms.UpdateScore(roomID, wallet, score)
	switch {
	case errors.Is(err, matchmaking.ErrRoomNotFound):
		return ErrRoomNotFound
	case errors.Is(err, matchmaking.ErrPlayerNotInRoom):
		return ErrPlayerNotInRoom
	case err != nil:
		return err
	}

	if s.sessions != nil && s.recorder != nil {
		s.recorder.submit("record_score", func(ctx context.Context) error {
			if err := s.sessions.RecordScore(ctx, roomID, wallet, score); err != nil {
				return fmt.Errorf("%w: record score %s: %v", ErrDurableWrite, roomID, err)
			}
			return nil
		})
	}

	s.transport.Broadcast(roomID, protocol.ScoreUpdated{
		PlayerWallet: wallet,
		Score:        score,
		GameState:    protocol.GameState{Players: room.Scores()},
	})

	s.logger.Debug("Score updated",
		zap.String("roomId", roomID),
		zap.String("wallet", wallet),
		zap.Float64("score", score))
	return nil
}

// EndGame 방 종료. 종료된 방은 더 이상 조회되지 않는다.
func (s *MatchmakingService) EndGame(roomID string, winner *string) error {
	if winner != nil && *winner == "" {
		winner = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.endRoomLocked(roomID, winner, "Game completed!")
}

func (s *MatchmakingService) endRoomLocked(roomID string, winner *string, message string) error {
	room, err := s.rooms.End(roomID)
	if err != nil {
		return ErrRoomNotFound
	}

	finalScores := room.Scores()
	if s.sessions != nil && s.recorder != nil {
		s.recorder.submit("end_session", func(ctx context.Context) error {
			if err := s.sessions.EndSession(ctx, roomID, winner, finalScores); err != nil {
				return fmt.Errorf("%w: end session %s: %v", ErrDurableWrite, roomID, err)
			}
			return nil
		})
	}

	s.transport.Broadcast(roomID, protocol.GameEnded{
		RoomID:       roomID,
		WinnerWallet: winner,
		FinalScores:  finalScores,
		Message:      message,
	})
	s.transport.CloseRoom(roomID)

	winnerField := zap.String("winner", "Draw")
	if winner != nil {
		winnerField = zap.String("winner", *winner)
	}
	s.logger.Info("Game ended", zap.String("roomId", roomID), winnerField)
	return nil
}

// Disconnect 연결 종료 정리. 방은 종료하지 않고 남은 참가자에게만 알린다.
func (s *MatchmakingService) Disconnect(connectionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wallet, ok := s.identities.IdentityOf(connectionID)
	if !ok {
		// 지갑 미연결이거나 이미 다른 연결로 옮겨간 경우
		s.logger.Info("Client disconnected", zap.String("connectionId", connectionID))
		return
	}

	s.identities.Unbind(wallet)
	s.detachLocked(wallet, connectionID)

	s.logger.Info("Client disconnected",
		zap.String("connectionId", connectionID),
		zap.String("wallet", wallet))
}

// detachLocked 지갑의 대기를 취소하고 참가 중인 방에서 연결을 분리한다.
// 방은 유지되고 상대에게만 알린다. mu 보유 상태에서 호출.
func (s *MatchmakingService) detachLocked(wallet, connectionID string) {
	s.queue.RemoveFromAll(wallet)

	for _, room := range s.rooms.MarkDisconnected(wallet, s.now()) {
		s.transport.LeaveRoom(room.ID, connectionID)
		s.transport.Broadcast(room.ID, protocol.PlayerDisconnected{
			DisconnectedPlayer: wallet,
			Message:            "Your opponent has disconnected",
		})
	}
}

// ReapOrphanedRooms 참가자가 ReapAfter 이상 돌아오지 않은 방을 무승부로 종료
func (s *MatchmakingService) ReapOrphanedRooms() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	reaped := 0
	for _, roomID := range s.rooms.Orphaned(s.opts.ReapAfter, s.now()) {
		if err := s.endRoomLocked(roomID, nil, "Game ended: opponent did not return"); err == nil {
			reaped++
		}
	}
	return reaped
}

// Room 활성 방 스냅샷
func (s *MatchmakingService) Room(roomID string) (models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, err := s.rooms.Get(roomID)
	if err != nil {
		return models.Room{}, ErrRoomNotFound
	}
	snapshot := *room
	if room.SessionID != nil {
		id := *room.SessionID
		snapshot.SessionID = &id
	}
	return snapshot, nil
}

// QueuePosition 1부터 시작하는 대기 순번 (없으면 0)
func (s *MatchmakingService) QueuePosition(gameType models.GameType, wallet string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Position(gameType, wallet)
}

// Stats 현재 방/큐/접속 현황
func (s *MatchmakingService) Stats() models.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return models.Stats{
		ActiveRooms:    s.rooms.Len(),
		Queues:         s.queue.Lengths(),
		ConnectedUsers: s.identities.Len(),
	}
}
