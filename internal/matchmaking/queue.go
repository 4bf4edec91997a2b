// Package matchmaking holds the in-memory matchmaking state: the per-game
// waiting queues, the active room registry and the wallet to connection
// bindings. None of the types lock; the owning service serialises access.
package matchmaking

import (
	"errors"

	"github.com/pandeygsundaram/gameforge/internal/models"
)

// NotQueued Position 결과: 큐에 없음
const NotQueued = 0

var ErrAlreadyQueued = errors.New("already in queue for this game")

// Queue 게임 종류별 FIFO 대기열
type Queue struct {
	queues map[models.GameType][]models.QueuedPlayer
}

func NewQueue() *Queue {
	q := &Queue{queues: make(map[models.GameType][]models.QueuedPlayer)}
	for _, gameType := range models.GameTypes {
		q.queues[gameType] = nil
	}
	return q
}

// Enqueue 큐 끝에 추가
func (q *Queue) Enqueue(gameType models.GameType, player models.QueuedPlayer) error {
	if q.IsQueued(gameType, player.Wallet) {
		return ErrAlreadyQueued
	}
	q.queues[gameType] = append(q.queues[gameType], player)
	return nil
}

func (q *Queue) IsQueued(gameType models.GameType, wallet string) bool {
	return q.Position(gameType, wallet) != NotQueued
}

// FindMatch 제외 대상이 아닌 가장 앞의 플레이어 (제거하지 않음)
func (q *Queue) FindMatch(gameType models.GameType, excludeWallet string) (models.QueuedPlayer, bool) {
	for _, p := range q.queues[gameType] {
		if p.Wallet != excludeWallet {
			return p, true
		}
	}
	return models.QueuedPlayer{}, false
}

// Dequeue 해당 지갑의 모든 항목 제거 (없으면 무시)
func (q *Queue) Dequeue(gameType models.GameType, wallet string) {
	queue, ok := q.queues[gameType]
	if !ok {
		return
	}
	kept := queue[:0]
	for _, p := range queue {
		if p.Wallet != wallet {
			kept = append(kept, p)
		}
	}
	// 잘려나간 뒤쪽 항목 참조 해제
	for i := len(kept); i < len(queue); i++ {
		queue[i] = models.QueuedPlayer{}
	}
	q.queues[gameType] = kept
}

// Position 1부터 시작하는 대기 순번
func (q *Queue) Position(gameType models.GameType, wallet string) int {
	for i, p := range q.queues[gameType] {
		if p.Wallet == wallet {
			return i + 1
		}
	}
	return NotQueued
}

// Rebind 재접속 시 대기 항목의 연결 ID 갱신
func (q *Queue) Rebind(wallet, connectionID string) {
	for _, queue := range q.queues {
		for i := range queue {
			if queue[i].Wallet == wallet {
				queue[i].ConnectionID = connectionID
			}
		}
	}
}

// QueuedIn 대기 중인 게임 종류
func (q *Queue) QueuedIn(wallet string) (models.GameType, bool) {
	for _, gameType := range models.GameTypes {
		if q.IsQueued(gameType, wallet) {
			return gameType, true
		}
	}
	return "", false
}

// RemoveFromAll 연결 종료 시 모든 큐에서 제거
func (q *Queue) RemoveFromAll(wallet string) {
	for gameType := range q.queues {
		q.Dequeue(gameType, wallet)
	}
}

func (q *Queue) Len(gameType models.GameType) int {
	return len(q.queues[gameType])
}

func (q *Queue) Lengths() map[models.GameType]int {
	lengths := make(map[models.GameType]int, len(q.queues))
	for gameType, queue := range q.queues {
		lengths[gameType] = len(queue)
	}
	return lengths
}
