package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pandeygsundaram/gameforge/pkg/logger"
)

// recordJob 영속 저장 작업. 반환 에러는 로그만 남긴다.
type recordJob struct {
	name string
	run  func(ctx context.Context) error
}

// RecorderQueue 영속 저장 호출을 제출 순서대로 하나의 고루틴에서 실행.
// 매칭/점수 전파는 저장 지연이나 실패에 막히지 않는다.
type RecorderQueue struct {
	jobs    chan recordJob
	timeout time.Duration
	logger  *zap.Logger
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
	closed  bool
}

func NewRecorderQueue(size int, timeout time.Duration) *RecorderQueue {
	if size <= 0 {
		size = 1024
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RecorderQueue{
		jobs:    make(chan recordJob, size),
		timeout: timeout,
		logger:  logger.Named("recorder"),
	}
}

// Start 워커 시작
func (q *RecorderQueue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running || q.closed {
		return
	}
	q.running = true

	q.wg.Add(1)
	go q.worker()
}

// Stop 남은 작업을 모두 처리한 뒤 종료
func (q *RecorderQueue) Stop() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	if !q.running {
		// 시작하지 않은 큐도 남은 작업은 처리
		q.running = true
		q.wg.Add(1)
		go q.worker()
	}
	q.mu.Unlock()

	q.wg.Wait()
}

// submit 큐가 가득 차거나 닫혔으면 버린다 (best-effort)
func (q *RecorderQueue) submit(name string, run func(ctx context.Context) error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		q.logger.Warn("Recorder queue closed, dropping write", zap.String("job", name))
		return
	}

	select {
	case q.jobs <- recordJob{name: name, run: run}:
	default:
		q.logger.Warn("Recorder queue full, dropping write", zap.String("job", name))
	}
}

func (q *RecorderQueue) worker() {
	defer q.wg.Done()

	for job := range q.jobs {
		q.execute(job)
	}
}

func (q *RecorderQueue) execute(job recordJob) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("Recorder job panicked", zap.String("job", job.name), zap.Any("panic", r))
		}
	}()

	if err := job.run(ctx); err != nil {
		q.logger.Error("Durable write failed", zap.String("job", job.name), zap.Error(err))
	}
}
