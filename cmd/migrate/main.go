package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pandeygsundaram/gameforge/internal/config"
	"github.com/pandeygsundaram/gameforge/pkg/database"
	"github.com/pandeygsundaram/gameforge/pkg/distributed"
	"github.com/pandeygsundaram/gameforge/pkg/logger"
)

const migrateLockKey = "gameforge:lock:migrate"

func main() {
	dir := flag.String("dir", "migrations", "directory containing *.up.sql files")
	flag.Parse()

	// .env 포함 설정 로드
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set in environment")
	}

	logger.Init(cfg.LogLevel)
	defer logger.Sync()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	// 여러 인스턴스가 동시에 배포될 때 한 곳에서만 실행
	if cfg.RedisURL != "" {
		lock, err := acquireMigrateLock(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to acquire migration lock: %v", err)
		}
		defer func() {
			if err := lock.Release(context.Background()); err != nil {
				logger.Warn("Failed to release migration lock", "error", err)
			}
		}()
	}

	applied, err := db.Migrate(ctx, *dir)
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	if len(applied) == 0 {
		fmt.Println("Database is up to date")
		return
	}
	for _, version := range applied {
		fmt.Printf("  - applied %s\n", version)
	}
	fmt.Printf("%d migration(s) applied\n", len(applied))
}

func acquireMigrateLock(ctx context.Context, url string) (*distributed.Lock, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	host, _ := os.Hostname()
	owner := fmt.Sprintf("%s:%d", host, os.Getpid())

	logger.Info("Waiting for migration lock", "key", migrateLockKey, "owner", owner)
	return distributed.AcquireWait(ctx, client, migrateLockKey, owner, 2*time.Minute, time.Second)
}
