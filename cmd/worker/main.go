package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"rollcall/internal/activity"
	"rollcall/internal/config"
	"rollcall/internal/queue"
	"rollcall/internal/session"
	"rollcall/internal/store"
)

// Worker consumes queue events, persists activity logs, and drops stale
// course-stats cache entries when new attendance lands.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr, cfg.RedisDialTimeout, cfg.RedisPoolSize)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "rollcall:events")
	}

	logs := activity.NewRepository(db.Client)

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for events...")
	for msg := range messages {
		evt, err := activity.Unmarshal(msg.Body)
		if err != nil {
			log.Printf("bad event payload: %v", err)
			continue
		}

		if err := logs.Insert(ctx, evt); err != nil {
			log.Printf("activity log insert failed for %s/%s: %v", evt.UserID, evt.Action, err)
			continue
		}

		if evt.Action == activity.ActionAttendance && evt.CourseID != "" {
			if err := redisClient.Client.Del(ctx, session.StatsCacheKey(evt.CourseID)).Err(); err != nil {
				log.Printf("stats cache invalidate failed for %s: %v", evt.CourseID, err)
			}
		}
	}

	log.Println("worker stopped")
}
