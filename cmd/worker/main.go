package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	"faceattend/internal/auth"
	"faceattend/internal/config"
	"faceattend/internal/queue"
	"faceattend/internal/store"
)

// Worker consumes notification messages. Reset-code delivery (email/SMS)
// is an external concern; this dev notifier just logs what a real sender
// would transmit.
func main() {
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

	// The in-memory backend lives inside the API process; a separate worker
	// would only ever see an empty queue.
	if cfg.QueueBackend == "memory" {
		log.Fatal("QUEUE_BACKEND=memory is in-process only; the worker requires the redis backend")
	}
	redisClient := store.NewRedis(cfg.RedisAddr)
	q := queue.NewRedisQueue(redisClient.Client, "faceattend:notifications")

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for messages...")
	for msg := range messages {
		if msg.Type != "reset_code" {
			continue
		}

		var n auth.ResetNotification
		if err := json.Unmarshal(msg.Body, &n); err != nil {
			log.Printf("bad reset notification: %v", err)
			continue
		}

		// A production deployment plugs an email/SMS sender in here.
		log.Printf("deliver reset code to %s (%s %s): %s", n.Name, n.Role, n.Identifier, n.Code)
	}

	log.Println("worker stopped")
}
