// Command seatlog consumes seat events from RabbitMQ and appends them to
// <SEAT_LOG_DIR>/seat.log.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/iliyamo/cafe-seat-share/internal/queue"
)

func main() {
	_ = godotenv.Load()

	url := os.Getenv("RABBITMQ_URL")
	if url == "" {
		url = os.Getenv("AMQP_URL")
	}
	c := queue.NewConsumer(url, os.Getenv("SEAT_EVENT_QUEUE"), os.Getenv("SEAT_LOG_DIR"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("seat-consumer: consuming %s into %s", c.Queue, c.LogDir)
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}
}
