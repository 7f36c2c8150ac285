package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"civic-chat-be/internal/config"
	pkgEvents "civic-chat-be/pkg/events"
	pktNats "civic-chat-be/pkg/nats"
)

// Tails the EVENTS stream so operators can watch turn activity live
// without touching the database.
func main() {
	subject := flag.String("subject", "events.>", "NATS subject filter")
	durable := flag.String("durable", "civic-events-tail", "durable consumer name")
	flag.Parse()

	cfg := config.Load()

	sub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Fatalf("Error: Failed to connect to NATS at %s: %v", cfg.App.NatsURL, err)
	}
	defer sub.Close()

	err = sub.Subscribe(*subject, *durable, func(ctx context.Context, event pkgEvents.Event) error {
		log.Printf("[EVENT] %s payload=%v", event.EventType(), event.Payload())
		return nil
	})
	if err != nil {
		log.Fatalf("Error: Failed to subscribe: %v", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down event tail")
}
