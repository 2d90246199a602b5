package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/example/storefront/internal/audit"
	"github.com/example/storefront/internal/infrastructure/kafka"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Configuration from environment variables
	kafkaBrokersStr := getEnv("KAFKA_BROKERS", "localhost:9092")
	kafkaBrokers := strings.Split(kafkaBrokersStr, ",")
	kafkaTopic := getEnv("KAFKA_TOPIC", "storefront-changes")
	consumerGroup := "storefront-auditor" // Dedicated consumer group for the audit trail

	log.Println("[Auditor] ========================================")
	log.Println("[Auditor] Storefront - Change Audit Service")
	log.Println("[Auditor] ========================================")
	log.Printf("[Auditor] Kafka: %v", kafkaBrokers)
	log.Printf("[Auditor] Topic: %s", kafkaTopic)
	log.Printf("[Auditor] Group: %s", consumerGroup)

	handler := audit.NewHandler()

	consumer := kafka.NewConsumer(kafkaBrokers, kafkaTopic, consumerGroup)
	defer consumer.Close()

	// Start consuming
	go func() {
		log.Println("[Auditor] Starting change consumer...")
		if err := consumer.Consume(ctx, handler.HandleEvent); err != nil {
			log.Printf("[Auditor] Consumer error: %v", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[Auditor] Shutting down...")
	cancel()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
