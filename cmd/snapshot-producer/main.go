package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/IBM/sarama"
)

// RingMetric mirrors the consumer-side metric shape
type RingMetric struct {
	Value float64 `json:"value"`
	Goal  float64 `json:"goal"`
	Unit  string  `json:"unit,omitempty"`
}

// SnapshotSubmission mirrors the consumer-side message shape
type SnapshotSubmission struct {
	UserID   string     `json:"user_id"`
	Date     time.Time  `json:"date"`
	Move     RingMetric `json:"move"`
	Exercise RingMetric `json:"exercise"`
	Stand    RingMetric `json:"stand"`
}

// Daily targets the simulated devices report against
const (
	moveGoal     = 500.0
	exerciseGoal = 30.0
	standGoal    = 12.0
)

func main() {
	// Command line flags
	brokers := flag.String("brokers", "localhost:9094", "Kafka brokers (comma-separated)")
	topic := flag.String("topic", "ring-snapshots", "Kafka topic")
	userIDs := flag.String("users", "", "Comma-separated user IDs to simulate (required)")
	updatesPerMinute := flag.Int("rate", 12, "Snapshot updates per minute")
	duration := flag.Duration("duration", 0, "Duration to run (0 = forever)")
	flag.Parse()

	users := strings.Split(*userIDs, ",")
	if *userIDs == "" || len(users) == 0 {
		log.Fatal("at least one user ID is required (-users)")
	}

	brokerList := strings.Split(*brokers, ",")

	fmt.Printf("Snapshot producer: brokers=%s topic=%s users=%d rate=%d/min\n",
		*brokers, *topic, len(users), *updatesPerMinute)

	// Configure Sarama producer
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Flush.Frequency = 100 * time.Millisecond
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true

	// Create producer
	producer, err := sarama.NewAsyncProducer(brokerList, config)
	if err != nil {
		log.Fatalf("Failed to create producer: %v", err)
	}
	defer producer.Close()

	// Handle producer errors and successes
	var successCount, errorCount int64
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for range producer.Successes() {
			atomic.AddInt64(&successCount, 1)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for err := range producer.Errors() {
			atomic.AddInt64(&errorCount, 1)
			log.Printf("Producer error: %v", err)
		}
	}()

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})

	// Each simulated device accrues activity monotonically through the day
	progress := make([]SnapshotSubmission, len(users))
	for i, userID := range users {
		progress[i] = SnapshotSubmission{
			UserID:   strings.TrimSpace(userID),
			Move:     RingMetric{Goal: moveGoal, Unit: "kcal"},
			Exercise: RingMetric{Goal: exerciseGoal, Unit: "min"},
			Stand:    RingMetric{Goal: standGoal, Unit: "hr"},
		}
	}

	sendMessage := func(submission SnapshotSubmission) {
		data, err := json.Marshal(submission)
		if err != nil {
			log.Printf("Failed to marshal message: %v", err)
			return
		}

		msg := &sarama.ProducerMessage{
			Topic: *topic,
			Key:   sarama.StringEncoder(submission.UserID),
			Value: sarama.ByteEncoder(data),
		}

		select {
		case producer.Input() <- msg:
		case <-done:
			return
		}
	}

	shutdown := func() {
		close(done)
		producer.AsyncClose()
		wg.Wait()
		fmt.Printf("Completed. Sent: %d, Errors: %d\n",
			atomic.LoadInt64(&successCount), atomic.LoadInt64(&errorCount))
	}

	interval := time.Minute / time.Duration(*updatesPerMinute)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	statsTicker := time.NewTicker(30 * time.Second)
	defer statsTicker.Stop()

	var endTime time.Time
	if *duration > 0 {
		endTime = time.Now().Add(*duration)
	}

	fmt.Println("Press Ctrl+C to stop")

	for {
		select {
		case <-sigChan:
			fmt.Println("\nShutting down...")
			shutdown()
			return

		case <-ticker.C:
			if *duration > 0 && time.Now().After(endTime) {
				fmt.Println("\nDuration reached, shutting down...")
				shutdown()
				return
			}

			now := time.Now()
			idx := rand.Intn(len(progress))
			sub := &progress[idx]

			// New day resets the rings
			if sub.Date.IsZero() || sub.Date.YearDay() != now.YearDay() {
				sub.Move.Value, sub.Exercise.Value, sub.Stand.Value = 0, 0, 0
			}
			sub.Date = now
			sub.Move.Value += rand.Float64() * moveGoal * 0.05
			sub.Exercise.Value += rand.Float64() * exerciseGoal * 0.05
			if sub.Stand.Value < 24 && rand.Intn(4) == 0 {
				sub.Stand.Value++
			}

			sendMessage(*sub)

		case <-statsTicker.C:
			fmt.Printf("[%s] Sent: %d | Errors: %d\n",
				time.Now().Format("15:04:05"),
				atomic.LoadInt64(&successCount),
				atomic.LoadInt64(&errorCount),
			)
		}
	}
}
