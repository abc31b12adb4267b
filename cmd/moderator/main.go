package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/campusqa/moderation/internal/config"
	"github.com/campusqa/moderation/internal/database"
	"github.com/campusqa/moderation/internal/messaging"
	"github.com/campusqa/moderation/internal/moderation"
	"github.com/campusqa/moderation/internal/rules"
)

// scanTimeout bounds the rule load for a single scan request.
const scanTimeout = 5 * time.Second

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("warning: .env not loaded: %v", err)
	}
	log.Println("Starting CampusQA moderation worker...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// Postgres setup.
	db, err := database.Open(context.Background(), cfg.Postgres.URL, cfg.Postgres.MaxConns)
	if err != nil {
		log.Fatalf("failed to connect to Postgres: %v", err)
	}
	ruleSet := rules.NewRuleSet(rules.NewStore(db), rules.DefaultRules())

	// NATS setup.
	natsConfig := cfg.NATS
	natsConfig.Name = "campusqa-moderator"
	natsClient, err := messaging.NewNATSClient(natsConfig)
	if err != nil {
		log.Fatalf("failed to connect to NATS: %v", err)
	}

	// Answer scan requests.
	err = natsClient.HandleScanRequests(func(req moderation.ScanRequest) moderation.ScanResult {
		ctx, cancel := context.WithTimeout(context.Background(), scanTimeout)
		defer cancel()

		res := moderation.Review(ctx, ruleSet, req)
		switch {
		case res.Error != "":
			log.Printf("[moderator] ERROR content=%s type=%s: %s", req.ContentID, req.ContentType, res.Error)
		case res.Blocked:
			log.Printf("[moderator] FLAGGED content=%s type=%s word=%q category=%s",
				req.ContentID, req.ContentType, res.Word, res.Category)
		default:
			log.Printf("[moderator] CLEAN content=%s type=%s", req.ContentID, req.ContentType)
		}
		return res
	})
	if err != nil {
		log.Fatalf("failed to subscribe to scan requests: %v", err)
	}

	// Audit log of moderation events.
	err = natsClient.SubscribeEvents(func(ev messaging.Event) {
		log.Printf("[audit] %s actor=%s user=%s report=%s content=%s/%s resolution=%s word=%q",
			ev.Type, ev.ActorID, ev.UserID, ev.ReportID, ev.ContentType, ev.ContentID, ev.Resolution, ev.Word)
	})
	if err != nil {
		log.Fatalf("failed to subscribe to moderation events: %v", err)
	}

	log.Printf("CampusQA moderation worker running")
	log.Printf("  nats_url: %s", natsConfig.URL)
	log.Printf("  queue:    %s", messaging.ScanWorkersQueue)

	// Graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("received signal %v, shutting down...", sig)

	natsClient.Close()
	db.Close()
}
