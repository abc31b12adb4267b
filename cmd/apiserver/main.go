package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/campusqa/moderation/internal/api"
	"github.com/campusqa/moderation/internal/auth"
	"github.com/campusqa/moderation/internal/config"
	"github.com/campusqa/moderation/internal/content"
	"github.com/campusqa/moderation/internal/database"
	"github.com/campusqa/moderation/internal/feed"
	"github.com/campusqa/moderation/internal/messaging"
	"github.com/campusqa/moderation/internal/moderation"
	"github.com/campusqa/moderation/internal/ratelimit"
	"github.com/campusqa/moderation/internal/report"
	"github.com/campusqa/moderation/internal/resolution"
	"github.com/campusqa/moderation/internal/rules"
	"github.com/campusqa/moderation/internal/suspension"
	"github.com/campusqa/moderation/internal/user"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("warning: .env not loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	verifier, err := auth.NewVerifier(cfg.Auth.JWTSecret)
	if err != nil {
		log.Fatalf("auth: %v", err)
	}

	// --- Postgres ---
	if cfg.Postgres.Migrate {
		if err := database.Migrate(cfg.Postgres.URL); err != nil {
			log.Fatalf("failed to migrate database: %v", err)
		}
	}
	db, err := database.Open(context.Background(), cfg.Postgres.URL, cfg.Postgres.MaxConns)
	if err != nil {
		log.Fatalf("failed to connect to Postgres: %v", err)
	}

	// --- Redis (optional) ---
	var (
		rdb       *redis.Client
		limiter   api.RateLimiter
		escalator suspension.OffenseCounter
	)
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			// Both users fail open, so keep the client and let it reconnect.
			log.Printf("warning: redis %s unreachable: %v", cfg.Redis.Addr, err)
		}
		cancel()
		limiter = ratelimit.NewLimiter(rdb)
		escalator = suspension.NewEscalator(rdb)
	}

	// --- Feed + NATS (optional) ---
	feedConfig := feed.DefaultConfig()
	feedConfig.PingInterval = cfg.Moderation.FeedPingInterval
	hub := feed.NewHub(feedConfig)

	var natsClient *messaging.NATSClient
	if cfg.NATS.URL != "" {
		natsClient, err = messaging.NewNATSClient(cfg.NATS)
		if err != nil {
			log.Printf("warning: %v; events go to the local feed only", err)
			natsClient = nil
		} else if err := natsClient.SubscribeEvents(hub.Broadcast); err != nil {
			log.Fatalf("failed to subscribe to moderation events: %v", err)
		}
	}
	events := messaging.NewEmitter(natsClient, hub.Broadcast)

	// --- Domain ---
	users := user.NewStore(db)
	contentStore := content.NewStore(db)
	reportStore := report.NewStore(db)
	ruleStore := rules.NewStore(db)
	defaults := rules.DefaultRules()

	manager := suspension.NewManager(users, escalator, cfg.Moderation.DefaultSuspension)
	handler := api.NewHandler(api.Deps{
		Users:     users,
		Verifier:  verifier,
		Guard:     suspension.NewGuard(users),
		Gate:      moderation.NewGate(rules.NewRuleSet(ruleStore, defaults)),
		Content:   contentStore,
		Reports:   report.NewLedger(reportStore, contentStore),
		Pending:   reportStore,
		Moderator: resolution.NewResolver(reportStore, contentStore, manager, events),
		Rules:     ruleStore,
		Defaults:  defaults,

		Limiter:      limiter,
		ReportLimit:  ratelimit.Rule{Key: ratelimit.RuleReport.Key, Limit: cfg.Moderation.ReportRateLimit, Window: ratelimit.RuleReport.Window},
		ContentLimit: ratelimit.Rule{Key: ratelimit.RuleContent.Key, Limit: cfg.Moderation.ContentRateLimit, Window: ratelimit.RuleContent.Window},

		Feed:   hub,
		Events: events,
	})

	server := &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      api.NewRouter(handler),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	log.Printf("CampusQA moderation API starting")
	log.Printf("  listen_addr:        %s", cfg.Server.ListenAddr)
	log.Printf("  redis_addr:         %s", cfg.Redis.Addr)
	log.Printf("  nats_url:           %s (connected=%v)", cfg.NATS.URL, natsClient != nil)
	log.Printf("  default_suspension: %s", cfg.Moderation.DefaultSuspension)
	log.Printf("  report_rate_limit:  %d/h", cfg.Moderation.ReportRateLimit)
	log.Printf("  content_rate_limit: %d/min", cfg.Moderation.ContentRateLimit)

	// Graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("received signal %v, initiating graceful shutdown...", sig)
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("shutdown error: %v", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}

	hub.Close()
	if natsClient != nil {
		natsClient.Close()
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.Printf("redis close error: %v", err)
		}
	}
	if err := db.Close(); err != nil {
		log.Printf("database close error: %v", err)
	}
	log.Printf("shutdown complete")
}
