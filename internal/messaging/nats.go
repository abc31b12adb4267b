// Package messaging provides a NATS client wrapper for moderation events and
// asynchronous scan requests. It handles connection lifecycle and keeps track
// of subscriptions so they can be drained on shutdown.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/campusqa/moderation/internal/moderation"
)

// NATS subjects used by the moderation services.
const (
	SubjectEvent     = "moderation.event" // + .<event type>
	SubjectEventAll  = SubjectEvent + ".>"
	SubjectScan      = "moderation.scan"
	ScanWorkersQueue = "moderation-scan-workers"
)

// NATSClient wraps the NATS connection with helper methods for pub/sub.
type NATSClient struct {
	conn *nats.Conn
	mu   sync.Mutex
	subs map[string]*nats.Subscription
}

// NATSConfig holds NATS connection settings.
type NATSConfig struct {
	URL           string        `yaml:"url"`
	Name          string        `yaml:"name"`
	ReconnectWait time.Duration `yaml:"reconnect_wait"`
	MaxReconnects int           `yaml:"max_reconnects"` // -1 for infinite
}

// DefaultNATSConfig returns sensible defaults.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           "nats://localhost:4222",
		Name:          "campusqa-moderation",
		ReconnectWait: 2 * time.Second,
		MaxReconnects: -1,
	}
}

// NewNATSClient connects to NATS with the given config and returns a ready client.
// It returns an error if the initial connection fails.
func NewNATSClient(config NATSConfig) (*NATSClient, error) {
	opts := []nats.Option{
		nats.Name(config.Name),
		nats.ReconnectWait(config.ReconnectWait),
		nats.MaxReconnects(config.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("[nats] disconnected: %v", err)
			} else {
				log.Printf("[nats] disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("[nats] reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Printf("[nats] connection closed")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	log.Printf("[nats] connected to %s", nc.ConnectedUrl())

	return &NATSClient{
		conn: nc,
		subs: make(map[string]*nats.Subscription),
	}, nil
}

// PublishEvent publishes ev to moderation.event.<type>.
func (c *NATSClient) PublishEvent(ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("nats: marshal event: %w", err)
	}
	return c.conn.Publish(ev.Subject(), data)
}

// SubscribeEvents delivers every moderation event to handler. Malformed
// payloads are logged and dropped.
func (c *NATSClient) SubscribeEvents(handler func(Event)) error {
	return c.subscribe(SubjectEventAll, "", func(msg *nats.Msg) {
		var ev Event
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			log.Printf("[nats] bad event on %s: %v", msg.Subject, err)
			return
		}
		handler(ev)
	})
}

// HandleScanRequests answers moderation.scan requests with review. Workers
// share a queue group so each request is handled once.
func (c *NATSClient) HandleScanRequests(review func(moderation.ScanRequest) moderation.ScanResult) error {
	return c.subscribe(SubjectScan, ScanWorkersQueue, func(msg *nats.Msg) {
		var req moderation.ScanRequest
		var res moderation.ScanResult
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			res = moderation.ScanResult{Blocked: true, Error: "malformed scan request"}
		} else {
			res = review(req)
		}

		data, err := json.Marshal(res)
		if err != nil {
			log.Printf("[nats] marshal scan result: %v", err)
			return
		}
		if err := msg.Respond(data); err != nil {
			log.Printf("[nats] respond to scan request: %v", err)
		}
	})
}

// RequestScan sends req to the scan workers and waits for the result.
func (c *NATSClient) RequestScan(ctx context.Context, req moderation.ScanRequest) (moderation.ScanResult, error) {
	var res moderation.ScanResult

	data, err := json.Marshal(req)
	if err != nil {
		return res, fmt.Errorf("nats: marshal scan request: %w", err)
	}
	msg, err := c.conn.RequestWithContext(ctx, SubjectScan, data)
	if err != nil {
		return res, fmt.Errorf("nats: scan request: %w", err)
	}
	if err := json.Unmarshal(msg.Data, &res); err != nil {
		return res, fmt.Errorf("nats: decode scan result: %w", err)
	}
	return res, nil
}

// subscribe registers a handler (optionally in a queue group) and stores the
// subscription internally for later cleanup.
func (c *NATSClient) subscribe(subject, queue string, handler nats.MsgHandler) error {
	var (
		sub *nats.Subscription
		err error
	)
	if queue != "" {
		sub, err = c.conn.QueueSubscribe(subject, queue, handler)
	} else {
		sub, err = c.conn.Subscribe(subject, handler)
	}
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", subject, err)
	}

	c.mu.Lock()
	c.subs[subject] = sub
	c.mu.Unlock()

	return nil
}

// Close drains all active subscriptions and closes the NATS connection.
func (c *NATSClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for subject, sub := range c.subs {
		if err := sub.Drain(); err != nil {
			log.Printf("[nats] drain %s: %v", subject, err)
		}
	}
	c.subs = make(map[string]*nats.Subscription)

	if err := c.conn.Drain(); err != nil {
		log.Printf("[nats] connection drain: %v", err)
	}

	log.Printf("[nats] client closed")
}
