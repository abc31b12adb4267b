package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/campusqa/moderation/internal/moderation"
)

func TestEvent_Subject(t *testing.T) {
	ev := NewEvent(EventReportResolved)
	if got, want := ev.Subject(), "moderation.event.report.resolved"; got != want {
		t.Errorf("Subject() = %q, want %q", got, want)
	}
	if ev.ID == "" || ev.At.IsZero() {
		t.Errorf("NewEvent should stamp id and time, got %+v", ev)
	}
}

func TestEmitter_Fallback(t *testing.T) {
	var got []Event
	e := NewEmitter(nil, func(ev Event) { got = append(got, ev) })

	e.Emit(NewEvent(EventUserSuspended))
	e.Emit(NewEvent(EventContentDeleted))

	if len(got) != 2 || got[0].Type != EventUserSuspended || got[1].Type != EventContentDeleted {
		t.Errorf("unexpected fallback deliveries: %+v", got)
	}

	var nilEmitter *Emitter
	nilEmitter.Emit(NewEvent(EventRuleAdded)) // must not panic
	NewEmitter(nil, nil).Emit(NewEvent(EventRuleAdded))
}

// newTestClient connects to a local NATS server or skips the test.
func newTestClient(t *testing.T) *NATSClient {
	t.Helper()
	cfg := DefaultNATSConfig()
	cfg.MaxReconnects = 0
	c, err := NewNATSClient(cfg)
	if err != nil {
		t.Skipf("nats not available: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestNATS_EventsRoundTrip(t *testing.T) {
	c := newTestClient(t)

	received := make(chan Event, 1)
	if err := c.SubscribeEvents(func(ev Event) { received <- ev }); err != nil {
		t.Fatalf("SubscribeEvents() error: %v", err)
	}
	if err := c.conn.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	ev := NewEvent(EventReportFiled)
	ev.ReportID = "r1"
	NewEmitter(c, func(Event) { t.Error("fallback used while NATS is configured") }).Emit(ev)

	select {
	case got := <-received:
		if got.ID != ev.ID || got.ReportID != "r1" {
			t.Errorf("received %+v, want %+v", got, ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestNATS_ScanRequestReply(t *testing.T) {
	c := newTestClient(t)

	err := c.HandleScanRequests(func(req moderation.ScanRequest) moderation.ScanResult {
		return moderation.ScanResult{ContentID: req.ContentID, Blocked: req.Text == "bad"}
	})
	if err != nil {
		t.Fatalf("HandleScanRequests() error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	res, err := c.RequestScan(ctx, moderation.ScanRequest{ContentID: "c1", Text: "bad"})
	if err != nil {
		t.Fatalf("RequestScan() error: %v", err)
	}
	if !res.Blocked || res.ContentID != "c1" {
		t.Errorf("unexpected result: %+v", res)
	}
}
