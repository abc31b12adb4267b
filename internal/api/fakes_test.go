package api

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/campusqa/moderation/internal/content"
	"github.com/campusqa/moderation/internal/messaging"
	"github.com/campusqa/moderation/internal/ratelimit"
	"github.com/campusqa/moderation/internal/report"
	"github.com/campusqa/moderation/internal/rules"
	"github.com/campusqa/moderation/internal/user"
)

type memUsers struct {
	mu    sync.Mutex
	users map[string]*user.User
	saves int
}

func newMemUsers(us ...*user.User) *memUsers {
	m := &memUsers{users: make(map[string]*user.User)}
	for _, u := range us {
		m.users[u.ID] = u
	}
	return m
}

func (m *memUsers) Get(_ context.Context, id string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) SaveSuspension(_ context.Context, id string, st user.SuspensionState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return user.ErrNotFound
	}
	m.saves++
	u.IsSuspended = st.IsSuspended
	u.IsPermanentlySuspended = st.IsPermanentlySuspended
	u.SuspensionEndsAt = st.EndsAt
	u.SuspensionReason = st.Reason
	return nil
}

func (m *memUsers) ListSuspended(_ context.Context) ([]user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []user.User
	for _, u := range m.users {
		if u.IsSuspended {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memUsers) CountSuspended(ctx context.Context) (int, error) {
	list, _ := m.ListSuspended(ctx)
	return len(list), nil
}

func (m *memUsers) snapshot(id string) user.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.users[id]
}

type memContent struct {
	mu     sync.Mutex
	items  map[string]*content.Item
	seq    int
	owners *memUsers
}

func newMemContent() *memContent {
	return &memContent{items: make(map[string]*content.Item)}
}

func (m *memContent) put(it content.Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := it
	m.items[it.ID] = &cp
}

func (m *memContent) Create(_ context.Context, it *content.Item) error {
	if err := it.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	it.ID = fmt.Sprintf("c%d", m.seq)
	it.CreatedAt = time.Now()
	cp := *it
	m.items[it.ID] = &cp
	return nil
}

func (m *memContent) Exists(_ context.Context, t content.Type, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	return ok && it.Type == t, nil
}

func (m *memContent) AuthorOf(ctx context.Context, t content.Type, id string) (string, error) {
	if t == content.TypeProfile {
		if m.owners != nil {
			if _, err := m.owners.Get(ctx, id); err != nil {
				return "", content.ErrNotFound
			}
		}
		return id, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok || it.Type != t {
		return "", content.ErrNotFound
	}
	return it.AuthorID, nil
}

func (m *memContent) Delete(_ context.Context, t content.Type, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok || it.Type != t {
		return content.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *memContent) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

type memReports struct {
	mu      sync.Mutex
	reports []*report.Report
}

func (m *memReports) Create(_ context.Context, r *report.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = fmt.Sprintf("r%d", len(m.reports)+1)
	r.CreatedAt = time.Now()
	cp := *r
	m.reports = append(m.reports, &cp)
	return nil
}

func (m *memReports) Get(_ context.Context, id string) (*report.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reports {
		if r.ID == id {
			cp := *r
			return &cp, nil
		}
	}
	return nil, report.ErrNotFound
}

func (m *memReports) List(_ context.Context, status report.Status) ([]report.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []report.Report
	for i := len(m.reports) - 1; i >= 0; i-- {
		if status == "" || m.reports[i].Status == status {
			out = append(out, *m.reports[i])
		}
	}
	return out, nil
}

func (m *memReports) MarkResolved(_ context.Context, id string, res report.Resolution, by string) (*report.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reports {
		if r.ID != id {
			continue
		}
		if r.Status != report.StatusPending {
			return nil, report.ErrAlreadyResolved
		}
		now := time.Now()
		r.Status, r.Resolution, r.ResolvedBy, r.ResolvedAt = report.StatusResolved, &res, by, &now
		cp := *r
		return &cp, nil
	}
	return nil, report.ErrNotFound
}

func (m *memReports) CountPending(ctx context.Context) (int, error) {
	list, _ := m.List(ctx, report.StatusPending)
	return len(list), nil
}

type memRules struct {
	mu    sync.Mutex
	rules []rules.Rule
	err   error
}

func (m *memRules) List(context.Context) ([]rules.Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return append([]rules.Rule(nil), m.rules...), nil
}

func (m *memRules) Add(_ context.Context, r rules.Rule) (rules.Rule, error) {
	if err := r.Normalize(); err != nil {
		return rules.Rule{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.rules {
		if existing.Word == r.Word {
			return rules.Rule{}, rules.ErrDuplicate
		}
	}
	r.CreatedAt = time.Now()
	m.rules = append(m.rules, r)
	return r, nil
}

func (m *memRules) Remove(_ context.Context, word string) error {
	word = strings.ToLower(strings.TrimSpace(word))
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.rules {
		if r.Word == word {
			m.rules = append(m.rules[:i], m.rules[i+1:]...)
			return nil
		}
	}
	return rules.ErrNotFound
}

func (m *memRules) Count(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rules), m.err
}

func (m *memRules) Seed(ctx context.Context, seed []rules.Rule, addedBy string) (int, error) {
	added := 0
	for _, r := range seed {
		r.AddedBy = addedBy
		if _, err := m.Add(ctx, r); err == nil {
			added++
		}
	}
	return added, nil
}

func (m *memRules) words() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.rules))
	for i, r := range m.rules {
		out[i] = r.Word
	}
	return out
}

type eventLog struct {
	mu     sync.Mutex
	events []messaging.Event
}

func (l *eventLog) Emit(ev messaging.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) types() []messaging.EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]messaging.EventType, len(l.events))
	for i, ev := range l.events {
		out[i] = ev.Type
	}
	return out
}

// countingLimiter allows limit requests per identifier and rule.
type countingLimiter struct {
	mu     sync.Mutex
	counts map[string]int
}

func (l *countingLimiter) Allow(_ context.Context, id string, rule ratelimit.Rule) (ratelimit.Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.counts == nil {
		l.counts = make(map[string]int)
	}
	l.counts[rule.Key+id]++
	remaining := rule.Limit - l.counts[rule.Key+id]
	if remaining < 0 {
		return ratelimit.Result{}, nil
	}
	return ratelimit.Result{Allowed: true, Remaining: remaining}, nil
}
