// Package api is the HTTP surface of the moderation service: the content
// submission gate, report filing, and the admin moderation endpoints.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campusqa/moderation/internal/content"
	"github.com/campusqa/moderation/internal/messaging"
	"github.com/campusqa/moderation/internal/metrics"
	"github.com/campusqa/moderation/internal/moderation"
	"github.com/campusqa/moderation/internal/ratelimit"
	"github.com/campusqa/moderation/internal/report"
	"github.com/campusqa/moderation/internal/rules"
	"github.com/campusqa/moderation/internal/suspension"
	"github.com/campusqa/moderation/internal/user"
)

type Users interface {
	Get(ctx context.Context, id string) (*user.User, error)
	ListSuspended(ctx context.Context) ([]user.User, error)
	CountSuspended(ctx context.Context) (int, error)
}

type TokenVerifier interface {
	Verify(raw string) (string, error)
}

type SuspensionGuard interface {
	Check(ctx context.Context, u *user.User) error
}

type ContentGate interface {
	Check(ctx context.Context, sub moderation.Submission) error
}

type ContentStore interface {
	Create(ctx context.Context, it *content.Item) error
	Exists(ctx context.Context, t content.Type, id string) (bool, error)
}

type Reports interface {
	File(ctx context.Context, req report.FileReport) (*report.Report, error)
	List(ctx context.Context, status report.Status) ([]report.Report, error)
	Get(ctx context.Context, id string) (*report.Report, error)
}

type PendingCounter interface {
	CountPending(ctx context.Context) (int, error)
}

// Moderator carries out admin decisions.
type Moderator interface {
	Resolve(ctx context.Context, req report.ResolveReport) (*report.Report, error)
	SuspendUser(ctx context.Context, actorID, userID string, opts suspension.Options) (user.SuspensionState, error)
	ReinstateUser(ctx context.Context, actorID, userID string) error
	DeleteContent(ctx context.Context, actorID string, t content.Type, id string) error
}

type RuleStore interface {
	List(ctx context.Context) ([]rules.Rule, error)
	Add(ctx context.Context, rule rules.Rule) (rules.Rule, error)
	Remove(ctx context.Context, word string) error
	Count(ctx context.Context) (int, error)
	Seed(ctx context.Context, seed []rules.Rule, addedBy string) (int, error)
}

type RateLimiter interface {
	Allow(ctx context.Context, identifier string, rule ratelimit.Rule) (ratelimit.Result, error)
}

type FeedServer interface {
	ServeWS(w http.ResponseWriter, r *http.Request, userID string)
}

type Events interface {
	Emit(ev messaging.Event)
}

// Deps wires the handler to its collaborators. Limiter, Feed and Events
// are optional.
type Deps struct {
	Users     Users
	Verifier  TokenVerifier
	Guard     SuspensionGuard
	Gate      ContentGate
	Content   ContentStore
	Reports   Reports
	Pending   PendingCounter
	Moderator Moderator
	Rules     RuleStore
	Defaults  []rules.Rule

	Limiter      RateLimiter
	ReportLimit  ratelimit.Rule
	ContentLimit ratelimit.Rule

	Feed   FeedServer
	Events Events
}

// Handler serves the moderation API.
type Handler struct {
	Deps
}

// NewHandler creates a Handler. Zero rate-limit rules fall back to the
// package defaults.
func NewHandler(deps Deps) *Handler {
	if deps.ReportLimit.Limit == 0 {
		deps.ReportLimit = ratelimit.RuleReport
	}
	if deps.ContentLimit.Limit == 0 {
		deps.ContentLimit = ratelimit.RuleContent
	}
	return &Handler{Deps: deps}
}

// NewRouter registers routes and the middleware stack.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", h.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(h.authenticate)

		r.Get("/me", h.me)

		r.Group(func(r chi.Router) {
			r.Use(h.rateLimit(h.ContentLimit))
			r.Post("/questions", h.createQuestion)
			r.Post("/questions/{id}/answers", h.createAnswer)
			r.Post("/answers/{id}/comments", h.createComment)
		})

		r.With(h.rateLimit(h.ReportLimit)).Post("/reports", h.fileReport)

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireAdmin)

			r.Get("/dashboard", h.dashboard)
			r.Get("/feed", h.feed)

			r.Get("/reports", h.listReports)
			r.Get("/reports/{id}", h.getReport)
			r.Post("/reports/{id}/resolve", h.resolveReport)

			r.Get("/restricted-words", h.listRules)
			r.Post("/restricted-words", h.addRule)
			r.Delete("/restricted-words/{word}", h.removeRule)

			r.Get("/users/suspended", h.listSuspended)
			r.Post("/users/{id}/suspend", h.suspendUser)
			r.Post("/users/{id}/unsuspend", h.unsuspendUser)

			r.Delete("/{type}/{id}", h.deleteContent)
		})
	})

	return r
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ok")
}

func (h *Handler) emit(ev messaging.Event) {
	if h.Events != nil {
		h.Events.Emit(ev)
	}
}
