package api

import (
	"bufio"
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/campusqa/moderation/internal/auth"
	"github.com/campusqa/moderation/internal/metrics"
	"github.com/campusqa/moderation/internal/ratelimit"
	"github.com/campusqa/moderation/internal/user"
)

type ctxKey string

const (
	ctxKeyRequestID ctxKey = "request_id"
	ctxKeyUser      ctxKey = "user"
)

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-Id")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", reqID)
		ctx := context.WithValue(r.Context(), ctxKeyRequestID, reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("[api] panic recovered request_id=%s %s %s: %v",
					requestIDFromContext(r.Context()), r.Method, r.URL.Path, rec)
				writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	hijacked   bool
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *statusRecorder) Write(payload []byte) (int, error) {
	if r.statusCode == 0 {
		r.statusCode = http.StatusOK
	}
	return r.ResponseWriter.Write(payload)
}

// Hijack lets the feed upgrade the connection to a WebSocket.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("api: response writer does not support hijacking")
	}
	conn, rw, err := hj.Hijack()
	if err == nil {
		r.hijacked = true
	}
	return conn, rw, err
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(recorder, r)

		statusCode := recorder.statusCode
		switch {
		case recorder.hijacked:
			statusCode = http.StatusSwitchingProtocols
		case statusCode == 0:
			statusCode = http.StatusOK
		}

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(start)
		metrics.RequestLatency.WithLabelValues(r.Method, route, strconv.Itoa(statusCode)).Observe(elapsed.Seconds())

		log.Printf("[api] %s %s status=%d duration=%s request_id=%s",
			r.Method, r.URL.Path, statusCode, elapsed.Round(time.Microsecond), requestIDFromContext(r.Context()))
	})
}

// authenticate resolves the session token to a user, reloads the user so
// role and suspension state are current, and runs the suspension guard.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := auth.TokenFromRequest(r)
		if err != nil {
			writeMappedError(w, r, "authenticate", err)
			return
		}
		userID, err := h.Verifier.Verify(raw)
		if err != nil {
			writeMappedError(w, r, "authenticate", err)
			return
		}

		u, err := h.Users.Get(r.Context(), userID)
		if errors.Is(err, user.ErrNotFound) {
			writeMappedError(w, r, "authenticate", auth.ErrUnauthorized)
			return
		}
		if err != nil {
			writeMappedError(w, r, "authenticate", err)
			return
		}

		if err := h.Guard.Check(r.Context(), u); err != nil {
			writeMappedError(w, r, "suspension check", err)
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyUser, u)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := userFromContext(r.Context())
		if u == nil || !u.IsAdmin() {
			writeMappedError(w, r, "require admin", errForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimit counts requests per authenticated user against rule. Limiter
// errors are logged by the limiter and the request proceeds.
func (h *Handler) rateLimit(rule ratelimit.Rule) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if h.Limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u := userFromContext(r.Context())
			if u == nil {
				next.ServeHTTP(w, r)
				return
			}
			res, _ := h.Limiter.Allow(r.Context(), u.ID, rule)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rule.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			if !res.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(rule.Window/time.Second)))
				writeMappedError(w, r, "rate limit", errRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestIDFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(ctxKeyRequestID).(string); ok {
		return s
	}
	return ""
}

func userFromContext(ctx context.Context) *user.User {
	u, _ := ctx.Value(ctxKeyUser).(*user.User)
	return u
}
