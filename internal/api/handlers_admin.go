package api

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/campusqa/moderation/internal/content"
	"github.com/campusqa/moderation/internal/messaging"
	"github.com/campusqa/moderation/internal/report"
	"github.com/campusqa/moderation/internal/rules"
	"github.com/campusqa/moderation/internal/suspension"
	"github.com/campusqa/moderation/internal/user"
)

type dashboardResponse struct {
	PendingReports  int  `json:"pendingReports"`
	SuspendedUsers  int  `json:"suspendedUsers"`
	RestrictedWords int  `json:"restrictedWords"`
	UsingDefaults   bool `json:"usingDefaultRules"`
	FeedAvailable   bool `json:"feedAvailable"`
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var resp dashboardResponse
	var err error

	if resp.PendingReports, err = h.Pending.CountPending(ctx); err != nil {
		writeMappedError(w, r, "dashboard", err)
		return
	}
	if resp.SuspendedUsers, err = h.Users.CountSuspended(ctx); err != nil {
		writeMappedError(w, r, "dashboard", err)
		return
	}
	if resp.RestrictedWords, err = h.Rules.Count(ctx); err != nil {
		writeMappedError(w, r, "dashboard", err)
		return
	}
	if resp.RestrictedWords == 0 {
		resp.UsingDefaults = true
		resp.RestrictedWords = len(h.Defaults)
	}
	resp.FeedAvailable = h.Feed != nil

	writeSuccess(w, http.StatusOK, resp)
}

func (h *Handler) feed(w http.ResponseWriter, r *http.Request) {
	if h.Feed == nil {
		writeError(w, http.StatusServiceUnavailable, "FEED_UNAVAILABLE", "moderation feed is not enabled")
		return
	}
	h.Feed.ServeWS(w, r, userFromContext(r.Context()).ID)
}

type ruleList struct {
	Words         []rules.Rule `json:"words"`
	UsingDefaults bool         `json:"usingDefaults"`
}

// listRules returns the persisted rules, or the built-in table the filter
// is currently enforcing when nothing is persisted.
func (h *Handler) listRules(w http.ResponseWriter, r *http.Request) {
	list, err := h.Rules.List(r.Context())
	if err != nil {
		writeMappedError(w, r, "list restricted words", err)
		return
	}
	if len(list) == 0 {
		writeSuccess(w, http.StatusOK, ruleList{Words: h.Defaults, UsingDefaults: true})
		return
	}
	writeSuccess(w, http.StatusOK, ruleList{Words: list})
}

// seedDefaults persists the built-in table before the first admin edit, so
// that editing extends the enforced set instead of replacing it.
func (h *Handler) seedDefaults(r *http.Request) error {
	n, err := h.Rules.Count(r.Context())
	if err != nil || n > 0 {
		return err
	}
	added, err := h.Rules.Seed(r.Context(), h.Defaults, "system")
	if err != nil {
		return err
	}
	log.Printf("[rules] seeded %d default restricted words", added)
	return nil
}

func (h *Handler) addRule(w http.ResponseWriter, r *http.Request) {
	var req rules.Rule
	if err := decodeBody(r, &req); err != nil {
		writeMappedError(w, r, "add restricted word", fmt.Errorf("%w: %v", errInvalidBody, err))
		return
	}
	admin := userFromContext(r.Context())
	req.AddedBy = admin.ID
	if err := req.Normalize(); err != nil {
		writeMappedError(w, r, "add restricted word", err)
		return
	}

	if err := h.seedDefaults(r); err != nil {
		writeMappedError(w, r, "add restricted word", err)
		return
	}
	added, err := h.Rules.Add(r.Context(), req)
	if err != nil {
		writeMappedError(w, r, "add restricted word", err)
		return
	}
	log.Printf("[rules] %q (%s) added by %s", added.Word, added.Category, admin.ID)

	ev := messaging.NewEvent(messaging.EventRuleAdded)
	ev.ActorID = admin.ID
	ev.Word = added.Word
	ev.Category = string(added.Category)
	h.emit(ev)

	writeSuccess(w, http.StatusCreated, added)
}

func (h *Handler) removeRule(w http.ResponseWriter, r *http.Request) {
	word := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "word")))
	admin := userFromContext(r.Context())

	if err := h.seedDefaults(r); err != nil {
		writeMappedError(w, r, "remove restricted word", err)
		return
	}
	if err := h.Rules.Remove(r.Context(), word); err != nil {
		writeMappedError(w, r, "remove restricted word", err)
		return
	}
	log.Printf("[rules] %q removed by %s", word, admin.ID)

	ev := messaging.NewEvent(messaging.EventRuleRemoved)
	ev.ActorID = admin.ID
	ev.Word = word
	h.emit(ev)

	writeMessage(w, http.StatusOK, "restricted word removed")
}

func (h *Handler) listSuspended(w http.ResponseWriter, r *http.Request) {
	list, err := h.Users.ListSuspended(r.Context())
	if err != nil {
		writeMappedError(w, r, "list suspended users", err)
		return
	}
	if list == nil {
		list = []user.User{}
	}
	writeSuccess(w, http.StatusOK, list)
}

type suspendRequest struct {
	Duration  report.Duration `json:"duration"`
	Permanent bool            `json:"permanent"`
	Reason    string          `json:"reason"`
}

func (h *Handler) suspendUser(w http.ResponseWriter, r *http.Request) {
	var req suspendRequest
	if err := decodeBody(r, &req); err != nil {
		writeMappedError(w, r, "suspend user", fmt.Errorf("%w: %v", errInvalidBody, err))
		return
	}
	if req.Duration < 0 {
		writeMappedError(w, r, "suspend user", fmt.Errorf("%w: duration must be positive", errInvalidBody))
		return
	}

	st, err := h.Moderator.SuspendUser(r.Context(), userFromContext(r.Context()).ID, chi.URLParam(r, "id"), suspension.Options{
		Duration:  req.Duration.Std(),
		Permanent: req.Permanent,
		Reason:    strings.TrimSpace(req.Reason),
	})
	if err != nil {
		writeMappedError(w, r, "suspend user", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"isSuspended":            st.IsSuspended,
		"isPermanentlySuspended": st.IsPermanentlySuspended,
		"suspensionEndsAt":       st.EndsAt,
		"suspensionReason":       st.Reason,
	})
}

func (h *Handler) unsuspendUser(w http.ResponseWriter, r *http.Request) {
	err := h.Moderator.ReinstateUser(r.Context(), userFromContext(r.Context()).ID, chi.URLParam(r, "id"))
	if err != nil {
		writeMappedError(w, r, "unsuspend user", err)
		return
	}
	writeMessage(w, http.StatusOK, "user reinstated")
}

// deleteContent accepts the type in singular or plural form, as in
// /api/admin/questions/{id}.
func (h *Handler) deleteContent(w http.ResponseWriter, r *http.Request) {
	t := content.Type(strings.TrimSuffix(chi.URLParam(r, "type"), "s"))
	err := h.Moderator.DeleteContent(r.Context(), userFromContext(r.Context()).ID, t, chi.URLParam(r, "id"))
	if err != nil {
		writeMappedError(w, r, "delete content", err)
		return
	}
	writeMessage(w, http.StatusOK, fmt.Sprintf("%s deleted", t))
}
