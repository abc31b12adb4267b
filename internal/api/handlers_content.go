package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campusqa/moderation/internal/content"
	"github.com/campusqa/moderation/internal/messaging"
	"github.com/campusqa/moderation/internal/moderation"
)

// submissionRequest is the body of a question, answer or comment form.
// Every text field present is scanned, whichever endpoint receives it.
type submissionRequest struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	Answer    string `json:"answer"`
	Comment   string `json:"comment"`
	CollegeID string `json:"collegeId"`
}

func (s submissionRequest) submission() moderation.Submission {
	return moderation.Submission{
		Title:   s.Title,
		Content: s.Content,
		Answer:  s.Answer,
		Comment: s.Comment,
	}
}

// body returns the item body for type t. Answers and comments may send their
// text under their own field name or under "content".
func (s submissionRequest) body(t content.Type) string {
	switch {
	case t == content.TypeAnswer && s.Answer != "":
		return s.Answer
	case t == content.TypeComment && s.Comment != "":
		return s.Comment
	}
	return s.Content
}

func (h *Handler) createQuestion(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, content.TypeQuestion, "", "")
}

func (h *Handler) createAnswer(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, content.TypeAnswer, chi.URLParam(r, "id"), content.TypeQuestion)
}

func (h *Handler) createComment(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, content.TypeComment, chi.URLParam(r, "id"), content.TypeAnswer)
}

// submit runs the submission pipeline: shape validation, parent lookup, the
// restricted-word gate, then the insert.
func (h *Handler) submit(w http.ResponseWriter, r *http.Request, t content.Type, parentID string, parentType content.Type) {
	op := "create " + string(t)
	author := userFromContext(r.Context())

	var req submissionRequest
	if err := decodeBody(r, &req); err != nil {
		writeMappedError(w, r, op, fmt.Errorf("%w: %v", errInvalidBody, err))
		return
	}

	item := &content.Item{
		Type:      t,
		ParentID:  parentID,
		CollegeID: req.CollegeID,
		AuthorID:  author.ID,
		Title:     req.Title,
		Body:      req.body(t),
	}
	if err := item.Validate(); err != nil {
		writeMappedError(w, r, op, err)
		return
	}

	if parentType != "" {
		ok, err := h.Content.Exists(r.Context(), parentType, parentID)
		if err != nil {
			writeMappedError(w, r, op, err)
			return
		}
		if !ok {
			writeMappedError(w, r, op, content.ErrNotFound)
			return
		}
	}

	if err := h.Gate.Check(r.Context(), req.submission()); err != nil {
		var rejected *moderation.RejectedError
		if errors.As(err, &rejected) {
			log.Printf("[api] %s by %s rejected: field=%s word=%q", t, author.ID, rejected.Field, rejected.Rule.Word)
			ev := messaging.NewEvent(messaging.EventContentRejected)
			ev.UserID = author.ID
			ev.ContentType = string(t)
			ev.Word = rejected.Rule.Word
			ev.Category = string(rejected.Rule.Category)
			h.emit(ev)
		}
		writeMappedError(w, r, op, err)
		return
	}

	if err := h.Content.Create(r.Context(), item); err != nil {
		writeMappedError(w, r, op, err)
		return
	}
	writeSuccess(w, http.StatusCreated, item)
}
