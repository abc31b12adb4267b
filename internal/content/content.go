// Package content stores the questions, answers and comments that the
// moderation core scans, attributes to authors and deletes.
package content

import (
	"errors"
	"time"
)

// Type identifies the kind of content a report or deletion refers to.
type Type string

const (
	TypeQuestion Type = "question"
	TypeAnswer   Type = "answer"
	TypeComment  Type = "comment"
	TypeProfile  Type = "profile"
)

// Valid reports whether t is a known content type.
func (t Type) Valid() bool {
	switch t {
	case TypeQuestion, TypeAnswer, TypeComment, TypeProfile:
		return true
	}
	return false
}

// Stored reports whether items of type t live in the content store.
// Profiles belong to the user subsystem.
func (t Type) Stored() bool {
	return t == TypeQuestion || t == TypeAnswer || t == TypeComment
}

var (
	// ErrNotFound is returned when no item of the given type and id exists.
	ErrNotFound = errors.New("content: not found")
	// ErrInvalid is returned when an item fails validation.
	ErrInvalid = errors.New("content: invalid")
)

// Item is a question, answer or comment. Questions carry a title and belong
// to a college; answers and comments reference their parent by ParentID.
type Item struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	ParentID  string    `json:"parentId,omitempty"`
	CollegeID string    `json:"collegeId,omitempty"`
	AuthorID  string    `json:"authorId"`
	Title     string    `json:"title,omitempty"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}
