package content

import (
	"fmt"
	"unicode/utf8"
)

const (
	MaxTitleChars = 300
	MaxBodyChars  = 10000
)

// ValidateText checks that a text field is non-empty, valid UTF-8 and within
// maxChars characters. field names the input in the returned error.
func ValidateText(field, text string, maxChars int) error {
	if len(text) == 0 {
		return fmt.Errorf("%w: %s is empty", ErrInvalid, field)
	}
	if len(text) > 4*maxChars {
		return fmt.Errorf("%w: %s exceeds %d byte limit", ErrInvalid, field, 4*maxChars)
	}
	if !utf8.ValidString(text) {
		return fmt.Errorf("%w: %s contains invalid UTF-8", ErrInvalid, field)
	}
	if utf8.RuneCountInString(text) > maxChars {
		return fmt.Errorf("%w: %s exceeds %d character limit", ErrInvalid, field, maxChars)
	}
	return nil
}

// Validate checks the fields required for the item's type.
func (it *Item) Validate() error {
	if !it.Type.Stored() {
		return fmt.Errorf("%w: unknown content type %q", ErrInvalid, it.Type)
	}
	if it.AuthorID == "" {
		return fmt.Errorf("%w: author is required", ErrInvalid)
	}
	switch it.Type {
	case TypeQuestion:
		if err := ValidateText("title", it.Title, MaxTitleChars); err != nil {
			return err
		}
	case TypeAnswer, TypeComment:
		if it.ParentID == "" {
			return fmt.Errorf("%w: %s requires a parent", ErrInvalid, it.Type)
		}
	}
	return ValidateText(bodyField(it.Type), it.Body, MaxBodyChars)
}

// bodyField names the body input the way the submission form does.
func bodyField(t Type) string {
	switch t {
	case TypeAnswer:
		return "answer"
	case TypeComment:
		return "comment"
	}
	return "content"
}
