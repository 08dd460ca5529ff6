package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxTextLength bounds inbound prediction text, in characters.
const MaxTextLength = 5000

func ValidateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: text must not be empty", ErrInvalidInput)
	}
	if utf8.RuneCountInString(text) > MaxTextLength {
		return fmt.Errorf("%w: text exceeds %d characters", ErrInvalidInput, MaxTextLength)
	}
	return nil
}
