// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"unicode/utf8"
)

var (
	ErrNickEmpty   = errors.New("nickname empty")
	ErrNickTooLong = errors.New("nickname too long")
)

// Nick is a registered nickname. Uniqueness is enforced by the registry, not here.
type Nick string

// NewNick validates a raw /nick argument. maxLen <= 0 means unlimited.
func NewNick(raw string, maxLen int) (Nick, error) {
	if len(raw) == 0 {
		return "", ErrNickEmpty
	}
	if maxLen > 0 && utf8.RuneCountInString(raw) > maxLen {
		return "", ErrNickTooLong
	}
	return Nick(raw), nil
}

func (n Nick) String() string { return string(n) }
