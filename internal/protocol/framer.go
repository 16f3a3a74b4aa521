package protocol

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Mode selects how a Framer turns read chunks into logical messages.
type Mode string

const (
	// ModeLegacy treats each read that ends in a terminator as exactly one
	// message, even if the chunk holds several newline separated lines.
	ModeLegacy Mode = "legacy"
	// ModeSplit splits buffered data on every terminator and keeps only the
	// trailing remainder.
	ModeSplit Mode = "split"
)

// MinMessageLen is the shortest message (in characters, terminator removed)
// that is passed on. Shorter ones are dropped.
const MinMessageLen = 2

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeLegacy, nil
	case ModeLegacy, ModeSplit:
		return m, nil
	default:
		return "", fmt.Errorf("unknown framing mode %q", s)
	}
}

// Framer reassembles logical messages for one connection.
// Not safe for concurrent use; each session owns its own.
type Framer struct {
	mode    Mode
	pending []byte
}

func NewFramer(mode Mode) *Framer {
	if mode == "" {
		mode = ModeLegacy
	}
	return &Framer{mode: mode}
}

// Feed appends one read chunk and returns the complete messages it finished,
// terminators stripped and too-short messages removed.
func (f *Framer) Feed(chunk []byte) []string {
	if len(chunk) == 0 {
		return nil
	}
	if f.mode == ModeSplit {
		return f.feedSplit(chunk)
	}
	return f.feedLegacy(chunk)
}

// Pending returns the number of buffered bytes not yet part of a message.
func (f *Framer) Pending() int { return len(f.pending) }

func (f *Framer) feedLegacy(chunk []byte) []string {
	f.pending = append(f.pending, chunk...)
	if chunk[len(chunk)-1] != '\n' {
		return nil
	}
	raw := string(f.pending)
	f.pending = f.pending[:0]
	if msg, ok := clean(raw); ok {
		return []string{msg}
	}
	return nil
}

func (f *Framer) feedSplit(chunk []byte) []string {
	f.pending = append(f.pending, chunk...)
	var out []string
	off := 0
	for {
		i := bytes.IndexByte(f.pending[off:], '\n')
		if i < 0 {
			break
		}
		if msg, ok := clean(string(f.pending[off : off+i+1])); ok {
			out = append(out, msg)
		}
		off += i + 1
	}
	n := copy(f.pending, f.pending[off:])
	f.pending = f.pending[:n]
	return out
}

func clean(raw string) (string, bool) {
	msg := strings.TrimSuffix(raw, "\n")
	msg = strings.TrimSuffix(msg, "\r")
	if utf8.RuneCountInString(msg) < MinMessageLen {
		return "", false
	}
	return msg, true
}
