package protocol

import (
	"reflect"
	"testing"
)

func feedAll(f *Framer, chunks ...string) []string {
	var out []string
	for _, c := range chunks {
		out = append(out, f.Feed([]byte(c))...)
	}
	return out
}

func TestFramerLegacy(t *testing.T) {
	tests := []struct {
		name        string
		chunks      []string
		want        []string
		wantPending int
	}{
		{name: "single line", chunks: []string{"/nick alice\n"}, want: []string{"/nick alice"}},
		{name: "partial then rest", chunks: []string{"hel", "lo wor", "ld\n"}, want: []string{"hello world"}},
		{name: "partial only", chunks: []string{"hello"}, want: nil, wantPending: 5},
		{name: "crlf terminator", chunks: []string{"hello\r\n"}, want: []string{"hello"}},
		{name: "too short", chunks: []string{"a\n"}, want: nil},
		{name: "bare newline", chunks: []string{"\n"}, want: nil},
		{name: "empty chunk", chunks: []string{""}, want: nil},
		{
			name:   "two lines in one read stay one message",
			chunks: []string{"/nick bob\n/join lobby\n"},
			want:   []string{"/nick bob\n/join lobby"},
		},
		{
			name:   "partial is flushed with next terminated read",
			chunks: []string{"first\nsec", "ond\n"},
			want:   []string{"first\nsecond"},
		},
		{name: "two characters kept", chunks: []string{"ab\n"}, want: []string{"ab"}},
		{name: "multibyte counts runes", chunks: []string{"é\n"}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFramer(ModeLegacy)
			got := feedAll(f, tt.chunks...)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
			if f.Pending() != tt.wantPending {
				t.Errorf("Expected %d pending bytes, got %d", tt.wantPending, f.Pending())
			}
		})
	}
}

func TestFramerSplit(t *testing.T) {
	tests := []struct {
		name        string
		chunks      []string
		want        []string
		wantPending int
	}{
		{name: "single line", chunks: []string{"hello\n"}, want: []string{"hello"}},
		{
			name:   "many lines in one read",
			chunks: []string{"/nick bob\n/join lobby\nhi all\n"},
			want:   []string{"/nick bob", "/join lobby", "hi all"},
		},
		{
			name:        "remainder retained",
			chunks:      []string{"one\ntw"},
			want:        []string{"one"},
			wantPending: 2,
		},
		{
			name:   "remainder completed later",
			chunks: []string{"one\ntw", "o\nthree\n"},
			want:   []string{"one", "two", "three"},
		},
		{name: "short lines dropped", chunks: []string{"a\n\nok\n"}, want: []string{"ok"}},
		{name: "crlf", chunks: []string{"x1\r\ny2\r\n"}, want: []string{"x1", "y2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFramer(ModeSplit)
			got := feedAll(f, tt.chunks...)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
			if f.Pending() != tt.wantPending {
				t.Errorf("Expected %d pending bytes, got %d", tt.wantPending, f.Pending())
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeLegacy, "legacy": ModeLegacy, " Split ": ModeSplit} {
		got, err := ParseMode(in)
		if err != nil {
			t.Fatalf("ParseMode(%q): unexpected error %v", in, err)
		}
		if got != want {
			t.Errorf("ParseMode(%q): expected %s, got %s", in, want, got)
		}
	}
	if _, err := ParseMode("lines"); err == nil {
		t.Error("Expected error for unknown mode")
	}
}
