package protocol

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		msg  string
		want Input
	}{
		{msg: "/nick alice", want: Input{Command: CmdNick, Arg: "alice", HasArg: true}},
		{msg: "/nick", want: Input{Command: CmdNick}},
		{msg: "/nick ", want: Input{Command: CmdNick, Arg: "", HasArg: true}},
		{msg: "/priv bob hi there", want: Input{Command: CmdPriv, Arg: "bob hi there", HasArg: true}},
		{msg: "/leave now", want: Input{Command: CmdLeave, Arg: "now", HasArg: true}},
		{msg: "//etc/passwd", want: Input{Text: "/etc/passwd"}},
		{msg: "//", want: Input{Text: "/"}},
		{msg: "hello /world", want: Input{Text: "hello /world"}},
		{msg: "/unknown", want: Input{Command: "/unknown"}},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			got := Parse(tt.msg)
			if got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
			if got.IsCommand() != (tt.want.Command != "") {
				t.Errorf("IsCommand mismatch for %q", tt.msg)
			}
		})
	}
}

func TestSplitPriv(t *testing.T) {
	target, text, ok := SplitPriv("alice hi there")
	if !ok || target != "alice" || text != "hi there" {
		t.Errorf("Expected (alice, hi there, true), got (%s, %s, %v)", target, text, ok)
	}
	if _, _, ok := SplitPriv("alice"); ok {
		t.Error("Expected missing text to fail")
	}
}

func TestLines(t *testing.T) {
	cases := map[string]string{
		MessageLine("alice", "hello"):  "MESSAGE alice hello",
		PrivateLine("bob", "hi"):       "PRIVATE bob hi",
		NewNickLine("alice", "alicia"): "NEWNICK alice alicia",
		JoinedLine("alice"):            "JOINED alice",
		LeftLine("alice"):              "LEFT alice",
	}
	for got, want := range cases {
		if got != want {
			t.Errorf("Expected %q, got %q", want, got)
		}
	}
}
