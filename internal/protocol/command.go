package protocol

import "strings"

const (
	CmdNick  = "/nick"
	CmdJoin  = "/join"
	CmdLeave = "/leave"
	CmdPriv  = "/priv"
	CmdBye   = "/bye"
)

// Input is one classified logical message.
type Input struct {
	// Command is the leading token ("/join") when the message is a command,
	// empty for plain chat.
	Command string
	// Arg is everything after the first space of a command.
	Arg    string
	HasArg bool
	// Text is the chat payload, with an escaping leading slash removed.
	Text string
}

func (in Input) IsCommand() bool { return in.Command != "" }

// Parse classifies a message: a single leading '/' starts a command, "//"
// escapes a literal slash, anything else is chat.
func Parse(msg string) Input {
	switch {
	case strings.HasPrefix(msg, "//"):
		return Input{Text: msg[1:]}
	case strings.HasPrefix(msg, "/"):
		cmd, arg, found := strings.Cut(msg, " ")
		return Input{Command: cmd, Arg: arg, HasArg: found}
	default:
		return Input{Text: msg}
	}
}

// SplitPriv separates "/priv" arguments into target and text.
func SplitPriv(arg string) (target, text string, ok bool) {
	return strings.Cut(arg, " ")
}
