package protocol

// Server lines, written without terminator. Transports append their own.
const (
	LineOK    = "OK"
	LineError = "ERROR"
	LineBye   = "BYE"
)

func MessageLine(nick, text string) string { return "MESSAGE " + nick + " " + text }

func PrivateLine(nick, text string) string { return "PRIVATE " + nick + " " + text }

func NewNickLine(oldNick, newNick string) string { return "NEWNICK " + oldNick + " " + newNick }

func JoinedLine(nick string) string { return "JOINED " + nick }

func LeftLine(nick string) string { return "LEFT " + nick }
