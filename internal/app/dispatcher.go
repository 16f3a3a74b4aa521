package app

import (
	"errors"
	"fmt"

	"github.com/dkeye/chatrelay/internal/core"
	"github.com/dkeye/chatrelay/internal/domain"
	"github.com/dkeye/chatrelay/internal/metrics"
	"github.com/dkeye/chatrelay/internal/protocol"
	"github.com/rs/zerolog/log"
)

var (
	ErrMissingArgument = errors.New("missing argument")
	ErrUnknownCommand  = errors.New("unknown command")
)

// Dispatcher applies one logical message to the registry and writes the
// resulting lines. Like the registry it runs on the event loop goroutine only.
type Dispatcher struct {
	Registry   *Registry
	Metrics    *metrics.Metrics
	MaxNickLen int
}

// Dispatch handles msg for s. It reports whether the connection must be
// closed afterwards (/bye).
func (d *Dispatcher) Dispatch(s *core.Session, msg string) (closeConn bool) {
	in := protocol.Parse(msg)
	if !in.IsCommand() {
		d.Metrics.Command("message")
		if err := d.chat(s, in.Text); err != nil {
			d.reject(s, "message", err)
		}
		return false
	}

	var err error
	switch in.Command {
	case protocol.CmdNick:
		d.Metrics.Command("nick")
		err = d.nick(s, in)
	case protocol.CmdJoin:
		d.Metrics.Command("join")
		err = d.join(s, in)
	case protocol.CmdLeave:
		d.Metrics.Command("leave")
		err = d.leave(s)
	case protocol.CmdPriv:
		d.Metrics.Command("priv")
		err = d.priv(s, in)
	case protocol.CmdBye:
		d.Metrics.Command("bye")
		d.bye(s)
		return true
	default:
		d.Metrics.Command("unknown")
		err = fmt.Errorf("%w: %s", ErrUnknownCommand, in.Command)
	}
	if err != nil {
		d.reject(s, in.Command, err)
	}
	return false
}

// Disconnect releases everything s holds: room membership (with a LEFT
// notification) and its nickname. Safe to call more than once.
func (d *Dispatcher) Disconnect(s *core.Session) {
	if s.State == domain.StateInside {
		_ = d.exit(s)
	}
	d.Registry.ReleaseNick(s)
}

func (d *Dispatcher) nick(s *core.Session, in protocol.Input) error {
	if !in.HasArg {
		return ErrMissingArgument
	}
	nick, err := domain.NewNick(in.Arg, d.MaxNickLen)
	if err != nil {
		return err
	}
	old, err := d.Registry.ClaimNick(s, nick)
	if err != nil {
		return err
	}
	if room, ok := d.Registry.RoomOf(s); ok {
		d.broadcast(room, protocol.NewNickLine(string(old), string(nick)))
	}
	d.send(s, protocol.LineOK)
	return nil
}

func (d *Dispatcher) join(s *core.Session, in protocol.Input) error {
	if !s.State.Registered() {
		return ErrNotRegistered
	}
	if !in.HasArg {
		return ErrMissingArgument
	}
	name, err := domain.NewRoomName(in.Arg)
	if err != nil {
		return err
	}
	if s.State == domain.StateInside {
		if err := d.exit(s); err != nil {
			return err
		}
	}
	room, created, err := d.Registry.Enter(s, name)
	if err != nil {
		return err
	}
	if created {
		d.Metrics.RoomCreated()
	}
	d.broadcast(room, protocol.JoinedLine(string(s.Nick)))
	d.send(s, protocol.LineOK)
	return nil
}

func (d *Dispatcher) leave(s *core.Session) error {
	if err := d.exit(s); err != nil {
		return err
	}
	d.send(s, protocol.LineOK)
	return nil
}

// exit leaves the current room and notifies the remaining members. No OK.
func (d *Dispatcher) exit(s *core.Session) error {
	room, err := d.Registry.Exit(s)
	if err != nil {
		return err
	}
	d.broadcast(room, protocol.LeftLine(string(s.Nick)))
	return nil
}

func (d *Dispatcher) priv(s *core.Session, in protocol.Input) error {
	if !s.State.Registered() {
		return ErrNotRegistered
	}
	target, text, ok := protocol.SplitPriv(in.Arg)
	if !in.HasArg || !ok {
		return ErrMissingArgument
	}
	to, ok := d.Registry.Lookup(domain.Nick(target))
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNick, target)
	}
	d.send(to, protocol.PrivateLine(string(s.Nick), text))
	return nil
}

func (d *Dispatcher) bye(s *core.Session) {
	d.Disconnect(s)
	d.send(s, protocol.LineBye)
	log.Info().Str("module", "app.dispatcher").Str("sid", string(s.ID)).Msg("bye")
}

func (d *Dispatcher) chat(s *core.Session, text string) error {
	room, ok := d.Registry.RoomOf(s)
	if !ok {
		return ErrNotInRoom
	}
	d.broadcast(room, protocol.MessageLine(string(s.Nick), text))
	return nil
}

func (d *Dispatcher) reject(s *core.Session, cmd string, err error) {
	log.Debug().Err(err).Str("module", "app.dispatcher").Str("sid", string(s.ID)).Str("cmd", cmd).Str("state", s.State.String()).Msg("rejected")
	d.Metrics.ProtocolError()
	d.send(s, protocol.LineError)
}

func (d *Dispatcher) send(s *core.Session, line string) {
	if s.Send(line) {
		d.Metrics.LinesSent(1)
	}
}

func (d *Dispatcher) broadcast(room *core.Room, line string) {
	res := room.Broadcast(line)
	d.Metrics.LinesSent(res.SendTo)
}
