package app

import (
	"errors"
	"sort"

	"github.com/dkeye/chatrelay/internal/core"
	"github.com/dkeye/chatrelay/internal/domain"
	"github.com/rs/zerolog/log"
)

var (
	ErrNickTaken     = errors.New("nickname already in use")
	ErrNotRegistered = errors.New("session has no nickname")
	ErrNotInRoom     = errors.New("session is not in a room")
	ErrAlreadyInRoom = errors.New("session is already in a room")
	ErrUnknownNick   = errors.New("no such nickname")
)

// Registry maps connections and nicknames to sessions and owns the rooms.
// It has no locks: only the event loop goroutine may call it.
//
// Invariants kept by every method:
//   - s.Nick != "" implies nicks[s.Nick] == s
//   - s.State == StateInside iff s.Room != "" iff the room has s as a member
type Registry struct {
	sessions map[core.SessionID]*core.Session
	nicks    map[domain.Nick]*core.Session
	rooms    *RoomManager
}

func NewRegistry(rooms *RoomManager) *Registry {
	if rooms == nil {
		rooms = NewRoomManager()
	}
	return &Registry{
		sessions: make(map[core.SessionID]*core.Session),
		nicks:    make(map[domain.Nick]*core.Session),
		rooms:    rooms,
	}
}

func (r *Registry) Rooms() *RoomManager { return r.rooms }

func (r *Registry) Add(s *core.Session) {
	r.sessions[s.ID] = s
	log.Debug().Str("module", "app.registry").Str("sid", string(s.ID)).Msg("session added")
}

func (r *Registry) Session(sid core.SessionID) (*core.Session, bool) {
	s, ok := r.sessions[sid]
	return s, ok
}

// Has reports whether s itself (not just its id) is registered.
func (r *Registry) Has(s *core.Session) bool {
	cur, ok := r.sessions[s.ID]
	return ok && cur == s
}

// Remove forgets the session. Room membership and nickname must already
// have been released by the caller.
func (r *Registry) Remove(s *core.Session) bool {
	if !r.Has(s) {
		return false
	}
	delete(r.sessions, s.ID)
	log.Debug().Str("module", "app.registry").Str("sid", string(s.ID)).Msg("session removed")
	return true
}

func (r *Registry) Len() int { return len(r.sessions) }

func (r *Registry) Sessions() []*core.Session {
	out := make([]*core.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// ClaimNick binds nick to s, releasing the previous binding. INIT sessions
// move to OUTSIDE; other states are kept. It returns the previous nickname.
func (r *Registry) ClaimNick(s *core.Session, nick domain.Nick) (domain.Nick, error) {
	if holder, ok := r.nicks[nick]; ok && holder != s {
		return "", ErrNickTaken
	}
	old := s.Nick
	if old != "" && r.nicks[old] == s {
		delete(r.nicks, old)
	}
	s.Nick = nick
	r.nicks[nick] = s
	if s.State == domain.StateInit {
		s.State = domain.StateOutside
	}
	log.Info().Str("module", "app.registry").Str("sid", string(s.ID)).Str("old", string(old)).Str("nick", string(nick)).Msg("nickname claimed")
	return old, nil
}

// ReleaseNick drops the nickname binding of s, if any. The session goes back
// to INIT; callers must take it out of its room first.
func (r *Registry) ReleaseNick(s *core.Session) {
	if s.Nick == "" {
		return
	}
	if r.nicks[s.Nick] == s {
		delete(r.nicks, s.Nick)
	}
	log.Debug().Str("module", "app.registry").Str("sid", string(s.ID)).Str("nick", string(s.Nick)).Msg("nickname released")
	s.Nick = ""
	s.State = domain.StateInit
}

func (r *Registry) Lookup(nick domain.Nick) (*core.Session, bool) {
	s, ok := r.nicks[nick]
	return s, ok
}

// Enter adds an OUTSIDE session to the named room, creating it if needed.
func (r *Registry) Enter(s *core.Session, name domain.RoomName) (room *core.Room, created bool, err error) {
	switch s.State {
	case domain.StateInit:
		return nil, false, ErrNotRegistered
	case domain.StateInside:
		return nil, false, ErrAlreadyInRoom
	}
	room, created = r.rooms.GetOrCreate(name)
	room.Add(s)
	s.Room = name
	s.State = domain.StateInside
	log.Debug().Str("module", "app.registry").Str("nick", string(s.Nick)).Str("room", string(name)).Msg("entered room")
	return room, created, nil
}

// Exit takes an INSIDE session out of its room and returns that room.
func (r *Registry) Exit(s *core.Session) (*core.Room, error) {
	if s.State != domain.StateInside {
		return nil, ErrNotInRoom
	}
	room, ok := r.rooms.Get(s.Room)
	if ok {
		room.Remove(s)
	}
	log.Debug().Str("module", "app.registry").Str("nick", string(s.Nick)).Str("room", string(s.Room)).Msg("left room")
	s.Room = ""
	s.State = domain.StateOutside
	if !ok {
		return nil, ErrNotInRoom
	}
	return room, nil
}

// RoomOf resolves the room of an INSIDE session.
func (r *Registry) RoomOf(s *core.Session) (*core.Room, bool) {
	if s.State != domain.StateInside {
		return nil, false
	}
	return r.rooms.Get(s.Room)
}

func (r *Registry) Snapshot() core.Snapshot {
	users := make([]core.UserInfo, 0, len(r.sessions))
	for _, s := range r.sessions {
		users = append(users, core.UserInfo{
			ID:     s.ID,
			Nick:   string(s.Nick),
			State:  s.State.String(),
			Room:   string(s.Room),
			Remote: s.Conn().RemoteAddr(),
		})
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].Nick != users[j].Nick {
			return users[i].Nick < users[j].Nick
		}
		return users[i].ID < users[j].ID
	})
	return core.Snapshot{Rooms: r.rooms.List(), Users: users}
}
