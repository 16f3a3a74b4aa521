package core

import (
	"github.com/dkeye/chatrelay/internal/domain"
	"github.com/rs/zerolog/log"
)

// PublishResult reports delivery stats of one broadcast.
type PublishResult struct {
	SendTo  int
	Dropped []*Session
}

// Room owns a membership set and fans lines out to it.
// It never closes connections; failed members are reported, not removed.
type Room struct {
	name    domain.RoomName
	members map[SessionID]*Session
}

func NewRoom(name domain.RoomName) *Room {
	return &Room{
		name:    name,
		members: make(map[SessionID]*Session),
	}
}

func (r *Room) Name() domain.RoomName { return r.name }

func (r *Room) Len() int { return len(r.members) }

func (r *Room) Has(s *Session) bool {
	m, ok := r.members[s.ID]
	return ok && m == s
}

func (r *Room) Add(s *Session) {
	r.members[s.ID] = s
	log.Info().Str("module", "core.room").Str("room", string(r.name)).Str("sid", string(s.ID)).Str("nick", string(s.Nick)).Msg("member added")
}

func (r *Room) Remove(s *Session) bool {
	if !r.Has(s) {
		return false
	}
	delete(r.members, s.ID)
	log.Info().Str("module", "core.room").Str("room", string(r.name)).Str("sid", string(s.ID)).Str("nick", string(s.Nick)).Msg("member removed")
	return true
}

// Members returns a snapshot of the current membership.
func (r *Room) Members() []*Session {
	out := make([]*Session, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, m)
	}
	return out
}

// Broadcast writes line to every current member, sender included.
func (r *Room) Broadcast(line string) PublishResult {
	res := PublishResult{}
	for _, m := range r.members {
		if !m.Send(line) {
			res.Dropped = append(res.Dropped, m)
			continue
		}
		res.SendTo++
	}
	log.Debug().Str("module", "core.room").Str("room", string(r.name)).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}
