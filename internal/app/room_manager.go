package app

import (
	"sort"

	"github.com/dkeye/chatrelay/internal/core"
	"github.com/dkeye/chatrelay/internal/domain"
	"github.com/rs/zerolog/log"
)

// RoomManager creates rooms lazily. Rooms are never removed: once a name has
// been joined it lives as long as the process, even when empty.
type RoomManager struct {
	rooms map[domain.RoomName]*core.Room
}

func NewRoomManager() *RoomManager {
	return &RoomManager{rooms: make(map[domain.RoomName]*core.Room)}
}

// GetOrCreate returns the named room and whether this call created it.
func (m *RoomManager) GetOrCreate(name domain.RoomName) (*core.Room, bool) {
	if room, ok := m.rooms[name]; ok {
		return room, false
	}
	room := core.NewRoom(name)
	m.rooms[name] = room
	log.Info().Str("module", "app.rooms").Str("room", string(name)).Msg("room created")
	return room, true
}

func (m *RoomManager) Get(name domain.RoomName) (*core.Room, bool) {
	room, ok := m.rooms[name]
	return room, ok
}

func (m *RoomManager) Len() int { return len(m.rooms) }

func (m *RoomManager) List() []core.RoomInfo {
	out := make([]core.RoomInfo, 0, len(m.rooms))
	for name, r := range m.rooms {
		members := make([]string, 0, r.Len())
		for _, s := range r.Members() {
			members = append(members, string(s.Nick))
		}
		sort.Strings(members)
		out = append(out, core.RoomInfo{Name: string(name), MemberCount: r.Len(), Members: members})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
