package core

// RoomInfo is a read-only view of a room for APIs (no transport fields).
type RoomInfo struct {
	Name        string   `json:"name"`
	MemberCount int      `json:"member_count"`
	Members     []string `json:"members"`
}

// UserInfo is a read-only view of one session.
type UserInfo struct {
	ID     SessionID `json:"id"`
	Nick   string    `json:"nick,omitempty"`
	State  string    `json:"state"`
	Room   string    `json:"room,omitempty"`
	Remote string    `json:"remote"`
}

// Snapshot is the registry state at one instant.
type Snapshot struct {
	Rooms []RoomInfo `json:"rooms"`
	Users []UserInfo `json:"users"`
}
