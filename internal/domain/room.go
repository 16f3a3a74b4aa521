package domain

import "errors"

var ErrRoomNameEmpty = errors.New("room name empty")

// RoomName is the unique key of a room. The zero value means "no room".
type RoomName string

func NewRoomName(raw string) (RoomName, error) {
	if raw == "" {
		return "", ErrRoomNameEmpty
	}
	return RoomName(raw), nil
}

func (r RoomName) String() string { return string(r) }
