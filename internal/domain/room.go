package domain

import (
	"errors"
	"strings"
)

var ErrRoomIDInvalid = errors.New("room id must look like !opaque:server")

type RoomID string

type Room struct {
	ID RoomID
}

func ValidateRoomID(id RoomID) error {
	s := string(id)
	if len(s) < 4 || len(s) > 255 || s[0] != '!' || !strings.Contains(s[1:], ":") {
		return ErrRoomIDInvalid
	}
	return nil
}
