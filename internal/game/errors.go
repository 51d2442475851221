package game

import "errors"

// Join and lookup failures. These are the only outcomes reported back to a
// caller; every other invalid action is dropped.
var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomFull           = errors.New("room is full")
	ErrGameAlreadyStarted = errors.New("game already started")
)

// ErrorCode maps a room error to its wire code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, ErrRoomFull):
		return "room_full"
	case errors.Is(err, ErrGameAlreadyStarted):
		return "game_already_started"
	case err == nil:
		return ""
	}
	return "internal"
}
