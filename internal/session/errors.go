package session

import "errors"

// ErrOutOfSessionSlots is returned by Registry.Create when every session
// slot is occupied and none can be expired to make room.
var ErrOutOfSessionSlots = errors.New("session: registry is full")

// ErrUnauthorized is returned by Registry.Access when the given id does
// not name a live session.
var ErrUnauthorized = errors.New("session: unauthorized")
