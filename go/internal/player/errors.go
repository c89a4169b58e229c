package player

import "errors"

// ErrPlayerNotFound is returned when the catalog has no player with the given id
var ErrPlayerNotFound = errors.New("player not found")

// ErrUnknownSource is returned for catalog documents with an unrecognised source tag
var ErrUnknownSource = errors.New("unknown document source")
