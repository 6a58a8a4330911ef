package apperror

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrRoomNotFound      = errors.New("room not found")
	ErrGameFinished      = errors.New("game is already finished")
	ErrNotYourTurn       = errors.New("it's not your turn")
	ErrCellOccupied      = errors.New("cell is already occupied or out of bounds")
	ErrNotInRoom         = errors.New("connection is not part of this room")
	ErrNothingToUndo     = errors.New("no moves to undo")
	ErrNoPendingUndo     = errors.New("no undo request to resolve")
	ErrSelfMatch         = errors.New("cannot be matched against yourself")
	ErrAlreadyInGame     = errors.New("connection is already playing")
	ErrUnknownConnection = errors.New("connection is not registered")
	ErrUnsupportedGame   = errors.New("game type is not configured")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrRateLimited       = errors.New("too many messages")
	ErrEmptyMessage      = errors.New("empty chat message")
)
