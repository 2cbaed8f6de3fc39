package apperror

import "errors"

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomFull     = errors.New("room is full")
	ErrRoomExists   = errors.New("room already exists")

	ErrWrongPhase  = errors.New("command is not valid in the current phase")
	ErrNotYourTurn = errors.New("it's not your turn")

	ErrValidation     = errors.New("invalid command input")
	ErrAlreadyGuessed = errors.New("letter was already guessed")

	ErrVersionConflict     = errors.New("room version conflict")
	ErrConcurrencyConflict = errors.New("room is busy, try again")

	ErrUnknownGame = errors.New("unknown game kind")

	ErrNotFound = errors.New("not found")
)
