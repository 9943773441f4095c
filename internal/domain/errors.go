package domain

import "errors"

var (
	// ErrSessionNotFound is returned when no session matches a code.
	ErrSessionNotFound = errors.New("session not found")
	// ErrCodeTaken is returned by stores when a generated code collides.
	ErrCodeTaken = errors.New("session code already in use")
	// ErrGameAlreadyStarted rejects joins once a session has left waiting.
	ErrGameAlreadyStarted = errors.New("game already started")
	// ErrSessionFull rejects joins at the configured player cap.
	ErrSessionFull = errors.New("session is full")
	// ErrNotHost rejects host-only actions from other connections.
	ErrNotHost = errors.New("only the host can start the game")
	// ErrNotEnoughPlayers gates game start below the two-player minimum.
	ErrNotEnoughPlayers = errors.New("at least 2 players are required to start")
	// ErrInvalidConfig covers out-of-range creation parameters.
	ErrInvalidConfig = errors.New("invalid game configuration")
	// ErrBankExhausted indicates the question bank holds fewer items than requested.
	ErrBankExhausted = errors.New("not enough questions in the bank")
)
