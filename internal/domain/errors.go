package domain

import "errors"

var (
	ErrAlreadyTerminal      = errors.New("session already finished")
	ErrBoxNotFound          = errors.New("box not found")
	ErrCleaningSlotTaken    = errors.New("cleaning slot already taken")
	ErrConflict             = errors.New("concurrent modification")
	ErrIncompatibleResource = errors.New("incompatible resource")
	ErrInvalidInput         = errors.New("invalid input")
	ErrInvalidState         = errors.New("invalid state")
	ErrNotPermitted         = errors.New("operation not permitted")
	ErrSessionNotFound      = errors.New("session not found")
)
