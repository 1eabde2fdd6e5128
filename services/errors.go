package services

import "errors"

// Errors shared by the services and mapped to HTTP statuses by the handlers.
var (
	ErrValidationFailed = errors.New("validation failed")

	ErrTournamentNotFound = errors.New("tournament not found")
	ErrNotInRoster        = errors.New("player is not in the tournament roster")

	ErrSanctionIDInvalid  = errors.New("invalid sanction id format, expected XX-XX-XXXXXX (e.g. 25-01-000001)")
	ErrSanctionIDConflict = errors.New("sanction id (TOM UID) is already in use by another tournament")
	ErrAlreadyInRoster    = errors.New("player is already in the roster")

	ErrForbiddenOperation = errors.New("operation not allowed for the current user")

	// ErrMatchPersistence aborts an import; matches are the one mandatory write.
	ErrMatchPersistence = errors.New("failed to store matches")
)
