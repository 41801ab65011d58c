package repository

import "errors"

var (
	// ErrNeverRun indicates the module has no recorded run
	ErrNeverRun = errors.New("module has never run")

	// ErrInvalidModule indicates an empty module id
	ErrInvalidModule = errors.New("invalid module id")

	// ErrRepositoryUnavailable indicates the store is closed or unreachable
	ErrRepositoryUnavailable = errors.New("repository unavailable")
)
