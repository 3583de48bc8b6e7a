package domain

import "errors"

var (
	// ErrUnauthenticated indicates a mutating call was attempted without a session token.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrEmptyContent indicates the user submitted blank text.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrNotFound indicates the activity is not held in local state.
	ErrNotFound = errors.New("activity not found")
)
