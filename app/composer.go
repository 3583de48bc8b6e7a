package app

import "context"

// Composer captures status text from the user.
// Implemented by infrastructure (e.g. EnvEditor spawning $EDITOR).
type Composer interface {
	Compose(ctx context.Context) (string, error)
}
