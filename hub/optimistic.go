package hub

import (
	"fmt"
	"sync"

	"github.com/coralnet/reefhub/domain"
	"github.com/coralnet/reefhub/infra/auth"
)

// speculate applies a local change before the remote call confirms it.
//
// apply runs under mu and returns the closure that restores the exact prior
// state. remote runs without the lock. If remote fails, undo and then
// settle run under mu, in that order; settle also runs on success.
func speculate(mu sync.Locker, apply func() (undo func()), remote func() error, settle func(err error)) error {
	mu.Lock()
	undo := apply()
	mu.Unlock()

	err := remote()

	mu.Lock()
	defer mu.Unlock()
	if err != nil && undo != nil {
		undo()
	}
	if settle != nil {
		settle(err)
	}
	return err
}

// requireSession fails locally when no session token is available.
func requireSession(tp auth.TokenProvider) error {
	if tp == nil {
		return domain.ErrUnauthenticated
	}
	if _, err := tp.AccessToken(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	return nil
}
