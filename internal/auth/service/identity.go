package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/verdanthq/gatehouse/internal/auth/domain"
	"github.com/verdanthq/gatehouse/internal/auth/store"
)

// maxUpdateRetries bounds optimistic-concurrency retries before the
// contention is surfaced to the caller.
const maxUpdateRetries = 3

// ErrUpdateContention reports that an identity update kept losing the
// version race after the bounded number of retries.
var ErrUpdateContention = errors.New("identity update contention")

// errNoChange is returned by a mutate function to skip the write when the
// read state already satisfies the operation.
var errNoChange = errors.New("no change")

// updateIdentity runs a read-modify-write cycle against one identity under
// optimistic concurrency. The mutate function receives the freshly read
// record; on a version conflict the whole cycle is retried with a re-read,
// so every attempt operates on current state. Different identities never
// contend with each other.
func updateIdentity(ctx context.Context, identities store.Identities, userID string, mutate func(*domain.Identity) error) (domain.Identity, error) {
	for range maxUpdateRetries {
		ident, err := identities.GetByID(ctx, userID)
		if err != nil {
			return domain.Identity{}, err
		}

		expected := ident.Version
		if err := mutate(&ident); err != nil {
			if errors.Is(err, errNoChange) {
				return ident, nil
			}
			return domain.Identity{}, err
		}

		err = identities.Update(ctx, ident, expected)
		if errors.Is(err, store.ErrConflict) {
			continue
		}
		if err != nil {
			return domain.Identity{}, err
		}

		ident.Version = expected + 1
		return ident, nil
	}

	return domain.Identity{}, fmt.Errorf("%w for identity %s", ErrUpdateContention, userID)
}
