package checkout

import (
	"context"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/vinoteca-backend/pkg/errors"
)

const lockScope = "checkout"

// Locker is the Redis surface used for the per-session processing flag.
type Locker interface {
	LockKey(scope, id string) string
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, token string) (bool, error)
}

// acquire sets the processing flag for a session. The returned release func
// must always be called; it only clears the flag this call set.
func (s *service) acquire(ctx context.Context, sessionID string) (func(), error) {
	key := s.locker.LockKey(lockScope, sessionID)
	token := uuid.NewString()
	ok, err := s.locker.SetNX(ctx, key, token, s.cfg.LockTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire checkout lock")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "checkout already in progress")
	}
	return func() {
		// The request context may already be cancelled; releasing must still happen.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if _, err := s.locker.Release(releaseCtx, key, token); err != nil {
			s.logg.Error(ctx, "checkout.lock_release_failed", err)
		}
	}, nil
}
