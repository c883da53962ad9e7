package billing

import "context"

// Locker serializes work per identity across processes. Lock returns a release
// function; callers must treat a Lock error as "proceed without the lock".
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

type noopLocker struct{}

func (noopLocker) Lock(context.Context, string) (func(), error) {
	return func() {}, nil
}
