package businessflow

import (
	"context"
	"sync"
)

// AccountLocker serializes work on one account. Different accounts never block each other.
type AccountLocker interface {
	Lock(ctx context.Context, accountID uint) (unlock func(), err error)
}

type accountLock struct {
	ch   chan struct{}
	refs int
}

// KeyedAccountLocker is an in-process AccountLocker
type KeyedAccountLocker struct {
	mu    sync.Mutex
	locks map[uint]*accountLock
}

// NewKeyedAccountLocker creates an in-process account locker
func NewKeyedAccountLocker() *KeyedAccountLocker {
	return &KeyedAccountLocker{locks: make(map[uint]*accountLock)}
}

// Lock blocks until the account is free or ctx is done
func (l *KeyedAccountLocker) Lock(ctx context.Context, accountID uint) (func(), error) {
	l.mu.Lock()
	lk, ok := l.locks[accountID]
	if !ok {
		lk = &accountLock{ch: make(chan struct{}, 1)}
		l.locks[accountID] = lk
	}
	lk.refs++
	l.mu.Unlock()

	select {
	case lk.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(accountID, lk)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-lk.ch
			l.release(accountID, lk)
		})
	}, nil
}

func (l *KeyedAccountLocker) release(accountID uint, lk *accountLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lk.refs--
	if lk.refs == 0 {
		delete(l.locks, accountID)
	}
}
