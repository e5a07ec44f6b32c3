package application

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"contact-gateway/contact/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeCaptcha struct {
	ok    bool
	calls atomic.Int32
	// block faz Verify esperar o ctx encerrar.
	block bool
}

func (f *fakeCaptcha) Verify(ctx context.Context, token string) bool {
	f.calls.Add(1)
	if f.block {
		<-ctx.Done()
		return false
	}
	return f.ok
}

type fakeMailer struct {
	err   error
	calls atomic.Int32
	delay time.Duration

	mu      sync.Mutex
	lastCtx error
	last    domain.Submission
}

func (f *fakeMailer) Send(ctx context.Context, sub domain.Submission) error {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	f.lastCtx = ctx.Err()
	f.last = sub
	f.mu.Unlock()
	return f.err
}

type failingStore struct{}

var errStoreDown = errors.New("store down")

func (failingStore) IsLimited(context.Context, domain.ClientID) (bool, error) {
	return false, errStoreDown
}
func (failingStore) Increment(context.Context, domain.ClientID) error { return errStoreDown }
func (failingStore) Remaining(context.Context, domain.ClientID) (int, error) {
	return 0, errStoreDown
}
func (failingStore) ResetTime(context.Context, domain.ClientID) (time.Duration, error) {
	return 0, errStoreDown
}
func (failingStore) Limit() int { return 5 }

// errLocker falha todo Lock com err.
type errLocker struct{ err error }

func (l errLocker) Lock(context.Context, domain.ClientID) (func(), error) {
	return nil, l.err
}
