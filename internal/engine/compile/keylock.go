package compile

import (
	"context"
	"sync"
)

// keyLock is a map of mutexes. The zero value is an empty map.
type keyLock[K comparable] struct {
	mu sync.Mutex
	m  map[K]<-chan struct{}
}

// lock waits until it acquires the mutex for k or ctx is done.
// On success it returns the function releasing the mutex.
func (kl *keyLock[K]) lock(ctx context.Context, k K) (unlock func(), err error) {
	for {
		kl.mu.Lock()
		held := kl.m[k]
		if held == nil {
			c := make(chan struct{})
			if kl.m == nil {
				kl.m = make(map[K]<-chan struct{})
			}
			kl.m[k] = c
			kl.mu.Unlock()
			return func() {
				kl.mu.Lock()
				delete(kl.m, k)
				close(c)
				kl.mu.Unlock()
			}, nil
		}
		kl.mu.Unlock()

		select {
		case <-held:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
