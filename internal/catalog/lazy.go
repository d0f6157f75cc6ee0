// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package catalog

import (
	"context"
	"sync"
)

// lazy holds a value computed on first successful use. One caller runs
// the computation while the others wait for it or for their own context,
// whichever ends first. A failed computation stores nothing, so the next
// caller tries again.
type lazy[T any] struct {
	mu   sync.Mutex
	done bool
	val  T
	busy chan struct{} // closed when the running fill returns
}

func (l *lazy[T]) get(ctx context.Context, fill func() (T, error)) (T, error) {
	for {
		l.mu.Lock()
		if l.done {
			v := l.val
			l.mu.Unlock()
			return v, nil
		}
		if busy := l.busy; busy != nil {
			l.mu.Unlock()
			select {
			case <-busy:
				continue
			case <-ctx.Done():
				var zero T
				return zero, ctx.Err()
			}
		}
		busy := make(chan struct{})
		l.busy = busy
		l.mu.Unlock()

		return l.run(busy, fill)
	}
}

func (l *lazy[T]) run(busy chan struct{}, fill func() (T, error)) (T, error) {
	var (
		v        T
		err      error
		returned bool
	)
	defer func() {
		l.mu.Lock()
		if returned && err == nil {
			l.val, l.done = v, true
		}
		l.busy = nil
		l.mu.Unlock()
		close(busy)
	}()
	v, err = fill()
	returned = true
	return v, err
}
