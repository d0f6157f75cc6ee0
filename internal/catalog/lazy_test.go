// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package catalog

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLazy_WaiterHonoursOwnContext(t *testing.T) {
	var l lazy[string]
	started := make(chan struct{})
	release := make(chan struct{})

	filled := make(chan error, 1)
	go func() {
		_, err := l.get(context.Background(), func() (string, error) {
			close(started)
			<-release
			return "tree", nil
		})
		filled <- err
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	begin := time.Now()
	_, err := l.get(ctx, func() (string, error) {
		t.Error("second fill must not run while the first is in progress")
		return "", nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want DeadlineExceeded", err)
	}
	if waited := time.Since(begin); waited > time.Second {
		t.Errorf("waiter blocked for %v after its deadline", waited)
	}

	close(release)
	if err := <-filled; err != nil {
		t.Fatalf("first get: %v", err)
	}
	v, err := l.get(context.Background(), func() (string, error) {
		t.Error("fill ran again after success")
		return "", nil
	})
	if err != nil || v != "tree" {
		t.Errorf("cached get = %q, %v", v, err)
	}
}

func TestLazy_WaiterRetriesAfterFailure(t *testing.T) {
	var l lazy[int]
	started := make(chan struct{})
	release := make(chan struct{})
	boom := errors.New("upstream down")

	first := make(chan error, 1)
	go func() {
		_, err := l.get(context.Background(), func() (int, error) {
			close(started)
			<-release
			return 0, boom
		})
		first <- err
	}()
	<-started

	second := make(chan int, 1)
	go func() {
		v, _ := l.get(context.Background(), func() (int, error) { return 7, nil })
		second <- v
	}()

	close(release)
	if err := <-first; !errors.Is(err, boom) {
		t.Errorf("first err = %v, want %v", err, boom)
	}
	if v := <-second; v != 7 {
		t.Errorf("waiter got %d, want 7 from its own fill", v)
	}
}

func TestLazy_PanicDoesNotStoreValue(t *testing.T) {
	var l lazy[int]
	func() {
		defer func() { _ = recover() }()
		l.get(context.Background(), func() (int, error) { panic("bad row") })
	}()
	v, err := l.get(context.Background(), func() (int, error) { return 3, nil })
	if err != nil || v != 3 {
		t.Errorf("after panic = %d, %v, want 3", v, err)
	}
}
