package hub

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func ids(r *Registry) []string {
	var out []string
	r.ForEach(func(c Connection) { out = append(out, c.ID()) })
	sort.Strings(out)
	return out
}

func TestRegistry_ConnectionManagement(t *testing.T) {
	obs := &countingObserver{}
	registry := New(&mockLogger{}, obs)

	if registry.Len() != 0 {
		t.Errorf("Expected 0 connections, got %d", registry.Len())
	}

	conn := newMockConnection("test-conn-1")
	registry.Register(conn)

	if registry.Len() != 1 {
		t.Errorf("Expected 1 connection, got %d", registry.Len())
	}

	retrieved, exists := registry.Get("test-conn-1")
	if !exists {
		t.Fatal("Connection should exist")
	}
	if retrieved.ID() != "test-conn-1" {
		t.Errorf("Expected connection ID 'test-conn-1', got '%s'", retrieved.ID())
	}

	registry.Unregister(conn)
	if registry.Len() != 0 {
		t.Errorf("Expected 0 connections after unregistration, got %d", registry.Len())
	}

	// Second removal is a no-op.
	registry.Unregister(conn)
	if registry.Len() != 0 {
		t.Errorf("Expected 0 connections after double unregistration, got %d", registry.Len())
	}

	if obs.opened != 1 || obs.closed != 1 {
		t.Errorf("Expected observer 1/1, got %d/%d", obs.opened, obs.closed)
	}
}

func TestRegistry_SetDifference(t *testing.T) {
	registry := New(&mockLogger{}, nil)

	conns := make(map[string]*mockConnection)
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("conn-%d", i)
		conns[id] = newMockConnection(id)
		registry.Register(conns[id])
	}

	// Register twice, unregister some, unregister an unknown one.
	registry.Register(conns["conn-3"])
	for _, id := range []string{"conn-1", "conn-3", "conn-5", "conn-3"} {
		registry.Unregister(conns[id])
	}
	registry.Unregister(newMockConnection("never-registered"))

	want := []string{"conn-0", "conn-2", "conn-4", "conn-6", "conn-7", "conn-8", "conn-9"}
	got := ids(registry)
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestRegistry_UnregisterIsByIdentity(t *testing.T) {
	registry := New(&mockLogger{}, nil)

	original := newMockConnection("same-id")
	impostor := newMockConnection("same-id")
	registry.Register(original)

	registry.Unregister(impostor)
	if !registry.Contains(original) {
		t.Error("Unregistering a different handle with the same id must not remove the original")
	}
}

func TestRegistry_CloseRemovesSynchronously(t *testing.T) {
	registry := New(&mockLogger{}, nil)

	conn := newMockConnection("closing")
	registry.Register(conn)

	conn.Close()
	if registry.Contains(conn) {
		t.Error("Connection should be gone as soon as Close returns")
	}
}

func TestRegistry_RegisterClosedIsNoop(t *testing.T) {
	registry := New(&mockLogger{}, nil)

	conn := newMockConnection("dead")
	conn.Close()
	registry.Register(conn)

	if registry.Len() != 0 {
		t.Errorf("Expected closed connection to be ignored, got %d", registry.Len())
	}
}

func TestRegistry_ForEachReentrantUnregister(t *testing.T) {
	registry := New(&mockLogger{}, nil)

	for i := 0; i < 50; i++ {
		registry.Register(newMockConnection(fmt.Sprintf("conn-%02d", i)))
	}

	visits := make(map[string]int)
	registry.ForEach(func(c Connection) {
		visits[c.ID()]++
		var n int
		fmt.Sscanf(c.ID(), "conn-%d", &n)
		if n%3 == 0 {
			registry.Unregister(c)
		}
	})

	if len(visits) != 50 {
		t.Errorf("Expected 50 visited connections, got %d", len(visits))
	}
	for id, n := range visits {
		if n != 1 {
			t.Errorf("Connection %s visited %d times", id, n)
		}
	}
	if registry.Len() != 33 {
		t.Errorf("Expected 33 connections left, got %d", registry.Len())
	}
}

func TestRegistry_ForEachSkipsConnectionsRemovedMidIteration(t *testing.T) {
	registry := New(&mockLogger{}, nil)

	a := newMockConnection("a")
	b := newMockConnection("b")
	registry.Register(a)
	registry.Register(b)

	visited := 0
	registry.ForEach(func(c Connection) {
		visited++
		// Whichever comes first removes the other.
		if c == a {
			registry.Unregister(b)
		} else {
			registry.Unregister(a)
		}
	})

	if visited != 1 {
		t.Errorf("Expected 1 visit, got %d", visited)
	}
}

func TestRegistry_CloseAll(t *testing.T) {
	registry := New(&mockLogger{}, nil)

	conns := []*mockConnection{newMockConnection("1"), newMockConnection("2")}
	for _, c := range conns {
		registry.Register(c)
	}

	registry.CloseAll()

	if registry.Len() != 0 {
		t.Errorf("Expected empty registry, got %d", registry.Len())
	}
	for _, c := range conns {
		if !c.IsClosed() {
			t.Errorf("Connection %s should be closed", c.ID())
		}
	}
}

func TestRegistry_Sweeper(t *testing.T) {
	registry := New(&mockLogger{}, nil)

	alive := newMockConnection("alive")
	dead := newMockConnection("dead")
	registry.Register(alive)
	registry.Register(dead)
	dead.markClosed()

	clock := clockwork.NewFakeClock()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		registry.RunSweeper(ctx, clock, 30*time.Second)
		close(done)
	}()

	clock.BlockUntil(1)
	clock.Advance(30 * time.Second)

	deadline := time.Now().Add(time.Second)
	for registry.Contains(dead) && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if registry.Contains(dead) {
		t.Error("Dead connection should have been swept")
	}
	if !registry.Contains(alive) {
		t.Error("Live connection should survive the sweep")
	}

	cancel()
	<-done
}

func TestRegistry_SweeperIgnoresNonPositiveInterval(t *testing.T) {
	registry := New(&mockLogger{}, nil)

	for _, interval := range []time.Duration{0, -time.Second} {
		done := make(chan struct{})
		go func() {
			defer close(done)
			registry.RunSweeper(context.Background(), clockwork.NewFakeClock(), interval)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatalf("RunSweeper(%s) should return immediately", interval)
		}
	}
}

func TestRegistry_RegisterSameIDReplacesAndClosesOld(t *testing.T) {
	obs := &countingObserver{}
	registry := New(&mockLogger{}, obs)

	old := newMockConnection("dup")
	replacement := newMockConnection("dup")
	registry.Register(old)
	registry.Register(replacement)

	if !old.IsClosed() {
		t.Error("Displaced connection should be closed")
	}
	if registry.Contains(old) || !registry.Contains(replacement) {
		t.Error("Registry should hold only the replacement")
	}
	if registry.Len() != 1 {
		t.Errorf("Expected 1 connection, got %d", registry.Len())
	}

	registry.Unregister(replacement)
	if obs.opened != 2 || obs.closed != 2 {
		t.Errorf("Observer out of balance: opened=%d closed=%d", obs.opened, obs.closed)
	}
}
