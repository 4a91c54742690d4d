package kv_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/ScrewVolt/halov2/pkg/kv"
)

// newTestStore creates a new Store for testing. Tests in this file use the
// Memory implementation; badger_test.go runs the same scenarios against an
// in-memory badger engine.
func newTestStore(t *testing.T, opts *kv.Options) kv.Store {
	t.Helper()
	s := kv.NewMemory(opts)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetSetDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, nil)

	key := kv.Key{"pat", "nurse7", "p1"}
	val := []byte("hello")

	// Get non-existent key.
	_, err := s.Get(ctx, key)
	if !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// Set and Get.
	if err := s.Set(ctx, key, val); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != string(val) {
		t.Fatalf("Get = %q, want %q", got, val)
	}

	// Overwrite.
	val2 := []byte("world")
	if err := s.Set(ctx, key, val2); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	got, err = s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get after overwrite: %v", err)
	}
	if string(got) != string(val2) {
		t.Fatalf("Get = %q, want %q", got, val2)
	}

	// Delete.
	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	_, err = s.Get(ctx, key)
	if !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	// Delete non-existent key should not error.
	if err := s.Delete(ctx, kv.Key{"no", "such", "key"}); err != nil {
		t.Fatalf("Delete non-existent: %v", err)
	}
}

func TestList(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, nil)

	// Entries under two users, mimicking the chat/patient key layout.
	entries := []kv.Entry{
		{Key: kv.Key{"chat", "u1", "p1", "e", "100"}, Value: []byte("a")},
		{Key: kv.Key{"chat", "u1", "p1", "e", "200"}, Value: []byte("b")},
		{Key: kv.Key{"chat", "u1", "p2", "e", "100"}, Value: []byte("c")},
		{Key: kv.Key{"pat", "u1", "p1"}, Value: []byte("rec")},
		{Key: kv.Key{"chat", "u2", "p1", "e", "100"}, Value: []byte("d")},
	}
	for _, e := range entries {
		if err := s.Set(ctx, e.Key, e.Value); err != nil {
			t.Fatalf("Set %v: %v", e.Key, err)
		}
	}

	// One patient's entries only.
	var got []string
	for entry, err := range s.List(ctx, kv.Key{"chat", "u1", "p1", "e"}) {
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		got = append(got, entry.Key.String()+"="+string(entry.Value))
	}
	want := []string{
		"chat:u1:p1:e:100=a",
		"chat:u1:p1:e:200=b",
	}
	if !slices.Equal(got, want) {
		t.Fatalf("List chat:u1:p1:e = %v, want %v", got, want)
	}

	// All of u1's chat entries across patients.
	got = nil
	for entry, err := range s.List(ctx, kv.Key{"chat", "u1"}) {
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		got = append(got, entry.Key.String())
	}
	if len(got) != 3 {
		t.Fatalf("List chat:u1: got %d entries, want 3: %v", len(got), got)
	}

	// Empty prefix scans everything.
	got = nil
	for entry, err := range s.List(ctx, nil) {
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		got = append(got, entry.Key.String())
	}
	if len(got) != 5 {
		t.Fatalf("List all: got %d entries, want 5: %v", len(got), got)
	}
}

func TestListPrefixBoundary(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, nil)

	// "ab" prefix must not match "abc:x", only "ab:*".
	for _, k := range []kv.Key{{"ab", "1"}, {"abc", "2"}, {"ab", "3"}} {
		if err := s.Set(ctx, k, []byte("v")); err != nil {
			t.Fatalf("Set %v: %v", k, err)
		}
	}

	var got []string
	for entry, err := range s.List(ctx, kv.Key{"ab"}) {
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		got = append(got, entry.Key.String())
	}
	want := []string{"ab:1", "ab:3"}
	if !slices.Equal(got, want) {
		t.Fatalf("List ab = %v, want %v", got, want)
	}
}

func TestListLexicographicOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, nil)

	// Insert out of order; List must come back sorted. Fixed-width
	// timestamps keep lexicographic and numeric order identical.
	for _, ts := range []string{"0000000300", "0000000100", "0000000200"} {
		if err := s.Set(ctx, kv.Key{"chat", "u", "p", "e", ts}, []byte(ts)); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}

	var got []string
	for entry, err := range s.List(ctx, kv.Key{"chat", "u", "p", "e"}) {
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		got = append(got, string(entry.Value))
	}
	want := []string{"0000000100", "0000000200", "0000000300"}
	if !slices.Equal(got, want) {
		t.Fatalf("List order = %v, want %v", got, want)
	}
}

func TestCustomSeparator(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, &kv.Options{Separator: '/'})

	key := kv.Key{"path", "to", "value"}
	val := []byte("data")

	if err := s.Set(ctx, key, val); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != string(val) {
		t.Fatalf("Get = %q, want %q", got, val)
	}
}

func TestKeyChild(t *testing.T) {
	base := kv.Key{"chat", "u1"}
	child := base.Child("p1", "e")
	if got, want := child.String(), "chat:u1:p1:e"; got != want {
		t.Fatalf("Child = %q, want %q", got, want)
	}
	// The parent must be unchanged.
	if got, want := base.String(), "chat:u1"; got != want {
		t.Fatalf("base mutated: %q, want %q", got, want)
	}
}

// watchRecv waits for one notification with a timeout.
func watchRecv(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case _, ok := <-ch:
		if !ok {
			t.Fatal("watch channel closed unexpectedly")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for watch notification")
	}
}

func TestWatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := newTestStore(t, nil)

	ch, err := s.Watch(ctx, kv.Key{"chat", "u1", "p1"})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}

	// A write under the prefix is observed.
	if err := s.Set(ctx, kv.Key{"chat", "u1", "p1", "e", "1"}, []byte("x")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	watchRecv(t, ch)

	// A write outside the prefix is not.
	if err := s.Set(ctx, kv.Key{"chat", "u1", "p2", "e", "1"}, []byte("y")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	select {
	case <-ch:
		t.Fatal("watch fired for a key outside its prefix")
	case <-time.After(50 * time.Millisecond):
	}

	// Cancellation closes the channel.
	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			// Drain a possibly-pending coalesced notification.
			if _, ok := <-ch; ok {
				t.Fatal("watch channel still open after cancel")
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watch channel not closed after cancel")
	}
}

func TestWatchCoalesces(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := newTestStore(t, nil)

	ch, err := s.Watch(ctx, kv.Key{"chat"})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}

	// A burst of writes without a receiver must not block the writer.
	for i := 0; i < 100; i++ {
		k := kv.Key{"chat", "u", "p", "e", fmt.Sprintf("%03d", i)}
		if err := s.Set(ctx, k, []byte("v")); err != nil {
			t.Fatalf("Set %d: %v", i, err)
		}
	}
	// At least one notification is pending.
	watchRecv(t, ch)
}
