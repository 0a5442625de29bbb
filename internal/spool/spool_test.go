package spool

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

// createTestSpool creates an in-memory spool for testing
func createTestSpool(t *testing.T) *Spool {
	t.Helper()

	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open spool: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func entry(user, track string, playedAt int64) Entry {
	return Entry{User: user, Artist: "Bar", Track: track, PlayedAt: time.Unix(playedAt, 0)}
}

func TestOpenFileBased(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spool.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := s.Add(context.Background(), entry("alice", "Foo", 100)); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	_ = s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer func() { _ = s.Close() }()

	count, err := s.Count(context.Background(), true)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("count after reopen = %d, want 1", count)
	}
}

func TestAdd(t *testing.T) {
	s := createTestSpool(t)
	ctx := context.Background()

	e := Entry{User: "alice", Artist: "Bar", Track: "Foo", Album: "Baz", Duration: 215, PlayedAt: time.Unix(1000, 0)}
	id, err := s.Add(ctx, e)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if id <= 0 {
		t.Errorf("id = %d, want > 0", id)
	}

	pending, err := s.Pending(ctx, "alice", 0)
	if err != nil {
		t.Fatalf("Pending failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("len(pending) = %d, want 1", len(pending))
	}

	got := pending[0]
	if got.ID != id || got.Album != "Baz" || got.Duration != 215 || !got.PlayedAt.Equal(e.PlayedAt) {
		t.Errorf("pending entry = %+v", got)
	}

	for _, bad := range []Entry{
		{Artist: "Bar", Track: "Foo"},
		{User: "alice", Track: "Foo"},
		{User: "alice", Artist: "Bar"},
	} {
		if _, err := s.Add(ctx, bad); err == nil {
			t.Errorf("Add(%+v) succeeded, want error", bad)
		}
	}
}

func TestPending(t *testing.T) {
	s := createTestSpool(t)
	ctx := context.Background()

	for _, e := range []Entry{
		entry("alice", "Third", 300),
		entry("alice", "First", 100),
		entry("bob", "Other", 50),
		entry("alice", "Second", 200),
	} {
		if _, err := s.Add(ctx, e); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	pending, err := s.Pending(ctx, "alice", 0)
	if err != nil {
		t.Fatalf("Pending failed: %v", err)
	}

	want := []string{"First", "Second", "Third"}
	if len(pending) != len(want) {
		t.Fatalf("len(pending) = %d, want %d", len(pending), len(want))
	}
	for i, e := range pending {
		if e.Track != want[i] {
			t.Errorf("pending[%d] = %q, want %q", i, e.Track, want[i])
		}
	}

	limited, err := s.Pending(ctx, "alice", 2)
	if err != nil {
		t.Fatalf("Pending failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("len(limited) = %d, want 2", len(limited))
	}
}

func TestMarkDelivered(t *testing.T) {
	s := createTestSpool(t)
	ctx := context.Background()

	var ids []int64
	for i := int64(1); i <= 3; i++ {
		id, err := s.Add(ctx, entry("alice", "Foo", i))
		if err != nil {
			t.Fatalf("Add failed: %v", err)
		}
		ids = append(ids, id)
	}

	if err := s.MarkDelivered(ctx, nil); err != nil {
		t.Errorf("MarkDelivered(nil) failed: %v", err)
	}
	if err := s.MarkDelivered(ctx, ids[:2]); err != nil {
		t.Fatalf("MarkDelivered failed: %v", err)
	}

	pending, err := s.Pending(ctx, "alice", 0)
	if err != nil {
		t.Fatalf("Pending failed: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != ids[2] {
		t.Errorf("pending = %+v, want only id %d", pending, ids[2])
	}

	total, _ := s.Count(ctx, false)
	waiting, _ := s.Count(ctx, true)
	if total != 3 || waiting != 1 {
		t.Errorf("counts = %d total, %d pending; want 3, 1", total, waiting)
	}
}

func TestMarkError(t *testing.T) {
	s := createTestSpool(t)
	ctx := context.Background()

	id1, _ := s.Add(ctx, entry("alice", "Foo", 1))
	id2, _ := s.Add(ctx, entry("alice", "Bar", 2))

	if err := s.MarkError(ctx, []int64{id1, id2}, "connection refused"); err != nil {
		t.Fatalf("MarkError failed: %v", err)
	}

	pending, err := s.Pending(ctx, "alice", 0)
	if err != nil {
		t.Fatalf("Pending failed: %v", err)
	}
	for _, e := range pending {
		if e.Error != "connection refused" {
			t.Errorf("entry %d error = %q", e.ID, e.Error)
		}
	}

	// delivery clears the error
	if err := s.MarkDelivered(ctx, []int64{id1}); err != nil {
		t.Fatalf("MarkDelivered failed: %v", err)
	}
	pending, _ = s.Pending(ctx, "alice", 0)
	if len(pending) != 1 || pending[0].ID != id2 {
		t.Errorf("pending = %+v", pending)
	}
}

func TestCleanup(t *testing.T) {
	s := createTestSpool(t)
	ctx := context.Background()

	oldDelivered, _ := s.Add(ctx, entry("alice", "Old", 100))
	newDelivered, _ := s.Add(ctx, entry("alice", "New", 1000))
	_, _ = s.Add(ctx, entry("alice", "OldPending", 100))

	if err := s.MarkDelivered(ctx, []int64{oldDelivered, newDelivered}); err != nil {
		t.Fatalf("MarkDelivered failed: %v", err)
	}

	deleted, err := s.Cleanup(ctx, time.Unix(500, 0))
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	total, _ := s.Count(ctx, false)
	if total != 2 {
		t.Errorf("total after cleanup = %d, want 2", total)
	}
}

func TestMarkRejected(t *testing.T) {
	s := createTestSpool(t)
	ctx := context.Background()

	rejected, _ := s.Add(ctx, entry("alice", "Bad", 1))
	kept, _ := s.Add(ctx, entry("alice", "Good", 2))

	if err := s.MarkRejected(ctx, []int64{rejected}, "BADREQUEST"); err != nil {
		t.Fatalf("MarkRejected failed: %v", err)
	}

	pending, err := s.Pending(ctx, "alice", 0)
	if err != nil {
		t.Fatalf("Pending failed: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != kept {
		t.Errorf("pending = %+v, want only id %d", pending, kept)
	}

	// rejected entries age out like delivered ones
	deleted, err := s.Cleanup(ctx, time.Unix(10, 0))
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
}
