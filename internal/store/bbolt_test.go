package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")
	s, err := NewBoltStore(path)
	if err != nil {
		t.Fatalf("NewBoltStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// ---------------------------------------------------------------------------
// Store creation
// ---------------------------------------------------------------------------

func TestNewBoltStore_CreatesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "mappings.db")

	s, err := NewBoltStore(path)
	if err != nil {
		t.Fatalf("NewBoltStore: %v", err)
	}
	defer s.Close()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("database file is empty")
	}
}

func TestBoltStore_FilePermissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mappings.db")

	s, err := NewBoltStore(path)
	if err != nil {
		t.Fatalf("NewBoltStore: %v", err)
	}
	defer s.Close()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}

	perm := info.Mode().Perm()
	if perm != 0600 {
		t.Errorf("expected file permissions 0600, got %04o", perm)
	}
}

// ---------------------------------------------------------------------------
// Contract
// ---------------------------------------------------------------------------

func TestBoltStore_Contract(t *testing.T) {
	runContract(t, newTestStore(t))
}

// ---------------------------------------------------------------------------
// Meta
// ---------------------------------------------------------------------------

func TestBoltStore_MetaMissing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetMeta(context.Background())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Mappings
// ---------------------------------------------------------------------------

func TestBoltStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mappings.db")
	ctx := context.Background()

	s, err := NewBoltStore(path)
	if err != nil {
		t.Fatalf("NewBoltStore: %v", err)
	}
	m := &Mapping{Pseudonym: "user_abcdefghijkl", Original: "john.doe", ValueType: "username", CreatedAt: time.Now().UTC()}
	if _, err := s.PutIfAbsent(ctx, m); err != nil {
		t.Fatalf("PutIfAbsent: %v", err)
	}
	s.Close()

	s2, err := NewBoltStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	got, err := s2.GetByPseudonym(ctx, "user_abcdefghijkl", "username")
	if err != nil {
		t.Fatalf("GetByPseudonym after reopen: %v", err)
	}
	if got.Original != "john.doe" {
		t.Errorf("Original = %q, want %q", got.Original, "john.doe")
	}
}

func TestBoltStore_CountByType(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	entries := []*Mapping{
		{Pseudonym: "h1", Original: "a", ValueType: "hostname"},
		{Pseudonym: "h2", Original: "b", ValueType: "hostname"},
		{Pseudonym: "u1", Original: "a", ValueType: "username"},
		{Pseudonym: "1.2.3.4", Original: "10.0.0.1", ValueType: "ip"},
	}
	for _, m := range entries {
		if _, err := s.PutIfAbsent(ctx, m); err != nil {
			t.Fatalf("PutIfAbsent: %v", err)
		}
	}

	counts, err := s.CountByType(ctx)
	if err != nil {
		t.Fatalf("CountByType: %v", err)
	}

	want := map[string]int64{"hostname": 2, "username": 1, "ip": 1}
	if len(counts) != len(want) {
		t.Fatalf("CountByType = %v, want %v", counts, want)
	}
	for k, v := range want {
		if counts[k] != v {
			t.Errorf("counts[%s] = %d, want %d", k, counts[k], v)
		}
	}
}

func TestBoltStore_ValuesContainingSeparator(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := &Mapping{Pseudonym: "anon-x", Original: "a\x00b", ValueType: "generic"}
	if _, err := s.PutIfAbsent(ctx, m); err != nil {
		t.Fatalf("PutIfAbsent: %v", err)
	}
	got, err := s.GetByOriginal(ctx, "a\x00b", "generic")
	if err != nil {
		t.Fatalf("GetByOriginal: %v", err)
	}
	if got.Pseudonym != "anon-x" {
		t.Errorf("Pseudonym = %q, want anon-x", got.Pseudonym)
	}

	counts, err := s.CountByType(ctx)
	if err != nil {
		t.Fatalf("CountByType: %v", err)
	}
	if counts["generic"] != 1 {
		t.Errorf("counts[generic] = %d, want 1", counts["generic"])
	}
}

func TestBoltStore_CanceledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.GetByOriginal(ctx, "x", "generic"); !errors.Is(err, context.Canceled) {
		t.Errorf("GetByOriginal: expected context.Canceled, got %v", err)
	}
	if _, err := s.PutIfAbsent(ctx, &Mapping{Pseudonym: "p", Original: "x", ValueType: "generic"}); !errors.Is(err, context.Canceled) {
		t.Errorf("PutIfAbsent: expected context.Canceled, got %v", err)
	}
}
