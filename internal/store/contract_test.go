package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

// runContract exercises the behavior every Store backend must share.
// Values are suffixed with a random tag so shared databases can be reused.
func runContract(t *testing.T, s Store) {
	t.Helper()
	tag := uuid.New().String()[:8]
	val := func(v string) string { return v + "-" + tag }

	t.Run("PutAndGet", func(t *testing.T) {
		ctx := context.Background()
		now := time.Now().UTC().Truncate(time.Millisecond)
		m := &Mapping{
			Pseudonym: val("host-aaaaaaaaaaaa.local"),
			Original:  val("server-01.example.com"),
			ValueType: "hostname",
			CreatedAt: now,
		}

		inserted, err := s.PutIfAbsent(ctx, m)
		if err != nil {
			t.Fatalf("PutIfAbsent: %v", err)
		}
		if !inserted {
			t.Fatal("expected first PutIfAbsent to insert")
		}

		got, err := s.GetByPseudonym(ctx, m.Pseudonym, "hostname")
		if err != nil {
			t.Fatalf("GetByPseudonym: %v", err)
		}
		if got.Original != m.Original {
			t.Errorf("Original = %q, want %q", got.Original, m.Original)
		}
		if !got.CreatedAt.Equal(now) {
			t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, now)
		}

		got, err = s.GetByOriginal(ctx, m.Original, "hostname")
		if err != nil {
			t.Fatalf("GetByOriginal: %v", err)
		}
		if got.Pseudonym != m.Pseudonym {
			t.Errorf("Pseudonym = %q, want %q", got.Pseudonym, m.Pseudonym)
		}
	})

	t.Run("DuplicateOriginalNotInserted", func(t *testing.T) {
		ctx := context.Background()
		first := &Mapping{Pseudonym: val("user_first"), Original: val("alice"), ValueType: "username", CreatedAt: time.Now().UTC()}
		second := &Mapping{Pseudonym: val("user_second"), Original: val("alice"), ValueType: "username", CreatedAt: time.Now().UTC()}

		if _, err := s.PutIfAbsent(ctx, first); err != nil {
			t.Fatalf("PutIfAbsent first: %v", err)
		}
		inserted, err := s.PutIfAbsent(ctx, second)
		if err != nil {
			t.Fatalf("PutIfAbsent second: %v", err)
		}
		if inserted {
			t.Fatal("second mapping for the same original must not be inserted")
		}

		got, err := s.GetByOriginal(ctx, val("alice"), "username")
		if err != nil {
			t.Fatalf("GetByOriginal: %v", err)
		}
		if got.Pseudonym != first.Pseudonym {
			t.Errorf("Pseudonym = %q, want %q", got.Pseudonym, first.Pseudonym)
		}
		if _, err := s.GetByPseudonym(ctx, second.Pseudonym, "username"); !errors.Is(err, ErrNotFound) {
			t.Errorf("losing pseudonym should not be stored, got %v", err)
		}
	})

	t.Run("PseudonymTaken", func(t *testing.T) {
		ctx := context.Background()
		a := &Mapping{Pseudonym: val("anon-shared"), Original: val("a"), ValueType: "generic", CreatedAt: time.Now().UTC()}
		b := &Mapping{Pseudonym: val("anon-shared"), Original: val("b"), ValueType: "generic", CreatedAt: time.Now().UTC()}

		if _, err := s.PutIfAbsent(ctx, a); err != nil {
			t.Fatalf("PutIfAbsent a: %v", err)
		}
		_, err := s.PutIfAbsent(ctx, b)
		if !errors.Is(err, ErrPseudonymTaken) {
			t.Fatalf("expected ErrPseudonymTaken, got %v", err)
		}
		if _, err := s.GetByOriginal(ctx, val("b"), "generic"); !errors.Is(err, ErrNotFound) {
			t.Errorf("rejected original should not be stored, got %v", err)
		}
	})

	t.Run("TypeScoping", func(t *testing.T) {
		ctx := context.Background()
		host := &Mapping{Pseudonym: val("same"), Original: val("server-01"), ValueType: "hostname", CreatedAt: time.Now().UTC()}
		user := &Mapping{Pseudonym: val("same"), Original: val("server-01"), ValueType: "username", CreatedAt: time.Now().UTC()}

		for _, m := range []*Mapping{host, user} {
			inserted, err := s.PutIfAbsent(ctx, m)
			if err != nil {
				t.Fatalf("PutIfAbsent %s: %v", m.ValueType, err)
			}
			if !inserted {
				t.Fatalf("PutIfAbsent %s: expected insert in its own namespace", m.ValueType)
			}
		}

		if _, err := s.GetByPseudonym(ctx, val("same"), "ip"); !errors.Is(err, ErrNotFound) {
			t.Errorf("lookup under another type should miss, got %v", err)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		ctx := context.Background()
		if _, err := s.GetByPseudonym(ctx, val("missing"), "hostname"); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetByPseudonym: expected ErrNotFound, got %v", err)
		}
		if _, err := s.GetByOriginal(ctx, val("missing"), "hostname"); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetByOriginal: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("ConcurrentWritersConverge", func(t *testing.T) {
		ctx := context.Background()
		const writers = 8
		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			inserted int
		)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				m := &Mapping{
					Pseudonym: val(fmt.Sprintf("user_writer%d", i)),
					Original:  val("contended"),
					ValueType: "username",
					CreatedAt: time.Now().UTC(),
				}
				ok, err := s.PutIfAbsent(ctx, m)
				if err != nil {
					t.Errorf("PutIfAbsent writer %d: %v", i, err)
					return
				}
				if ok {
					mu.Lock()
					inserted++
					mu.Unlock()
				}
			}(i)
		}
		wg.Wait()

		if inserted != 1 {
			t.Fatalf("expected exactly one winning insert, got %d", inserted)
		}
	})

	t.Run("MetaRoundTrip", func(t *testing.T) {
		ctx := context.Background()
		meta := &NamespaceMeta{
			Version:        1,
			NamespaceID:    uuid.New().String(),
			KeyFingerprint: "abc123",
			CreatedAt:      time.Now().UTC().Truncate(time.Millisecond),
		}
		if err := s.SetMeta(ctx, meta); err != nil {
			t.Fatalf("SetMeta: %v", err)
		}
		got, err := s.GetMeta(ctx)
		if err != nil {
			t.Fatalf("GetMeta: %v", err)
		}
		if got.NamespaceID != meta.NamespaceID || got.KeyFingerprint != meta.KeyFingerprint {
			t.Errorf("GetMeta = %+v, want %+v", got, meta)
		}
	})

	t.Run("Ping", func(t *testing.T) {
		if err := s.Ping(context.Background()); err != nil {
			t.Fatalf("Ping: %v", err)
		}
	})
}
