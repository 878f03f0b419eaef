package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/promptveil/veil/internal/config"
	"github.com/promptveil/veil/internal/logger"
)

func testLogger() *logger.Logger {
	return &logger.Logger{Logger: zap.NewNop()}
}

func testSessionConfig(store string) config.SessionConfig {
	return config.SessionConfig{
		Store:     store,
		TTL:       time.Hour,
		KeyPrefix: "veil",
	}
}

// TestMemoryStore tests the in-process mapping store
func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("MergeAccumulates", func(t *testing.T) {
		store := NewMemoryStore(0)
		defer store.Close()

		if err := store.Merge(ctx, "s1", map[string]string{"[EMAIL_0]": "a@b.com"}); err != nil {
			t.Fatalf("Merge failed: %v", err)
		}
		if err := store.Merge(ctx, "s1", map[string]string{"[PHONE_0]": "555-123-4567"}); err != nil {
			t.Fatalf("Merge failed: %v", err)
		}

		got, err := store.Get(ctx, "s1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("Expected union of both merges, got %v", got)
		}
		if got["[EMAIL_0]"] != "a@b.com" || got["[PHONE_0]"] != "555-123-4567" {
			t.Errorf("Unexpected mappings: %v", got)
		}
	})

	t.Run("SessionsIsolated", func(t *testing.T) {
		store := NewMemoryStore(0)
		defer store.Close()

		store.Merge(ctx, "a", map[string]string{"[EMAIL_0]": "a@a.com"})
		store.Merge(ctx, "b", map[string]string{"[EMAIL_0]": "b@b.com"})

		got, _ := store.Get(ctx, "a")
		if got["[EMAIL_0]"] != "a@a.com" {
			t.Errorf("Session a polluted: %v", got)
		}
	})

	t.Run("UnknownSessionEmpty", func(t *testing.T) {
		store := NewMemoryStore(0)
		defer store.Close()

		got, err := store.Get(ctx, "missing")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("Expected empty mapping, got %v", got)
		}
	})

	t.Run("GetReturnsCopy", func(t *testing.T) {
		store := NewMemoryStore(0)
		defer store.Close()

		store.Merge(ctx, "s1", map[string]string{"[EMAIL_0]": "a@b.com"})
		got, _ := store.Get(ctx, "s1")
		got["[EMAIL_0]"] = "tampered"

		again, _ := store.Get(ctx, "s1")
		if again["[EMAIL_0]"] != "a@b.com" {
			t.Error("Get must return a copy, not the internal map")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		store := NewMemoryStore(0)
		defer store.Close()

		store.Merge(ctx, "s1", map[string]string{"[EMAIL_0]": "a@b.com"})
		if err := store.Delete(ctx, "s1"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}

		got, _ := store.Get(ctx, "s1")
		if len(got) != 0 {
			t.Errorf("Expected session gone after Delete, got %v", got)
		}
	})

	t.Run("TTLExpiry", func(t *testing.T) {
		store := NewMemoryStore(20 * time.Millisecond)
		defer store.Close()

		store.Merge(ctx, "s1", map[string]string{"[EMAIL_0]": "a@b.com"})

		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			got, _ := store.Get(ctx, "s1")
			if len(got) == 0 {
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
		t.Error("Session did not expire after TTL")
	})

	t.Run("CloseIdempotent", func(t *testing.T) {
		store := NewMemoryStore(time.Minute)
		if err := store.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
		if err := store.Close(); err != nil {
			t.Fatalf("Second Close failed: %v", err)
		}
	})

	t.Run("ConcurrentMerge", func(t *testing.T) {
		store := NewMemoryStore(0)
		defer store.Close()

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				key := fmt.Sprintf("[EMAIL_%d]", n)
				store.Merge(ctx, "shared", map[string]string{key: "x@y.com"})
			}(i)
		}
		wg.Wait()

		got, _ := store.Get(ctx, "shared")
		if len(got) != 10 {
			t.Errorf("Expected 10 merged entries, got %d", len(got))
		}
	})
}

// TestStoreFactory tests backend selection
func TestStoreFactory(t *testing.T) {
	t.Run("Memory", func(t *testing.T) {
		store, err := New(testSessionConfig("memory"), testLogger())
		if err != nil {
			t.Fatalf("Factory failed: %v", err)
		}
		defer store.Close()
		if _, ok := store.(*MemoryStore); !ok {
			t.Errorf("Expected *MemoryStore, got %T", store)
		}
	})

	t.Run("Unknown", func(t *testing.T) {
		if _, err := New(testSessionConfig("etcd"), testLogger()); err == nil {
			t.Fatal("Expected error for unknown store type")
		}
	})
}
