package storage

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func newTestStore(t *testing.T) *DiskStore {
	t.Helper()
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create disk store: %v", err)
	}
	return store
}

func TestProperty_StoredBlobsReadBackIdentically(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	properties := gopter.NewProperties(nil)

	properties.Property("store then open returns the original bytes under a fresh key", prop.ForAll(
		func(data []byte) bool {
			key, err := store.Store(ctx, data)
			if err != nil || key == "" {
				return false
			}

			blob, err := store.Open(ctx, key)
			if err != nil {
				return false
			}
			defer blob.Close()

			got, err := io.ReadAll(blob)
			if err != nil {
				return false
			}

			return string(got) == string(data)
		},
		gen.SliceOf(gen.UInt8()),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestDeleteIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	key, err := store.Store(ctx, []byte("payload"))
	if err != nil {
		t.Fatalf("store failed: %v", err)
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if ok, _ := store.Exists(ctx, key); ok {
		t.Error("blob still exists after delete")
	}

	// Deleting a missing key is not an error
	if err := store.Delete(ctx, key); err != nil {
		t.Errorf("second delete errored: %v", err)
	}
}

func TestOpenMissingKeyFails(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Open(context.Background(), "no-such-key")
	if !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("expected ErrBlobNotFound, got %v", err)
	}
}

func TestKeysCannotEscapeRoot(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, key := range []string{"", "../escape", "a/b", `a\b`, ".."} {
		if _, err := store.Open(ctx, key); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("open accepted key %q: %v", key, err)
		}
		if err := store.Delete(ctx, key); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("delete accepted key %q: %v", key, err)
		}
	}
}
