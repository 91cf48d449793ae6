package ledger

import (
	"errors"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreOpenClose(t *testing.T) {
	store, err := OpenStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestStoreGetPut(t *testing.T) {
	store := openTestStore(t)

	rec := &Record{Format: FormatVersion, Size: 2048, Mtime: time.Now().UnixNano()}
	if err := store.Put("7.0", "/m/7.0/x.pbl", rec); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.Get("7.0", "/m/7.0/x.pbl")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if *got != *rec {
		t.Errorf("Get = %+v, want %+v", *got, *rec)
	}
}

func TestStoreGetNotFound(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Get("7.0", "/nonexistent.pbl")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreDelete(t *testing.T) {
	store := openTestStore(t)

	if err := store.Put("7.0", "/x.pbl", &Record{Size: 1}); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete("7.0", "/x.pbl"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := store.Get("7.0", "/x.pbl"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestStoreKeysAndDeletePrefix(t *testing.T) {
	store := openTestStore(t)

	for _, k := range []struct{ version, path string }{
		{"7.0", "/a.pbl"},
		{"7.0", "/b.pbl"},
		{"12.5", "/c.pbl"},
	} {
		if err := store.Put(k.version, k.path, &Record{Size: 1}); err != nil {
			t.Fatal(err)
		}
	}

	keys, err := store.Keys("7.0")
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 {
		t.Errorf("Keys(7.0) = %d keys, want 2", len(keys))
	}

	if err := store.DeletePrefix("7.0"); err != nil {
		t.Fatalf("DeletePrefix failed: %v", err)
	}

	all, err := store.Keys("")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Fatalf("Keys() after DeletePrefix = %d keys, want 1", len(all))
	}
	if version, _ := ParseKey(all[0]); version != "12.5" {
		t.Errorf("remaining key version = %q, want 12.5", version)
	}
}
