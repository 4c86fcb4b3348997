package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"metacore/internal/infra/persistence/memory"
	"metacore/internal/infra/persistence/sqlite"
)

// helper to unset and restore env vars
func withEnv(key, value string, fn func()) {
	orig, had := os.LookupEnv(key)
	if value == "" {
		_ = os.Unsetenv(key)
	} else {
		_ = os.Setenv(key, value)
	}
	defer func() {
		if had {
			_ = os.Setenv(key, orig)
		} else {
			_ = os.Unsetenv(key)
		}
	}()
	fn()
}

func TestOpenPersistentStoreDefaultSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.db")
	withEnv("METACORE_STORAGE_DRIVER", "", func() {
		withEnv("METACORE_SQLITE_PATH", path, func() {
			store, err := OpenPersistentStore(NewDefaultRulesEngine())
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			ss, ok := store.(*sqlite.Store)
			if !ok {
				t.Fatalf("expected *sqlite.Store, got %T", store)
			}
			if _, err := ss.RunInTransaction(context.Background(), func(tx Transaction) error { return nil }); err != nil {
				t.Fatalf("transaction: %v", err)
			}
			_ = ss.Close()
		})
	})
}

func TestOpenPersistentStoreMemory(t *testing.T) {
	withEnv("METACORE_STORAGE_DRIVER", "memory", func() {
		store, err := OpenPersistentStore(NewDefaultRulesEngine())
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		if _, ok := store.(*memory.Store); !ok {
			t.Fatalf("expected *memory.Store, got %T", store)
		}
	})
}

func TestOpenPersistentStoreUnknownDriver(t *testing.T) {
	withEnv("METACORE_STORAGE_DRIVER", "etcd", func() {
		if _, err := OpenPersistentStore(nil); err == nil {
			t.Fatalf("expected error for unknown driver")
		}
	})
}
