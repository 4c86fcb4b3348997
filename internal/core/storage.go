package core

import (
	"fmt"
	"os"

	"metacore/internal/infra/persistence/memory"
	"metacore/internal/infra/persistence/sqlite"
	"metacore/pkg/domain"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

type (
	Transaction     = domain.Transaction
	TransactionView = domain.TransactionView
	PersistentStore = domain.PersistentStore
)

// OpenPersistentStore selects a backend using environment variables.
// Defaults to sqlite when unset.
//
//	METACORE_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//	METACORE_SQLITE_PATH: path to sqlite file (default ./metacore.db)
//	METACORE_POSTGRES_DSN: postgres DSN when driver=postgres
func OpenPersistentStore(engine *RulesEngine) (PersistentStore, error) {
	driver := os.Getenv("METACORE_STORAGE_DRIVER")
	if driver == "" {
		driver = string(StorageSQLite)
	}
	switch StorageDriver(driver) {
	case StorageMemory:
		return memory.NewStore(engine), nil
	case StorageSQLite:
		path := os.Getenv("METACORE_SQLITE_PATH")
		ss, err := sqlite.NewStore(path, engine)
		if err != nil {
			return nil, err
		}
		return ss, nil
	case StoragePostgres:
		dsn := os.Getenv("METACORE_POSTGRES_DSN")
		ps, err := NewPostgresStore(dsn, engine)
		if err != nil {
			return nil, err
		}
		return ps, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
