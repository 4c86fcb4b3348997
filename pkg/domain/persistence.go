package domain

import "context"

// Transaction exposes the dataset operations a persistence implementation
// must support within an atomic scope. Mutations happen through mutator
// functions so multi-step edits (e.g. a dataset-wide group rename) commit or
// roll back as a whole.
type Transaction interface {
	CreateDataset(Dataset) (Dataset, error)
	UpdateDataset(id string, mutator func(*Dataset) error) (Dataset, error)
	DeleteDataset(id string) error
	FindDataset(id string) (Dataset, bool)
}

// TransactionView provides read-only access to snapshot data.
type TransactionView interface {
	ListDatasets() []Dataset
	FindDataset(id string) (Dataset, bool)
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetDataset(id string) (Dataset, bool)
	ListDatasets() []Dataset
}
