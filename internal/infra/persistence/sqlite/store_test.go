package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"metacore/pkg/domain"
)

func TestStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "meta.db")
	ctx := context.Background()

	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	var id string
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		ds := domain.NewDataset("aspirin trials", "")
		if err := ds.AddStudy(domain.NewStudy("CAPRIE")); err != nil {
			return err
		}
		if _, err := ds.AddOutcome("Mortality", domain.Binary); err != nil {
			return err
		}
		created, err := tx.CreateDataset(*ds)
		id = created.ID
		return err
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	ds, ok := reopened.GetDataset(id)
	if !ok {
		t.Fatalf("dataset lost across reopen")
	}
	if ds.Title != "aspirin trials" {
		t.Fatalf("unexpected title %q", ds.Title)
	}
	if _, ok := ds.OutcomeByName("Mortality"); !ok {
		t.Fatalf("nested state lost across reopen")
	}
	st, ok := ds.StudyByName("CAPRIE")
	if !ok {
		t.Fatalf("study lost across reopen")
	}
	outcome, _ := ds.OutcomeByName("Mortality")
	if _, err := st.Unit(outcome.ID, 0); err != nil {
		t.Fatalf("baseline unit lost across reopen: %v", err)
	}
}

func TestFailedTransactionDoesNotPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.db")
	ctx := context.Background()

	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, err := tx.CreateDataset(domain.Dataset{Title: "doomed"}); err != nil {
			return err
		}
		return domain.ErrInvalidArgument{Reason: "abort"}
	}); err == nil {
		t.Fatalf("expected error")
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	if got := reopened.ListDatasets(); len(got) != 0 {
		t.Fatalf("aborted transaction leaked to disk: %v", got)
	}
}
