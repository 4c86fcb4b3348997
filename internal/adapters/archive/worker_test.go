package archive

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"metacore/internal/blob"
	"metacore/internal/core"
	"metacore/pkg/domain"
)

func seedService(t *testing.T) (*core.Service, string) {
	t.Helper()
	ctx := context.Background()
	svc := core.NewInMemoryService(nil)
	ds, _, err := svc.CreateDataset(ctx, core.Dataset{Title: "aspirin trials"})
	if err != nil {
		t.Fatalf("create dataset: %v", err)
	}
	st, _, err := svc.AddStudy(ctx, ds.ID, "CAPRIE")
	if err != nil {
		t.Fatalf("add study: %v", err)
	}
	if _, _, err := svc.AddOutcome(ctx, ds.ID, "Mortality", domain.Binary); err != nil {
		t.Fatalf("add outcome: %v", err)
	}
	if _, _, err := svc.UpdateStudy(ctx, ds.ID, st.ID, func(s *core.Study) error {
		year := 1996
		s.Year = &year
		return nil
	}); err != nil {
		t.Fatalf("update study: %v", err)
	}
	if _, err := svc.SetRawData(ctx, ds.ID, st.ID, "Mortality", domain.BaselineFollowUp, "tx A", domain.Cells(12, 100)); err != nil {
		t.Fatalf("set raw data: %v", err)
	}
	if _, err := svc.SetRawData(ctx, ds.ID, st.ID, "Mortality", domain.BaselineFollowUp, "tx B", domain.Cells(9, 98)); err != nil {
		t.Fatalf("set raw data: %v", err)
	}
	return svc, ds.ID
}

func waitDone(t *testing.T, w *Worker, id string) Record {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		record, ok := w.GetArchive(id)
		if !ok {
			t.Fatalf("archive %s vanished", id)
		}
		if record.Status == StatusSucceeded || record.Status == StatusFailed {
			return record
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("archive %s did not finish", id)
	return Record{}
}

func TestWorker_ArchivesJSONAndCSV(t *testing.T) {
	ctx := context.Background()
	svc, datasetID := seedService(t)
	store := blob.NewMemory()
	audit := core.NewMemoryAuditLog()

	w := NewWorker(svc, store, audit)
	w.Start()
	defer func() {
		if err := w.Stop(context.Background()); err != nil {
			t.Fatalf("stop: %v", err)
		}
	}()

	queued, err := w.EnqueueArchive(ctx, Input{DatasetID: datasetID, RequestedBy: "analyst"})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if queued.Status != StatusQueued || len(queued.Formats) != 2 {
		t.Fatalf("unexpected queued record %+v", queued)
	}

	record := waitDone(t, w, queued.ID)
	if record.Status != StatusSucceeded {
		t.Fatalf("expected success, got %s (%s)", record.Status, record.Error)
	}
	if len(record.Artifacts) != 2 {
		t.Fatalf("expected 2 artifacts, got %d", len(record.Artifacts))
	}
	if record.CompletedAt == nil {
		t.Fatalf("completed timestamp missing")
	}

	var jsonArt, csvArt *Artifact
	for i := range record.Artifacts {
		switch record.Artifacts[i].Format {
		case FormatJSON:
			jsonArt = &record.Artifacts[i]
		case FormatCSV:
			csvArt = &record.Artifacts[i]
		}
	}
	if jsonArt == nil || csvArt == nil {
		t.Fatalf("missing artifact formats: %+v", record.Artifacts)
	}

	_, rc, err := store.Get(ctx, jsonArt.Key)
	if err != nil {
		t.Fatalf("get json artifact: %v", err)
	}
	payload, _ := io.ReadAll(rc)
	_ = rc.Close()
	var snapshot core.Dataset
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snapshot.Title != "aspirin trials" || snapshot.NumStudies() != 1 {
		t.Fatalf("unexpected snapshot %+v", snapshot)
	}

	_, rc, err = store.Get(ctx, csvArt.Key)
	if err != nil {
		t.Fatalf("get csv artifact: %v", err)
	}
	csvPayload, _ := io.ReadAll(rc)
	_ = rc.Close()
	lines := strings.Split(strings.TrimSpace(string(csvPayload)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus two arm rows, got %d lines: %q", len(lines), lines)
	}
	if lines[0] != "study,year,outcome,follow_up,group,cell_1,cell_2,cell_3" {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "CAPRIE,1996,Mortality,baseline,tx A,12,100") {
		t.Fatalf("unexpected first row %q", lines[1])
	}

	var sawSuccess bool
	for _, entry := range audit.Entries() {
		if entry.Operation == "archive_dataset" && entry.Status == core.AuditStatusSuccess && entry.EntityID == datasetID {
			sawSuccess = true
		}
	}
	if !sawSuccess {
		t.Fatalf("expected archive_dataset success audit entry, got %+v", audit.Entries())
	}
}

func TestWorker_EnqueueValidation(t *testing.T) {
	ctx := context.Background()
	svc, datasetID := seedService(t)
	w := NewWorker(svc, blob.NewMemory(), nil)

	if _, err := w.EnqueueArchive(ctx, Input{DatasetID: "  "}); err == nil {
		t.Fatalf("expected error for blank dataset id")
	}
	if _, err := w.EnqueueArchive(ctx, Input{DatasetID: "missing"}); err == nil {
		t.Fatalf("expected error for unknown dataset")
	}
	if _, err := w.EnqueueArchive(ctx, Input{DatasetID: datasetID, Formats: []Format{"parquet"}}); err == nil {
		t.Fatalf("expected error for unsupported format")
	}

	queued, err := w.EnqueueArchive(ctx, Input{DatasetID: datasetID, Formats: []Format{FormatJSON, FormatJSON}})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if len(queued.Formats) != 1 || queued.Formats[0] != FormatJSON {
		t.Fatalf("expected deduplicated formats, got %+v", queued.Formats)
	}
}

func TestWorker_FailsWhenDatasetDeletedBeforeRun(t *testing.T) {
	ctx := context.Background()
	svc, datasetID := seedService(t)
	audit := core.NewMemoryAuditLog()
	w := NewWorker(svc, blob.NewMemory(), audit)

	queued, err := w.EnqueueArchive(ctx, Input{DatasetID: datasetID})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, err := svc.DeleteDataset(ctx, datasetID); err != nil {
		t.Fatalf("delete dataset: %v", err)
	}
	w.Start()
	defer func() { _ = w.Stop(context.Background()) }()

	record := waitDone(t, w, queued.ID)
	if record.Status != StatusFailed {
		t.Fatalf("expected failure, got %s", record.Status)
	}
	if !strings.Contains(record.Error, "missing") {
		t.Fatalf("unexpected error %q", record.Error)
	}
	var sawError bool
	for _, entry := range audit.Entries() {
		if entry.Operation == "archive_dataset" && entry.Status == core.AuditStatusError {
			sawError = true
		}
	}
	if !sawError {
		t.Fatalf("expected error audit entry")
	}
}

func TestWorker_ListArchivesOrdered(t *testing.T) {
	ctx := context.Background()
	svc, datasetID := seedService(t)
	w := NewWorker(svc, blob.NewMemory(), nil)

	first, err := w.EnqueueArchive(ctx, Input{DatasetID: datasetID, Formats: []Format{FormatJSON}})
	if err != nil {
		t.Fatalf("enqueue first: %v", err)
	}
	second, err := w.EnqueueArchive(ctx, Input{DatasetID: datasetID, Formats: []Format{FormatCSV}})
	if err != nil {
		t.Fatalf("enqueue second: %v", err)
	}
	list := w.ListArchives()
	if len(list) != 2 {
		t.Fatalf("expected 2 records, got %d", len(list))
	}
	ids := map[string]bool{list[0].ID: true, list[1].ID: true}
	if !ids[first.ID] || !ids[second.ID] {
		t.Fatalf("list missing records: %+v", list)
	}
}
