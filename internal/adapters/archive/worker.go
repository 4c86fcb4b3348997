// Package archive renders dataset snapshots to durable artifacts (JSON and
// CSV) and stores them through the blob layer. Archival runs asynchronously
// on a single worker goroutine fed by a bounded queue.
package archive

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"metacore/internal/blob"
	"metacore/internal/core"
)

// Format identifies an archive rendering.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// Status describes the lifecycle stage of an archive request.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Artifact captures one stored archive rendering.
type Artifact struct {
	ID          string    `json:"id"`
	Format      Format    `json:"format"`
	Key         string    `json:"key"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	URL         string    `json:"url,omitempty"`
	ETag        string    `json:"etag,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Record tracks an archive request and resulting artifacts.
type Record struct {
	ID          string     `json:"id"`
	DatasetID   string     `json:"dataset_id"`
	Formats     []Format   `json:"formats"`
	Status      Status     `json:"status"`
	Error       string     `json:"error,omitempty"`
	Artifacts   []Artifact `json:"artifacts,omitempty"`
	RequestedBy string     `json:"requested_by,omitempty"`
	Reason      string     `json:"reason,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (r Record) copy() Record {
	cp := r
	cp.Formats = append([]Format(nil), r.Formats...)
	cp.Artifacts = append([]Artifact(nil), r.Artifacts...)
	if r.CompletedAt != nil {
		ts := *r.CompletedAt
		cp.CompletedAt = &ts
	}
	return cp
}

// Input represents an enqueue request for the worker.
type Input struct {
	DatasetID   string
	Formats     []Format
	RequestedBy string
	Reason      string
}

// DatasetSource resolves dataset snapshots for archival. *core.Service
// satisfies it.
type DatasetSource interface {
	GetDataset(id string) (core.Dataset, bool)
}

// Scheduler queues archive requests and exposes status.
type Scheduler interface {
	EnqueueArchive(ctx context.Context, input Input) (Record, error)
	GetArchive(id string) (Record, bool)
}

// Worker executes dataset archives asynchronously.
type Worker struct {
	source DatasetSource
	store  blob.Store
	audit  core.AuditRecorder

	queue chan task
	mu    sync.RWMutex
	jobs  map[string]*Record

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type task struct {
	id    string
	input Input
}

type rendered struct {
	artifact Artifact
	payload  []byte
}

// NewWorker constructs an archive worker. The audit recorder may be nil.
func NewWorker(source DatasetSource, store blob.Store, audit core.AuditRecorder) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		source: source,
		store:  store,
		audit:  audit,
		queue:  make(chan task, 32),
		jobs:   make(map[string]*Record),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins processing archive requests.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop signals the worker to halt and waits for completion.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case t := <-w.queue:
			w.process(t)
		}
	}
}

// EnqueueArchive schedules an archive job and returns the queued record.
func (w *Worker) EnqueueArchive(ctx context.Context, input Input) (Record, error) {
	if w.source == nil {
		return Record{}, fmt.Errorf("dataset source not configured")
	}
	if strings.TrimSpace(input.DatasetID) == "" {
		return Record{}, fmt.Errorf("dataset id required")
	}
	if _, ok := w.source.GetDataset(input.DatasetID); !ok {
		return Record{}, fmt.Errorf("dataset %s not found", input.DatasetID)
	}

	formats := input.Formats
	if len(formats) == 0 {
		formats = []Format{FormatJSON, FormatCSV}
	}
	uniq := make([]Format, 0, len(formats))
	seen := make(map[Format]struct{})
	for _, format := range formats {
		if _, dup := seen[format]; dup {
			continue
		}
		switch format {
		case FormatJSON, FormatCSV:
		default:
			return Record{}, fmt.Errorf("unsupported archive format %s", format)
		}
		uniq = append(uniq, format)
		seen[format] = struct{}{}
	}

	id := newID()
	now := time.Now().UTC()
	record := Record{
		ID:          id,
		DatasetID:   input.DatasetID,
		Formats:     uniq,
		Status:      StatusQueued,
		RequestedBy: input.RequestedBy,
		Reason:      input.Reason,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	w.mu.Lock()
	w.jobs[id] = &record
	queued := record.copy()
	w.mu.Unlock()

	w.record(ctx, "archive_enqueue", core.AuditStatusSuccess, input.DatasetID, "")

	select {
	case w.queue <- task{id: id, input: input}:
	default:
		w.fail(id, "archive queue full")
		return Record{}, fmt.Errorf("archive queue full")
	}
	return queued, nil
}

// GetArchive returns a snapshot of the archive record.
func (w *Worker) GetArchive(id string) (Record, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	record, ok := w.jobs[id]
	if !ok {
		return Record{}, false
	}
	return record.copy(), true
}

// ListArchives returns snapshots of all archive records ordered by creation.
func (w *Worker) ListArchives() []Record {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]Record, 0, len(w.jobs))
	for _, record := range w.jobs {
		out = append(out, record.copy())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (w *Worker) process(t task) {
	w.mu.RLock()
	record, ok := w.jobs[t.id]
	w.mu.RUnlock()
	if !ok {
		return
	}

	w.updateStatus(t.id, StatusRunning)

	ds, ok := w.source.GetDataset(t.input.DatasetID)
	if !ok {
		w.fail(t.id, fmt.Sprintf("dataset %s missing", t.input.DatasetID))
		return
	}

	artifacts := make([]Artifact, 0, len(record.Formats))
	for _, format := range record.Formats {
		r, err := materialize(format, &ds)
		if err != nil {
			w.fail(t.id, err.Error())
			return
		}
		r.artifact.Key = fmt.Sprintf("archives/%s/%s.%s", t.id, ds.ID, format)
		if w.store != nil {
			info, err := w.store.Put(w.ctx, r.artifact.Key, bytes.NewReader(r.payload), blob.PutOptions{
				ContentType: r.artifact.ContentType,
				Metadata: map[string]string{
					"dataset_id": ds.ID,
					"studies":    strconv.Itoa(ds.NumStudies()),
				},
			})
			if err != nil {
				w.fail(t.id, fmt.Sprintf("store artifact failed: %v", err))
				return
			}
			r.artifact.URL = info.URL
			r.artifact.ETag = info.ETag
			if info.Size > 0 {
				r.artifact.SizeBytes = info.Size
			}
		}
		artifacts = append(artifacts, r.artifact)
	}
	w.complete(t.id, ds.ID, artifacts)
}

func (w *Worker) updateStatus(id string, status Status) {
	now := time.Now().UTC()
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = status
		record.UpdatedAt = now
	}
	w.mu.Unlock()
}

func (w *Worker) complete(id, datasetID string, artifacts []Artifact) {
	now := time.Now().UTC()
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = StatusSucceeded
		record.Error = ""
		record.Artifacts = artifacts
		record.UpdatedAt = now
		record.CompletedAt = &now
	}
	w.mu.Unlock()
	w.record(w.ctx, "archive_dataset", core.AuditStatusSuccess, datasetID, "")
}

func (w *Worker) fail(id, reason string) {
	now := time.Now().UTC()
	var datasetID string
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = StatusFailed
		record.Error = reason
		record.UpdatedAt = now
		record.CompletedAt = &now
		datasetID = record.DatasetID
	}
	w.mu.Unlock()
	w.record(w.ctx, "archive_dataset", core.AuditStatusError, datasetID, reason)
}

func (w *Worker) record(ctx context.Context, op string, status core.AuditStatus, entityID, errMsg string) {
	if w.audit == nil {
		return
	}
	w.audit.Record(ctx, core.AuditEntry{
		Operation:  op,
		Status:     status,
		EntityID:   entityID,
		Error:      errMsg,
		OccurredAt: time.Now().UTC(),
	})
}

func materialize(format Format, ds *core.Dataset) (rendered, error) {
	switch format {
	case FormatJSON:
		payload, err := json.MarshalIndent(ds, "", "  ")
		if err != nil {
			return rendered{}, fmt.Errorf("marshal json: %w", err)
		}
		return rendered{
			artifact: Artifact{
				ID:          newID(),
				Format:      FormatJSON,
				ContentType: "application/json",
				SizeBytes:   int64(len(payload)),
				CreatedAt:   time.Now().UTC(),
			},
			payload: payload,
		}, nil
	case FormatCSV:
		payload, err := renderCSV(ds)
		if err != nil {
			return rendered{}, err
		}
		return rendered{
			artifact: Artifact{
				ID:          newID(),
				Format:      FormatCSV,
				ContentType: "text/csv",
				SizeBytes:   int64(len(payload)),
				CreatedAt:   time.Now().UTC(),
			},
			payload: payload,
		}, nil
	default:
		return rendered{}, fmt.Errorf("unsupported archive format %s", format)
	}
}

// renderCSV flattens the dataset to one row per treatment arm. Binary rows
// carry events and total in the first two cells; continuous rows carry n,
// mean, and standard deviation.
func renderCSV(ds *core.Dataset) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	header := []string{"study", "year", "outcome", "follow_up", "group", "cell_1", "cell_2", "cell_3"}
	if err := writer.Write(header); err != nil {
		return nil, err
	}
	for _, st := range ds.Studies {
		year := ""
		if st.Year != nil {
			year = strconv.Itoa(*st.Year)
		}
		for _, outcome := range ds.Outcomes {
			schedule, ok := ds.Schedules[outcome.ID]
			if !ok {
				continue
			}
			for _, index := range st.FollowUpIndexes(outcome.ID) {
				followUp, _ := schedule.NameOf(index)
				unit, err := st.Unit(outcome.ID, index)
				if err != nil {
					continue
				}
				for _, groupName := range unit.GroupNames() {
					data, err := unit.RawDataFor(groupName)
					if err != nil {
						return nil, err
					}
					row := []string{st.Name, year, outcome.Name, followUp, groupName, "", "", ""}
					for i, cell := range data {
						if cell != nil && i < 3 {
							row[5+i] = strconv.FormatFloat(*cell, 'g', -1, 64)
						}
					}
					if err := writer.Write(row); err != nil {
						return nil, err
					}
				}
			}
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func newID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("arc-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}
