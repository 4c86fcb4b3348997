// Package memory provides the canonical in-memory persistent store. Every
// transaction runs against a deep clone of the dataset map and commits only
// after rule evaluation passes, so multi-step edits are atomic.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"metacore/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

type state struct {
	datasets map[string]*domain.Dataset
}

func newState() state {
	return state{datasets: make(map[string]*domain.Dataset)}
}

func (s state) clone() state {
	cloned := newState()
	for id, ds := range s.datasets {
		cloned.datasets[id] = ds.Clone()
	}
	return cloned
}

// Store is an in-memory transactional store for meta-analysis datasets.
type Store struct {
	mu     sync.RWMutex
	state  state
	engine *domain.RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs a store backed by the provided rules engine.
func NewStore(engine *domain.RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// SetNowFunc overrides the transaction clock, for tests.
func (s *Store) SetNowFunc(fn func() time.Time) {
	if fn != nil {
		s.nowFn = fn
	}
}

func newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

type transaction struct {
	state   state
	now     time.Time
	changes []domain.Change
}

func (tx *transaction) recordChange(change domain.Change) {
	tx.changes = append(tx.changes, change)
}

// CreateDataset stores a new dataset within the transaction.
func (tx *transaction) CreateDataset(ds domain.Dataset) (domain.Dataset, error) {
	if ds.ID == "" {
		ds.ID = newID()
	}
	if _, exists := tx.state.datasets[ds.ID]; exists {
		return domain.Dataset{}, fmt.Errorf("dataset %q already exists", ds.ID)
	}
	ds.CreatedAt = tx.now
	ds.UpdatedAt = tx.now
	stored := ds.Clone()
	tx.state.datasets[ds.ID] = stored
	tx.recordChange(domain.Change{Entity: domain.KindDataset, Action: domain.ActionCreate, After: stored.Clone()})
	return *stored.Clone(), nil
}

// UpdateDataset mutates a dataset using the provided mutator function. The
// mutator sees a private clone; its result becomes visible only on commit.
func (tx *transaction) UpdateDataset(id string, mutator func(*domain.Dataset) error) (domain.Dataset, error) {
	current, ok := tx.state.datasets[id]
	if !ok {
		return domain.Dataset{}, domain.ErrNotFound{Kind: domain.KindDataset, Name: id}
	}
	before := current.Clone()
	next := current.Clone()
	if err := mutator(next); err != nil {
		return domain.Dataset{}, err
	}
	next.ID = id
	next.UpdatedAt = tx.now
	tx.state.datasets[id] = next
	tx.recordChange(domain.Change{Entity: domain.KindDataset, Action: domain.ActionUpdate, Before: before, After: next.Clone()})
	return *next.Clone(), nil
}

// DeleteDataset removes a dataset from the transaction state.
func (tx *transaction) DeleteDataset(id string) error {
	current, ok := tx.state.datasets[id]
	if !ok {
		return domain.ErrNotFound{Kind: domain.KindDataset, Name: id}
	}
	delete(tx.state.datasets, id)
	tx.recordChange(domain.Change{Entity: domain.KindDataset, Action: domain.ActionDelete, Before: current.Clone()})
	return nil
}

// FindDataset retrieves a dataset by ID from the transaction snapshot.
func (tx *transaction) FindDataset(id string) (domain.Dataset, bool) {
	ds, ok := tx.state.datasets[id]
	if !ok {
		return domain.Dataset{}, false
	}
	return *ds.Clone(), true
}

type view struct {
	state *state
}

// ListDatasets returns all datasets within the snapshot, sorted by ID.
func (v view) ListDatasets() []domain.Dataset {
	out := make([]domain.Dataset, 0, len(v.state.datasets))
	for _, ds := range v.state.datasets {
		out = append(out, *ds.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FindDataset retrieves a dataset by ID from the snapshot.
func (v view) FindDataset(id string) (domain.Dataset, bool) {
	ds, ok := v.state.datasets[id]
	if !ok {
		return domain.Dataset{}, false
	}
	return *ds.Clone(), true
}

// RunInTransaction executes fn within a transactional copy of the store state.
// Commits happen only when fn succeeds and no blocking rule violation fires.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return domain.Result{}, err
	}

	var result domain.Result
	if s.engine != nil {
		res, err := s.engine.Evaluate(ctx, view{state: &tx.state}, tx.changes)
		if err != nil {
			return domain.Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(ctx context.Context, fn func(domain.TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	return fn(view{state: &snapshot})
}

// GetDataset returns a dataset outside any transaction.
func (s *Store) GetDataset(id string) (domain.Dataset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ds, ok := s.state.datasets[id]
	if !ok {
		return domain.Dataset{}, false
	}
	return *ds.Clone(), true
}

// ListDatasets returns all datasets sorted by ID.
func (s *Store) ListDatasets() []domain.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Dataset, 0, len(s.state.datasets))
	for _, ds := range s.state.datasets {
		out = append(out, *ds.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Engine returns the rules engine the store evaluates on commit.
func (s *Store) Engine() *domain.RulesEngine {
	return s.engine
}
