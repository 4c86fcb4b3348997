package memory

import (
	"sort"

	"metacore/pkg/domain"
)

// Snapshot is a serializable copy of the full store state, used by durable
// backends to persist and rehydrate the in-memory store.
type Snapshot struct {
	Datasets []domain.Dataset `json:"datasets"`
}

// ExportState returns a deep-copied snapshot of every dataset, sorted by ID
// for stable serialization.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := Snapshot{Datasets: make([]domain.Dataset, 0, len(s.state.datasets))}
	for _, ds := range s.state.datasets {
		snapshot.Datasets = append(snapshot.Datasets, *ds.Clone())
	}
	sort.Slice(snapshot.Datasets, func(i, j int) bool {
		return snapshot.Datasets[i].ID < snapshot.Datasets[j].ID
	})
	return snapshot
}

// ImportState replaces the store contents with the snapshot. Datasets without
// an ID are skipped.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := newState()
	for i := range snapshot.Datasets {
		ds := snapshot.Datasets[i]
		if ds.ID == "" {
			continue
		}
		next.datasets[ds.ID] = ds.Clone()
	}
	s.state = next
}
