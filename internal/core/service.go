package core

import (
	"context"
	"strconv"
	"time"

	"metacore/internal/infra/persistence/memory"
	"metacore/pkg/domain"
)

// Service exposes higher-level transactional operations over datasets. Every
// mutation runs inside a store transaction so multi-step edits commit or roll
// back as a whole, and every operation is traced, measured, logged, and
// audited through the configured collaborators.
type Service struct {
	store   domain.PersistentStore
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
	audit   AuditRecorder
	now     func() time.Time
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, opts ...Option) *Service {
	s := &Service{
		store:   store,
		logger:  noopLogger{},
		metrics: noopMetrics{},
		tracer:  noopTracer{},
		audit:   noopAudit{},
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewInMemoryService creates a service and in-memory store with the given
// rules engine.
func NewInMemoryService(engine *RulesEngine, opts ...Option) *Service {
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore {
	return s.store
}

// run instruments a single operation: one trace span, one metrics
// observation, one audit entry, one log line.
func (s *Service) run(ctx context.Context, op string, fn func(context.Context) (string, Result, error)) (Result, error) {
	ctx, span := s.tracer.Start(ctx, op)
	started := s.now()
	entityID, res, err := fn(ctx)
	duration := s.now().Sub(started)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, duration)

	entry := AuditEntry{Operation: op, Status: AuditStatusSuccess, EntityID: entityID, OccurredAt: s.now()}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
		s.logger.Error("operation failed", "operation", op, "entity_id", entityID, "error", err)
	} else {
		s.logger.Debug("operation completed", "operation", op, "entity_id", entityID, "duration_ms", float64(duration)/float64(time.Millisecond))
	}
	s.audit.Record(ctx, entry)
	return res, err
}

// mutate applies a mutator to one dataset inside an instrumented transaction.
func (s *Service) mutate(ctx context.Context, op, datasetID string, mutator func(*Dataset) error) (Dataset, Result, error) {
	var updated Dataset
	res, err := s.run(ctx, op, func(ctx context.Context) (string, Result, error) {
		r, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var err error
			updated, err = tx.UpdateDataset(datasetID, mutator)
			return err
		})
		return datasetID, r, err
	})
	return updated, res, err
}

// CreateDataset persists a new dataset.
func (s *Service) CreateDataset(ctx context.Context, ds Dataset) (Dataset, Result, error) {
	var created Dataset
	res, err := s.run(ctx, "create_dataset", func(ctx context.Context) (string, Result, error) {
		r, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var err error
			created, err = tx.CreateDataset(ds)
			return err
		})
		return created.ID, r, err
	})
	return created, res, err
}

// ImportDataset stores a fully built dataset, replacing any dataset that
// already carries its ID.
func (s *Service) ImportDataset(ctx context.Context, ds Dataset) (Dataset, Result, error) {
	var imported Dataset
	res, err := s.run(ctx, "import_dataset", func(ctx context.Context) (string, Result, error) {
		r, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			if ds.ID != "" {
				if _, exists := tx.FindDataset(ds.ID); exists {
					if err := tx.DeleteDataset(ds.ID); err != nil {
						return err
					}
				}
			}
			var err error
			imported, err = tx.CreateDataset(ds)
			return err
		})
		return imported.ID, r, err
	})
	return imported, res, err
}

// DeleteDataset removes a dataset.
func (s *Service) DeleteDataset(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "delete_dataset", func(ctx context.Context) (string, Result, error) {
		r, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			return tx.DeleteDataset(id)
		})
		return id, r, err
	})
}

// GetDataset returns a dataset by ID.
func (s *Service) GetDataset(id string) (Dataset, bool) {
	return s.store.GetDataset(id)
}

// ListDatasets returns all stored datasets.
func (s *Service) ListDatasets() []Dataset {
	return s.store.ListDatasets()
}

// AddStudy appends a named study to a dataset.
func (s *Service) AddStudy(ctx context.Context, datasetID, name string) (Study, Result, error) {
	var created Study
	_, res, err := s.mutate(ctx, "add_study", datasetID, func(ds *Dataset) error {
		st := domain.NewStudy(name)
		if err := ds.AddStudy(st); err != nil {
			return err
		}
		created = *st.Clone()
		return nil
	})
	return created, res, err
}

// UpdateStudy mutates one study's descriptive fields.
func (s *Service) UpdateStudy(ctx context.Context, datasetID string, studyID int, mutator func(*Study) error) (Study, Result, error) {
	var updated Study
	_, res, err := s.mutate(ctx, "update_study", datasetID, func(ds *Dataset) error {
		st, ok := ds.Study(studyID)
		if !ok {
			return domain.ErrNotFound{Kind: KindStudy, Name: strconv.Itoa(studyID)}
		}
		if err := mutator(st); err != nil {
			return err
		}
		st.ID = studyID
		updated = *st.Clone()
		return nil
	})
	return updated, res, err
}

// RemoveStudy deletes a study from a dataset.
func (s *Service) RemoveStudy(ctx context.Context, datasetID string, studyID int) (Result, error) {
	_, res, err := s.mutate(ctx, "remove_study", datasetID, func(ds *Dataset) error {
		return ds.RemoveStudy(studyID)
	})
	return res, err
}

// AddOutcome registers a new outcome and propagates blank baseline units to
// every study.
func (s *Service) AddOutcome(ctx context.Context, datasetID, outcomeName string, dataType DataType, links ...string) (Outcome, Result, error) {
	var created Outcome
	_, res, err := s.mutate(ctx, "add_outcome", datasetID, func(ds *Dataset) error {
		var err error
		created, err = ds.AddOutcome(outcomeName, dataType, links...)
		return err
	})
	return created, res, err
}

// RemoveOutcome drops an outcome and all of its units everywhere.
func (s *Service) RemoveOutcome(ctx context.Context, datasetID, outcomeName string) (Result, error) {
	_, res, err := s.mutate(ctx, "remove_outcome", datasetID, func(ds *Dataset) error {
		return ds.RemoveOutcome(outcomeName)
	})
	return res, err
}

// RenameOutcome changes an outcome's registry name; unit keys stay stable.
func (s *Service) RenameOutcome(ctx context.Context, datasetID, oldName, newName string) (Result, error) {
	_, res, err := s.mutate(ctx, "rename_outcome", datasetID, func(ds *Dataset) error {
		return ds.RenameOutcome(oldName, newName)
	})
	return res, err
}

// AddFollowUp appends a follow-up to every outcome's schedule.
func (s *Service) AddFollowUp(ctx context.Context, datasetID, followUpName string) (Result, error) {
	_, res, err := s.mutate(ctx, "add_follow_up", datasetID, func(ds *Dataset) error {
		return ds.AddFollowUp(followUpName)
	})
	return res, err
}

// AddFollowUpToOutcome appends a follow-up to one outcome's schedule.
func (s *Service) AddFollowUpToOutcome(ctx context.Context, datasetID, outcomeName, followUpName string) (FollowUpPoint, Result, error) {
	var point FollowUpPoint
	_, res, err := s.mutate(ctx, "add_follow_up_to_outcome", datasetID, func(ds *Dataset) error {
		var err error
		point, err = ds.AddFollowUpToOutcome(outcomeName, followUpName)
		return err
	})
	return point, res, err
}

// RemoveFollowUp drops a named follow-up from every outcome carrying it.
func (s *Service) RemoveFollowUp(ctx context.Context, datasetID, followUpName string) (Result, error) {
	_, res, err := s.mutate(ctx, "remove_follow_up", datasetID, func(ds *Dataset) error {
		return ds.RemoveFollowUp(followUpName)
	})
	return res, err
}

// RemoveFollowUpFromOutcome drops a follow-up from one outcome's schedule.
func (s *Service) RemoveFollowUpFromOutcome(ctx context.Context, datasetID, followUpName, outcomeName string) (Result, error) {
	_, res, err := s.mutate(ctx, "remove_follow_up_from_outcome", datasetID, func(ds *Dataset) error {
		return ds.RemoveFollowUpFromOutcome(followUpName, outcomeName)
	})
	return res, err
}

// RenameFollowUp renames a follow-up within one outcome's schedule.
func (s *Service) RenameFollowUp(ctx context.Context, datasetID, outcomeName, oldName, newName string) (Result, error) {
	_, res, err := s.mutate(ctx, "rename_follow_up", datasetID, func(ds *Dataset) error {
		return ds.RenameFollowUp(outcomeName, oldName, newName)
	})
	return res, err
}

// AddGroup adds a treatment group to an outcome's units. An empty follow-up
// name targets every follow-up of the outcome.
func (s *Service) AddGroup(ctx context.Context, datasetID, groupName, outcomeName, followUpName string) (Result, error) {
	_, res, err := s.mutate(ctx, "add_group", datasetID, func(ds *Dataset) error {
		return ds.AddGroup(groupName, outcomeName, followUpName)
	})
	return res, err
}

// RemoveGroup deletes a treatment group from every unit holding it.
func (s *Service) RemoveGroup(ctx context.Context, datasetID, groupName string) (Result, error) {
	_, res, err := s.mutate(ctx, "remove_group", datasetID, func(ds *Dataset) error {
		return ds.RemoveGroup(groupName)
	})
	return res, err
}

// RenameGroup renames a group dataset-wide, or within one outcome and
// follow-up when both are given. A half-specified scope is rejected.
func (s *Service) RenameGroup(ctx context.Context, datasetID, oldName, newName, outcomeName, followUpName string) (Result, error) {
	_, res, err := s.mutate(ctx, "rename_group", datasetID, func(ds *Dataset) error {
		return ds.RenameGroup(oldName, newName, outcomeName, followUpName)
	})
	return res, err
}

// AddCovariate registers a covariate and back-fills per-study values.
func (s *Service) AddCovariate(ctx context.Context, datasetID string, cov Covariate, values map[string]CovariateValue) (Result, error) {
	_, res, err := s.mutate(ctx, "add_covariate", datasetID, func(ds *Dataset) error {
		return ds.AddCovariate(cov, values)
	})
	return res, err
}

// RemoveCovariate drops a covariate and returns the values it removed so
// callers can restore them.
func (s *Service) RemoveCovariate(ctx context.Context, datasetID, covariateName string) (map[string]CovariateValue, Result, error) {
	var removed map[string]CovariateValue
	_, res, err := s.mutate(ctx, "remove_covariate", datasetID, func(ds *Dataset) error {
		var err error
		removed, err = ds.RemoveCovariate(covariateName)
		return err
	})
	return removed, res, err
}

// SetRawData writes one group's raw data row in a study's unit.
func (s *Service) SetRawData(ctx context.Context, datasetID string, studyID int, outcomeName, followUpName, groupName string, data RawData) (Result, error) {
	_, res, err := s.mutate(ctx, "set_raw_data", datasetID, func(ds *Dataset) error {
		unit, err := ds.UnitAt(studyID, outcomeName, followUpName)
		if err != nil {
			return err
		}
		return unit.SetRawDataFor(groupName, data)
	})
	return res, err
}

// SetEffect writes a point estimate into a study's unit.
func (s *Service) SetEffect(ctx context.Context, datasetID string, studyID int, outcomeName, followUpName string, measure EffectMeasure, estimate float64) (Result, error) {
	_, res, err := s.mutate(ctx, "set_effect", datasetID, func(ds *Dataset) error {
		unit, err := ds.UnitAt(studyID, outcomeName, followUpName)
		if err != nil {
			return err
		}
		return unit.SetEffect(measure, estimate)
	})
	return res, err
}

// SetEffectInterval writes an estimate with confidence bounds into a study's
// unit.
func (s *Service) SetEffectInterval(ctx context.Context, datasetID string, studyID int, outcomeName, followUpName string, measure EffectMeasure, estimate, lower, upper float64) (Result, error) {
	_, res, err := s.mutate(ctx, "set_effect_interval", datasetID, func(ds *Dataset) error {
		unit, err := ds.UnitAt(studyID, outcomeName, followUpName)
		if err != nil {
			return err
		}
		return unit.SetEffectInterval(measure, estimate, lower, upper)
	})
	return res, err
}

// SortStudies reorders a dataset's study list by the given key.
func (s *Service) SortStudies(ctx context.Context, datasetID string, key SortKey, reverse bool) (Result, error) {
	_, res, err := s.mutate(ctx, "sort_studies", datasetID, func(ds *Dataset) error {
		ds.SortStudies(key, reverse)
		return nil
	})
	return res, err
}

// Network derives the treatment comparison graph at an outcome and follow-up.
func (s *Service) Network(ctx context.Context, datasetID, outcomeName, followUpName string) (Network, error) {
	var network Network
	_, err := s.run(ctx, "network", func(ctx context.Context) (string, Result, error) {
		err := s.store.View(ctx, func(v domain.TransactionView) error {
			ds, ok := v.FindDataset(datasetID)
			if !ok {
				return domain.ErrNotFound{Kind: KindDataset, Name: datasetID}
			}
			var err error
			network, err = ds.Network(outcomeName, followUpName)
			return err
		})
		return datasetID, Result{}, err
	})
	return network, err
}
