package domain

import (
	"sort"
	"strconv"
)

// Study represents a single publication contributing data to the dataset. It
// holds one MetaAnalyticUnit per outcome and follow-up, plus study-level
// metadata and covariate values. The Outcomes list mirrors the keys of Units;
// dataset operations keep the two in sync.
type Study struct {
	ID               int                               `json:"id"`
	Name             string                            `json:"name"`
	Year             *int                              `json:"year,omitempty"`
	SampleSize       *int                              `json:"sample_size,omitempty"`
	Include          bool                              `json:"include"`
	ManuallyExcluded bool                              `json:"manually_excluded,omitempty"`
	Notes            string                            `json:"notes,omitempty"`
	Outcomes         []Outcome                         `json:"outcomes,omitempty"`
	Units            map[int]map[int]*MetaAnalyticUnit `json:"units,omitempty"`
	Covariates       map[string]CovariateValue         `json:"covariates,omitempty"`
}

// NewStudy builds an empty, included study. The ID is assigned by the
// dataset when zero.
func NewStudy(name string) *Study {
	return &Study{
		Name:       name,
		Include:    true,
		Units:      make(map[int]map[int]*MetaAnalyticUnit),
		Covariates: make(map[string]CovariateValue),
	}
}

// AddOutcome records a new blank outcome for the study, seeding exactly one
// unit at the given follow-up index with empty raw data sized to the
// outcome's data type.
func (s *Study) AddOutcome(outcome Outcome, followUpIndex int, groupNames []string) error {
	if s.HasOutcome(outcome.ID) {
		return ErrDuplicate{Kind: KindOutcome, Name: outcome.Name}
	}
	if s.Units == nil {
		s.Units = make(map[int]map[int]*MetaAnalyticUnit)
	}
	s.Units[outcome.ID] = map[int]*MetaAnalyticUnit{
		followUpIndex: NewMetaAnalyticUnit(outcome, groupNames),
	}
	s.Outcomes = append(s.Outcomes, outcome.Clone())
	return nil
}

// RemoveOutcome drops the outcome and all of its units.
func (s *Study) RemoveOutcome(outcomeID int) error {
	if !s.HasOutcome(outcomeID) {
		return ErrNotFound{Kind: KindOutcome, Name: outcomeName(s.Outcomes, outcomeID)}
	}
	delete(s.Units, outcomeID)
	for i, o := range s.Outcomes {
		if o.ID == outcomeID {
			s.Outcomes = append(s.Outcomes[:i], s.Outcomes[i+1:]...)
			break
		}
	}
	return nil
}

// RenameOutcome updates the study's local copy of an outcome definition.
func (s *Study) RenameOutcome(outcomeID int, newName string) {
	for i := range s.Outcomes {
		if s.Outcomes[i].ID == outcomeID {
			s.Outcomes[i].Name = newName
			return
		}
	}
}

// AddFollowUp seeds a blank unit for an existing outcome at a new follow-up
// index.
func (s *Study) AddFollowUp(outcome Outcome, followUpIndex int, groupNames []string) error {
	units, ok := s.Units[outcome.ID]
	if !ok {
		return ErrNotFound{Kind: KindOutcome, Name: outcome.Name}
	}
	if _, exists := units[followUpIndex]; exists {
		return ErrDuplicate{Kind: KindFollowUp, Name: outcome.Name}
	}
	units[followUpIndex] = NewMetaAnalyticUnit(outcome, groupNames)
	return nil
}

// RemoveFollowUp drops the unit at a follow-up index for an outcome.
func (s *Study) RemoveFollowUp(outcomeID, followUpIndex int) error {
	units, ok := s.Units[outcomeID]
	if !ok {
		return ErrNotFound{Kind: KindOutcome, Name: outcomeName(s.Outcomes, outcomeID)}
	}
	if _, exists := units[followUpIndex]; !exists {
		return ErrNotFound{Kind: KindFollowUp, Name: outcomeName(s.Outcomes, outcomeID)}
	}
	delete(units, followUpIndex)
	return nil
}

// PlaceUnit inserts a unit directly at a follow-up index, creating the
// outcome entry when the study does not hold it yet.
func (s *Study) PlaceUnit(outcome Outcome, followUpIndex int, unit *MetaAnalyticUnit) {
	if s.Units == nil {
		s.Units = make(map[int]map[int]*MetaAnalyticUnit)
	}
	if !s.HasOutcome(outcome.ID) {
		s.Units[outcome.ID] = make(map[int]*MetaAnalyticUnit, 1)
		s.Outcomes = append(s.Outcomes, outcome.Clone())
	}
	s.Units[outcome.ID][followUpIndex] = unit
}

// Unit returns the analytic unit at an outcome and follow-up index.
func (s *Study) Unit(outcomeID, followUpIndex int) (*MetaAnalyticUnit, error) {
	units, ok := s.Units[outcomeID]
	if !ok {
		return nil, ErrNotFound{Kind: KindOutcome, Name: outcomeName(s.Outcomes, outcomeID)}
	}
	unit, ok := units[followUpIndex]
	if !ok {
		return nil, ErrNotFound{Kind: KindFollowUp, Name: outcomeName(s.Outcomes, outcomeID)}
	}
	return unit, nil
}

// HasOutcome reports whether the study carries units for the outcome.
func (s *Study) HasOutcome(outcomeID int) bool {
	_, ok := s.Units[outcomeID]
	return ok
}

// Outcome returns the study's local copy of an outcome definition.
func (s *Study) Outcome(outcomeID int) (Outcome, bool) {
	for _, o := range s.Outcomes {
		if o.ID == outcomeID {
			return o.Clone(), true
		}
	}
	return Outcome{}, false
}

// OutcomeNames lists the study's outcome names sorted for determinism.
func (s *Study) OutcomeNames() []string {
	out := make([]string, 0, len(s.Outcomes))
	for _, o := range s.Outcomes {
		out = append(out, o.Name)
	}
	sort.Strings(out)
	return out
}

// FollowUpIndexes returns the follow-up indices held for an outcome, sorted
// ascending.
func (s *Study) FollowUpIndexes(outcomeID int) []int {
	units, ok := s.Units[outcomeID]
	if !ok {
		return nil
	}
	out := make([]int, 0, len(units))
	for idx := range units {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// CovariateValueOf returns the study's value for a covariate name; an unset
// covariate yields an empty value.
func (s *Study) CovariateValueOf(name string) CovariateValue {
	return s.Covariates[name]
}

// SetCovariateValue stores the study's value for a covariate name.
func (s *Study) SetCovariateValue(name string, value CovariateValue) {
	if s.Covariates == nil {
		s.Covariates = make(map[string]CovariateValue)
	}
	s.Covariates[name] = value
}

// Clone returns a deep copy of the study.
func (s *Study) Clone() *Study {
	if s == nil {
		return nil
	}
	cp := &Study{
		ID:               s.ID,
		Name:             s.Name,
		Year:             cloneInt(s.Year),
		SampleSize:       cloneInt(s.SampleSize),
		Include:          s.Include,
		ManuallyExcluded: s.ManuallyExcluded,
		Notes:            s.Notes,
		Units:            make(map[int]map[int]*MetaAnalyticUnit, len(s.Units)),
		Covariates:       make(map[string]CovariateValue, len(s.Covariates)),
	}
	for _, o := range s.Outcomes {
		cp.Outcomes = append(cp.Outcomes, o.Clone())
	}
	for outcomeID, units := range s.Units {
		cloned := make(map[int]*MetaAnalyticUnit, len(units))
		for idx, unit := range units {
			cloned[idx] = unit.Clone()
		}
		cp.Units[outcomeID] = cloned
	}
	for name, value := range s.Covariates {
		cp.Covariates[name] = CovariateValue{
			Factor:  cloneString(value.Factor),
			Numeric: cloneFloat(value.Numeric),
		}
	}
	return cp
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

func outcomeName(outcomes []Outcome, id int) string {
	for _, o := range outcomes {
		if o.ID == id {
			return o.Name
		}
	}
	return strconv.Itoa(id)
}
