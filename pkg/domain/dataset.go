package domain

import (
	"sort"
	"strconv"
)

// Dataset is the aggregate root: an ordered list of studies plus the outcome
// registry, per-outcome follow-up schedules, and covariate definitions shared
// by every study. Outcomes carry stable integer IDs; studies key their units
// by outcome ID and follow-up index, so renames touch only the registry and
// never rewrite unit keys.
//
// The model is single-threaded and mutated in place. Multi-step edits are
// not atomic at this layer; the transactional store in internal/core clones
// the aggregate and commits only complete edits.
type Dataset struct {
	Base
	Title      string                    `json:"title,omitempty"`
	Summary    string                    `json:"summary,omitempty"`
	Notes      string                    `json:"notes,omitempty"`
	Studies    []*Study                  `json:"studies,omitempty"`
	Outcomes   []Outcome                 `json:"outcomes,omitempty"`
	Schedules  map[int]*FollowUpSchedule `json:"schedules,omitempty"`
	Covariates []Covariate               `json:"covariates,omitempty"`

	// NextOutcomeID holds the next outcome ID to assign; persisted so IDs
	// stay stable across snapshot round trips.
	NextOutcomeID int `json:"next_outcome_id,omitempty"`
}

// BaselineFollowUp is the follow-up seeded for every new outcome, at index 0.
const BaselineFollowUp = "baseline"

// NewDataset builds an empty dataset.
func NewDataset(title, summary string) *Dataset {
	return &Dataset{
		Title:     title,
		Summary:   summary,
		Schedules: make(map[int]*FollowUpSchedule),
	}
}

// Len reports the number of studies.
func (d *Dataset) Len() int { return len(d.Studies) }

// NumStudies reports the number of studies.
func (d *Dataset) NumStudies() int { return len(d.Studies) }

// Study returns the study with the given ID.
func (d *Dataset) Study(id int) (*Study, bool) {
	for _, st := range d.Studies {
		if st.ID == id {
			return st, true
		}
	}
	return nil, false
}

// StudyByName returns the first study with the given name.
func (d *Dataset) StudyByName(name string) (*Study, bool) {
	for _, st := range d.Studies {
		if st.Name == name {
			return st, true
		}
	}
	return nil, false
}

// AddStudy appends a study. A zero ID is replaced with the next free ID when
// it would collide; an explicit duplicate ID is rejected.
func (d *Dataset) AddStudy(st *Study) error {
	if st == nil {
		return ErrInvalidArgument{Reason: "study must not be nil"}
	}
	if _, exists := d.Study(st.ID); exists {
		if st.ID != 0 {
			return ErrDuplicate{Kind: KindStudy, Name: st.Name}
		}
		st.ID = d.nextStudyID()
	}
	d.Studies = append(d.Studies, st)
	return nil
}

// RemoveStudy deletes the study with the given ID.
func (d *Dataset) RemoveStudy(id int) error {
	for i, st := range d.Studies {
		if st.ID == id {
			d.Studies = append(d.Studies[:i], d.Studies[i+1:]...)
			return nil
		}
	}
	return ErrNotFound{Kind: KindStudy, Name: strconv.Itoa(id)}
}

func (d *Dataset) nextStudyID() int {
	next := 1
	for _, st := range d.Studies {
		if st.ID >= next {
			next = st.ID + 1
		}
	}
	return next
}

// AddOutcome registers a new outcome and propagates it to every study,
// seeding a single blank unit at the "baseline" follow-up (index 0) sized to
// the outcome's data type. Group names currently in use seed the new units;
// an empty dataset falls back to the default pair.
func (d *Dataset) AddOutcome(name string, dataType DataType, links ...string) (Outcome, error) {
	if name == "" {
		return Outcome{}, ErrInvalidArgument{Reason: "outcome name must not be empty"}
	}
	if _, ok := d.OutcomeByName(name); ok {
		return Outcome{}, ErrDuplicate{Kind: KindOutcome, Name: name}
	}
	if d.NextOutcomeID == 0 {
		d.NextOutcomeID = 1
	}
	outcome := Outcome{ID: d.NextOutcomeID, Name: name, Type: dataType, Links: links}
	d.NextOutcomeID++

	schedule, err := NewFollowUpSchedule(BaselineFollowUp)
	if err != nil {
		return Outcome{}, err
	}
	if d.Schedules == nil {
		d.Schedules = make(map[int]*FollowUpSchedule)
	}
	d.Outcomes = append(d.Outcomes, outcome)
	d.Schedules[outcome.ID] = schedule

	groupNames := d.GroupNames()
	for _, st := range d.Studies {
		if err := st.AddOutcome(outcome, 0, groupNames); err != nil {
			return Outcome{}, err
		}
	}
	return outcome, nil
}

// RemoveOutcome drops an outcome from the registry, its follow-up schedule,
// and every study.
func (d *Dataset) RemoveOutcome(name string) error {
	outcome, ok := d.OutcomeByName(name)
	if !ok {
		return ErrNotFound{Kind: KindOutcome, Name: name}
	}
	for i, o := range d.Outcomes {
		if o.ID == outcome.ID {
			d.Outcomes = append(d.Outcomes[:i], d.Outcomes[i+1:]...)
			break
		}
	}
	delete(d.Schedules, outcome.ID)
	for _, st := range d.Studies {
		if st.HasOutcome(outcome.ID) {
			if err := st.RemoveOutcome(outcome.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// RenameOutcome changes an outcome's name in the registry and in every
// study's local outcome list. Unit keys are outcome IDs and stay untouched.
func (d *Dataset) RenameOutcome(oldName, newName string) error {
	if newName == "" {
		return ErrInvalidArgument{Reason: "outcome name must not be empty"}
	}
	if _, exists := d.OutcomeByName(newName); exists && newName != oldName {
		return ErrDuplicate{Kind: KindOutcome, Name: newName}
	}
	outcome, ok := d.OutcomeByName(oldName)
	if !ok {
		return ErrNotFound{Kind: KindOutcome, Name: oldName}
	}
	for i := range d.Outcomes {
		if d.Outcomes[i].ID == outcome.ID {
			d.Outcomes[i].Name = newName
			break
		}
	}
	for _, st := range d.Studies {
		st.RenameOutcome(outcome.ID, newName)
	}
	return nil
}

// OutcomeByName looks an outcome up in the registry.
func (d *Dataset) OutcomeByName(name string) (Outcome, bool) {
	for _, o := range d.Outcomes {
		if o.Name == name {
			return o.Clone(), true
		}
	}
	return Outcome{}, false
}

// OutcomeNames returns the registered outcome names sorted alphabetically.
func (d *Dataset) OutcomeNames() []string {
	out := make([]string, 0, len(d.Outcomes))
	for _, o := range d.Outcomes {
		out = append(out, o.Name)
	}
	sort.Strings(out)
	return out
}

// OutcomeType returns the data type of a registered outcome.
func (d *Dataset) OutcomeType(name string) (DataType, error) {
	outcome, ok := d.OutcomeByName(name)
	if !ok {
		return "", ErrNotFound{Kind: KindOutcome, Name: name}
	}
	return outcome.Type, nil
}

// AddFollowUp adds the named follow-up to every registered outcome.
func (d *Dataset) AddFollowUp(name string) error {
	for _, o := range d.Outcomes {
		if _, err := d.AddFollowUpToOutcome(o.Name, name); err != nil {
			return err
		}
	}
	return nil
}

// RemoveFollowUp removes the named follow-up from every outcome carrying it.
// Failing to find it anywhere is a lookup error.
func (d *Dataset) RemoveFollowUp(name string) error {
	found := false
	for _, o := range d.Outcomes {
		if _, ok := d.Schedules[o.ID].IndexOf(name); !ok {
			continue
		}
		if err := d.RemoveFollowUpFromOutcome(name, o.Name); err != nil {
			return err
		}
		found = true
	}
	if !found {
		return ErrNotFound{Kind: KindFollowUp, Name: name}
	}
	return nil
}

// AddFollowUpToOutcome appends a follow-up to one outcome's schedule at index
// max-existing+1 and seeds a blank unit for it in every study holding the
// outcome.
func (d *Dataset) AddFollowUpToOutcome(outcomeName, followUpName string) (FollowUpPoint, error) {
	outcome, ok := d.OutcomeByName(outcomeName)
	if !ok {
		return FollowUpPoint{}, ErrNotFound{Kind: KindOutcome, Name: outcomeName}
	}
	point, err := d.Schedules[outcome.ID].Add(followUpName)
	if err != nil {
		return FollowUpPoint{}, err
	}
	groupNames := d.GroupNames()
	for _, st := range d.Studies {
		if !st.HasOutcome(outcome.ID) {
			continue
		}
		if err := st.AddFollowUp(outcome, point.Index, groupNames); err != nil {
			return FollowUpPoint{}, err
		}
	}
	return point, nil
}

// RemoveFollowUpFromOutcome removes a follow-up from one outcome's schedule
// and drops the matching unit from every study.
func (d *Dataset) RemoveFollowUpFromOutcome(followUpName, outcomeName string) error {
	outcome, ok := d.OutcomeByName(outcomeName)
	if !ok {
		return ErrNotFound{Kind: KindOutcome, Name: outcomeName}
	}
	point, err := d.Schedules[outcome.ID].Remove(followUpName)
	if err != nil {
		return err
	}
	for _, st := range d.Studies {
		if !st.HasOutcome(outcome.ID) {
			continue
		}
		if err := st.RemoveFollowUp(outcome.ID, point.Index); err != nil && !IsNotFound(err) {
			return err
		}
	}
	return nil
}

// RenameFollowUp changes a follow-up's name within one outcome's schedule.
// Units are keyed by index and stay untouched.
func (d *Dataset) RenameFollowUp(outcomeName, oldName, newName string) error {
	outcome, ok := d.OutcomeByName(outcomeName)
	if !ok {
		return ErrNotFound{Kind: KindOutcome, Name: outcomeName}
	}
	return d.Schedules[outcome.ID].Rename(oldName, newName)
}

// FollowUpNamesForOutcome lists an outcome's follow-up names in index order.
func (d *Dataset) FollowUpNamesForOutcome(outcomeName string) ([]string, error) {
	outcome, ok := d.OutcomeByName(outcomeName)
	if !ok {
		return nil, ErrNotFound{Kind: KindOutcome, Name: outcomeName}
	}
	return d.Schedules[outcome.ID].Names(), nil
}

// FollowUpPointsForOutcome returns an outcome's ordered index/name pairs.
func (d *Dataset) FollowUpPointsForOutcome(outcomeName string) ([]FollowUpPoint, error) {
	outcome, ok := d.OutcomeByName(outcomeName)
	if !ok {
		return nil, ErrNotFound{Kind: KindOutcome, Name: outcomeName}
	}
	return d.Schedules[outcome.ID].Points(), nil
}

// FollowUpNames returns the union of follow-up names across all outcomes,
// sorted alphabetically.
func (d *Dataset) FollowUpNames() []string {
	seen := make(map[string]struct{})
	for _, schedule := range d.Schedules {
		for _, name := range schedule.Names() {
			seen[name] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// GroupNames returns the set of treatment group names in use across all
// studies, outcomes, and follow-ups, sorted alphabetically.
func (d *Dataset) GroupNames() []string {
	seen := make(map[string]struct{})
	for _, st := range d.Studies {
		for _, units := range st.Units {
			for _, unit := range units {
				for name := range unit.Groups {
					seen[name] = struct{}{}
				}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// GroupNamesAt returns the group names present at one outcome/follow-up
// coordinate across all studies.
func (d *Dataset) GroupNamesAt(outcomeName, followUpName string) ([]string, error) {
	outcome, index, err := d.resolveCoordinate(outcomeName, followUpName)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	for _, st := range d.Studies {
		unit, err := st.Unit(outcome.ID, index)
		if err != nil {
			continue
		}
		for name := range unit.Groups {
			seen[name] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// AddGroup adds a treatment group to an outcome in every study. When
// followUpName is empty the group joins every follow-up of the outcome,
// otherwise only the named one. Units already holding the group are left
// as they are.
func (d *Dataset) AddGroup(groupName, outcomeName, followUpName string) error {
	if groupName == "" {
		return ErrInvalidArgument{Reason: "group name must not be empty"}
	}
	outcome, ok := d.OutcomeByName(outcomeName)
	if !ok {
		return ErrNotFound{Kind: KindOutcome, Name: outcomeName}
	}
	index := -1
	if followUpName != "" {
		idx, ok := d.Schedules[outcome.ID].IndexOf(followUpName)
		if !ok {
			return ErrNotFound{Kind: KindFollowUp, Name: followUpName}
		}
		index = idx
	}
	for _, st := range d.Studies {
		units, ok := st.Units[outcome.ID]
		if !ok {
			continue
		}
		for idx, unit := range units {
			if index >= 0 && idx != index {
				continue
			}
			if unit.HasGroup(groupName) {
				continue
			}
			if _, err := unit.AddGroup(groupName); err != nil {
				return err
			}
		}
	}
	return nil
}

// RemoveGroup deletes a treatment group from every unit in every study.
// Failing to find it anywhere is a lookup error.
func (d *Dataset) RemoveGroup(groupName string) error {
	found := false
	for _, st := range d.Studies {
		for _, units := range st.Units {
			for _, unit := range units {
				if !unit.HasGroup(groupName) {
					continue
				}
				if err := unit.RemoveGroup(groupName); err != nil {
					return err
				}
				found = true
			}
		}
	}
	if !found {
		return ErrNotFound{Kind: KindGroup, Name: groupName}
	}
	return nil
}

// RenameGroup renames a treatment group, preserving each occurrence's ID and
// raw data. With both outcomeName and followUpName empty every occurrence is
// renamed; with both set only the unit at that coordinate in each study.
// Specifying exactly one of the two is an invalid argument.
func (d *Dataset) RenameGroup(oldName, newName, outcomeName, followUpName string) error {
	if (outcomeName == "") != (followUpName == "") {
		return ErrInvalidArgument{Reason: "outcome and follow-up must be both specified or both omitted"}
	}
	if outcomeName == "" {
		found := false
		for _, st := range d.Studies {
			for _, units := range st.Units {
				for _, unit := range units {
					if !unit.HasGroup(oldName) {
						continue
					}
					if err := unit.RenameGroup(oldName, newName); err != nil {
						return err
					}
					found = true
				}
			}
		}
		if !found {
			return ErrNotFound{Kind: KindGroup, Name: oldName}
		}
		return nil
	}

	outcome, index, err := d.resolveCoordinate(outcomeName, followUpName)
	if err != nil {
		return err
	}
	found := false
	for _, st := range d.Studies {
		unit, err := st.Unit(outcome.ID, index)
		if err != nil {
			continue
		}
		if !unit.HasGroup(oldName) {
			continue
		}
		if err := unit.RenameGroup(oldName, newName); err != nil {
			return err
		}
		found = true
	}
	if !found {
		return ErrNotFound{Kind: KindGroup, Name: oldName}
	}
	return nil
}

// AddCovariate registers a covariate and seeds a value for every study:
// values from the back-fill map (keyed by study name) when provided, empty
// otherwise. The back-fill supports redo after a covariate removal.
func (d *Dataset) AddCovariate(cov Covariate, values map[string]CovariateValue) error {
	if cov.Name == "" {
		return ErrInvalidArgument{Reason: "covariate name must not be empty"}
	}
	for _, existing := range d.Covariates {
		if existing.Name == cov.Name {
			return ErrDuplicate{Kind: KindCovariate, Name: cov.Name}
		}
	}
	d.Covariates = append(d.Covariates, cov)
	for _, st := range d.Studies {
		st.SetCovariateValue(cov.Name, values[st.Name])
	}
	return nil
}

// RemoveCovariate drops a covariate from the dataset and every study,
// returning the removed values keyed by study name so callers can back-fill
// them on redo.
func (d *Dataset) RemoveCovariate(name string) (map[string]CovariateValue, error) {
	idx := -1
	for i, cov := range d.Covariates {
		if cov.Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrNotFound{Kind: KindCovariate, Name: name}
	}
	d.Covariates = append(d.Covariates[:idx], d.Covariates[idx+1:]...)
	removed := make(map[string]CovariateValue, len(d.Studies))
	for _, st := range d.Studies {
		removed[st.Name] = st.CovariateValueOf(name)
		delete(st.Covariates, name)
	}
	return removed, nil
}

// CovariateNames lists registered covariates in definition order.
func (d *Dataset) CovariateNames() []string {
	out := make([]string, 0, len(d.Covariates))
	for _, cov := range d.Covariates {
		out = append(out, cov.Name)
	}
	return out
}

// CovariateByName looks up a covariate definition.
func (d *Dataset) CovariateByName(name string) (Covariate, bool) {
	for _, cov := range d.Covariates {
		if cov.Name == name {
			return cov, true
		}
	}
	return Covariate{}, false
}

// CovariateValues returns every study's value for a covariate, keyed by
// study name.
func (d *Dataset) CovariateValues(name string) (map[string]CovariateValue, error) {
	if _, ok := d.CovariateByName(name); !ok {
		return nil, ErrNotFound{Kind: KindCovariate, Name: name}
	}
	out := make(map[string]CovariateValue, len(d.Studies))
	for _, st := range d.Studies {
		out[st.Name] = st.CovariateValueOf(name)
	}
	return out, nil
}

// Coordinate maps an outcome and follow-up name pair to the outcome
// definition and the follow-up index addressing units within studies.
func (d *Dataset) Coordinate(outcomeName, followUpName string) (Outcome, int, error) {
	return d.resolveCoordinate(outcomeName, followUpName)
}

// UnitAt returns the analytic unit a study holds at a named coordinate.
func (d *Dataset) UnitAt(studyID int, outcomeName, followUpName string) (*MetaAnalyticUnit, error) {
	outcome, index, err := d.resolveCoordinate(outcomeName, followUpName)
	if err != nil {
		return nil, err
	}
	st, ok := d.Study(studyID)
	if !ok {
		return nil, ErrNotFound{Kind: KindStudy, Name: strconv.Itoa(studyID)}
	}
	return st.Unit(outcome.ID, index)
}

// resolveCoordinate maps an outcome and follow-up name pair to the outcome
// definition and follow-up index.
func (d *Dataset) resolveCoordinate(outcomeName, followUpName string) (Outcome, int, error) {
	outcome, ok := d.OutcomeByName(outcomeName)
	if !ok {
		return Outcome{}, 0, ErrNotFound{Kind: KindOutcome, Name: outcomeName}
	}
	index, ok := d.Schedules[outcome.ID].IndexOf(followUpName)
	if !ok {
		return Outcome{}, 0, ErrNotFound{Kind: KindFollowUp, Name: followUpName}
	}
	return outcome, index, nil
}

// Clone returns a deep copy of the dataset.
func (d *Dataset) Clone() *Dataset {
	if d == nil {
		return nil
	}
	cp := &Dataset{
		Base:          d.Base,
		Title:         d.Title,
		Summary:       d.Summary,
		Notes:         d.Notes,
		Schedules:     make(map[int]*FollowUpSchedule, len(d.Schedules)),
		NextOutcomeID: d.NextOutcomeID,
	}
	for _, st := range d.Studies {
		cp.Studies = append(cp.Studies, st.Clone())
	}
	for _, o := range d.Outcomes {
		cp.Outcomes = append(cp.Outcomes, o.Clone())
	}
	for id, schedule := range d.Schedules {
		cp.Schedules[id] = schedule.Clone()
	}
	cp.Covariates = append([]Covariate(nil), d.Covariates...)
	return cp
}
