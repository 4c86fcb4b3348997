package domain

import "sort"

// RawData holds a treatment group's raw cells. A nil cell is an empty
// spreadsheet entry; binary outcomes carry [events, total], all other data
// types carry [size, mean, SD].
type RawData []*float64

// BlankRawData returns an all-empty row sized for the data type.
func BlankRawData(t DataType) RawData {
	return make(RawData, t.RawDataLength())
}

// Complete reports whether every cell holds a value. Incomplete rows are
// excluded from network edges.
func (d RawData) Complete() bool {
	if len(d) == 0 {
		return false
	}
	for _, cell := range d {
		if cell == nil {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the row.
func (d RawData) Clone() RawData {
	if d == nil {
		return nil
	}
	out := make(RawData, len(d))
	for i, cell := range d {
		if cell != nil {
			v := *cell
			out[i] = &v
		}
	}
	return out
}

// Cells builds a fully populated row from literal values.
func Cells(values ...float64) RawData {
	out := make(RawData, len(values))
	for i := range values {
		v := values[i]
		out[i] = &v
	}
	return out
}

// TreatmentGroup is a named arm (e.g. control, aspirin) within an analytic
// unit. IDs are assigned per unit as max-existing+1.
type TreatmentGroup struct {
	ID   int     `json:"id"`
	Name string  `json:"name"`
	Data RawData `json:"data"`
}

// Clone returns a deep copy of the group.
func (g *TreatmentGroup) Clone() *TreatmentGroup {
	if g == nil {
		return nil
	}
	return &TreatmentGroup{ID: g.ID, Name: g.Name, Data: g.Data.Clone()}
}

// EffectEstimate holds a point estimate with confidence bounds. Variance
// carries the variance for binary measures and the standard error for
// continuous ones; nil fields have not been computed yet.
type EffectEstimate struct {
	Estimate *float64 `json:"estimate,omitempty"`
	Lower    *float64 `json:"lower,omitempty"`
	Upper    *float64 `json:"upper,omitempty"`
	Variance *float64 `json:"variance,omitempty"`
}

// Clone returns a deep copy of the estimate.
func (e *EffectEstimate) Clone() *EffectEstimate {
	if e == nil {
		return nil
	}
	cp := EffectEstimate{}
	cp.Estimate = cloneFloat(e.Estimate)
	cp.Lower = cloneFloat(e.Lower)
	cp.Upper = cloneFloat(e.Upper)
	cp.Variance = cloneFloat(e.Variance)
	return &cp
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

// DefaultGroupNames seed new units when the dataset has no groups yet.
var DefaultGroupNames = []string{"tx A", "tx B"}

// MetaAnalyticUnit is the unit of analysis: the container of raw and effect
// data for one study, outcome, and follow-up. It may hold more than two
// treatment groups.
type MetaAnalyticUnit struct {
	OutcomeID int                               `json:"outcome_id"`
	Type      DataType                          `json:"type"`
	Groups    map[string]*TreatmentGroup        `json:"groups"`
	Effects   map[EffectMeasure]*EffectEstimate `json:"effects"`
}

// NewMetaAnalyticUnit builds a blank unit for the outcome, seeding one empty
// raw-data row per group name (DefaultGroupNames when none are given) and a
// null effect slot per measure appropriate to the data type.
func NewMetaAnalyticUnit(outcome Outcome, groupNames []string) *MetaAnalyticUnit {
	if len(groupNames) == 0 {
		groupNames = DefaultGroupNames
	}
	unit := &MetaAnalyticUnit{
		OutcomeID: outcome.ID,
		Type:      outcome.Type,
		Groups:    make(map[string]*TreatmentGroup, len(groupNames)),
		Effects:   make(map[EffectMeasure]*EffectEstimate),
	}
	for _, name := range groupNames {
		// Seeding from a name list cannot collide; ignore the duplicate error.
		_, _ = unit.AddGroup(name)
	}
	for _, measure := range MeasuresFor(outcome.Type) {
		unit.Effects[measure] = &EffectEstimate{}
	}
	return unit
}

// AddGroup inserts a new blank group. The ID is one past the largest ID
// currently present, so IDs are never reused within a single growth sequence
// but may collide after a remove followed by a re-add.
func (u *MetaAnalyticUnit) AddGroup(name string) (*TreatmentGroup, error) {
	if name == "" {
		return nil, ErrInvalidArgument{Reason: "group name must not be empty"}
	}
	if _, exists := u.Groups[name]; exists {
		return nil, ErrDuplicate{Kind: KindGroup, Name: name}
	}
	id := 0
	for _, g := range u.Groups {
		if g.ID >= id {
			id = g.ID + 1
		}
	}
	group := &TreatmentGroup{ID: id, Name: name, Data: BlankRawData(u.Type)}
	if u.Groups == nil {
		u.Groups = make(map[string]*TreatmentGroup)
	}
	u.Groups[name] = group
	return group, nil
}

// RemoveGroup deletes a group and its raw data.
func (u *MetaAnalyticUnit) RemoveGroup(name string) error {
	if _, ok := u.Groups[name]; !ok {
		return ErrNotFound{Kind: KindGroup, Name: name}
	}
	delete(u.Groups, name)
	return nil
}

// RenameGroup rekeys a group, preserving its ID and raw data.
func (u *MetaAnalyticUnit) RenameGroup(oldName, newName string) error {
	if newName == "" {
		return ErrInvalidArgument{Reason: "group name must not be empty"}
	}
	group, ok := u.Groups[oldName]
	if !ok {
		return ErrNotFound{Kind: KindGroup, Name: oldName}
	}
	if _, exists := u.Groups[newName]; exists && newName != oldName {
		return ErrDuplicate{Kind: KindGroup, Name: newName}
	}
	delete(u.Groups, oldName)
	group.Name = newName
	u.Groups[newName] = group
	return nil
}

// HasGroup reports whether the unit owns a group with the given name.
func (u *MetaAnalyticUnit) HasGroup(name string) bool {
	_, ok := u.Groups[name]
	return ok
}

// GroupNames returns the unit's group names sorted for determinism.
func (u *MetaAnalyticUnit) GroupNames() []string {
	out := make([]string, 0, len(u.Groups))
	for name := range u.Groups {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// RawDataFor returns the raw row of a single group.
func (u *MetaAnalyticUnit) RawDataFor(groupName string) (RawData, error) {
	group, ok := u.Groups[groupName]
	if !ok {
		return nil, ErrNotFound{Kind: KindGroup, Name: groupName}
	}
	return group.Data, nil
}

// SetRawDataFor replaces a group's raw row. The row length must match the
// unit's data type.
func (u *MetaAnalyticUnit) SetRawDataFor(groupName string, data RawData) error {
	group, ok := u.Groups[groupName]
	if !ok {
		return ErrNotFound{Kind: KindGroup, Name: groupName}
	}
	if len(data) != u.Type.RawDataLength() {
		return ErrInvalidArgument{Reason: "raw data length does not match outcome data type"}
	}
	group.Data = data
	return nil
}

// RawDataForGroups returns one row per requested group, in caller order.
func (u *MetaAnalyticUnit) RawDataForGroups(groupNames []string) ([]RawData, error) {
	out := make([]RawData, 0, len(groupNames))
	for _, name := range groupNames {
		row, err := u.RawDataFor(name)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}

// SetRawDataForGroups replaces rows positionally: rows[i] belongs to
// groupNames[i].
func (u *MetaAnalyticUnit) SetRawDataForGroups(groupNames []string, rows []RawData) error {
	if len(groupNames) != len(rows) {
		return ErrInvalidArgument{Reason: "group and raw data counts differ"}
	}
	for i, name := range groupNames {
		if err := u.SetRawDataFor(name, rows[i]); err != nil {
			return err
		}
	}
	return nil
}

// Effect returns the full estimate slot for a measure.
func (u *MetaAnalyticUnit) Effect(measure EffectMeasure) (EffectEstimate, error) {
	est, ok := u.Effects[measure]
	if !ok {
		return EffectEstimate{}, ErrNotFound{Kind: KindEffect, Name: string(measure)}
	}
	return *est.Clone(), nil
}

// SetEffect stores a point estimate for a measure.
func (u *MetaAnalyticUnit) SetEffect(measure EffectMeasure, estimate float64) error {
	est, ok := u.Effects[measure]
	if !ok {
		return ErrNotFound{Kind: KindEffect, Name: string(measure)}
	}
	est.Estimate = &estimate
	return nil
}

// SetEffectInterval stores a point estimate with its confidence bounds.
func (u *MetaAnalyticUnit) SetEffectInterval(measure EffectMeasure, estimate, lower, upper float64) error {
	est, ok := u.Effects[measure]
	if !ok {
		return ErrNotFound{Kind: KindEffect, Name: string(measure)}
	}
	est.Estimate = &estimate
	est.Lower = &lower
	est.Upper = &upper
	return nil
}

// SetEffectLower stores only the lower confidence bound.
func (u *MetaAnalyticUnit) SetEffectLower(measure EffectMeasure, lower float64) error {
	est, ok := u.Effects[measure]
	if !ok {
		return ErrNotFound{Kind: KindEffect, Name: string(measure)}
	}
	est.Lower = &lower
	return nil
}

// SetEffectUpper stores only the upper confidence bound.
func (u *MetaAnalyticUnit) SetEffectUpper(measure EffectMeasure, upper float64) error {
	est, ok := u.Effects[measure]
	if !ok {
		return ErrNotFound{Kind: KindEffect, Name: string(measure)}
	}
	est.Upper = &upper
	return nil
}

// SetEffectVariance stores the variance (or standard error) slot.
func (u *MetaAnalyticUnit) SetEffectVariance(measure EffectMeasure, variance float64) error {
	est, ok := u.Effects[measure]
	if !ok {
		return ErrNotFound{Kind: KindEffect, Name: string(measure)}
	}
	est.Variance = &variance
	return nil
}

// Clone returns a deep copy of the unit.
func (u *MetaAnalyticUnit) Clone() *MetaAnalyticUnit {
	if u == nil {
		return nil
	}
	cp := &MetaAnalyticUnit{
		OutcomeID: u.OutcomeID,
		Type:      u.Type,
		Groups:    make(map[string]*TreatmentGroup, len(u.Groups)),
		Effects:   make(map[EffectMeasure]*EffectEstimate, len(u.Effects)),
	}
	for name, group := range u.Groups {
		cp.Groups[name] = group.Clone()
	}
	for measure, est := range u.Effects {
		cp.Effects[measure] = est.Clone()
	}
	return cp
}
