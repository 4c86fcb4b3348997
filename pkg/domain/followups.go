package domain

import "encoding/json"

// FollowUpPoint pairs a follow-up's ordinal index with its display name.
type FollowUpPoint struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

// FollowUpSchedule is an ordered bidirectional map between follow-up indices
// and names for a single outcome. Indices are unique and monotonically
// increasing; names are unique. New points are assigned max-existing+1.
type FollowUpSchedule struct {
	points []FollowUpPoint
}

// NewFollowUpSchedule builds a schedule seeded with the given names at
// indices 0..n-1.
func NewFollowUpSchedule(names ...string) (*FollowUpSchedule, error) {
	s := &FollowUpSchedule{}
	for _, name := range names {
		if _, err := s.Add(name); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Len reports the number of follow-up points.
func (s *FollowUpSchedule) Len() int {
	if s == nil {
		return 0
	}
	return len(s.points)
}

// Add appends a follow-up with the next free index (max existing + 1, or 0
// for an empty schedule). A nil schedule reports not-found rather than
// panicking, matching IndexOf and NameOf.
func (s *FollowUpSchedule) Add(name string) (FollowUpPoint, error) {
	if s == nil {
		return FollowUpPoint{}, ErrNotFound{Kind: KindFollowUp, Name: name}
	}
	next := 0
	if n := len(s.points); n > 0 {
		next = s.points[n-1].Index + 1
	}
	return s.AddAt(next, name)
}

// AddAt inserts a follow-up at an explicit index. The index must exceed every
// existing index so the monotonic ordering invariant holds; duplicate names
// and indices are rejected.
func (s *FollowUpSchedule) AddAt(index int, name string) (FollowUpPoint, error) {
	if s == nil {
		return FollowUpPoint{}, ErrNotFound{Kind: KindFollowUp, Name: name}
	}
	if name == "" {
		return FollowUpPoint{}, ErrInvalidArgument{Reason: "follow-up name must not be empty"}
	}
	if _, ok := s.IndexOf(name); ok {
		return FollowUpPoint{}, ErrDuplicate{Kind: KindFollowUp, Name: name}
	}
	if n := len(s.points); n > 0 && index <= s.points[n-1].Index {
		return FollowUpPoint{}, ErrInvalidArgument{Reason: "follow-up index must increase monotonically"}
	}
	point := FollowUpPoint{Index: index, Name: name}
	s.points = append(s.points, point)
	return point, nil
}

// Remove deletes the follow-up with the given name and returns its point.
func (s *FollowUpSchedule) Remove(name string) (FollowUpPoint, error) {
	if s == nil {
		return FollowUpPoint{}, ErrNotFound{Kind: KindFollowUp, Name: name}
	}
	for i, p := range s.points {
		if p.Name == name {
			s.points = append(s.points[:i], s.points[i+1:]...)
			return p, nil
		}
	}
	return FollowUpPoint{}, ErrNotFound{Kind: KindFollowUp, Name: name}
}

// Rename changes a follow-up's name in place; the index is untouched.
func (s *FollowUpSchedule) Rename(oldName, newName string) error {
	if s == nil {
		return ErrNotFound{Kind: KindFollowUp, Name: oldName}
	}
	if newName == "" {
		return ErrInvalidArgument{Reason: "follow-up name must not be empty"}
	}
	if _, ok := s.IndexOf(newName); ok {
		return ErrDuplicate{Kind: KindFollowUp, Name: newName}
	}
	for i, p := range s.points {
		if p.Name == oldName {
			s.points[i].Name = newName
			return nil
		}
	}
	return ErrNotFound{Kind: KindFollowUp, Name: oldName}
}

// IndexOf returns the index mapped to a follow-up name.
func (s *FollowUpSchedule) IndexOf(name string) (int, bool) {
	if s == nil {
		return 0, false
	}
	for _, p := range s.points {
		if p.Name == name {
			return p.Index, true
		}
	}
	return 0, false
}

// NameOf returns the name mapped to a follow-up index.
func (s *FollowUpSchedule) NameOf(index int) (string, bool) {
	if s == nil {
		return "", false
	}
	for _, p := range s.points {
		if p.Index == index {
			return p.Name, true
		}
	}
	return "", false
}

// Names returns follow-up names in index order.
func (s *FollowUpSchedule) Names() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.points))
	for _, p := range s.points {
		out = append(out, p.Name)
	}
	return out
}

// Points returns a copy of the ordered index/name pairs.
func (s *FollowUpSchedule) Points() []FollowUpPoint {
	if s == nil {
		return nil
	}
	return append([]FollowUpPoint(nil), s.points...)
}

// Clone returns an independent copy of the schedule.
func (s *FollowUpSchedule) Clone() *FollowUpSchedule {
	if s == nil {
		return nil
	}
	return &FollowUpSchedule{points: append([]FollowUpPoint(nil), s.points...)}
}

// MarshalJSON encodes the schedule as its ordered point list.
func (s *FollowUpSchedule) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Points())
}

// UnmarshalJSON rebuilds the schedule from a point list, re-validating the
// uniqueness and ordering invariants.
func (s *FollowUpSchedule) UnmarshalJSON(data []byte) error {
	var points []FollowUpPoint
	if err := json.Unmarshal(data, &points); err != nil {
		return err
	}
	rebuilt := FollowUpSchedule{}
	for _, p := range points {
		if _, err := rebuilt.AddAt(p.Index, p.Name); err != nil {
			return err
		}
	}
	*s = rebuilt
	return nil
}
