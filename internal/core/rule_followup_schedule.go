package core

import (
	"context"
	"fmt"
)

// NewFollowUpScheduleRule ensures every registered outcome carries a
// follow-up schedule and every study unit sits at a follow-up index present
// in its outcome's schedule. Imported datasets whose outcome registry and
// schedule map drifted apart must not commit: later schedule edits would hit
// a nil schedule.
func NewFollowUpScheduleRule() Rule {
	return followUpScheduleRule{}
}

type followUpScheduleRule struct{}

func (followUpScheduleRule) Name() string { return "followup_schedule" }

func (followUpScheduleRule) Evaluate(_ context.Context, view RuleView, _ []Change) (Result, error) {
	res := Result{}
	for _, ds := range view.ListDatasets() {
		for _, outcome := range ds.Outcomes {
			if schedule, ok := ds.Schedules[outcome.ID]; !ok || schedule == nil || schedule.Len() == 0 {
				res.Violations = append(res.Violations, Violation{
					Rule:     "followup_schedule",
					Severity: SeverityBlock,
					Message:  fmt.Sprintf("outcome %s has no follow-up schedule", outcome.Name),
					Entity:   KindOutcome,
					EntityID: ds.ID,
				})
			}
		}
		for _, st := range ds.Studies {
			for outcomeID, units := range st.Units {
				schedule, ok := ds.Schedules[outcomeID]
				if !ok || schedule == nil {
					res.Violations = append(res.Violations, Violation{
						Rule:     "followup_schedule",
						Severity: SeverityBlock,
						Message:  fmt.Sprintf("study %s holds units for outcome %d, which has no follow-up schedule", st.Name, outcomeID),
						Entity:   KindFollowUp,
						EntityID: ds.ID,
					})
					continue
				}
				for index := range units {
					if _, ok := schedule.NameOf(index); !ok {
						res.Violations = append(res.Violations, Violation{
							Rule:     "followup_schedule",
							Severity: SeverityBlock,
							Message:  fmt.Sprintf("study %s holds a unit at unscheduled follow-up index %d for outcome %d", st.Name, index, outcomeID),
							Entity:   KindFollowUp,
							EntityID: ds.ID,
						})
					}
				}
			}
		}
	}
	return res, nil
}
