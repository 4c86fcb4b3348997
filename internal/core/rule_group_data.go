package core

import (
	"context"
	"fmt"
)

// NewGroupDataRule flags units that cannot contribute a pairwise comparison
// because fewer than two of their groups carry complete raw data. The rule
// warns rather than blocks; sparse units are legitimate during data entry.
func NewGroupDataRule() Rule {
	return groupDataRule{}
}

type groupDataRule struct{}

func (groupDataRule) Name() string { return "group_data" }

func (groupDataRule) Evaluate(_ context.Context, view RuleView, changes []Change) (Result, error) {
	if len(changes) == 0 {
		return Result{}, nil
	}
	res := Result{}
	for _, ds := range view.ListDatasets() {
		for _, st := range ds.Studies {
			for outcomeID, units := range st.Units {
				for index, unit := range units {
					if len(unit.Groups) < 2 {
						continue
					}
					complete := 0
					for _, group := range unit.Groups {
						if group.Data.Complete() {
							complete++
						}
					}
					if complete == 1 {
						res.Violations = append(res.Violations, Violation{
							Rule:     "group_data",
							Severity: SeverityWarn,
							Message:  fmt.Sprintf("study %s outcome %d follow-up %d: only one group has complete raw data", st.Name, outcomeID, index),
							Entity:   KindGroup,
							EntityID: ds.ID,
						})
					}
				}
			}
		}
	}
	return res, nil
}
