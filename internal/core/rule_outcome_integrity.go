package core

import (
	"context"
	"fmt"
)

// NewOutcomeIntegrityRule ensures every study unit is addressed by a
// registered outcome and carries the registered data type.
func NewOutcomeIntegrityRule() Rule {
	return outcomeIntegrityRule{}
}

type outcomeIntegrityRule struct{}

func (outcomeIntegrityRule) Name() string { return "outcome_integrity" }

func (outcomeIntegrityRule) Evaluate(_ context.Context, view RuleView, _ []Change) (Result, error) {
	res := Result{}
	for _, ds := range view.ListDatasets() {
		registered := make(map[int]Outcome, len(ds.Outcomes))
		for _, outcome := range ds.Outcomes {
			registered[outcome.ID] = outcome
		}
		for _, st := range ds.Studies {
			for outcomeID := range st.Units {
				outcome, ok := registered[outcomeID]
				if !ok {
					res.Violations = append(res.Violations, Violation{
						Rule:     "outcome_integrity",
						Severity: SeverityBlock,
						Message:  fmt.Sprintf("study %s holds units for unregistered outcome %d", st.Name, outcomeID),
						Entity:   KindOutcome,
						EntityID: ds.ID,
					})
					continue
				}
				for _, unit := range st.Units[outcomeID] {
					if unit.Type != outcome.Type {
						res.Violations = append(res.Violations, Violation{
							Rule:     "outcome_integrity",
							Severity: SeverityBlock,
							Message:  fmt.Sprintf("study %s outcome %s: unit type %s does not match registered type %s", st.Name, outcome.Name, unit.Type, outcome.Type),
							Entity:   KindOutcome,
							EntityID: ds.ID,
						})
					}
				}
			}
		}
	}
	return res, nil
}
