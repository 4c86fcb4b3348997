package core

import (
	"context"
	"testing"

	"metacore/pkg/domain"
)

func TestOutcomeIntegrityRuleBlocksOrphanUnits(t *testing.T) {
	svc := NewInMemoryService(NewDefaultRulesEngine())
	ctx := context.Background()

	ds := domain.NewDataset("trials", "")
	st := domain.NewStudy("CAPRIE")
	// Unit addressed by an outcome the registry never defined.
	st.PlaceUnit(Outcome{ID: 42, Name: "phantom", Type: Binary}, 0, domain.NewMetaAnalyticUnit(Outcome{ID: 42, Name: "phantom", Type: Binary}, nil))
	if err := ds.AddStudy(st); err != nil {
		t.Fatalf("add study: %v", err)
	}

	_, _, err := svc.CreateDataset(ctx, *ds)
	if err == nil {
		t.Fatalf("expected blocking violation")
	}
	violation, ok := err.(RuleViolationError)
	if !ok {
		t.Fatalf("expected RuleViolationError, got %T", err)
	}
	found := false
	for _, v := range violation.Result.Violations {
		if v.Rule == "outcome_integrity" && v.Severity == SeverityBlock {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected outcome_integrity violation, got %+v", violation.Result.Violations)
	}
}

func TestFollowUpScheduleRuleBlocksUnscheduledUnits(t *testing.T) {
	svc := NewInMemoryService(NewDefaultRulesEngine())
	ctx := context.Background()

	ds := domain.NewDataset("trials", "")
	if err := ds.AddStudy(domain.NewStudy("CAPRIE")); err != nil {
		t.Fatalf("add study: %v", err)
	}
	outcome, err := ds.AddOutcome("Mortality", Binary)
	if err != nil {
		t.Fatalf("add outcome: %v", err)
	}
	st, _ := ds.StudyByName("CAPRIE")
	// A unit at index 7 with no matching schedule point.
	st.PlaceUnit(outcome, 7, domain.NewMetaAnalyticUnit(outcome, nil))

	if _, _, err := svc.CreateDataset(ctx, *ds); err == nil {
		t.Fatalf("expected blocking violation for unscheduled unit")
	}
}

func TestFollowUpScheduleRuleBlocksSchedulelessOutcome(t *testing.T) {
	svc := NewInMemoryService(NewDefaultRulesEngine())
	ctx := context.Background()

	// An imported registry that drifted from its schedule map: the outcome
	// exists but no follow-up schedule was carried along.
	ds := Dataset{
		Title:         "imported trials",
		Outcomes:      []Outcome{{ID: 1, Name: "Mortality", Type: Binary}},
		NextOutcomeID: 2,
	}

	_, _, err := svc.ImportDataset(ctx, ds)
	if err == nil {
		t.Fatalf("expected blocking violation for scheduleless outcome")
	}
	violation, ok := err.(RuleViolationError)
	if !ok {
		t.Fatalf("expected RuleViolationError, got %T", err)
	}
	found := false
	for _, v := range violation.Result.Violations {
		if v.Rule == "followup_schedule" && v.Severity == SeverityBlock {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected followup_schedule violation, got %+v", violation.Result.Violations)
	}
	if got := svc.ListDatasets(); len(got) != 0 {
		t.Fatalf("blocked import must not commit, got %d datasets", len(got))
	}

	// The same registry with its schedule intact imports cleanly.
	schedule, err := domain.NewFollowUpSchedule(domain.BaselineFollowUp)
	if err != nil {
		t.Fatalf("new schedule: %v", err)
	}
	ds.Schedules = map[int]*domain.FollowUpSchedule{1: schedule}
	imported, _, err := svc.ImportDataset(ctx, ds)
	if err != nil {
		t.Fatalf("import with schedule: %v", err)
	}
	if _, _, err := svc.AddFollowUpToOutcome(ctx, imported.ID, "Mortality", "6 months"); err != nil {
		t.Fatalf("add follow-up after import: %v", err)
	}
}

func TestGroupDataRuleWarnsWithoutBlocking(t *testing.T) {
	svc := NewInMemoryService(NewDefaultRulesEngine())
	ctx := context.Background()

	ds := domain.NewDataset("trials", "")
	if err := ds.AddStudy(domain.NewStudy("CAPRIE")); err != nil {
		t.Fatalf("add study: %v", err)
	}
	if _, err := ds.AddOutcome("Mortality", Binary); err != nil {
		t.Fatalf("add outcome: %v", err)
	}
	created, _, err := svc.CreateDataset(ctx, *ds)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	st, _ := created.StudyByName("CAPRIE")
	res, err := svc.SetRawData(ctx, created.ID, st.ID, "Mortality", domain.BaselineFollowUp, "tx A", domain.Cells(5, 50))
	if err != nil {
		t.Fatalf("set raw data must commit despite warning: %v", err)
	}
	warned := false
	for _, v := range res.Violations {
		if v.Rule == "group_data" && v.Severity == SeverityWarn {
			warned = true
		}
	}
	if !warned {
		t.Fatalf("expected group_data warning, got %+v", res.Violations)
	}

	// Completing the second arm clears the warning.
	res, err = svc.SetRawData(ctx, created.ID, st.ID, "Mortality", domain.BaselineFollowUp, "tx B", domain.Cells(3, 50))
	if err != nil {
		t.Fatalf("set raw data: %v", err)
	}
	for _, v := range res.Violations {
		if v.Rule == "group_data" {
			t.Fatalf("warning should clear with two complete arms: %+v", v)
		}
	}
}
