package domain

import "testing"

func TestNetworkConnectsGroupsWithCompleteData(t *testing.T) {
	d := NewDataset("", "")
	for _, name := range []string{"CAPRIE", "SALT"} {
		if err := d.AddStudy(NewStudy(name)); err != nil {
			t.Fatalf("add study: %v", err)
		}
	}
	if _, err := d.AddOutcome("Mortality", Binary); err != nil {
		t.Fatalf("add outcome: %v", err)
	}
	if err := d.AddGroup("placebo", "Mortality", BaselineFollowUp); err != nil {
		t.Fatalf("add group: %v", err)
	}

	outcome, _ := d.OutcomeByName("Mortality")
	caprie, _ := d.StudyByName("CAPRIE")
	unit, err := caprie.Unit(outcome.ID, 0)
	if err != nil {
		t.Fatalf("unit: %v", err)
	}
	if err := unit.SetRawDataFor("tx A", Cells(5, 50)); err != nil {
		t.Fatalf("set raw data: %v", err)
	}
	if err := unit.SetRawDataFor("tx B", Cells(3, 50)); err != nil {
		t.Fatalf("set raw data: %v", err)
	}

	salt, _ := d.StudyByName("SALT")
	unit, err = salt.Unit(outcome.ID, 0)
	if err != nil {
		t.Fatalf("unit: %v", err)
	}
	if err := unit.SetRawDataFor("tx B", Cells(7, 60)); err != nil {
		t.Fatalf("set raw data: %v", err)
	}
	if err := unit.SetRawDataFor("placebo", Cells(9, 60)); err != nil {
		t.Fatalf("set raw data: %v", err)
	}

	network, err := d.Network("Mortality", BaselineFollowUp)
	if err != nil {
		t.Fatalf("network: %v", err)
	}
	if len(network.Nodes) != 3 || network.Nodes[0] != "placebo" || network.Nodes[1] != "tx A" || network.Nodes[2] != "tx B" {
		t.Fatalf("nodes wrong: %v", network.Nodes)
	}
	if !network.HasEdge("tx A", "tx B") {
		t.Fatalf("CAPRIE connects tx A and tx B")
	}
	if !network.HasEdge("tx B", "placebo") {
		t.Fatalf("SALT connects tx B and placebo")
	}
	if network.HasEdge("tx A", "placebo") {
		t.Fatalf("no study compares tx A against placebo directly")
	}
	if len(network.Edges) != 2 {
		t.Fatalf("expected 2 edges, got %v", network.Edges)
	}
	for _, edge := range network.Edges {
		if edge.A >= edge.B {
			t.Fatalf("edges must be normalized: %+v", edge)
		}
	}
}

func TestNetworkIgnoresIncompleteRawData(t *testing.T) {
	d := NewDataset("", "")
	if err := d.AddStudy(NewStudy("CAPRIE")); err != nil {
		t.Fatalf("add study: %v", err)
	}
	if _, err := d.AddOutcome("Mortality", Binary); err != nil {
		t.Fatalf("add outcome: %v", err)
	}
	outcome, _ := d.OutcomeByName("Mortality")
	st, _ := d.StudyByName("CAPRIE")
	unit, _ := st.Unit(outcome.ID, 0)
	if err := unit.SetRawDataFor("tx A", Cells(5, 50)); err != nil {
		t.Fatalf("set raw data: %v", err)
	}
	row := BlankRawData(Binary)
	five := 5.0
	row[0] = &five
	if err := unit.SetRawDataFor("tx B", row); err != nil {
		t.Fatalf("set raw data: %v", err)
	}

	network, err := d.Network("Mortality", BaselineFollowUp)
	if err != nil {
		t.Fatalf("network: %v", err)
	}
	if len(network.Nodes) != 2 {
		t.Fatalf("nodes should still list every group: %v", network.Nodes)
	}
	if len(network.Edges) != 0 {
		t.Fatalf("partial rows must not produce edges: %v", network.Edges)
	}
}

func TestNetworkUnknownCoordinate(t *testing.T) {
	d := NewDataset("", "")
	if _, err := d.Network("ghost", BaselineFollowUp); !IsNotFound(err) {
		t.Fatalf("expected not-found for unknown outcome, got %v", err)
	}
	if _, err := d.AddOutcome("Mortality", Binary); err != nil {
		t.Fatalf("add outcome: %v", err)
	}
	if _, err := d.Network("Mortality", "6 months"); !IsNotFound(err) {
		t.Fatalf("expected not-found for unknown follow-up, got %v", err)
	}
}
