package core

import (
	"testing"

	"github.com/signalsfoundry/peerglobe/model"
)

func TestBuildLayoutEndToEnd(t *testing.T) {
	raw := []model.Entity{
		model.NewEntity("hub-a", 52.52, 13.405),
		model.NewEntity("hub-b", 52.52, 13.405),
		model.NewEntity("hub-c", 52.52, 13.405),
		model.NewEntity("solo", -33.87, 151.21),
		{ID: "ghost"},
	}

	got := BuildLayout(raw, DefaultLayoutOptions())

	if got.Report.Input != 5 || got.Report.Kept != 4 || got.Report.MissingCoords != 1 {
		t.Fatalf("report = %+v", got.Report)
	}
	if len(got.Clusters) != 2 {
		t.Fatalf("clusters = %d, want 2", len(got.Clusters))
	}
	if len(got.Points) != 4 || len(got.Index) != 4 {
		t.Fatalf("points = %d index = %d, want 4", len(got.Points), len(got.Index))
	}
	ids := got.EntityIDs()
	want := []string{"hub-a", "hub-b", "hub-c", "solo"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("EntityIDs() = %v, want %v", ids, want)
		}
	}
	if p := got.Index["solo"]; p.Display != p.True || p.ClusterSize != 1 {
		t.Fatalf("singleton point = %+v, want display at true position", p)
	}
	for _, e := range got.Edges {
		if e.TargetEntityID == "solo" {
			t.Fatalf("singleton received edge %+v", e)
		}
	}
	if len(got.Edges) == 0 {
		t.Fatalf("three-member cluster produced no edges")
	}
}
