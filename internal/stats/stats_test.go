package stats

import (
	"testing"

	"github.com/nvandessel/reciprocity/internal/models"
)

func TestAggregate_Empty(t *testing.T) {
	s := Aggregate(nil, Totals{Round: 3, Reads: 2, Publishes: 1})

	if s.OptInRate != 0 {
		t.Errorf("OptInRate = %v, want 0", s.OptInRate)
	}
	if s.Round != 3 || s.TotalReads != 2 || s.TotalPublishes != 1 {
		t.Errorf("totals not carried through: %+v", s)
	}
	if s.Player != nil {
		t.Error("Player should be nil for an empty population")
	}
}

func TestAggregate(t *testing.T) {
	clinics := []*models.Clinic{
		{ID: "C000", Credits: 10, Reputation: 1.0, OptedIn: true, IsPlayer: true, Reads: 4, Publishes: 2},
		{ID: "C001", Credits: 4, Reputation: 0.75, OptedIn: true},
		{ID: "C002", Credits: 1, Reputation: 0.5, OptedIn: false},
		{ID: "C003", Credits: 5, Reputation: 1.0, OptedIn: true},
	}

	s := Aggregate(clinics, Totals{Round: 10, Reads: 20, Publishes: 30})

	if s.RemainingClinics != 3 {
		t.Errorf("RemainingClinics = %d, want 3", s.RemainingClinics)
	}
	if s.OptInRate != 0.75 {
		t.Errorf("OptInRate = %v, want 0.75", s.OptInRate)
	}
	if s.AvgCredits != 5 {
		t.Errorf("AvgCredits = %v, want 5", s.AvgCredits)
	}
	if want := 0.8125; s.AvgReputation != want {
		t.Errorf("AvgReputation = %v, want %v", s.AvgReputation, want)
	}
	if s.TotalReads != 20 || s.TotalPublishes != 30 {
		t.Errorf("totals = %d/%d, want 20/30", s.TotalReads, s.TotalPublishes)
	}

	if s.Player == nil {
		t.Fatal("Player = nil, want designated clinic stats")
	}
	if s.Player.ID != "C000" || s.Player.Credits != 10 || s.Player.Reads != 4 || s.Player.Publishes != 2 {
		t.Errorf("Player = %+v", *s.Player)
	}
}

func TestAggregate_DoesNotMutate(t *testing.T) {
	c := &models.Clinic{ID: "C000", Credits: 7, Reputation: 0.81, OptedIn: true, Contrib: 2}
	Aggregate([]*models.Clinic{c}, Totals{})

	if c.Credits != 7 || c.Reputation != 0.81 || c.Contrib != 2 || !c.OptedIn {
		t.Errorf("Aggregate mutated clinic: %+v", *c)
	}
}
