package population

import (
	"errors"
	"math"
	"testing"

	"github.com/nvandessel/reciprocity/internal/random"
)

func TestBuild_Archetypes(t *testing.T) {
	spec := Spec{Clinics: 10, Patients: 5, StarterCredits: 10, FreeRiderFraction: 0.3, LowQualityFraction: 0.3}
	src := random.NewLCG(7)

	pop, err := Build(spec, src)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	want := []struct{ freeRide, lowQuality bool }{
		{true, false}, {false, false}, {false, true}, {false, false}, {true, false},
		{true, false}, {false, false}, {false, false}, {false, false}, {false, false},
	}
	for i, c := range pop.Clinics {
		if c.FreeRide != want[i].freeRide || c.LowQuality != want[i].lowQuality {
			t.Errorf("clinic %d free_ride=%v low_quality=%v, want %v %v",
				i, c.FreeRide, c.LowQuality, want[i].freeRide, want[i].lowQuality)
		}
		wantProp := 0.75
		if c.FreeRide {
			wantProp = 0.05
		}
		if c.SharePropensity != wantProp {
			t.Errorf("clinic %d share propensity = %v, want %v", i, c.SharePropensity, wantProp)
		}
	}
	if got := src.State(); got != 3349268618 {
		t.Errorf("generator state after build = %d, want 3349268618", got)
	}
}

func TestBuild_PlayerKeepsDrawOrder(t *testing.T) {
	spec := Spec{Clinics: 10, Patients: 5, StarterCredits: 10, FreeRiderFraction: 0.3, LowQualityFraction: 0.3}
	plain, err := Build(spec, random.NewLCG(7))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	spec.Player = &Player{SharePropensity: 0.5, QualityBias: 0.9}
	src := random.NewLCG(7)
	withPlayer, err := Build(spec, src)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	p := withPlayer.Clinics[0]
	if !p.IsPlayer || p.FreeRide || p.LowQuality || p.SharePropensity != 0.5 {
		t.Errorf("player clinic = %+v", p)
	}
	for i := 1; i < len(plain.Clinics); i++ {
		a, b := plain.Clinics[i], withPlayer.Clinics[i]
		if a.FreeRide != b.FreeRide || a.LowQuality != b.LowQuality {
			t.Errorf("clinic %d archetype changed when the player was enabled", i)
		}
		if b.IsPlayer {
			t.Errorf("clinic %d marked as player", i)
		}
	}
	if got := src.State(); got != 3349268618 {
		t.Errorf("generator state after build = %d, want 3349268618", got)
	}
}

func TestBuild_Identifiers(t *testing.T) {
	pop, err := Build(Spec{Clinics: 3, Patients: 2, StarterCredits: 4}, random.NewLCG(1))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	wantClinics := []string{"C000", "C001", "C002"}
	for i, c := range pop.Clinics {
		if c.ID != wantClinics[i] {
			t.Errorf("clinic %d id = %q, want %q", i, c.ID, wantClinics[i])
		}
		if c.Credits != 4 || c.Reputation != 1.0 || !c.OptedIn || c.Contrib != 0 {
			t.Errorf("clinic %s initial state = %+v", c.ID, c)
		}
	}
	if pop.Patients[0] != "P0000" || pop.Patients[1] != "P0001" {
		t.Errorf("patients = %v, want [P0000 P0001]", pop.Patients)
	}
	if len(pop.Histories) != 0 {
		t.Errorf("histories = %v, want empty", pop.Histories)
	}
}

func TestBuild_ExtremeFractions(t *testing.T) {
	pop, err := Build(Spec{Clinics: 50, Patients: 1, FreeRiderFraction: 1.0}, random.NewLCG(3))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	for _, c := range pop.Clinics {
		if !c.FreeRide || c.LowQuality {
			t.Fatalf("clinic %s is not a pure free-rider", c.ID)
		}
	}

	pop, err = Build(Spec{Clinics: 50, Patients: 1}, random.NewLCG(3))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	for _, c := range pop.Clinics {
		if c.FreeRide || c.LowQuality {
			t.Fatalf("clinic %s is not cooperative", c.ID)
		}
	}
}

func TestSpecValidate(t *testing.T) {
	valid := Spec{Clinics: 1, Patients: 1}
	tests := []struct {
		name    string
		mutate  func(*Spec)
		wantErr bool
	}{
		{"valid", func(*Spec) {}, false},
		{"zero clinics", func(s *Spec) { s.Clinics = 0 }, true},
		{"negative patients", func(s *Spec) { s.Patients = -1 }, true},
		{"negative credits", func(s *Spec) { s.StarterCredits = -1 }, true},
		{"fraction above one", func(s *Spec) { s.FreeRiderFraction = 1.01 }, true},
		{"negative fraction", func(s *Spec) { s.LowQualityFraction = -0.5 }, true},
		{"NaN fraction", func(s *Spec) { s.FreeRiderFraction = math.NaN() }, true},
		{"bad player propensity", func(s *Spec) { s.Player = &Player{SharePropensity: 2} }, true},
		{"valid player", func(s *Spec) { s.Player = &Player{SharePropensity: 1, QualityBias: 0} }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			tt.mutate(&s)
			err := s.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfiguration) {
				t.Errorf("Validate() error = %v, want ErrInvalidConfiguration", err)
			}
		})
	}
}

func TestBuild_InvalidConsumesNoDraws(t *testing.T) {
	src := random.NewLCG(7)
	if _, err := Build(Spec{Clinics: 0, Patients: 1}, src); !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("Build() error = %v, want ErrInvalidConfiguration", err)
	}
	if src.State() != 7 {
		t.Errorf("generator state = %d, want 7", src.State())
	}
}
