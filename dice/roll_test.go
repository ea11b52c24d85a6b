package dice

import (
	"errors"
	"math/rand"
	"testing"
)

func TestRollWithRng_Validation(t *testing.T) {
	tests := []struct {
		name    string
		specs   []Spec
		wantErr error
	}{
		{name: "no dice", specs: nil, wantErr: ErrMissingDice},
		{name: "zero sides", specs: []Spec{{Sides: 0, Count: 1}}, wantErr: ErrInvalidDiceSpec},
		{name: "zero count", specs: []Spec{{Sides: 6, Count: 0}}, wantErr: ErrInvalidDiceSpec},
		{name: "2d6", specs: []Spec{{Sides: 6, Count: 2}}},
		{name: "2d6 + 1d8", specs: []Spec{{Sides: 6, Count: 2}, {Sides: 8, Count: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := RollWithRng(rand.New(rand.NewSource(42)), tt.specs)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected err %v, got %v", tt.wantErr, err)
			}
			if err != nil {
				return
			}
			if len(res.Rolls) != len(tt.specs) {
				t.Fatalf("expected %d rolls, got %d", len(tt.specs), len(res.Rolls))
			}
			sum := 0
			for i, roll := range res.Rolls {
				if len(roll.Results) != tt.specs[i].Count {
					t.Fatalf("roll %d: expected %d results, got %d", i, tt.specs[i].Count, len(roll.Results))
				}
				for _, v := range roll.Results {
					if v < 1 || v > tt.specs[i].Sides {
						t.Fatalf("roll %d: value %d out of range", i, v)
					}
				}
				sum += roll.Total
			}
			if sum != res.Total {
				t.Fatalf("expected total %d, got %d", sum, res.Total)
			}
		})
	}
}

func TestRoller_DeterministicForSeed(t *testing.T) {
	a, err := NewRoller(rand.New(rand.NewSource(7)), 2, 6)
	if err != nil {
		t.Fatalf("NewRoller err: %v", err)
	}
	b, _ := NewRoller(rand.New(rand.NewSource(7)), 2, 6)
	lo, hi := a.Bounds()
	for i := 0; i < 200; i++ {
		x, y := a.Roll(), b.Roll()
		if x != y {
			t.Fatalf("roll %d diverged: %d vs %d", i, x, y)
		}
		if x < lo || x > hi {
			t.Fatalf("roll %d out of bounds [%d,%d]: %d", i, lo, hi, x)
		}
	}
}

func TestNewRoller_RejectsInvalid(t *testing.T) {
	if _, err := NewRoller(rand.New(rand.NewSource(1)), 0, 6); !errors.Is(err, ErrInvalidDiceSpec) {
		t.Fatalf("expected ErrInvalidDiceSpec, got %v", err)
	}
}
