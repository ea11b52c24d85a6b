package dice

import (
	"errors"
	"math/rand"
)

var (
	ErrMissingDice     = errors.New("at least one dice spec is required")
	ErrInvalidDiceSpec = errors.New("dice spec needs sides > 0 and count > 0")
)

// Spec describes Count dice with Sides faces each.
type Spec struct {
	Sides int
	Count int
}

// Roll is the outcome of one Spec.
type Roll struct {
	Sides   int
	Results []int
	Total   int
}

type Result struct {
	Rolls []Roll
	Total int
}

// RollWithRng rolls every spec in order using rng. Each die is sampled uniformly from 1..Sides.
func RollWithRng(rng *rand.Rand, specs []Spec) (Result, error) {
	if len(specs) == 0 {
		return Result{}, ErrMissingDice
	}

	rolls := make([]Roll, 0, len(specs))
	total := 0
	for _, spec := range specs {
		if spec.Sides <= 0 || spec.Count <= 0 {
			return Result{}, ErrInvalidDiceSpec
		}
		results := make([]int, spec.Count)
		rollTotal := 0
		for i := 0; i < spec.Count; i++ {
			v := rng.Intn(spec.Sides) + 1
			results[i] = v
			rollTotal += v
		}
		rolls = append(rolls, Roll{Sides: spec.Sides, Results: results, Total: rollTotal})
		total += rollTotal
	}
	return Result{Rolls: rolls, Total: total}, nil
}

// Roller sums a fixed number of equal dice on every call.
type Roller struct {
	rng  *rand.Rand
	spec Spec
}

func NewRoller(rng *rand.Rand, count, sides int) (*Roller, error) {
	if count <= 0 || sides <= 0 {
		return nil, ErrInvalidDiceSpec
	}
	return &Roller{rng: rng, spec: Spec{Sides: sides, Count: count}}, nil
}

func (r *Roller) Roll() int {
	res, err := RollWithRng(r.rng, []Spec{r.spec})
	if err != nil {
		// spec validated in NewRoller
		panic(err)
	}
	return res.Total
}

// Bounds returns the smallest and largest possible sum.
func (r *Roller) Bounds() (int, int) {
	return r.spec.Count, r.spec.Count * r.spec.Sides
}
