// Package dice evaluates standard tabletop dice notation such as "2d6+3".
//
// Randomness uses [math/rand/v2] with the per-process automatically-seeded
// source; a [Roller] can be constructed with a fixed source for tests.
package dice

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
)

// Expression is a parsed dice expression of the form NdS, NdS+M, or NdS-M.
type Expression struct {
	// Count is the number of dice (≥ 1).
	Count int

	// Sides is the number of sides per die (≥ 1).
	Sides int

	// Modifier is added to the sum of all dice. May be negative.
	Modifier int
}

// Result holds the outcome of a roll.
type Result struct {
	// Expression is the original notation, echoed back to the caller.
	Expression string `json:"expression"`

	// Rolls holds the individual die results before the modifier is applied.
	Rolls []int `json:"rolls"`

	// Total is the sum of all rolls plus the modifier.
	Total int `json:"total"`
}

// Parse parses dice notation. N defaults to 1 when omitted ("d20" rolls one
// twenty-sided die); S must be ≥ 1; the modifier is optional and may be
// negative.
func Parse(expr string) (Expression, error) {
	norm := strings.ToLower(strings.TrimSpace(expr))

	dIdx := strings.Index(norm, "d")
	if dIdx == -1 {
		return Expression{}, fmt.Errorf("dice: invalid expression %q: missing 'd' separator", expr)
	}

	var parsed Expression

	countStr := norm[:dIdx]
	if countStr == "" {
		parsed.Count = 1
	} else {
		n, err := strconv.Atoi(countStr)
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid dice count %q in expression %q", countStr, expr)
		}
		parsed.Count = n
	}
	if parsed.Count < 1 {
		return Expression{}, fmt.Errorf("dice: dice count must be ≥ 1, got %d in expression %q", parsed.Count, expr)
	}

	rest := norm[dIdx+1:]
	plusIdx := strings.Index(rest, "+")
	minusIdx := strings.Index(rest, "-")

	var sidesStr string
	switch {
	case plusIdx != -1:
		sidesStr = rest[:plusIdx]
		mod, err := strconv.Atoi(rest[plusIdx+1:])
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid modifier %q in expression %q", rest[plusIdx+1:], expr)
		}
		parsed.Modifier = mod

	case minusIdx != -1:
		sidesStr = rest[:minusIdx]
		mod, err := strconv.Atoi(rest[minusIdx+1:])
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid modifier %q in expression %q", rest[minusIdx+1:], expr)
		}
		parsed.Modifier = -mod

	default:
		sidesStr = rest
	}

	sides, err := strconv.Atoi(sidesStr)
	if err != nil {
		return Expression{}, fmt.Errorf("dice: invalid sides %q in expression %q", sidesStr, expr)
	}
	if sides < 1 {
		return Expression{}, fmt.Errorf("dice: sides must be ≥ 1, got %d in expression %q", sides, expr)
	}
	parsed.Sides = sides

	return parsed, nil
}

// Roller rolls parsed expressions. The zero value uses the process-global
// random source and is safe for concurrent use.
type Roller struct {
	// intN overrides the random source when non-nil. Test hook.
	intN func(n int) int
}

// NewRoller creates a Roller backed by src. A nil src falls back to the
// process-global source.
func NewRoller(src rand.Source) *Roller {
	if src == nil {
		return &Roller{}
	}
	r := rand.New(src)
	return &Roller{intN: r.IntN}
}

// Roll evaluates expr and returns each die result with the total.
func (ro *Roller) Roll(expr string) (Result, error) {
	parsed, err := Parse(expr)
	if err != nil {
		return Result{}, err
	}

	intN := ro.intN
	if intN == nil {
		intN = rand.IntN
	}

	rolls := make([]int, parsed.Count)
	total := parsed.Modifier
	for i := range parsed.Count {
		r := intN(parsed.Sides) + 1
		rolls[i] = r
		total += r
	}
	return Result{Expression: expr, Rolls: rolls, Total: total}, nil
}
