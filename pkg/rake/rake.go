// Package rake computes the house cut of a pot.
package rake

import "math"

// basisPoints is the number of basis points in 100%
const basisPoints = 10000

// Result is the rake owed on a pot
type Result struct {
	Rake       int64 `json:"rake"`
	CapApplied bool  `json:"capApplied"`
}

// Options describes a table's rake structure
type Options struct {
	// Percent is a fraction, i.e., 0.05 is 5%
	Percent float64 `yaml:"percent" json:"percent"`
	// Cap is the most that can be taken from a single pot. Zero or less is uncapped.
	Cap int64 `yaml:"cap" json:"cap"`
}

// Calculate returns the rake for a pot.
// No flop, no drop: if the pot never saw a contested flop, no rake is taken.
func Calculate(pot int64, percent float64, cap int64, sawFlop bool) Result {
	if !sawFlop || pot <= 0 || percent <= 0 {
		return Result{}
	}

	bps := int64(math.Round(percent * basisPoints))
	if bps > basisPoints {
		bps = basisPoints
	}

	// split the pot so pot*bps can't overflow
	rake := pot/basisPoints*bps + pot%basisPoints*bps/basisPoints

	if cap > 0 && rake >= cap {
		// the cap only binds when it lowers the amount
		return Result{Rake: cap, CapApplied: rake > cap}
	}

	return Result{Rake: rake}
}

// Calculate is a convenience around the package level Calculate
func (o Options) Calculate(pot int64, sawFlop bool) Result {
	return Calculate(pot, o.Percent, o.Cap, sawFlop)
}
