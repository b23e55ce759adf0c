// Package energy is the per-actor credit ledger behind round fairness.
//
// Every regeneration point grants an actor its Speed; every action
// opportunity costs a flat, shared price. An actor with Speed = k × cost
// acts k times per round on average, and remainders carry over to the next
// round, so fractional rates fall out of integer arithmetic alone.
package energy

import "github.com/l1jgo/turnloop/internal/component"

// Regenerate grants one round's worth of credit.
func Regenerate(e *component.Energy) {
	e.Accumulated += e.Speed
}

// CanAfford reports whether an opportunity priced at cost can be paid now.
func CanAfford(e *component.Energy, cost int) bool {
	return e.Accumulated >= cost
}

// Spend pays for one opportunity. The caller must have checked CanAfford;
// there is no clamping.
func Spend(e *component.Energy, cost int) {
	e.Accumulated -= cost
}

// Problem describes a misconfiguration that only the pass cap guards against.
type Problem string

const (
	NonPositiveCost  Problem = "action cost is not positive; rounds will run to the pass cap"
	NonPositiveSpeed Problem = "speed is not positive; actor will never act"
)

// ValidateCost reports a problem with the shared action cost, or "".
func ValidateCost(cost int) Problem {
	if cost <= 0 {
		return NonPositiveCost
	}
	return ""
}

// ValidateSpeed reports a problem with an actor's speed, or "".
func ValidateSpeed(speed int) Problem {
	if speed <= 0 {
		return NonPositiveSpeed
	}
	return ""
}
