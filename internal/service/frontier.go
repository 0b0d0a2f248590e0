package service

import (
	"car_resale/internal/domain"
)

type Decision int

const (
	Include Decision = iota
	Skip
	Halt
)

func (d Decision) String() string {
	switch d {
	case Include:
		return "include"
	case Skip:
		return "skip"
	case Halt:
		return "halt"
	default:
		return "unknown"
	}
}

// Frontier is the newest posted date captured by the previous run. The rules
// below assume the index lists cards newest first; Defensive drops that
// assumption and never halts on dates.
type Frontier struct {
	Latest    domain.Date
	Defensive bool
}

func NewFrontier(prev *domain.Store, defensive bool) Frontier {
	return Frontier{Latest: prev.LatestPostedDate(), Defensive: defensive}
}

// FirstRun is true when there is no frontier yet.
func (f Frontier) FirstRun() bool {
	return !f.Latest.Known()
}

// ForNew decides for an id the store has never seen, given its posted date.
// Same-day arrivals are included and never halt.
func (f Frontier) ForNew(posted domain.Date, promoted bool) Decision {
	if f.FirstRun() || f.Defensive || !posted.Known() {
		return Include
	}
	if !posted.Before(f.Latest) {
		return Include
	}
	if promoted {
		return Skip
	}
	return Halt
}

// ForKnown decides for an id already in the store, given its stored posted date.
func (f Frontier) ForKnown(known domain.Date, promoted bool) Decision {
	if f.FirstRun() || f.Defensive || promoted || !known.Known() {
		return Skip
	}
	if known.Before(f.Latest) {
		return Halt
	}
	return Skip
}
