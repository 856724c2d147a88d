package phases

import (
	"context"

	"github.com/ternarybob/siteharvest/internal/conflict"
)

// ConflictResolution implements §4.13's Conflict Resolution phase: pure, synchronous, no
// worker involvement. It invokes internal/conflict.Resolve over every discovered context
// and stashes the result on the Runtime for Download to consume.
type ConflictResolution struct{}

func (ConflictResolution) Name() Phase { return PhaseConflict }

func (ConflictResolution) Run(_ context.Context, rt *Runtime) error {
	emitPhaseChanged(rt, PhaseConflict)
	rt.ConflictResult = conflict.Resolve(rt.DiscoveryOrder(), rt.Titles)
	rt.Stats.Discovered = len(rt.DiscoveryOrder())
	return nil
}
