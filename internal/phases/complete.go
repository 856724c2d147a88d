package phases

import "context"

// Complete implements §4.13's Complete phase: render final stats (discovered / downloaded
// / failed), and, if the run was aborted, the partial tree. Rendering itself is a console
// dashboard concern (external to this module, per SPEC_FULL.md's addendum); Complete's
// job is to finalize Runtime.Stats and emit the one PHASE:CHANGED transition so a
// dashboard subscriber can react.
type Complete struct{}

func (Complete) Name() Phase { return PhaseComplete }

func (Complete) Run(_ context.Context, rt *Runtime) error {
	emitPhaseChanged(rt, PhaseComplete)
	if rt.Stats.Discovered == 0 {
		rt.Stats.Discovered = len(rt.DiscoveryOrder())
	}
	if rt.Logger != nil {
		rt.Logger.Info().
			Int("discovered", rt.Stats.Discovered).
			Int("downloaded", rt.Stats.Downloaded).
			Int("failed", rt.Stats.Failed).
			Bool("aborted", rt.Stats.Aborted).
			Msg("run complete")
	}
	return nil
}
