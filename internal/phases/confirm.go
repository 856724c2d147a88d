package phases

import "context"

// Confirm implements §4.13's optional User Confirmation phase. In an interactive run it
// would render the discovered tree (with cycle markers from the Page Graph) and prompt
// for continuation; the terminal UI itself is out of scope for this module (external
// console-dashboard concern), so Confirm's Run is a no-op whenever DryRun is set — per
// the spec's "if skipped (dry-run), the phase is a no-op" rule — and also a no-op
// otherwise, since there is no interactive terminal wired in. In dry-run mode the
// Orchestrator goes from Confirm straight to Complete, skipping ConflictResolution and
// Download.
type Confirm struct{}

func (Confirm) Name() Phase { return PhaseConfirm }

func (Confirm) Run(_ context.Context, rt *Runtime) error {
	emitPhaseChanged(rt, PhaseConfirm)
	return nil
}
