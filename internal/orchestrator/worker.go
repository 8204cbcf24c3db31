package orchestrator

import (
	"context"

	"torrentstream/internal/domain"
)

// runPostProcessing subscribes to the bus from its start-of-stream and
// invokes the policy applier for every Completed event. One failing
// torrent's post-processing never halts the worker; failures are logged
// and the loop continues.
func (o *Orchestrator) runPostProcessing(ctx context.Context) {
	defer close(o.done)

	sub := o.bus.Subscribe(ctx, 0)
	for {
		select {
		case <-ctx.Done():
			return
		case envelope, ok := <-sub.Events:
			if !ok {
				return
			}
			if envelope.Event.Kind != domain.EventCompleted {
				continue
			}
			o.applyPolicy(ctx, envelope.Event)
		}
	}
}

func (o *Orchestrator) applyPolicy(ctx context.Context, event domain.Event) {
	if o.policy == nil {
		return
	}
	policy := o.fsPolicySnapshot()
	if err := o.policy.Apply(ctx, policy, event.TorrentID, event.LibraryPath); err != nil {
		o.log.Error("post-processing failed",
			"torrent_id", string(event.TorrentID),
			"library_path", event.LibraryPath,
			"error", err,
		)
	}
}
