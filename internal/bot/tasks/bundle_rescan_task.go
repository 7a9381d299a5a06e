package tasks

import (
	"context"
	"fmt"
)

// newBundleRescanTask reloads the bot registry from the bundle directory. It
// covers deployments where file watching is unavailable, such as network mounts.
func newBundleRescanTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "bundle_rescan")

	return func(ctx context.Context) error {
		before := len(deps.Manager.Bots())
		count, err := deps.Manager.Load(ctx)
		if err != nil {
			return fmt.Errorf("bundle rescan failed: %w", err)
		}
		log.InfoContext(ctx, "Bundle rescan completed", "before", before, "after", count)
		return nil
	}
}
