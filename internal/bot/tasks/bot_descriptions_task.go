package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const describeTimeout = 2 * time.Minute

// newBotDescriptionsTask generates store descriptions for loaded bots that have
// neither an info.json description nor a stored one. One failing bot does not
// stop the others; the task fails only if every attempt failed.
func newBotDescriptionsTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "bot_descriptions")

	return func(ctx context.Context) error {
		timeoutCtx, cancel := context.WithTimeout(ctx, describeTimeout)
		defer cancel()

		var attempted, saved int
		var errs []error
		for _, b := range deps.Manager.Bots() {
			if timeoutCtx.Err() != nil {
				log.WarnContext(ctx, "Stopping description generation", "error", timeoutCtx.Err(), "saved_so_far", saved)
				return timeoutCtx.Err()
			}
			if b.Description != "" {
				continue
			}

			existing, err := deps.Store.GetBotDescription(timeoutCtx, b.Title)
			if err != nil {
				return fmt.Errorf("failed to read description of %s: %w", b.Title, err)
			}
			if existing != "" {
				continue
			}

			attempted++
			text, err := deps.GeminiClient.DescribeBot(timeoutCtx, b)
			if err == nil && text == "" {
				err = errors.New("empty description")
			}
			if err != nil {
				log.WarnContext(ctx, "Failed to describe bot", "bot", b.Title, "error", err)
				errs = append(errs, fmt.Errorf("%s: %w", b.Title, err))
				continue
			}
			if err := deps.Store.SaveBotDescription(timeoutCtx, b.Title, text); err != nil {
				errs = append(errs, err)
				continue
			}
			saved++
		}

		log.InfoContext(ctx, "Bot descriptions updated", "attempted", attempted, "saved", saved)
		if attempted > 0 && saved == 0 {
			return fmt.Errorf("no description could be generated: %w", errors.Join(errs...))
		}
		return nil
	}
}
