package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"circles-credit-backend/internal/app"
	"circles-credit-backend/internal/usecase/events"
)

func eventsCmd() *cobra.Command {
	var r events.Range
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Process market events and send their notifications",
		Long: `Fetch market logs in the given block range, map each event to its
notifications and advance the stored cursor. Without --from the run resumes
after the cursor; without --to it stops at the current head.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if r.To != 0 && r.From > r.To {
				return fmt.Errorf("--from %d is after --to %d", r.From, r.To)
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) (any, error) {
				return a.Events.Listen(ctx, r)
			})
		},
	}

	cmd.Flags().Uint64Var(&r.From, "from", 0, "First block to process")
	cmd.Flags().Uint64Var(&r.To, "to", 0, "Last block to process")
	cmd.Flags().Int64Var(&r.RecipientID, "recipient", 0, "Send every notice to this recipient")

	return cmd
}
