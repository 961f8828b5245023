package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"circles-credit-backend/internal/app"
	"circles-credit-backend/internal/domain/notification"
)

func notifyTestCmd() *cobra.Command {
	var (
		recipient int64
		message   string
	)
	cmd := &cobra.Command{
		Use:   "notify-test",
		Short: "Send a test notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			if recipient == 0 {
				return errors.New("--recipient is required")
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) (any, error) {
				out := a.Dispatcher.Dispatch(ctx, notification.Test(recipient, message))
				if out.Status != notification.StatusDelivered {
					return out, errors.New("test notification not delivered: " + string(out.Status))
				}
				return out, nil
			})
		},
	}

	cmd.Flags().Int64Var(&recipient, "recipient", 0, "Recipient id")
	cmd.Flags().StringVarP(&message, "message", "m", "", "Message text")

	return cmd
}
