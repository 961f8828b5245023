package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"circles-credit-backend/internal/app"
	"circles-credit-backend/internal/usecase/admin"
)

func adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Owner-only ledger writes",
	}
	cmd.AddCommand(setDeadlineCmd())
	return cmd
}

func setDeadlineCmd() *cobra.Command {
	var (
		req  admin.Request
		kind string
	)
	cmd := &cobra.Command{
		Use:   "set-deadline",
		Short: "Set a loan's vouching or repayment deadline, or its grace period",
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := admin.ParseKind(kind)
			if err != nil {
				return err
			}
			req.Kind = k
			if req.LoanID == 0 {
				return errors.New("--loan is required")
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) (any, error) {
				res := a.Admin.SetDeadline(ctx, req)
				if !res.Success {
					return res, errors.New(res.Error)
				}
				return res, nil
			})
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Deadline kind: vouching, repayment or grace")
	cmd.Flags().Uint64Var(&req.LoanID, "loan", 0, "Loan id")
	cmd.Flags().Uint64Var(&req.Value, "value", 0, "Unix timestamp, or seconds for grace")
	_ = cmd.MarkFlagRequired("kind")
	_ = cmd.MarkFlagRequired("value")

	return cmd
}
