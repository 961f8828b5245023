package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"circles-credit-backend/internal/app"
	"circles-credit-backend/internal/usecase/defaults"
	"circles-credit-backend/internal/usecase/grace"
)

func defaultsCmd() *cobra.Command {
	var (
		req    defaults.Request
		action string
	)
	cmd := &cobra.Command{
		Use:   "defaults",
		Short: "Check, mark or notify loans past their grace period",
		RunE: func(cmd *cobra.Command, args []string) error {
			act, err := defaults.ParseAction(action)
			if err != nil {
				return err
			}
			req.Action = act
			return withApp(cmd, func(ctx context.Context, a *app.App) (any, error) {
				return a.Defaults.Run(ctx, req)
			})
		},
	}

	cmd.Flags().Uint64Var(&req.LoanID, "loan", 0, "Loan id (0 scans every loan)")
	cmd.Flags().StringVar(&action, "action", "check", "Action: check, mark or notify")
	cmd.Flags().Int64Var(&req.RecipientID, "recipient", 0, "Send notices to this recipient instead of the borrower")
	cmd.Flags().BoolVar(&req.NotifyOnMark, "notify-on-mark", true, "Notify after a successful mark")

	return cmd
}

func graceCmd() *cobra.Command {
	var (
		req    grace.Request
		action string
	)
	cmd := &cobra.Command{
		Use:   "grace",
		Short: "Check, notify or attempt collection on loans in their grace period",
		RunE: func(cmd *cobra.Command, args []string) error {
			act, err := grace.ParseAction(action)
			if err != nil {
				return err
			}
			req.Action = act
			return withApp(cmd, func(ctx context.Context, a *app.App) (any, error) {
				return a.Grace.Run(ctx, req)
			})
		},
	}

	cmd.Flags().Uint64Var(&req.LoanID, "loan", 0, "Loan id (0 scans every loan)")
	cmd.Flags().StringVar(&action, "action", "check", "Action: check, notify or collect")
	cmd.Flags().Int64Var(&req.RecipientID, "recipient", 0, "Send warnings to this recipient instead of the borrower")

	return cmd
}

func repaymentsCmd() *cobra.Command {
	var loanID uint64
	cmd := &cobra.Command{
		Use:   "repayments",
		Short: "List loans whose borrower can repay in full, or prepare one repayment",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) (any, error) {
				if loanID != 0 {
					item, err := a.Repayments.Prepare(ctx, loanID)
					if err != nil {
						return nil, err
					}
					return item, nil
				}
				return a.Repayments.Run(ctx)
			})
		},
	}

	cmd.Flags().Uint64Var(&loanID, "loan", 0, "Prepare the repayment for this loan")

	return cmd
}

func loanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "loan [id]",
		Short: "Show one loan with its debt and repayment phase",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid loan id %q", args[0])
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) (any, error) {
				l, err := a.Loans.Get(ctx, id)
				if err != nil {
					return nil, err
				}
				return l, nil
			})
		},
	}
}
