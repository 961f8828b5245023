package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"circles-credit-backend/internal/app"
	"circles-credit-backend/internal/config"
	"circles-credit-backend/internal/logging"
)

var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "circlesctl",
		Short:         "Operator tool for the Circles credit market",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(loanCmd())
	root.AddCommand(defaultsCmd())
	root.AddCommand(graceCmd())
	root.AddCommand(repaymentsCmd())
	root.AddCommand(eventsCmd())
	root.AddCommand(notifyTestCmd())
	root.AddCommand(adminCmd())
	root.AddCommand(membersCmd())

	return root
}

// withApp wires the full application from the environment, runs fn and
// prints whatever it returns as JSON, even alongside an error.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) (any, error)) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	a, err := app.New(ctx, cfg, logging.NewLogger(cfg.Log))
	if err != nil {
		return err
	}
	defer a.Close(context.WithoutCancel(ctx))

	out, err := fn(ctx, a)
	if out != nil {
		if perr := printJSON(cmd.OutOrStdout(), out); perr != nil && err == nil {
			err = perr
		}
	}
	return err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
