package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/redfish-tools/usecase-checkers/cmd/check"
	"github.com/redfish-tools/usecase-checkers/cmd/list"
	"github.com/redfish-tools/usecase-checkers/cmd/version"
)

func main() {
	// SIGINT cancels the run context: checkers stop issuing new actions
	// while account cleanup still runs on a detached context.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := &cobra.Command{
		Use:   "rf-usecase-checker",
		Short: "Validate Redfish service behavior for common management use cases",
	}

	check.AddCommand(cmd)
	list.AddCommand(cmd)
	version.AddCommand(cmd)

	if err := cmd.ExecuteContext(ctx); err != nil {
		if _, writeErr := os.Stderr.WriteString(err.Error() + "\n"); writeErr != nil {
			os.Exit(1)
		}
		os.Exit(1)
	}
}
