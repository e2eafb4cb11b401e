package check

import (
	"github.com/spf13/cobra"

	"github.com/redfish-tools/usecase-checkers/pkg/suite"
	"github.com/redfish-tools/usecase-checkers/pkg/util/iostreams"
)

const (
	cmdName  = "check"
	cmdShort = "Run the Redfish use case checkers against a service"
)

// AddCommand adds the check subcommand to the root command.
func AddCommand(root *cobra.Command) {
	var options *suite.Options

	cmd := &cobra.Command{
		Use:          cmdName,
		Short:        cmdShort,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := options.Complete(); err != nil {
				return err
			}
			if err := options.Validate(); err != nil {
				return err
			}

			return options.Run(cmd.Context())
		},
	}

	options = suite.NewOptions(iostreams.NewIOStreams(
		root.InOrStdin(), root.OutOrStdout(), root.ErrOrStderr()))
	options.AddFlags(cmd.Flags())

	root.AddCommand(cmd)
}
