package list

import (
	"github.com/spf13/cobra"

	"github.com/redfish-tools/usecase-checkers/pkg/printer/table"
	"github.com/redfish-tools/usecase-checkers/pkg/suite"
	"github.com/redfish-tools/usecase-checkers/pkg/util/iostreams"
)

const (
	cmdName  = "list"
	cmdShort = "List the available use case checkers"
)

// AddCommand adds the list subcommand to the root command.
func AddCommand(root *cobra.Command) {
	cmd := &cobra.Command{
		Use:          cmdName,
		Short:        cmdShort,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			options := suite.NewOptions(iostreams.NewIOStreams(
				cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr()))
			if err := options.Complete(); err != nil {
				return err
			}

			renderer := table.NewRenderer(
				table.WithWriter(cmd.OutOrStdout()),
				table.WithHeaders("ID", "CATEGORY", "DESCRIPTION"),
			)
			for _, c := range options.Registry().ListAll() {
				if err := renderer.Append([]any{c.ID(), c.Category(), c.Description()}); err != nil {
					return err
				}
			}

			return renderer.Render()
		},
	}

	root.AddCommand(cmd)
}
