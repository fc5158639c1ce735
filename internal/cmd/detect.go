package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tinkerbell/vultrds/internal/agent"
)

func newDetectCommand(root *RootCommand) *cobra.Command {
	return &cobra.Command{
		Use:   "detect",
		Short: "Report whether the host is a Vultr instance",
		Long: `Evaluate the platform signals: the DMI system manufacturer, a root= parameter in the
kernel command line naming vultr, and the marker directory. Prints true or false followed by the
DMI signature, and fails when the host is not a Vultr instance.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			detector, err := root.newDetector()
			if err != nil {
				return err
			}

			isVultr := detector.IsVultr(root.ctx)

			signature, err := json.Marshal(detector.Signature())
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), isVultr)
			fmt.Fprintln(cmd.OutOrStdout(), string(signature))

			if !isVultr {
				return agent.ErrNotVultr
			}
			return nil
		},
	}
}
