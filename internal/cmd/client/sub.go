package client

import (
	"github.com/spf13/cobra"
)

// NewSubCommand constructs the `sub` command.
func NewSubCommand(addr AddrFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sub <topic>",
		Short: "Subscribe to a topic and print what arrives",
		Long: "Subscribe prints any retained history for topic followed by live " +
			"deliveries as MSG frames, until the broker disconnects or the command is interrupted.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topic := args[0]
			if err := checkTopic(topic); err != nil {
				return err
			}
			return transportFor(cmd, addr).Subscribe(cmd.Context(), topic, cmd.OutOrStdout())
		},
	}
	addConnFlags(cmd)
	return cmd
}
