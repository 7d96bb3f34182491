package client

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewPubCommand constructs the `pub` command.
func NewPubCommand(addr AddrFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pub <topic> <message>",
		Short: "Publish a message to a topic",
		Long:  "Publish sends one message to every subscriber of topic. Use - as the message to read it from stdin.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			topic := args[0]
			if err := checkTopic(topic); err != nil {
				return err
			}
			msg, err := readMessage(cmd, args[1])
			if err != nil {
				return err
			}
			if err := transportFor(cmd, addr).Publish(cmd.Context(), topic, msg); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "message sent")
			return nil
		},
	}
	addConnFlags(cmd)
	return cmd
}
