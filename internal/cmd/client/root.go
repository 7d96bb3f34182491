package client

import (
	"github.com/spf13/cobra"
)

// NewRoot constructs a root Cobra command for the floq client.
// It registers the pub and sub commands.
func NewRoot(addr AddrFunc) *cobra.Command {
	root := &cobra.Command{
		Use:   "floq",
		Short: "floq client commands",
	}
	root.AddCommand(NewPubCommand(addr), NewSubCommand(addr))
	return root
}
