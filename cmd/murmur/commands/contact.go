package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func contactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "contact <handle> <public-key-base64>",
		Short: "Add a peer's public key to the local contacts file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if wire.Contacts == nil {
				return fmt.Errorf("contacts are managed remotely when --directory is set")
			}
			if err := wire.Contacts.AddPeer(args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("Added %s.\n", args[0])
			return nil
		},
	}
}
