package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"murmur/internal/domain"
)

func rotateCmd() *cobra.Command {
	var emergency bool

	cmd := &cobra.Command{
		Use:   "rotate <peer>",
		Short: "Re-key the sending chain for a peer immediately",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := newManager()
			if err != nil {
				return err
			}
			defer mgr.Close()

			if emergency {
				err = mgr.Scheduler().EmergencyRotation(args[0])
			} else {
				err = mgr.Coordinator(args[0]).Rotate()
			}
			if errors.Is(err, domain.ErrSessionNotFound) {
				return fmt.Errorf("no session with %s; send a message first", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Println("Rotated.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&emergency, "emergency", false, "rotate after suspected key compromise")
	return cmd
}
