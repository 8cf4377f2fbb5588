package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"murmur/internal/domain"
)

func recvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recv <peer>",
		Short: "Decrypt a packet from a peer, read as JSON from stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := newManager()
			if err != nil {
				return err
			}
			defer mgr.Close()

			var pkt domain.CipherPacket
			if err := json.NewDecoder(os.Stdin).Decode(&pkt); err != nil {
				return fmt.Errorf("read packet: %w", err)
			}

			pt, err := mgr.Coordinator(args[0]).Receive(cmd.Context(), pkt)
			if err != nil {
				return err
			}
			fmt.Println(string(pt))
			return nil
		},
	}
}
