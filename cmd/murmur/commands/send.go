package commands

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

func sendCmd() *cobra.Command {
	var static bool

	cmd := &cobra.Command{
		Use:   "send <peer> <message>",
		Short: "Encrypt a message for a peer and print the packet as JSON",
		Long: `Encrypts a message for the peer, establishing a session on first use,
and writes the wire packet to stdout. Delivery is up to the transport;
pipe the output wherever your messages travel.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := newManager()
			if err != nil {
				return err
			}
			defer mgr.Close()

			coord := mgr.Coordinator(args[0])
			ctx := cmd.Context()

			pkt, err := func() (any, error) {
				if static {
					return coord.SendStatic(ctx, []byte(args[1]))
				}
				return coord.Send(ctx, []byte(args[1]))
			}()
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			return enc.Encode(pkt)
		},
	}
	cmd.Flags().BoolVar(&static, "static", false, "use the non-ratcheted fallback mode (no forward secrecy)")
	return cmd
}
