package commands

import (
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"

	"murmur/internal/crypto"
)

func fingerprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint",
		Short: "Print the identity fingerprint and public key",
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				return fmt.Errorf("passphrase required (-p)")
			}
			kp, err := wire.Identity.LoadIdentity(passphrase)
			if err != nil {
				return err
			}
			fmt.Printf("Fingerprint: %s\nPublic key:  %s\n",
				crypto.Fingerprint(kp.Public),
				base64.StdEncoding.EncodeToString(kp.Public.Slice()))
			return nil
		},
	}
}
