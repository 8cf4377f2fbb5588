package commands

import (
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"

	"murmur/internal/crypto"
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Generate an identity key pair and store it securely",
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				return fmt.Errorf("passphrase required (-p)")
			}
			kp, err := crypto.GenerateKeyPair()
			if err != nil {
				return err
			}
			if err := wire.Identity.SaveIdentity(passphrase, kp); err != nil {
				return err
			}
			fmt.Printf("Identity created.\nFingerprint: %s\nPublic key:  %s\n",
				crypto.Fingerprint(kp.Public),
				base64.StdEncoding.EncodeToString(kp.Public.Slice()))
			return nil
		},
	}
}
