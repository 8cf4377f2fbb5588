package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"murmur/internal/app"
	"murmur/internal/session"
)

var (
	home         string
	passphrase   string
	directoryURL string
	stateBackend string

	wire *app.Wire
	cfg  app.Config
)

func Execute() error {
	root := &cobra.Command{
		Use:           "murmur",
		Short:         "End-to-end encrypted messaging CLI",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if home == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				home = filepath.Join(dir, ".murmur")
			}
			if err := os.MkdirAll(home, 0o700); err != nil {
				return err
			}
			cfg = app.Config{
				Home:         home,
				DirectoryURL: directoryURL,
				StateBackend: stateBackend,
			}
			var err error
			wire, err = app.NewWire(cfg)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if wire != nil {
				return wire.Close()
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "config dir (default ~/.murmur)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase protecting the identity")
	root.PersistentFlags().StringVar(&directoryURL, "directory", "", "directory base URL (default: local contacts file)")
	root.PersistentFlags().StringVar(&stateBackend, "state", "file", "session state backend: file or sqlite")

	root.AddCommand(initCmd(), fingerprintCmd(), contactCmd(), sendCmd(), recvCmd(), rotateCmd())
	return root.Execute()
}

// newManager loads the identity and builds the session manager. Commands
// that touch sessions share this; the manager is closed by the caller.
func newManager() (*session.Manager, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("passphrase required (-p)")
	}
	id, err := wire.Identity.LoadIdentity(passphrase)
	if err != nil {
		return nil, err
	}
	return session.NewManager(id, wire.Dir, wire.States, cfg.Rotation), nil
}
