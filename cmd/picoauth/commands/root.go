package commands

import (
	"context"

	"github.com/spf13/cobra"

	"picoauth/internal/app"
)

var (
	home       string
	passphrase string
	wire       *app.Wire
)

// Execute runs the CLI. ctx is cancelled on interrupt.
func Execute(ctx context.Context) error {
	root := &cobra.Command{
		Use:           "picoauth",
		Short:         "Pairing-based authentication with continuous sessions",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			conf, err := app.LoadConfig(home)
			if err != nil {
				return err
			}
			if passphrase != "" {
				conf.Passphrase = passphrase
			}
			// Not cmd.Context(): an interrupted auth still has to send STOP.
			// Close stops the scheduler.
			wire, err = app.NewWire(context.Background(), conf)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if wire == nil {
				return nil
			}
			return wire.Close()
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "state dir (default $"+app.EnvHome+" or ~/.picoauth)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase protecting the identity key")

	root.AddCommand(
		initCmd(),
		fingerprintCmd(),
		pairCmd(),
		unpairCmd(),
		pairingsCmd(),
		sessionsCmd(),
		authCmd(),
		serveCmd(),
	)
	return root.ExecuteContext(ctx)
}

// requirePassphrase returns the passphrase from -p or the environment.
func requirePassphrase() (string, error) {
	if wire.Config.Passphrase == "" {
		return "", app.ErrNoPassphrase
	}
	return wire.Config.Passphrase, nil
}
