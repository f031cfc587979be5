package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"picoauth/internal/app"
)

func initCmd() *cobra.Command {
	var writeConfig bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate the identity key and store it encrypted",
		RunE: func(cmd *cobra.Command, args []string) error {
			pass, err := requirePassphrase()
			if err != nil {
				return err
			}
			_, fp, err := wire.Identity.GenerateIdentity(pass)
			if err != nil {
				return err
			}
			c, err := wire.Identity.Commitment(pass)
			if err != nil {
				return err
			}
			if writeConfig {
				if err := app.SaveConfig(wire.Config); err != nil {
					return err
				}
			}
			fmt.Printf("Identity created.\nFingerprint: %s\nCommitment:  %s\n", fp, c)
			return nil
		},
	}
	cmd.Flags().BoolVar(&writeConfig, "write-config", false, "also write the current configuration to config.toml")
	return cmd
}
