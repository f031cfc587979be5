package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"picoauth/internal/crypto"
)

func fingerprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint",
		Short: "Print identity fingerprint and commitment",
		RunE: func(cmd *cobra.Command, args []string) error {
			pass, err := requirePassphrase()
			if err != nil {
				return err
			}
			c, err := wire.Identity.Commitment(pass)
			if err != nil {
				return err
			}
			fmt.Printf("Fingerprint: %s\nCommitment:  %s\n", crypto.Fingerprint(c), c)
			return nil
		},
	}
}
