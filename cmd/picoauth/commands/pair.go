package commands

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"picoauth/internal/crypto"
	"picoauth/internal/domain"
)

func pairCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pair",
		Short: "Record a trusted service or an accepted prover",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "service [name] [host:port] [commitment]",
			Short: "Trust the verifier whose key matches commitment",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := domain.ParseCommitment(args[2])
				if err != nil {
					return err
				}
				p, err := wire.Pairings.PairService(args[0], args[1], c)
				if err != nil {
					return err
				}
				fmt.Printf("Paired service %s at %s (%s)\n", p.Name, p.Address, crypto.Fingerprint(p.Commitment))
				return nil
			},
		},
		&cobra.Command{
			Use:   "prover [name] [commitment]",
			Short: "Accept the prover whose key matches commitment",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := domain.ParseCommitment(args[1])
				if err != nil {
					return err
				}
				p, err := wire.Pairings.PairProver(args[0], c)
				if err != nil {
					return err
				}
				fmt.Printf("Paired prover %s (%s)\n", p.Name, crypto.Fingerprint(p.Commitment))
				return nil
			},
		},
	)
	return cmd
}

func unpairCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unpair",
		Short: "Forget a service or a prover",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "service [name]",
			Short: "Forget a trusted service",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return wire.Pairings.UnpairService(args[0])
			},
		},
		&cobra.Command{
			Use:   "prover [commitment]",
			Short: "Stop accepting a prover",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := domain.ParseCommitment(args[0])
				if err != nil {
					return err
				}
				return wire.Pairings.UnpairProver(c)
			},
		},
	)
	return cmd
}

func pairingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pairings",
		Short: "List paired services and provers",
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := wire.Pairings.Services()
			if err != nil {
				return err
			}
			provers, err := wire.Pairings.Provers()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KIND\tNAME\tADDRESS\tFINGERPRINT\tSINCE")
			for _, s := range services {
				fmt.Fprintf(w, "service\t%s\t%s\t%s\t%s\n", s.Name, s.Address, crypto.Fingerprint(s.Commitment), s.CreatedAt.Format(time.DateTime))
			}
			for _, p := range provers {
				fmt.Fprintf(w, "prover\t%s\t-\t%s\t%s\n", p.Name, crypto.Fingerprint(p.Commitment), p.CreatedAt.Format(time.DateTime))
			}
			return w.Flush()
		},
	}
}

func sessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List sessions recorded by the verifier",
		RunE: func(cmd *cobra.Command, args []string) error {
			recs, err := wire.Sessions.ListSessions()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSESSION\tPROVER\tCONTINUOUS\tSTATE\tUPDATED")
			for _, r := range recs {
				fmt.Fprintf(w, "%s\t%d\t%s\t%t\t%s\t%s\n",
					r.ID, r.SessionID, crypto.Fingerprint(r.Prover), r.Continuous, r.State, r.UpdatedAt.Format(time.DateTime))
			}
			return w.Flush()
		},
	}
}
