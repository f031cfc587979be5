package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"picoauth/internal/protocol/continuous"
	"picoauth/internal/services/prover"
)

// printCallbacks reports continuous state changes on stdout.
type printCallbacks struct {
	continuous.NopCallbacks
}

func (printCallbacks) SessionPaused()    { fmt.Println("session paused") }
func (printCallbacks) SessionContinued() { fmt.Println("session active") }
func (printCallbacks) SessionStopped()   { fmt.Println("session stopped") }

func authCmd() *cobra.Command {
	var (
		token     string
		keepAlive bool
		interval  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "auth [service]",
		Short: "Authenticate to a paired service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pass, err := requirePassphrase()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			sess, err := wire.Prover.Authenticate(ctx, prover.Request{
				Service:    args[0],
				Passphrase: pass,
				Token:      []byte(token),
				Continuous: keepAlive,
				Timeout:    interval,
				Callbacks:  printCallbacks{},
			})
			if err != nil {
				return err
			}
			fmt.Printf("Authenticated to %s (session %d, %s)\n", sess.Service, sess.ID, sess.Status)
			if !sess.Continuous() {
				return nil
			}

			fmt.Println("Continuous session running; interrupt to stop.")
			select {
			case <-sess.Done():
			case <-ctx.Done():
				if err := sess.Stop(); err != nil {
					return err
				}
				select {
				case <-sess.Done():
				case <-time.After(wire.Config.Prover.DialTimeout.Duration):
					return fmt.Errorf("session %d did not stop in time", sess.ID)
				}
			}
			return sess.Err()
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "opaque data passed to the verifier's policy")
	cmd.Flags().BoolVarP(&keepAlive, "continuous", "c", false, "keep the session alive with continuous authentication")
	cmd.Flags().DurationVar(&interval, "interval", 0, "ask for a shorter reauth interval than the verifier's default")
	return cmd
}
