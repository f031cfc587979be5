package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"picoauth/internal/app"
)

func main() {
	var home, listen string
	cmd := &cobra.Command{
		Use:          "verifierd",
		Short:        "picoauth verifier daemon",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := app.LoadConfig(home)
			if err != nil {
				return err
			}
			if listen != "" {
				conf.Verifier.Listen = listen
			}
			w, err := app.NewWire(cmd.Context(), conf)
			if err != nil {
				return err
			}
			defer w.Close()

			err = app.Serve(cmd.Context(), w, nil)
			w.Log.Info("verifier stopped")
			return err
		},
	}
	cmd.Flags().StringVar(&home, "home", "", "state dir (default $"+app.EnvHome+" or ~/.picoauth)")
	cmd.Flags().StringVar(&listen, "listen", "", "address to listen on (overrides config)")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
