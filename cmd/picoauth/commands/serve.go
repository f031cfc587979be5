package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"picoauth/internal/app"
)

func serveCmd() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the verifier service until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen != "" {
				wire.Config.Verifier.Listen = listen
			}
			return app.Serve(cmd.Context(), wire, func(addr string) {
				fmt.Printf("Listening on %s\n", addr)
			})
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "address to listen on (overrides config)")
	return cmd
}
