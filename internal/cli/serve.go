package cli

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"focalai/internal/gateway/app"
)

func ServeCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP, Connect and websocket gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.NewWithConfig(cmd.Context(), opts.config())
			if err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() { errCh <- a.Start() }()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(quit)

			select {
			case err := <-errCh:
				return err
			case <-quit:
			}

			log.Println("Shutting down server...")
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return a.Shutdown(ctx)
		},
	}
	cmd.Flags().String("port", "", "listen address or port (default :8081)")
	_ = opts.v.BindPFlag("port", cmd.Flags().Lookup("port"))
	return cmd
}
