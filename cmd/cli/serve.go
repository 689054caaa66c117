package main

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"degpredict/ui"
)

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the results viewer, JSON API and metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := bootstrap(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			gin.SetMode(c.Config.Server.GinMode)
			app, err := ui.NewApp(ui.Config{Runs: c.Runs, Store: c.Store, Gatherer: c.Registry})
			if err != nil {
				return err
			}
			if port == "" {
				port = c.Config.Server.Port
			}
			return app.Start(port)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "Listen port (default PORT)")
	return cmd
}
