package serve

import (
	"github.com/spf13/cobra"

	"github.com/JesusOliveto/CalCalculator/internal/api"
	"github.com/JesusOliveto/CalCalculator/internal/app"
	"github.com/JesusOliveto/CalCalculator/internal/conf"
)

// Command creates the serve command running the HTTP API.
func Command(settings *conf.Settings, factory app.Factory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long:  "Serve the JSON API under /api/v1 until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := factory(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			opts := []api.ServerOption{
				api.WithStore(a.Store),
				api.WithLookup(a.Lookup),
				api.WithMetrics(a.Metrics),
				api.WithBuildInfo(a.Build),
			}
			if a.Publisher != nil {
				opts = append(opts, api.WithPublisher(a.Publisher))
			}
			if a.Notifier != nil {
				opts = append(opts, api.WithNotifier(a.Notifier))
			}

			server, err := api.New(settings, opts...)
			if err != nil {
				return err
			}
			return server.StartWithGracefulShutdown(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&settings.WebServer.Listen, "listen", settings.WebServer.Listen, "Listen address, e.g. :8080")
	cmd.Flags().BoolVar(&settings.WebServer.Metrics, "metrics", settings.WebServer.Metrics, "Expose Prometheus metrics at /metrics")

	return cmd
}
