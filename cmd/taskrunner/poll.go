package main

import (
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/taskops/taskrunner/pkg/postcache"
)

func newPollCmd() *cobra.Command {
	var (
		upstreamURL string
		interval    time.Duration
		dbPath      string
		listenAddr  string
	)
	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Mirror upstream posts into a local cache and serve them",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			store, err := postcache.OpenStore(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			svc, err := postcache.NewService(postcache.Config{
				UpstreamURL:   upstreamURL,
				FetchInterval: interval,
			}, store)
			if err != nil {
				return err
			}

			server := &http.Server{Addr: listenAddr, Handler: svc.Handler()}
			go func() {
				log.Info().Str("addr", listenAddr).Msg("post cache listening")
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error().Err(err).Msg("post cache server failed")
				}
			}()
			defer server.Close()

			return svc.Start(ctx)
		},
	}
	cmd.Flags().StringVar(&upstreamURL, "upstream", "https://jsonplaceholder.typicode.com/posts", "upstream posts endpoint")
	cmd.Flags().DurationVar(&interval, "interval", 15*time.Minute, "refresh interval")
	cmd.Flags().StringVar(&dbPath, "db", "posts.sqlite", "cache database path")
	cmd.Flags().StringVar(&listenAddr, "listen", ":8080", "HTTP listen address")
	return cmd
}
