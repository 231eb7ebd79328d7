package main

import (
	"net/http"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/taskops/taskrunner/pkg/shortener"
)

func newShortenCmd() *cobra.Command {
	var (
		dbPath     string
		listenAddr string
		ratePerSec int
		burst      int
	)
	cmd := &cobra.Command{
		Use:   "shorten",
		Short: "Serve the URL shortener with expiry and visit analytics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			store, err := shortener.OpenStore(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			srv, err := shortener.NewServer(shortener.ServerConfig{
				RatePerSec: ratePerSec,
				Burst:      burst,
			}, store)
			if err != nil {
				return err
			}

			server := &http.Server{Addr: listenAddr, Handler: srv.Handler()}
			go func() {
				<-ctx.Done()
				server.Close()
			}()
			log.Info().Str("addr", listenAddr).Msg("url shortener listening")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return errors.Wrap(err, "serve shortener")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "urls.sqlite", "shortener database path")
	cmd.Flags().StringVar(&listenAddr, "listen", ":8000", "HTTP listen address")
	cmd.Flags().IntVar(&ratePerSec, "rate", 10, "requests per second per client")
	cmd.Flags().IntVar(&burst, "burst", 20, "request burst per client")
	return cmd
}
