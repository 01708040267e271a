package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xo/dburl"

	"edition-publisher/config"
	"edition-publisher/handlers"
	"edition-publisher/helper"
)

var (
	servePort    string
	autoMigrate  bool
	shutdownWait time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStack()
		if err != nil {
			return err
		}
		defer s.close()

		if autoMigrate {
			if err := config.Migrate(s.db); err != nil {
				return err
			}
		}

		port := s.cfg.Port
		if servePort != "" {
			port = servePort
		}

		gin.SetMode(gin.ReleaseMode)
		router := handlers.SetupRouter(handlers.RouterDeps{
			Services: s.services,
			Helper:   helper.NewHTTPHelper(),
			Logger:   s.log,
			Metrics:  s.metrics,
			Gatherer: s.registry,
		})

		srv := &http.Server{Addr: ":" + port, Handler: router}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errc := make(chan error, 1)
		go func() {
			s.log.LogServerStart(port, databaseDriver(s.cfg.DatabaseURL))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- err
			}
			close(errc)
		}()

		select {
		case err := <-errc:
			return err
		case <-ctx.Done():
		}

		s.log.LogServerShutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWait)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

// databaseDriver names the driver of a database url without leaking credentials.
func databaseDriver(rawURL string) string {
	u, err := dburl.Parse(rawURL)
	if err != nil {
		return "unknown"
	}
	return u.Driver
}

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "listen port (overrides PORT)")
	serveCmd.Flags().BoolVar(&autoMigrate, "migrate", false, "run schema migrations before serving")
	serveCmd.Flags().DurationVar(&shutdownWait, "shutdown-timeout", 10*time.Second, "grace period for in-flight requests")
	rootCmd.AddCommand(serveCmd)
}
