package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aretw0/archguide"
	httpapi "github.com/aretw0/archguide/pkg/adapters/http"
	"golang.org/x/sync/errgroup"
)

// shutdownTimeout bounds graceful shutdown of every listener.
const shutdownTimeout = 5 * time.Second

// ServeOptions selects the listeners of the serve command.
type ServeOptions struct {
	Port int

	// MetricsPort serves /metrics on its own listener; 0 mounts it on the API.
	MetricsPort int
}

// RunServe runs the HTTP API (and the metrics listener) until ctx is done.
func RunServe(ctx context.Context, app *App, opts ServeOptions) error {
	apiOpts := []httpapi.Option{
		httpapi.WithLogger(app.Logger),
		httpapi.WithStreams(app.Streams),
		httpapi.WithMaxInputSize(app.Config.MaxInputSize),
		httpapi.WithVersion(archguide.Version),
	}
	if opts.MetricsPort == 0 {
		apiOpts = append(apiOpts, httpapi.WithMetrics(app.Metrics.Handler()))
	}

	servers := []*http.Server{{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: httpapi.NewHandler(app.Engine, app.Engine.Sessions(), apiOpts...),
	}}
	if opts.MetricsPort != 0 {
		mux := http.NewServeMux()
		mux.Handle("/metrics", app.Metrics.Handler())
		servers = append(servers, &http.Server{Addr: fmt.Sprintf(":%d", opts.MetricsPort), Handler: mux})
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(func() error {
			app.Logger.Info("Listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server %s: %w", srv.Addr, err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				app.Logger.Warn("Graceful shutdown did not complete", "addr", srv.Addr, "err", err)
				return srv.Close()
			}
			return nil
		})
	}

	err := g.Wait()
	app.Logger.Info("Server stopped")
	return err
}
