package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Black-And-White-Club/raffle/pkg/observability/attr"
)

// Run starts the modules, the message router and the HTTP servers, and blocks
// until ctx is cancelled or one of them fails.
func (app *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := app.Oracle.Start(ctx); err != nil {
		return fmt.Errorf("failed to start oracle: %w", err)
	}
	if err := app.Raffle.Start(ctx); err != nil {
		return fmt.Errorf("failed to start raffle: %w", err)
	}

	errs := make(chan error, 3)

	go func() {
		if err := app.Router.Run(ctx); err != nil {
			errs <- fmt.Errorf("message router: %w", err)
		}
	}()

	go func() {
		app.logger.Info("Starting HTTP server", attr.String("address", app.httpServer.Addr))
		if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("http server: %w", err)
		}
	}()

	if app.metricsServer != nil {
		go func() {
			app.logger.Info("Starting metrics server", attr.String("address", app.metricsServer.Addr))
			if err := app.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errs <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errs:
		return err
	}
}
