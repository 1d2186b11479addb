package app

import (
	"context"

	"github.com/hashicorp/go-multierror"
)

// Close stops everything NewApp and Run started, in reverse order.
func (app *App) Close(ctx context.Context) error {
	app.logger.Info("Shutting down application")

	var result *multierror.Error
	if app.httpServer != nil {
		result = multierror.Append(result, app.httpServer.Shutdown(ctx))
	}
	if app.metricsServer != nil {
		result = multierror.Append(result, app.metricsServer.Shutdown(ctx))
	}
	if app.Raffle != nil {
		result = multierror.Append(result, app.Raffle.Close(ctx))
	}
	if app.Oracle != nil {
		result = multierror.Append(result, app.Oracle.Close(ctx))
	}
	if app.Router != nil {
		result = multierror.Append(result, app.Router.Close())
	}
	if app.EventBus != nil {
		result = multierror.Append(result, app.EventBus.Close())
	}
	if app.DB != nil {
		result = multierror.Append(result, app.DB.Close())
	}
	return result.ErrorOrNil()
}

// closeQuietly releases what a failed NewApp already opened.
func (app *App) closeQuietly() {
	if err := app.Close(context.Background()); err != nil {
		app.logger.Warn("Cleanup after failed start reported errors", "error", err)
	}
}
