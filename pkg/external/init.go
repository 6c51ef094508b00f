// Package external builds per-App store adapters from each App's stored
// credentials blob. Credentials are per-App, not global configuration, so
// adapters are constructed lazily per request rather than once at
// start-up.
package external

import (
	"context"
	"fmt"

	"opencat/pkg/external/apple"
	"opencat/pkg/external/google"
	"opencat/pkg/external/storeadapter"
	"opencat/pkg/models"
)

// Factory builds a storeadapter.API for a given App, dispatching on its
// platform tag.
type Factory struct {
	// production gates the Apple adapter's development-mode JWS
	// chain-verification bypass: it must never be enabled when the
	// process run mode is production.
	production bool
}

func NewFactory(production bool) *Factory {
	return &Factory{production: production}
}

// For constructs the adapter for app's platform using its stored
// credentials blob.
func (f *Factory) For(ctx context.Context, app *models.App) (storeadapter.API, error) {
	blob, err := storeadapter.Parse(derefCredentials(app))
	if err != nil {
		return nil, fmt.Errorf("parse credentials for app %d: %w", app.ID, err)
	}

	switch app.Platform {
	case models.PlatformIOS:
		if blob.Apple == nil {
			return nil, fmt.Errorf("app %d has no apple credentials configured", app.ID)
		}
		// devMode is only ever true outside production; Adapter itself
		// never decides this, the factory owns the decision.
		return apple.New(*blob.Apple, !f.production), nil
	case models.PlatformAndroid:
		if blob.Google == nil {
			return nil, fmt.Errorf("app %d has no google credentials configured", app.ID)
		}
		return google.New(ctx, *blob.Google)
	default:
		return nil, fmt.Errorf("unsupported platform %q", app.Platform)
	}
}

func derefCredentials(app *models.App) string {
	if app.Credentials == nil {
		return ""
	}
	return *app.Credentials
}
