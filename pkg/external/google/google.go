// Package google implements the storeadapter.API capability against the
// Google Play Developer API (androidpublisher), including Real-Time
// Developer Notification decoding.
package google

import (
	"context"
	"fmt"
	"time"

	"opencat/pkg/external/storeadapter"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/oauth2/google"
	androidpublisher "google.golang.org/api/androidpublisher/v3"
	"google.golang.org/api/option"
)

const requestTimeout = 10 * time.Second

// Adapter talks to the Google Play Developer API for one App's
// credentials.
type Adapter struct {
	packageName string
	client      *androidpublisher.Service
	breaker     *gobreaker.CircuitBreaker[any]
}

// New builds an androidpublisher client authenticated via a
// service-account JWT bearer token.
func New(ctx context.Context, creds storeadapter.GoogleCredentials) (*Adapter, error) {
	config, err := google.JWTConfigFromJSON([]byte(creds.ServiceAccountJSON), androidpublisher.AndroidpublisherScope)
	if err != nil {
		return nil, fmt.Errorf("parse google service account: %w", err)
	}

	httpClient := config.Client(ctx)
	httpClient.Timeout = requestTimeout

	client, err := androidpublisher.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create androidpublisher client: %w", err)
	}

	return &Adapter{
		packageName: creds.PackageName,
		client:      client,
		breaker: gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
			Name:    "google-play-api",
			Timeout: 30 * time.Second,
		}),
	}, nil
}
