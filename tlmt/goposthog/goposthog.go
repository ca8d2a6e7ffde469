package goposthog

import (
	"context"
	"time"

	"github.com/posthog/posthog-go"

	"github.com/coffeed/coffeed-admin/tlmt"
)

type service struct {
	client posthog.Client
}

// New creates a PostHog backed Telemetry. Events are batched and flushed
// every interval; Close flushes what is pending.
func New(publicAPIKey, endpointURL string) (tlmt.Telemetry, error) {
	client, err := posthog.NewWithConfig(publicAPIKey, posthog.Config{
		Endpoint: endpointURL,
		Interval: 10 * time.Second,
	})
	if err != nil {
		return nil, err
	}

	return &service{client: client}, nil
}

func (s *service) Send(_ context.Context, event tlmt.Event) error {
	capture := posthog.Capture{
		DistinctId: event.AnonymousID,
		Event:      event.Name,
		Properties: event.Properties,
	}

	if err := capture.Validate(); err != nil {
		return err
	}

	return s.client.Enqueue(capture)
}

func (s *service) Close() error {
	if s.client != nil {
		return s.client.Close()
	}

	return nil
}
