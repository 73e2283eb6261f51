package pledge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"telesheet/internal/network"

	"github.com/go-resty/resty/v2"
)

// APIFetcher reads spacePledged from a telemetry JSON endpoint.
type APIFetcher struct {
	http *resty.Client
}

func NewAPIFetcher(timeout time.Duration) *APIFetcher {
	c := resty.New()
	c.SetTimeout(timeout)
	c.SetHeader("Accept", "application/json")
	return &APIFetcher{http: c}
}

type apiResponse struct {
	SpacePledged json.Number `json:"spacePledged"`
}

func (f *APIFetcher) SpacePledged(ctx context.Context, target network.Target) (string, error) {
	res, err := f.http.R().SetContext(ctx).Get(target.Pledge.Endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to query %s: %w", target.Pledge.Endpoint, err)
	}
	if res.IsError() {
		return "", fmt.Errorf("unexpected status %d from %s", res.StatusCode(), target.Pledge.Endpoint)
	}

	var body apiResponse
	if err := json.Unmarshal(res.Body(), &body); err != nil {
		return "", fmt.Errorf("failed to decode response from %s: %w", target.Pledge.Endpoint, err)
	}
	if body.SpacePledged == "" {
		return "", fmt.Errorf("response from %s has no spacePledged", target.Pledge.Endpoint)
	}
	return body.SpacePledged.String(), nil
}
