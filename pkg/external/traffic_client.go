// Package external implements the computation engine's external-lookup
// collaborator over plain HTTP services (traffic conditions and the like).
package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/entity"
)

// TrafficClient resolves EXTERNAL-sourced features against the traffic
// conditions service. The service keys its data by location cell, which is
// exactly the entity id LOCATION features carry.
type TrafficClient struct {
	baseURL string
	client  *http.Client
}

func NewTrafficClient(baseURL string) *TrafficClient {
	return &TrafficClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 3 * time.Second},
	}
}

type trafficResponse struct {
	CellId    string  `json:"cell_id"`
	Level     string  `json:"level"`
	SpeedKmh  float64 `json:"speed_kmh"`
	Incidents int     `json:"incidents"`
}

// Lookup fetches the current reading for the entity and shapes it to the
// feature's declared kind.
func (c *TrafficClient) Lookup(ctx context.Context, def *entity.FeatureDefinition, entityId string) (entity.Value, error) {
	url := fmt.Sprintf("%s/v1/traffic/%s", c.baseURL, entityId)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return entity.Value{}, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return entity.Value{}, fmt.Errorf("traffic lookup for %s: %w", entityId, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return entity.Value{}, fmt.Errorf("traffic lookup for %s: status %d", entityId, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return entity.Value{}, err
	}
	var tr trafficResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return entity.Value{}, fmt.Errorf("traffic lookup for %s: %w", entityId, err)
	}

	switch def.ValueType {
	case entity.ValueTypeString:
		return entity.StringValue(tr.Level), nil
	case entity.ValueTypeFloat:
		return entity.FloatValue(tr.SpeedKmh), nil
	case entity.ValueTypeInt:
		return entity.IntValue(int64(tr.Incidents)), nil
	default:
		return entity.Value{}, fmt.Errorf("traffic lookup cannot fill %s feature %s", def.ValueType, def.Name)
	}
}
