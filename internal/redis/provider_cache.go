package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"trafine/internal/domain"

	goredis "github.com/redis/go-redis/v9"
)

// ProviderCache keeps normalized provider incidents per (bbox, type) for a
// short TTL. User reports never go through it.
type ProviderCache struct {
	client goredis.Cmdable
	prefix string
	ttl    time.Duration
}

func NewProviderCache(client goredis.Cmdable, ttl time.Duration) *ProviderCache {
	return &ProviderCache{
		client: client,
		prefix: "provider:incidents:",
		ttl:    ttl,
	}
}

func (c *ProviderCache) key(bbox domain.BBox, filter domain.IncidentType) string {
	if filter == "" {
		filter = "all"
	}
	return c.prefix + string(filter) + ":" + bbox.String()
}

// Get reports a miss as (nil, false, nil).
func (c *ProviderCache) Get(ctx context.Context, bbox domain.BBox, filter domain.IncidentType) ([]domain.Incident, bool, error) {
	data, err := c.client.Get(ctx, c.key(bbox, filter)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var incidents []domain.Incident
	if err := json.Unmarshal(data, &incidents); err != nil {
		return nil, false, err
	}
	for i := range incidents {
		incidents[i].Source = domain.SourceProvider
	}

	return incidents, true, nil
}

func (c *ProviderCache) Set(ctx context.Context, bbox domain.BBox, filter domain.IncidentType, incidents []domain.Incident) error {
	if c.ttl <= 0 {
		return nil
	}
	b, err := json.Marshal(incidents)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(bbox, filter), b, c.ttl).Err()
}
