package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"trafine/internal/domain"
	"trafine/pkg/e"

	"github.com/redis/go-redis/v9"
)

// EventQueue is a redis list of lifecycle events: LPUSH to publish, BRPOP
// to consume, so delivery is FIFO.
type EventQueue struct {
	client redis.Cmdable
	key    string
}

func NewEventQueue(client redis.Cmdable, key string) *EventQueue {
	if key == "" {
		key = "events:incidents"
	}
	return &EventQueue{client: client, key: key}
}

func (q *EventQueue) Enqueue(ctx context.Context, event domain.IncidentEvent) error {
	b, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.key, b).Err()
}

// BRPop blocks up to timeout and returns e.ErrEventQueueEmpty when nothing
// arrived.
func (q *EventQueue) BRPop(ctx context.Context, timeout time.Duration) (domain.IncidentEvent, error) {
	var ev domain.IncidentEvent

	res, err := q.client.BRPop(ctx, timeout, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ev, e.ErrEventQueueEmpty
		}
		return ev, err
	}
	if len(res) < 2 {
		return ev, e.ErrEventQueueEmpty
	}
	if err := json.Unmarshal([]byte(res[1]), &ev); err != nil {
		return ev, err
	}
	return ev, nil
}
