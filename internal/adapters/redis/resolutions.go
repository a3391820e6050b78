package redisad

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"review_monitor/internal/domain"
)

// ResolutionLog keeps crisis resolution events newest first in a capped list.
type ResolutionLog struct {
	c   *redis.Client
	key string
	max int64
}

func NewResolutionLog(c *redis.Client, key string, max int) *ResolutionLog {
	if max <= 0 {
		max = 1000
	}
	return &ResolutionLog{c: c, key: key, max: int64(max)}
}

func (l *ResolutionLog) Append(ctx context.Context, ev domain.ResolutionEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = l.c.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LPush(ctx, l.key, b)
		p.LTrim(ctx, l.key, 0, l.max-1)
		return nil
	})
	return err
}

func (l *ResolutionLog) List(ctx context.Context, limit int) ([]domain.ResolutionEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	raw, err := l.c.LRange(ctx, l.key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.ResolutionEvent, 0, len(raw))
	for _, s := range raw {
		var ev domain.ResolutionEvent
		if err := json.Unmarshal([]byte(s), &ev); err != nil {
			return nil, fmt.Errorf("decode resolution event: %w", err)
		}
		out = append(out, ev)
	}
	return out, nil
}
