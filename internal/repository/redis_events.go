package repository

import (
	"context"
	"encoding/json"

	"github.com/GoPolymarket/namegate/internal/model"
)

// RedisEventLog keeps the most recent notifications in a capped redis list, newest first.
type RedisEventLog struct {
	client  *RedisClient
	listKey string
	listMax int
}

func NewRedisEventLog(client *RedisClient, listKey string, listMax int) *RedisEventLog {
	if listKey == "" {
		listKey = "namegate:events"
	}
	if listMax <= 0 {
		listMax = 10000
	}
	return &RedisEventLog{
		client:  client,
		listKey: listKey,
		listMax: listMax,
	}
}

func (r *RedisEventLog) Write(ctx context.Context, n *model.Notification) error {
	if n == nil {
		return nil
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	pipe := r.client.Client.TxPipeline()
	pipe.LPush(ctx, r.listKey, payload)
	pipe.LTrim(ctx, r.listKey, 0, int64(r.listMax-1))
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisEventLog) List(ctx context.Context, limit int) ([]*model.Notification, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	items, err := r.client.Client.LRange(ctx, r.listKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	return decodeNotifications(items), nil
}

func decodeNotifications(items []string) []*model.Notification {
	results := make([]*model.Notification, 0, len(items))
	for _, raw := range items {
		var n model.Notification
		if err := json.Unmarshal([]byte(raw), &n); err != nil {
			continue
		}
		results = append(results, &n)
	}
	return results
}
