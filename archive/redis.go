package archive

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"go-orchestrator/model"
)

const archiveKey = "orchestrator:archived_tasks"

// Redis keeps archived tasks as a JSON list. Records are append-only;
// readers are expected to consume the list out of band.
type Redis struct {
	client *redis.Client
}

func NewRedis(ctx context.Context, addr string) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Redis{client: client}, nil
}

func (r *Redis) Archive(ctx context.Context, task model.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return r.client.LPush(ctx, archiveKey, data).Err()
}

func (r *Redis) Close() {
	r.client.Close()
}
