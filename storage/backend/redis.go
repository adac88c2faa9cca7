package backend

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/taskflow-go/taskflow"
)

// Redis is a Redis-backed Backend: one hash key per record plus a set
// index for the one-to-many flow-to-task relationship, all under a
// configurable key prefix.
type Redis struct {
	client *redis.Client
	prefix string
}

// RedisOptions configures a Redis backend.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string // key prefix, default "taskflow:"
}

// NewRedis creates a Redis-backed Backend.
func NewRedis(opts RedisOptions) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "taskflow:"
	}
	return &Redis{client: client, prefix: prefix}
}

func (b *Redis) flowKey(uuid string) string      { return fmt.Sprintf("%sflow:%s", b.prefix, uuid) }
func (b *Redis) taskKey(uuid string) string      { return fmt.Sprintf("%stask:%s", b.prefix, uuid) }
func (b *Redis) flowTasksKey(uuid string) string { return fmt.Sprintf("%sflow:%s:tasks", b.prefix, uuid) }

// Close closes the underlying client.
func (b *Redis) Close() error {
	return b.client.Close()
}

// GetConnection returns a connection sharing the backend's client; Redis's
// client is itself safe for concurrent use, so no additional locking is
// needed here.
func (b *Redis) GetConnection(_ context.Context) (Connection, error) {
	return &redisConnection{backend: b}, nil
}

type redisConnection struct {
	backend *Redis
	closed  bool
}

func (c *redisConnection) Close() error {
	c.closed = true
	return nil
}

func (c *redisConnection) UpdateFlowDetails(ctx context.Context, fd *taskflow.FlowDetail) (*taskflow.FlowDetail, error) {
	b := c.backend
	data, err := b.client.HGetAll(ctx, b.flowKey(fd.UUID)).Result()
	if err != nil {
		return nil, fmt.Errorf("taskflow/backend: hgetall flow: %w", err)
	}

	merged := taskflow.NewFlowDetail(fd.UUID, fd.Name)
	if name, ok := data["name"]; ok {
		merged.Name = name
	}
	merged.State = fd.State // caller's state wins

	taskUUIDs, err := b.client.SMembers(ctx, b.flowTasksKey(fd.UUID)).Result()
	if err != nil {
		return nil, fmt.Errorf("taskflow/backend: smembers flow tasks: %w", err)
	}
	for _, uuid := range taskUUIDs {
		td, err := c.loadTask(ctx, uuid)
		if err != nil {
			return nil, err
		}
		if td != nil {
			merged.Add(td)
		}
	}
	for _, td := range fd.Tasks() {
		if merged.Find(td.UUID) == nil {
			merged.Add(td.Clone())
		}
	}

	pipe := b.client.Pipeline()
	pipe.HSet(ctx, b.flowKey(fd.UUID), map[string]any{"name": fd.Name, "state": string(fd.State)})
	for _, td := range merged.Tasks() {
		pipe.SAdd(ctx, b.flowTasksKey(fd.UUID), td.UUID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("taskflow/backend: persist flow: %w", err)
	}

	return merged, nil
}

func (c *redisConnection) loadTask(ctx context.Context, uuid string) (*taskflow.TaskDetail, error) {
	b := c.backend
	data, err := b.client.HGetAll(ctx, b.taskKey(uuid)).Result()
	if err != nil {
		return nil, fmt.Errorf("taskflow/backend: hgetall task: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	td := taskflow.NewTaskDetail(uuid, data["name"])
	td.State = taskflow.State(data["state"])
	if raw, ok := data["results"]; ok && raw != "" {
		results, err := decodeResults([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("taskflow/backend: decode results: %w", err)
		}
		td.Results = results
	}
	if raw, ok := data["meta"]; ok && raw != "" {
		meta, err := decodeMeta([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("taskflow/backend: decode meta: %w", err)
		}
		td.Meta = meta
	}
	return td, nil
}

func (c *redisConnection) UpdateTaskDetails(ctx context.Context, td *taskflow.TaskDetail) (*taskflow.TaskDetail, error) {
	b := c.backend

	resultsBlob, err := encodeResults(td.Results)
	if err != nil {
		return nil, fmt.Errorf("taskflow/backend: encode results: %w", err)
	}
	metaBlob, err := encodeMeta(td.Meta)
	if err != nil {
		return nil, fmt.Errorf("taskflow/backend: encode meta: %w", err)
	}

	fields := map[string]any{
		"name":  td.Name,
		"state": string(td.State),
	}
	if resultsBlob != nil {
		fields["results"] = string(resultsBlob)
	}
	if metaBlob != nil {
		fields["meta"] = string(metaBlob)
	}

	if err := b.client.HSet(ctx, b.taskKey(td.UUID), fields).Err(); err != nil {
		return nil, fmt.Errorf("taskflow/backend: hset task: %w", err)
	}

	return td.Clone(), nil
}
