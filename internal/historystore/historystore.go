// Package historystore provides durable persistence for the line
// source's history; the log sink's activity log does not use it and is
// always written to a local file. It is grounded
// on zmux-server's internal/infrastructure/datastore.DataStore — an
// ID-indexed, Redis-is-the-source-of-truth store — simplified here to a
// single append-ordered Redis LIST per session, since history has no
// keyed-record structure to index.
package historystore

import (
	"context"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Backend persists an append-ordered sequence of lines.
type Backend interface {
	Append(ctx context.Context, line string) error
	List(ctx context.Context) ([]string, error)
}

// RedisBackend stores lines in a Redis LIST via RPUSH/LRANGE, used when
// $MYSHELL_REDIS_ADDR is set.
type RedisBackend struct {
	client *redis.Client
	key    string
}

// NewRedisBackend dials addr and returns a Backend keyed by key (one list
// per session, or a fixed key for a shared history across sessions).
func NewRedisBackend(addr, key string) *RedisBackend {
	return &RedisBackend{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		key:    key,
	}
}

func (b *RedisBackend) Append(ctx context.Context, line string) error {
	return b.client.RPush(ctx, b.key, line).Err()
}

func (b *RedisBackend) List(ctx context.Context) ([]string, error) {
	return b.client.LRange(ctx, b.key, 0, -1).Result()
}

// Close releases the underlying Redis connection pool.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}

// FileBackend stores lines one-per-line in a local file, the fallback
// used when no Redis address is configured.
type FileBackend struct {
	path string
}

// NewFileBackend returns a Backend that reads/appends path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

func (b *FileBackend) Append(_ context.Context, line string) error {
	f, err := os.OpenFile(b.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(line + "\n")
	return err
}

func (b *FileBackend) List(_ context.Context) ([]string, error) {
	data, err := os.ReadFile(b.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil, nil
	}
	return lines, nil
}
