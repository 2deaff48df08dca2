package sections

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	lowimpl "github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces catalog keys
const DefaultRedisPrefix = "mcp-pdf-fill:catalog"

// RedisOptions configures a RedisStore
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// RedisStore keeps each template as a JSON value under <prefix>:template:<id>
// and the ids in the set <prefix>:ids.
type RedisStore struct {
	prefix string

	// implementation details, not exported
	internal *lowimpl.Client
}

var _ Store = (*RedisStore)(nil)

// OpenRedisStore connects and pings the server
func OpenRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	if opts.Prefix == "" {
		opts.Prefix = DefaultRedisPrefix
	}
	client := lowimpl.NewClient(&lowimpl.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	log.Println("[INFO] redis catalog initialized")
	return &RedisStore{prefix: opts.Prefix, internal: client}, nil
}

func (s *RedisStore) idsKey() string {
	return s.prefix + ":ids"
}

func (s *RedisStore) templateKey(id string) string {
	return s.prefix + ":template:" + id
}

// List implements Store
func (s *RedisStore) List(ctx context.Context, docType string) ([]Template, error) {
	ids, err := s.internal.SMembers(ctx, s.idsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog ids: %w", err)
	}
	if len(ids) == 0 {
		return []Template{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.templateKey(id)
	}
	vals, err := s.internal.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog entries: %w", err)
	}

	out := make([]Template, 0, len(vals))
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			// id without a value, removed concurrently
			continue
		}
		var t Template
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			return nil, fmt.Errorf("corrupt catalog entry %s: %w", ids[i], err)
		}
		if docType == "" || t.DocType == docType {
			out = append(out, t)
		}
	}
	sortTemplates(out)
	return out, nil
}

// Get implements Store
func (s *RedisStore) Get(ctx context.Context, id string) (Template, error) {
	raw, err := s.internal.Get(ctx, s.templateKey(id)).Result()
	if errors.Is(err, lowimpl.Nil) {
		return Template{}, notFound(id)
	}
	if err != nil {
		return Template{}, fmt.Errorf("failed to load catalog entry %s: %w", id, err)
	}

	var t Template
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return Template{}, fmt.Errorf("corrupt catalog entry %s: %w", id, err)
	}
	return t, nil
}

// Put implements Store
func (s *RedisStore) Put(ctx context.Context, t Template) error {
	if err := t.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode catalog entry: %w", err)
	}

	_, err = s.internal.TxPipelined(ctx, func(p lowimpl.Pipeliner) error {
		p.Set(ctx, s.templateKey(t.ID), data, 0)
		p.SAdd(ctx, s.idsKey(), t.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store catalog entry %s: %w", t.ID, err)
	}
	return nil
}

// Delete implements Store
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	var del *lowimpl.IntCmd
	_, err := s.internal.TxPipelined(ctx, func(p lowimpl.Pipeliner) error {
		del = p.Del(ctx, s.templateKey(id))
		p.SRem(ctx, s.idsKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete catalog entry %s: %w", id, err)
	}
	if del.Val() == 0 {
		return notFound(id)
	}
	return nil
}

// Close implements Store
func (s *RedisStore) Close() error {
	if s.internal == nil {
		return nil
	}
	return s.internal.Close()
}
