// Package rediscache stores import previews in redis.
package rediscache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/importer"
)

const previewKeyPrefix = "academia:import:preview:"

type previewStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ importer.PreviewStore = (*previewStore)(nil)

// NewClient connects to the redis server of conf.
func NewClient(ctx context.Context, conf core.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Addr,
		Password: conf.Password,
		DB:       conf.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

// NewPreviewStore keeps previews for ttl after their last save.
func NewPreviewStore(client *redis.Client, ttl time.Duration) importer.PreviewStore {
	return &previewStore{client: client, ttl: ttl}
}

func previewKey(id string) string {
	return previewKeyPrefix + id
}

func (s *previewStore) SavePreview(ctx context.Context, p importer.Preview) error {
	data, err := json.Marshal(p)
	if err != nil {
		return errors.Wrap(err, "encoding preview")
	}
	if err = s.client.Set(ctx, previewKey(p.ID), data, s.ttl).Err(); err != nil {
		return errors.Wrap(err, "saving preview")
	}
	return nil
}

func (s *previewStore) GetPreview(ctx context.Context, id string) (importer.Preview, error) {
	data, err := s.client.Get(ctx, previewKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return importer.Preview{}, importer.ErrPreviewNotFound
		}
		return importer.Preview{}, errors.Wrap(err, "getting preview")
	}

	var p importer.Preview
	if err = json.Unmarshal(data, &p); err != nil {
		return importer.Preview{}, errors.Wrap(err, "decoding preview")
	}
	return p, nil
}

func (s *previewStore) DeletePreview(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, previewKey(id)).Err(); err != nil {
		return errors.Wrap(err, "deleting preview")
	}
	return nil
}
