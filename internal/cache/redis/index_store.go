package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/seedliq/makerbot/internal/domain"
)

// indexKey is the single key the whole venue index is stored under. Save
// replaces it wholesale, matching the file-backed store's semantics.
const indexKey = "makerbot:venue_index"

// IndexStore implements domain.VenueIndexStore over Redis, for deployments
// where several bot instances share one index.
type IndexStore struct {
	rdb *redis.Client
}

// NewIndexStore creates an IndexStore backed by the given Client.
func NewIndexStore(c *Client) *IndexStore {
	return &IndexStore{rdb: c.rdb}
}

// Load returns the stored venue index, or domain.ErrNotFound when the key is
// absent.
func (s *IndexStore) Load(ctx context.Context) (domain.VenueIndex, error) {
	data, err := s.rdb.Get(ctx, indexKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis: venue index: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("redis: loading venue index: %w", err)
	}

	var idx domain.VenueIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("redis: decoding venue index: %w", err)
	}
	if len(idx) == 0 {
		return nil, fmt.Errorf("redis: venue index: %w", domain.ErrNotFound)
	}
	return idx, nil
}

// Save replaces the stored index. The key carries no TTL; the index stays
// valid until the next rebuild overwrites it.
func (s *IndexStore) Save(ctx context.Context, idx domain.VenueIndex) error {
	data, err := json.Marshal(idx)
	if err != nil {
		return fmt.Errorf("redis: encoding venue index: %w", err)
	}
	if err := s.rdb.Set(ctx, indexKey, data, 0).Err(); err != nil {
		return fmt.Errorf("redis: saving venue index: %w", err)
	}
	return nil
}

var _ domain.VenueIndexStore = (*IndexStore)(nil)
