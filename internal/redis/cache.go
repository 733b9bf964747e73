package redis

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"studynotes/internal/domain/course"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// Cache key patterns:
// - courses:catalog - full course catalog, CatalogTTL
const catalogKey = "courses:catalog"

// CacheConfig contains configuration for caching
type CacheConfig struct {
	CatalogTTL time.Duration
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{CatalogTTL: time.Minute}
}

// CacheStore handles caching in Redis
type CacheStore struct {
	client *goredis.Client
	config CacheConfig
}

func NewCacheStore(client *goredis.Client, config CacheConfig) *CacheStore {
	return &CacheStore{
		client: client,
		config: config,
	}
}

// CachedCourse is the cached shape of a course row.
type CachedCourse struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	Professor *string   `json:"professor,omitempty"`
	School    *string   `json:"school,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// GetCatalog returns the cached catalog. ok is false on a cache miss.
func (c *CacheStore) GetCatalog(ctx context.Context) ([]course.Course, bool, error) {
	data, err := c.client.Get(ctx, catalogKey).Result()
	if err == goredis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var cached []CachedCourse
	if err := json.Unmarshal([]byte(data), &cached); err != nil {
		return nil, false, err
	}
	courses := make([]course.Course, len(cached))
	for i, cc := range cached {
		courses[i] = course.Course{
			ID:        cc.ID,
			Code:      cc.Code,
			Professor: fromPtr(cc.Professor),
			School:    fromPtr(cc.School),
			CreatedAt: cc.CreatedAt,
		}
	}
	return courses, true, nil
}

func (c *CacheStore) SetCatalog(ctx context.Context, courses []course.Course) error {
	cached := make([]CachedCourse, len(courses))
	for i, co := range courses {
		cached[i] = CachedCourse{
			ID:        co.ID,
			Code:      co.Code,
			Professor: toPtr(co.Professor),
			School:    toPtr(co.School),
			CreatedAt: co.CreatedAt,
		}
	}
	data, err := json.Marshal(cached)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, catalogKey, data, c.config.CatalogTTL).Err()
}

func (c *CacheStore) InvalidateCatalog(ctx context.Context) error {
	return c.client.Del(ctx, catalogKey).Err()
}

// Ping checks if Redis is available
func (c *CacheStore) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func toPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func fromPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
