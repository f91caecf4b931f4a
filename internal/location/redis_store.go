package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/avvvet/community-intent/internal/models"
)

// ErrNoLocation is returned when no fresh location is stored for a user
var ErrNoLocation = errors.New("no location stored for user")

// Store persists the last known coordinates per user
type Store interface {
	SaveLocation(ctx context.Context, userID string, coords models.Coordinates) error
	GetLocation(ctx context.Context, userID string) (*Record, error)
}

// Record is what gets written for each user
type Record struct {
	UserID      string             `json:"user_id"`
	Coordinates models.Coordinates `json:"coordinates"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// RedisStore implements Store using Redis. Entries expire after ttl so a
// stale position is never served as current.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisStore creates a new Redis-backed store
func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{
		client: client,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

func locationKey(userID string) string {
	return fmt.Sprintf("location:%s", userID)
}

func (r *RedisStore) SaveLocation(ctx context.Context, userID string, coords models.Coordinates) error {
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	if !coords.Valid() {
		return fmt.Errorf("invalid coordinates %s", coords)
	}

	data, err := encodeRecord(Record{UserID: userID, Coordinates: coords, UpdatedAt: r.now().UTC()})
	if err != nil {
		return err
	}

	if err := r.client.Set(ctx, locationKey(userID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save location to Redis: %w", err)
	}
	return nil
}

func (r *RedisStore) GetLocation(ctx context.Context, userID string) (*Record, error) {
	data, err := r.client.Get(ctx, locationKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoLocation
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load location from Redis: %w", err)
	}
	return decodeRecord(data)
}

// Close closes the Redis connection
func (r *RedisStore) Close() error {
	return r.client.Close()
}

// Ping verifies the Redis connection is alive
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func encodeRecord(rec Record) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal location: %w", err)
	}
	return data, nil
}

func decodeRecord(data []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse location data: %w", err)
	}
	return &rec, nil
}
