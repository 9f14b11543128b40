package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"queueaway/internal/config"
	"queueaway/internal/domain"
	"queueaway/internal/models"

	"github.com/redis/go-redis/v9"
)

// Fixed preference keys, one Redis hash per user.
const (
	fieldTheme     = "theme"
	fieldLocation  = "userLocation"
	fieldPushToken = "pushToken"
)

type RedisPreferencesRepository struct {
	client *redis.Client
	ttl    time.Duration
}

var _ domain.PreferencesRepository = (*RedisPreferencesRepository)(nil)

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// NewRedisPreferencesRepository stores preferences with the given TTL; zero keeps them forever.
func NewRedisPreferencesRepository(client *redis.Client, ttl time.Duration) *RedisPreferencesRepository {
	return &RedisPreferencesRepository{
		client: client,
		ttl:    ttl,
	}
}

func preferencesKey(userID string) string {
	return fmt.Sprintf("preferences:%s", userID)
}

// GetPreferences returns nil, nil when the user has stored nothing yet.
func (r *RedisPreferencesRepository) GetPreferences(ctx context.Context, userID string) (*models.Preferences, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	fields, err := r.client.HGetAll(ctx, preferencesKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get preferences from redis: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	prefs := &models.Preferences{
		UserID:    userID,
		Theme:     fields[fieldTheme],
		PushToken: fields[fieldPushToken],
	}
	if raw := fields[fieldLocation]; raw != "" {
		var loc models.Location
		if err := json.Unmarshal([]byte(raw), &loc); err != nil {
			return nil, fmt.Errorf("failed to unmarshal location: %w", err)
		}
		prefs.LastLocation = &loc
	}
	return prefs, nil
}

func (r *RedisPreferencesRepository) SetPreferences(ctx context.Context, prefs *models.Preferences) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	location := ""
	if prefs.LastLocation != nil {
		data, err := json.Marshal(prefs.LastLocation)
		if err != nil {
			return fmt.Errorf("failed to marshal location: %w", err)
		}
		location = string(data)
	}

	key := preferencesKey(prefs.UserID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			fieldTheme, prefs.Theme,
			fieldLocation, location,
			fieldPushToken, prefs.PushToken,
		)
		if r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set preferences in redis: %w", err)
	}
	return nil
}

func (r *RedisPreferencesRepository) ClearPreferences(ctx context.Context, userID string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, preferencesKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete preferences from redis: %w", err)
	}
	return nil
}

// CheckRateLimit counts a hit against key in a fixed window and reports whether it is
// still within limit.
func (r *RedisPreferencesRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	redisKey := fmt.Sprintf("rate_limit:%s", key)
	count, err := r.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	if count == 1 {
		if err := r.client.Expire(ctx, redisKey, window).Err(); err != nil {
			return false, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}

	return count <= int64(limit), nil
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
