package redis

import (
	"context"
	"fmt"
	"time"

	"backend/internal/app/config"

	"github.com/go-redis/redis/v8"
)

const servicePrefix = "donations_service."
const jwtPrefix = servicePrefix + "jwt."

type Client struct {
	cfg    config.RedisConfig
	client *redis.Client
}

func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	client := &Client{cfg: cfg}

	client.client = redis.NewClient(&redis.Options{
		Password:    cfg.Password,
		Username:    cfg.User,
		Addr:        fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		DB:          0,
		DialTimeout: cfg.DialTimeout,
		ReadTimeout: cfg.ReadTimeout,
	})

	if _, err := client.client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("cannot ping redis: %w", err)
	}

	return client, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// WriteJWTToBlacklist добавляет токен в blacklist до истечения его TTL
func (c *Client) WriteJWTToBlacklist(ctx context.Context, jwtStr string, jwtTTL time.Duration) error {
	return c.client.Set(ctx, getJWTKey(jwtStr), true, jwtTTL).Err()
}

// CheckJWTInBlacklist возвращает nil если токен найден в blacklist
func (c *Client) CheckJWTInBlacklist(ctx context.Context, jwtStr string) error {
	return c.client.Get(ctx, getJWTKey(jwtStr)).Err()
}

func getJWTKey(jwtStr string) string {
	return jwtPrefix + jwtStr
}

// ============ Общие примитивы (визард пожертвований) ============

// Set сохраняет значение с TTL
func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, servicePrefix+key, value, ttl).Err()
}

// Get читает значение; redis.Nil если ключа нет
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	return c.client.Get(ctx, servicePrefix+key).Bytes()
}

// Delete удаляет ключ
func (c *Client) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, servicePrefix+key).Err()
}

// SetNX выставляет ключ только если его нет (лок на время запроса)
func (c *Client) SetNX(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, servicePrefix+key, true, ttl).Result()
}

// IsNil проверяет является ли ошибка промахом по ключу
func IsNil(err error) bool {
	return err == redis.Nil
}
