package donation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"backend/internal/app/redis"
)

// ErrIntentNotFound — визард истёк или никогда не существовал
var ErrIntentNotFound = errors.New("donation intent not found")

const (
	intentTTL       = 30 * time.Minute
	submitLockTTL   = 30 * time.Second
	intentKeyPrefix = "donation.intent."
	lockKeyPrefix   = "donation.submit."
)

// Store хранит состояние визарда в Redis с TTL. После успешного
// редиректа на checkout состояние удаляется; по TTL оно просто
// исчезает — это и есть "ушёл со страницы".
type Store struct {
	redis *redis.Client
}

func NewStore(redisClient *redis.Client) *Store {
	return &Store{redis: redisClient}
}

// Create создаёт визард с дефолтами и сразу сохраняет
func (s *Store) Create(ctx context.Context) (*Intent, error) {
	intent := NewIntent()
	if err := s.Save(ctx, intent); err != nil {
		return nil, err
	}
	return intent, nil
}

// Get читает визард по id
func (s *Store) Get(ctx context.Context, id string) (*Intent, error) {
	data, err := s.redis.Get(ctx, intentKeyPrefix+id)
	if err != nil {
		if redis.IsNil(err) {
			return nil, ErrIntentNotFound
		}
		return nil, fmt.Errorf("failed to load intent: %w", err)
	}

	var intent Intent
	if err := json.Unmarshal(data, &intent); err != nil {
		return nil, fmt.Errorf("failed to unmarshal intent: %w", err)
	}
	return &intent, nil
}

// Save сохраняет визард, продлевая TTL
func (s *Store) Save(ctx context.Context, intent *Intent) error {
	data, err := json.Marshal(intent)
	if err != nil {
		return fmt.Errorf("failed to marshal intent: %w", err)
	}
	return s.redis.Set(ctx, intentKeyPrefix+intent.ID, data, intentTTL)
}

// Delete удаляет визард после успешного редиректа
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.redis.Delete(ctx, intentKeyPrefix+id)
}

// LockSubmit берёт single-flight лок на сабмит конкретного визарда.
// false — сабмит уже идёт в другом запросе.
func (s *Store) LockSubmit(ctx context.Context, id string) (bool, error) {
	return s.redis.SetNX(ctx, lockKeyPrefix+id, submitLockTTL)
}

// UnlockSubmit снимает лок после завершения запроса к провайдеру
func (s *Store) UnlockSubmit(ctx context.Context, id string) {
	_ = s.redis.Delete(ctx, lockKeyPrefix+id)
}
