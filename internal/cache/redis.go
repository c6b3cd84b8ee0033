package cache

import (
	"context"
	"time"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"nodosml-recsys/internal/config"
	"nodosml-recsys/internal/logging"
	"nodosml-recsys/internal/metrics"
)

var client *redis.Client

func InitRedis(cfg *config.Config) {
	SetClient(redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       0,
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logging.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("[redis] error conectando")
	}

	logging.Info().Str("addr", cfg.RedisAddr).Msg("[redis] OK")
}

// SetClient permite inyectar otro cliente (tests); nil desactiva la cache.
func SetClient(c *redis.Client) {
	client = c
}

// =======================================================
//  Helpers JSON para usar desde los servicios
// =======================================================

// GetJSON lee una key de Redis, si existe deserializa el JSON en `dest`.
func GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if client == nil {
		return false, nil
	}

	val, err := client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		metrics.CacheRequests.WithLabelValues("miss").Inc()
		return false, nil
	}
	if err != nil {
		metrics.CacheRequests.WithLabelValues("error").Inc()
		return false, err
	}

	if err := json.Unmarshal(val, dest); err != nil {
		metrics.CacheRequests.WithLabelValues("error").Inc()
		return false, err
	}
	metrics.CacheRequests.WithLabelValues("hit").Inc()
	return true, nil
}

// SetJSON serializa `value` a JSON y lo guarda en Redis con TTL en segundos.
func SetJSON(ctx context.Context, key string, value any, ttlSeconds int) error {
	if client == nil {
		return nil
	}

	b, err := json.Marshal(value)
	if err != nil {
		return err
	}

	ttl := time.Duration(ttlSeconds) * time.Second
	return client.Set(ctx, key, b, ttl).Err()
}

// DeletePrefix borra todas las keys que empiezan con prefix (SCAN + DEL,
// sin bloquear Redis con KEYS). Devuelve cuántas se borraron.
func DeletePrefix(ctx context.Context, prefix string) (int, error) {
	if client == nil {
		return 0, nil
	}

	deleted := 0
	var cursor uint64
	for {
		keys, next, err := client.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return deleted, err
		}
		if len(keys) > 0 {
			n, err := client.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, err
			}
			deleted += int(n)
		}
		cursor = next
		if cursor == 0 {
			return deleted, nil
		}
	}
}
